package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace/token-engine/store/sqlite"
	"github.com/solace/token-engine/wallet"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// KV CONTRACT TESTS
// =============================================================================

func TestNamespace_SetGetDelete(t *testing.T) {
	store := newTestStore(t)
	kv := store.Namespace("user-1")

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", "v1"))
	v, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	// Upsert overwrites.
	require.NoError(t, kv.Set("k", "v2"))
	v, _, _ = kv.Get("k")
	assert.Equal(t, "v2", v)

	require.NoError(t, kv.Delete("k"))
	_, ok, _ = kv.Get("k")
	assert.False(t, ok)
}

func TestNamespace_Isolation(t *testing.T) {
	// GIVEN: The same key written in two namespaces
	// WHEN: Reading each
	// THEN: Values never leak across users

	store := newTestStore(t)
	a := store.Namespace("user-a")
	b := store.Namespace("user-b")

	require.NoError(t, a.Set("wallet_data", "A"))
	require.NoError(t, b.Set("wallet_data", "B"))

	va, _, _ := a.Get("wallet_data")
	vb, _, _ := b.Get("wallet_data")
	assert.Equal(t, "A", va)
	assert.Equal(t, "B", vb)

	require.NoError(t, a.Delete("wallet_data"))
	_, ok, _ := b.Get("wallet_data")
	assert.True(t, ok, "deleting in one namespace must not touch another")
}

func TestListNamespaces(t *testing.T) {
	store := newTestStore(t)

	ns, err := store.ListNamespaces()
	require.NoError(t, err)
	assert.Empty(t, ns)

	require.NoError(t, store.Namespace("bob").Set("k", "v"))
	require.NoError(t, store.Namespace("alice").Set("k", "v"))
	require.NoError(t, store.Namespace("alice").Set("k2", "v"))

	ns, err = store.ListNamespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ns)
}

// =============================================================================
// ENGINE INTEGRATION TESTS
// =============================================================================

func TestEngine_OverSQLite_RoundTrip(t *testing.T) {
	// GIVEN: Wallet activity persisted through the SQLite medium
	// WHEN: A second engine hydrates from the same namespace
	// THEN: The state survives

	store := newTestStore(t)
	kv := store.Namespace("user-1")

	e := wallet.NewEngine("user-1", kv, wallet.WithRateLimit(0))
	require.True(t, e.AwardTokens(75, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.SpendTokens(25, "spend", nil))

	reloaded := wallet.NewEngine("user-1", store.Namespace("user-1"), wallet.WithRateLimit(0))
	assert.Equal(t, 50.0, reloaded.Balance())
	assert.Equal(t, 75.0, reloaded.TotalEarned())
	assert.Len(t, reloaded.Transactions(), 2)
}

func TestEngine_OverSQLite_LegacyMigration(t *testing.T) {
	// GIVEN: Legacy flat keys seeded straight into a namespace
	// WHEN: An engine constructs over it
	// THEN: Migration runs once and the flag lands in SQLite

	store := newTestStore(t)
	kv := store.Namespace("user-1")
	require.NoError(t, kv.Set(wallet.LegacyKeyBalance, "42"))

	e := wallet.NewEngine("user-1", kv, wallet.WithRateLimit(0))
	assert.Equal(t, 42.0, e.Balance())

	flag, ok, err := kv.Get(wallet.KeyMigrated)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", flag)
}

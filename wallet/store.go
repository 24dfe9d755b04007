/*
store.go - Key-value persistence medium interface

PURPOSE:
  The wallet persists as a handful of string values under well-known keys
  in a key-value medium, one namespace per user identity. The interface is
  deliberately small: the engine needs nothing more than get/set/delete,
  and every implementation from an in-memory map to a SQLite table can
  provide it.

KEYS:
  wallet_data       The serialized WalletSnapshot (JSON)
  wallet_migrated   One-time migration flag ("true" once set)

  Legacy, read exactly once during first-run migration:
  token_balance       Flat balance number
  token_pending       Flat pending number
  token_transactions  Transactions array (JSON)
  token_earnings      Earnings-breakdown object (JSON)

IMPLEMENTATIONS:
  - wallet/store.Memory: In-memory, with write-failure injection for tests
  - store/sqlite.Store:  Durable single-table KV per namespace

SEE ALSO:
  - persist.go: How the engine uses these keys
*/
package wallet

// =============================================================================
// KV - Persistence medium, one namespace per identity
// =============================================================================

// KV is the persistence medium for a single user identity. Get reports
// presence separately from errors so "missing" and "broken medium" stay
// distinguishable; the loader treats both as absence.
type KV interface {
	// Get returns the value under key and whether it was present.
	Get(key string) (value string, ok bool, err error)

	// Set writes value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Well-known keys within an identity's namespace.
const (
	KeySnapshot = "wallet_data"
	KeyMigrated = "wallet_migrated"

	LegacyKeyBalance      = "token_balance"
	LegacyKeyPending      = "token_pending"
	LegacyKeyTransactions = "token_transactions"
	LegacyKeyEarnings     = "token_earnings"
)

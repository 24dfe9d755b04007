package wallet_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace/token-engine/wallet"
	"github.com/solace/token-engine/wallet/store"
)

// =============================================================================
// UNLOCK TESTS
// =============================================================================

func TestAchievements_UnlockOnThreshold(t *testing.T) {
	// GIVEN: A wallet that just crossed 100 lifetime tokens
	// WHEN: Running the achievement check
	// THEN: first-token and century-club both unlock

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(100, "seed", wallet.CategoryBonuses, nil))

	fresh := e.CheckAndUnlockAchievements()

	ids := make([]string, 0, len(fresh))
	for _, a := range fresh {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "first-token")
	assert.Contains(t, ids, "century-club")
}

func TestAchievements_Idempotent(t *testing.T) {
	// GIVEN: An unlocked achievement
	// WHEN: The check runs again with the condition still true
	// THEN: No re-award; the recorded set stays stable

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(10, "seed", wallet.CategoryBonuses, nil))

	first := e.CheckAndUnlockAchievements()
	require.NotEmpty(t, first)

	assert.Empty(t, e.CheckAndUnlockAchievements(), "second check must unlock nothing")
	assert.Len(t, e.Achievements(), len(first))
}

func TestAchievements_ConditionNotMetStaysLocked(t *testing.T) {
	// GIVEN: 50 lifetime tokens
	// WHEN: Checking
	// THEN: century-club stays locked while first-token unlocks

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	e.CheckAndUnlockAchievements()

	ids := map[string]bool{}
	for _, a := range e.Achievements() {
		ids[a.ID] = true
	}
	assert.True(t, ids["first-token"])
	assert.False(t, ids["century-club"])
}

func TestAchievements_StreakMilestone(t *testing.T) {
	// GIVEN: Seven consecutive login days
	// WHEN: Checking
	// THEN: streak-week unlocks

	e, _ := newTestEngine(t)
	for day := 1; day <= 7; day++ {
		e.RecordLogin(mustDate(fmt.Sprintf("2026-04-%02d", day)))
	}

	e.CheckAndUnlockAchievements()
	ids := map[string]bool{}
	for _, a := range e.Achievements() {
		ids[a.ID] = true
	}
	assert.True(t, ids["streak-week"])
}

func TestAchievements_EventPerUnlock(t *testing.T) {
	// GIVEN: A subscriber on achievement events
	// WHEN: Two achievements unlock in one check
	// THEN: One event fires per unlock

	e, _ := newTestEngine(t)

	var seen []string
	e.Subscribe(wallet.EventAchievementUnlocked, func(ev wallet.Event) {
		seen = append(seen, ev.Achievement.Achievement.ID)
	})

	require.True(t, e.AwardTokens(100, "seed", wallet.CategoryBonuses, nil))
	fresh := e.CheckAndUnlockAchievements()

	assert.Len(t, seen, len(fresh))
}

func TestAchievements_CustomDefinitions(t *testing.T) {
	// GIVEN: A deployment-specific definition set
	// WHEN: Its condition is met
	// THEN: Only the custom set is evaluated

	defs := []wallet.AchievementDef{{
		ID:   "tiny",
		Name: "Tiny Milestone",
		Unlocked: func(s *wallet.WalletSnapshot) bool {
			return s.TotalEarned.Float64() >= 1
		},
	}}
	kv := store.NewMemory()
	e := wallet.NewEngine("user-1", kv,
		wallet.WithRateLimit(0), wallet.WithAchievements(defs))

	require.True(t, e.AwardTokens(1, "seed", wallet.CategoryOther, nil))
	fresh := e.CheckAndUnlockAchievements()

	require.Len(t, fresh, 1)
	assert.Equal(t, "tiny", fresh[0].ID)
}

func TestAchievements_SurviveReload(t *testing.T) {
	// GIVEN: Unlocked achievements persisted once
	// WHEN: A fresh engine loads the same medium and re-checks
	// THEN: The records survive and nothing re-fires

	kv := store.NewMemory()
	e := wallet.NewEngine("user-1", kv, wallet.WithRateLimit(0))
	require.True(t, e.AwardTokens(10, "seed", wallet.CategoryBonuses, nil))
	require.NotEmpty(t, e.CheckAndUnlockAchievements())

	reloaded := wallet.NewEngine("user-1", kv, wallet.WithRateLimit(0))
	assert.NotEmpty(t, reloaded.Achievements())
	assert.Empty(t, reloaded.CheckAndUnlockAchievements())
}

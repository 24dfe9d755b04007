package wallet_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace/token-engine/wallet"
	"github.com/solace/token-engine/wallet/store"
)

func premiumSpec() wallet.SubscriptionSpec {
	return wallet.SubscriptionSpec{ID: "premium", Name: "Premium", MonthlyCost: 10}
}

// =============================================================================
// ACTIVATION TESTS
// =============================================================================

func TestActivateSubscription_ChargesFirstMonth(t *testing.T) {
	// GIVEN: A wallet with 50 tokens
	// WHEN: Activating a 10-token subscription
	// THEN: The first month is charged now and the renewal sits 30 days out

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))

	require.True(t, e.ActivateSubscription(premiumSpec()))

	assert.Equal(t, 40.0, e.Balance())
	sub := e.Subscriptions()["premium"]
	assert.True(t, sub.Enabled)
	assert.Equal(t, clock.Now().Add(30*24*time.Hour), sub.NextRenewal)

	txs := e.Transactions()
	require.NotEmpty(t, txs)
	assert.Equal(t, wallet.TxSpend, txs[0].Type)
	assert.Equal(t, "premium", txs[0].Metadata["subscription_id"])
}

func TestActivateSubscription_InsufficientBalanceRejected(t *testing.T) {
	// GIVEN: A wallet with 5 tokens
	// WHEN: Activating a 10-token subscription
	// THEN: Rejected; nothing enabled, nothing charged

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(5, "seed", wallet.CategoryBonuses, nil))

	assert.False(t, e.ActivateSubscription(premiumSpec()))
	assert.Equal(t, 5.0, e.Balance())
	assert.Empty(t, e.Subscriptions())
}

func TestActivateSubscription_AlreadyEnabledRejected(t *testing.T) {
	// GIVEN: An enabled subscription
	// WHEN: Activating the same ID again
	// THEN: Rejected without a second charge

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))

	assert.False(t, e.ActivateSubscription(premiumSpec()))
	assert.Equal(t, 40.0, e.Balance())
}

func TestActivateSubscription_InvalidSpecRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))

	assert.False(t, e.ActivateSubscription(wallet.SubscriptionSpec{Name: "no id", MonthlyCost: 5}))
	assert.False(t, e.ActivateSubscription(wallet.SubscriptionSpec{ID: "free", MonthlyCost: 0}))
	assert.Equal(t, 50.0, e.Balance())
}

func TestActivateSubscription_ReenableAfterDeactivationCharges(t *testing.T) {
	// GIVEN: A subscription activated then deactivated
	// WHEN: Activating it again
	// THEN: It charges again (no refund, no credit carryover)

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))
	require.True(t, e.DeactivateSubscription("premium"))

	require.True(t, e.ActivateSubscription(premiumSpec()))
	assert.Equal(t, 30.0, e.Balance())
}

// =============================================================================
// DEACTIVATION TESTS
// =============================================================================

func TestDeactivateSubscription_NoRefund(t *testing.T) {
	// GIVEN: A freshly charged subscription
	// WHEN: Deactivating immediately
	// THEN: Disabled, balance unchanged

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))

	require.True(t, e.DeactivateSubscription("premium"))
	assert.Equal(t, 40.0, e.Balance())
	assert.False(t, e.Subscriptions()["premium"].Enabled)
}

func TestDeactivateSubscription_UnknownOrDisabledRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))

	assert.False(t, e.DeactivateSubscription("nope"))

	require.True(t, e.ActivateSubscription(premiumSpec()))
	require.True(t, e.DeactivateSubscription("premium"))
	assert.False(t, e.DeactivateSubscription("premium"), "already disabled")
}

// =============================================================================
// RENEWAL SWEEP TESTS
// =============================================================================

func TestCheckSubscriptionRenewals_ChargesDueSubscription(t *testing.T) {
	// GIVEN: An enabled subscription whose renewal date has passed
	// WHEN: Running the sweep
	// THEN: It charges and advances the renewal 30 days from the sweep time

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))

	clock.Advance(31 * 24 * time.Hour)
	results := e.CheckSubscriptionRenewals()

	require.Len(t, results, 1)
	assert.True(t, results[0].Charged)
	assert.False(t, results[0].Disabled)
	assert.Equal(t, 30.0, e.Balance())
	assert.Equal(t, clock.Now().Add(30*24*time.Hour), e.Subscriptions()["premium"].NextRenewal,
		"renewal advances from the sweep time, not the missed date")
}

func TestCheckSubscriptionRenewals_NotDueUntouched(t *testing.T) {
	// GIVEN: A subscription 10 days into its period
	// WHEN: Running the sweep
	// THEN: Nothing is due, nothing is charged

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))

	clock.Advance(10 * 24 * time.Hour)
	assert.Empty(t, e.CheckSubscriptionRenewals())
	assert.Equal(t, 40.0, e.Balance())
}

func TestCheckSubscriptionRenewals_InsufficientBalanceDisables(t *testing.T) {
	// GIVEN: A due subscription and a balance below the monthly cost
	// WHEN: Running the sweep
	// THEN: No charge; the subscription lapses to disabled and stays
	//       re-activatable later

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(15, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec())) // balance now 5

	clock.Advance(31 * 24 * time.Hour)
	results := e.CheckSubscriptionRenewals()

	require.Len(t, results, 1)
	assert.False(t, results[0].Charged)
	assert.True(t, results[0].Disabled)
	assert.Equal(t, 5.0, e.Balance())
	assert.False(t, e.Subscriptions()["premium"].Enabled)

	// Earning back and re-activating works.
	require.True(t, e.AwardTokens(20, "recovery", wallet.CategoryBonuses, nil))
	assert.True(t, e.ActivateSubscription(premiumSpec()))
}

func TestCheckSubscriptionRenewals_EmitsLifecycleEvents(t *testing.T) {
	// GIVEN: Two due subscriptions and a balance covering neither
	// WHEN: Running the sweep
	// THEN: A lapsed event fires for each

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(35, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))                                                   // -10, leaves 25
	require.True(t, e.ActivateSubscription(wallet.SubscriptionSpec{ID: "mega", Name: "Mega", MonthlyCost: 20})) // -20, leaves 5

	actions := map[string]wallet.SubscriptionAction{}
	e.Subscribe(wallet.EventSubscription, func(ev wallet.Event) {
		actions[ev.Subscription.Subscription.ID] = ev.Subscription.Action
	})

	clock.Advance(31 * 24 * time.Hour)
	e.CheckSubscriptionRenewals()

	// 5 remaining tokens cover neither cost: both lapse.
	assert.Equal(t, wallet.SubscriptionLapsed, actions["mega"])
	assert.Equal(t, wallet.SubscriptionLapsed, actions["premium"])
	assert.Equal(t, 5.0, e.Balance())
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestActivateSubscription_ConcurrentDuplicateChargesOnce(t *testing.T) {
	// GIVEN: Two goroutines activating the same subscription ID
	// WHEN: Both race through the enabled-check and the charge
	// THEN: Exactly one activation wins and the first month is charged once

	e, _ := newTestEngine(t)
	require.True(t, e.AwardTokens(100, "seed", wallet.CategoryBonuses, nil))

	// Widen the race window between the charge and the registry commit.
	e.Subscribe(wallet.EventSpend, func(wallet.Event) { runtime.Gosched() })

	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.ActivateSubscription(premiumSpec())
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "one activation wins, the duplicate is rejected")
	assert.Equal(t, 10.0, e.Spent(), "the first month is charged exactly once")
	assert.Equal(t, 90.0, e.Balance())
	assert.True(t, e.Subscriptions()["premium"].Enabled)
}

func TestCheckSubscriptionRenewals_ConcurrentSweepsChargeOnce(t *testing.T) {
	// GIVEN: A due subscription and two sweeps racing (the schedule and the
	//        admin endpoint overlapping)
	// WHEN: Both sweeps complete
	// THEN: The renewal is charged exactly once; the second sweep sees the
	//       advanced renewal date and finds nothing due

	clock := &steppableClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)}
	e := wallet.NewEngine("user-1", store.NewMemory(),
		wallet.WithRateLimit(0), wallet.WithClock(clock.Now))
	require.True(t, e.AwardTokens(50, "seed", wallet.CategoryBonuses, nil))
	require.True(t, e.ActivateSubscription(premiumSpec()))

	clock.Advance(31 * 24 * time.Hour)

	charges := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for _, res := range e.CheckSubscriptionRenewals() {
				if res.Charged {
					n++
				}
			}
			charges <- n
		}()
	}
	wg.Wait()
	close(charges)

	total := 0
	for n := range charges {
		total += n
	}
	assert.Equal(t, 1, total, "overlapping sweeps must not double-charge")
	assert.Equal(t, 20.0, e.Spent(), "activation plus exactly one renewal")
	assert.Equal(t, 30.0, e.Balance())
}

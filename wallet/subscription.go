/*
subscription.go - Recurring-cost features charged through the ledger

PURPOSE:
  A subscription is an optional feature with a monthly token cost.
  Activation spends the first month up front; a renewal sweep re-charges
  every enabled subscription whose renewal date has passed, disabling (not
  charging) the ones the balance cannot cover. Deactivation stops future
  charges without refunding.

BILLING RULES:
  - Activation: spend monthlyCost now, nextRenewal = now + 30 days
  - Renewal:    spend monthlyCost, nextRenewal advances 30 days from the
                sweep time (not from the missed date - a wallet offline
                for months is not back-billed)
  - Lapse:      insufficient balance disables the subscription; it can be
                re-activated later, which charges again

CONCURRENCY:
  Every operation here holds the engine's gate across its whole
  check-charge-commit sequence. Two racing activations of the same ID
  charge once; overlapping renewal sweeps (schedule plus the admin
  endpoint) see the advanced renewal date and charge once.

SEE ALSO:
  - engine.go: The gate-held spend path these charges go through
  - cmd/server: Schedules the renewal sweep via cron
*/
package wallet

import "time"

// renewalPeriod is the fixed billing interval.
const renewalPeriod = 30 * 24 * time.Hour

// SubscriptionSpec describes a subscription to activate.
type SubscriptionSpec struct {
	ID          string
	Name        string
	MonthlyCost float64
}

// RenewalResult reports one subscription's outcome from a renewal sweep.
type RenewalResult struct {
	SubscriptionID string
	Charged        bool
	Disabled       bool
}

// ActivateSubscription charges the first month and enables the
// subscription. Returns false with zero state change when the spec is
// invalid, the subscription is already enabled, or the balance cannot
// cover the monthly cost.
func (e *Engine) ActivateSubscription(spec SubscriptionSpec) bool {
	if spec.ID == "" || !(spec.MonthlyCost > 0) {
		return false
	}

	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.RLock()
	existing, ok := e.snap.Subscriptions[spec.ID]
	e.mu.RUnlock()
	if ok && existing.Enabled {
		return false
	}

	if !e.spendLocked(spec.MonthlyCost, "subscription: "+spec.Name, map[string]string{
		"subscription_id": spec.ID,
	}) {
		return false
	}

	now := e.now()
	sub := Subscription{
		ID:          spec.ID,
		Name:        spec.Name,
		MonthlyCost: spec.MonthlyCost,
		Enabled:     true,
		ActivatedAt: now,
		NextRenewal: now.Add(renewalPeriod),
	}
	e.commitSubscriptionLocked(sub)

	e.bus.publish(Event{Kind: EventSubscription, At: now, Subscription: &SubscriptionPayload{
		Subscription: sub, Action: SubscriptionActivated,
	}})
	return true
}

// DeactivateSubscription disables the subscription without refund.
// Returns false when it does not exist or is already disabled.
func (e *Engine) DeactivateSubscription(id string) bool {
	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.Lock()
	sub, ok := e.snap.Subscriptions[id]
	if !ok || !sub.Enabled {
		e.mu.Unlock()
		return false
	}
	sub.Enabled = false
	e.snap.Subscriptions[id] = sub
	e.mu.Unlock()

	e.persistQuiet()
	e.bus.publish(Event{Kind: EventSubscription, At: e.now(), Subscription: &SubscriptionPayload{
		Subscription: sub, Action: SubscriptionDeactivated,
	}})
	return true
}

// CheckSubscriptionRenewals re-charges every enabled subscription whose
// renewal date has passed. A charge the balance cannot cover disables the
// subscription instead. Returns one result per due subscription.
func (e *Engine) CheckSubscriptionRenewals() []RenewalResult {
	e.gate.Lock()
	defer e.gate.Unlock()

	now := e.now()

	e.mu.RLock()
	due := make([]Subscription, 0, len(e.snap.Subscriptions))
	for _, sub := range e.snap.Subscriptions {
		if sub.Enabled && !sub.NextRenewal.After(now) {
			due = append(due, sub)
		}
	}
	e.mu.RUnlock()

	results := make([]RenewalResult, 0, len(due))
	for _, sub := range due {
		if e.spendLocked(sub.MonthlyCost, "subscription renewal: "+sub.Name, map[string]string{
			"subscription_id": sub.ID,
		}) {
			sub.NextRenewal = now.Add(renewalPeriod)
			e.commitSubscriptionLocked(sub)
			e.bus.publish(Event{Kind: EventSubscription, At: now, Subscription: &SubscriptionPayload{
				Subscription: sub, Action: SubscriptionRenewed,
			}})
			results = append(results, RenewalResult{SubscriptionID: sub.ID, Charged: true})
			continue
		}

		sub.Enabled = false
		e.commitSubscriptionLocked(sub)
		e.bus.publish(Event{Kind: EventSubscription, At: now, Subscription: &SubscriptionPayload{
			Subscription: sub, Action: SubscriptionLapsed,
		}})
		results = append(results, RenewalResult{SubscriptionID: sub.ID, Disabled: true})
	}
	return results
}

// Subscriptions returns a copy of the subscription registry.
func (e *Engine) Subscriptions() map[string]Subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Subscription, len(e.snap.Subscriptions))
	for k, v := range e.snap.Subscriptions {
		out[k] = v
	}
	return out
}

// commitSubscriptionLocked stores sub and persists; the caller holds the
// gate.
func (e *Engine) commitSubscriptionLocked(sub Subscription) {
	e.mu.Lock()
	e.snap.Subscriptions[sub.ID] = sub
	e.mu.Unlock()

	e.persistQuiet()
}

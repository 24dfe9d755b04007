/*
events.go - Typed publish/subscribe for wallet observers

PURPOSE:
  External collaborators (UI, analytics, metrics) observe the ledger via
  change notifications rather than polling. This file replaces the loosely
  typed listener-list pattern with a fixed enum of event kinds and a
  strongly typed payload per kind.

DELIVERY CONTRACT:
  - Handlers run synchronously inside the mutating call that produced the
    event, after the state transition has committed.
  - For a successful award: EventReward fires before EventBalanceChange.
    For a successful spend: EventSpend before EventBalanceChange.
  - A claim fires only EventBalanceChange (balance is unchanged by claim,
    but downstream displays of pending/claimed must refresh).
  - Handlers must not call back into the same Engine's mutating operations;
    the concurrency gate is held while they run.

SEE ALSO:
  - engine.go: Publishes these events
  - api/metrics.go: A subscriber exporting Prometheus counters
*/
package wallet

import (
	"sync"
	"time"
)

// =============================================================================
// EVENT KINDS AND PAYLOADS
// =============================================================================

type EventKind int

const (
	EventReward EventKind = iota
	EventSpend
	EventBalanceChange
	EventSubscription
	EventAchievementUnlocked
)

func (k EventKind) String() string {
	switch k {
	case EventReward:
		return "reward"
	case EventSpend:
		return "spend"
	case EventBalanceChange:
		return "balance_change"
	case EventSubscription:
		return "subscription"
	case EventAchievementUnlocked:
		return "achievement_unlocked"
	default:
		return "unknown"
	}
}

// RewardPayload describes a successful award.
type RewardPayload struct {
	Amount     float64
	Reason     string
	Category   Category
	OldBalance float64
	NewBalance float64
}

// SpendPayload describes a successful spend.
type SpendPayload struct {
	Amount     float64
	Reason     string
	OldBalance float64
	NewBalance float64
}

// BalancePayload describes any committed mutation, claim included.
type BalancePayload struct {
	OldBalance float64
	NewBalance float64
}

// SubscriptionPayload describes a subscription lifecycle change.
type SubscriptionPayload struct {
	Subscription Subscription
	Action       SubscriptionAction
}

type SubscriptionAction string

const (
	SubscriptionActivated   SubscriptionAction = "activated"
	SubscriptionDeactivated SubscriptionAction = "deactivated"
	SubscriptionRenewed     SubscriptionAction = "renewed"
	SubscriptionLapsed      SubscriptionAction = "lapsed"
)

// AchievementPayload describes a newly unlocked achievement.
type AchievementPayload struct {
	Achievement Achievement
}

// Event is the envelope delivered to handlers. Exactly one payload pointer
// is non-nil, matching Kind.
type Event struct {
	Kind EventKind
	At   time.Time

	Reward       *RewardPayload
	Spend        *SpendPayload
	Balance      *BalancePayload
	Subscription *SubscriptionPayload
	Achievement  *AchievementPayload
}

// Handler receives events for the kind it subscribed to.
type Handler func(Event)

// =============================================================================
// BUS - Fixed-kind subscription registry
// =============================================================================

type bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventKind]map[int]Handler
}

func newBus() *bus {
	return &bus{handlers: make(map[EventKind]map[int]Handler)}
}

func (b *bus) subscribe(kind EventKind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

func (b *bus) publish(e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Kind]))
	for _, h := range b.handlers[e.Kind] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(e)
	}
}

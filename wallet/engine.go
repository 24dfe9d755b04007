/*
engine.go - Ledger Core and Concurrency Gate

PURPOSE:
  The Engine owns the canonical wallet state for one identity and applies
  award/spend/claim as atomic, invariant-preserving transitions. It is
  constructed once per session per identity and passed by handle; there is
  no process-wide singleton.

CRITICAL INVARIANTS:
  1. CONSERVATION: balance == totalEarned - spent at every observation
  2. NO OVERDRAFT: a spend never takes balance below zero
  3. MONOTONE: totalEarned and spent never decrease
  4. ONE TRANSACTION PER MUTATION: with a unique ID, newest-first, capped

CONCURRENCY GATE:
  A single mutex serializes every mutating call's full read-modify-write
  sequence, so two concurrent spends that would jointly overdraw produce
  exactly one success. Readers never wait on the gate: committed state sits
  behind a separate RWMutex and reads return the latest committed value.
  Rate-limit rejection is non-blocking - it returns false immediately and
  leaves the scheduled availability time untouched.

FAILURE CONTRACT:
  Precondition violations (non-positive amount, insufficient balance,
  empty pending, rate limit) return false with zero state change. A
  persistence write failure is swallowed: the in-memory mutation stands
  and the operation still reports success.

SEE ALSO:
  - events.go: Notification ordering (reward/spend before balance-change)
  - persist.go: Full-snapshot re-serialize after every mutation
  - subscription.go, achievements.go: The registry layered on top
*/
package wallet

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRateLimit is the minimum interval between successive successful
// awards for one identity.
const DefaultRateLimit = 1 * time.Second

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	userID string
	kv     KV

	// gate serializes all mutating operations end to end.
	gate sync.Mutex

	// mu guards snap for readers; writers hold it only for the commit.
	mu   sync.RWMutex
	snap WalletSnapshot

	rateLimit   time.Duration
	nextAwardAt time.Time

	logCap       int
	now          func() time.Time
	newID        func() string
	bus          *bus
	achievements []AchievementDef

	// lastWriteErr records the most recent swallowed persistence failure
	// so outer layers can surface it without changing the bool contract.
	lastWriteErr error
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithRateLimit sets the minimum interval between successful awards.
// Zero disables rate limiting.
func WithRateLimit(d time.Duration) Option {
	return func(e *Engine) { e.rateLimit = d }
}

// WithClock injects a time source. Tests use this to step the rate-limit
// window deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogCap overrides the transaction log bound.
func WithLogCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.logCap = n
		}
	}
}

// WithIDSource injects the transaction ID generator.
func WithIDSource(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithAchievements replaces the default achievement definition set.
func WithAchievements(defs []AchievementDef) Option {
	return func(e *Engine) { e.achievements = defs }
}

// NewEngine hydrates (or migrates) the wallet for userID from kv and
// returns a ready engine. Construction never fails: corrupt or missing
// state resolves to the zero wallet.
func NewEngine(userID string, kv KV, opts ...Option) *Engine {
	e := &Engine{
		userID:       userID,
		kv:           kv,
		rateLimit:    DefaultRateLimit,
		logCap:       MaxTransactions,
		now:          time.Now,
		newID:        uuid.NewString,
		bus:          newBus(),
		achievements: DefaultAchievements(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snap = load(kv)
	return e
}

// UserID returns the identity this engine was constructed for.
func (e *Engine) UserID() string { return e.userID }

// Subscribe registers a handler for one event kind and returns an
// unsubscribe function. Handlers run synchronously inside mutations.
func (e *Engine) Subscribe(kind EventKind, h Handler) func() {
	return e.bus.subscribe(kind, h)
}

// LastWriteError returns the most recent swallowed persistence failure,
// or nil. Informational only; mutations never fail on it.
func (e *Engine) LastWriteError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastWriteErr
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// AwardComponent is one slice of a composite award. See AwardBundle.
type AwardComponent struct {
	Amount   float64
	Reason   string
	Category Category
	Metadata map[string]string
}

// AwardTokens credits amount to the wallet under the given category.
// Returns false with zero state change when amount is not positive or the
// award rate limit is still active; a rejected call does not move the
// limiter's scheduled availability time.
func (e *Engine) AwardTokens(amount float64, reason string, category Category, metadata map[string]string) bool {
	return e.AwardBundle(AwardComponent{
		Amount:   amount,
		Reason:   reason,
		Category: category,
		Metadata: metadata,
	})
}

// AwardBundle credits several components as a single award: the rate
// limiter is consulted once for the whole bundle, so a bonus riding
// along with a primary award cannot be rejected separately from it.
// Each component appends its own transaction under its own category and
// fires its own reward event; one balance-change event covers the net
// effect. Returns false with zero state change when the bundle is empty,
// any component is non-positive, or the award rate limit is still
// active.
func (e *Engine) AwardBundle(components ...AwardComponent) bool {
	if len(components) == 0 {
		return false
	}
	for _, c := range components {
		if !(c.Amount > 0) {
			return false
		}
	}

	e.gate.Lock()
	defer e.gate.Unlock()

	now := e.now()
	if e.rateLimit > 0 && now.Before(e.nextAwardAt) {
		return false
	}
	e.nextAwardAt = now.Add(e.rateLimit)

	e.mu.Lock()
	oldBalance := e.snap.Balance.Float64()
	payloads := make([]RewardPayload, 0, len(components))
	for _, c := range components {
		category := c.Category.Normalize()
		before := e.snap.Balance.Float64()
		e.snap.TotalEarned = e.snap.TotalEarned.Add(c.Amount)
		e.snap.Pending = e.snap.Pending.Add(c.Amount)
		e.snap.Balance = e.snap.Balance.Add(c.Amount)
		e.snap.EarningsBreakdown[category] += c.Amount
		after := e.snap.Balance.Float64()
		pending := e.snap.Pending.Float64()

		e.appendTxLocked(Transaction{
			ID:         e.newID(),
			Type:       TxEarn,
			Amount:     c.Amount,
			Reason:     c.Reason,
			ReasonCode: category,
			Metadata:   c.Metadata,
			Timestamp:  now,
			Balance:    after,
			Pending:    &pending,
		})
		payloads = append(payloads, RewardPayload{
			Amount: c.Amount, Reason: c.Reason, Category: category,
			OldBalance: before, NewBalance: after,
		})
	}
	newBalance := e.snap.Balance.Float64()
	e.mu.Unlock()

	e.persistQuiet()

	for i := range payloads {
		e.bus.publish(Event{Kind: EventReward, At: now, Reward: &payloads[i]})
	}
	e.bus.publish(Event{Kind: EventBalanceChange, At: now, Balance: &BalancePayload{
		OldBalance: oldBalance, NewBalance: newBalance,
	}})
	return true
}

// SpendTokens debits amount from the spendable balance. Returns false with
// zero state change when amount is not positive or exceeds the balance by
// even the smallest representable unit.
func (e *Engine) SpendTokens(amount float64, reason string, metadata map[string]string) bool {
	if !(amount > 0) {
		return false
	}

	e.gate.Lock()
	defer e.gate.Unlock()

	return e.spendLocked(amount, reason, metadata)
}

// spendLocked is the spend path for callers already holding the gate:
// SpendTokens itself and the subscription registry, whose
// check-charge-commit sequences must be atomic under a single gate
// acquisition.
func (e *Engine) spendLocked(amount float64, reason string, metadata map[string]string) bool {
	if !(amount > 0) {
		return false
	}

	e.mu.Lock()
	if !e.snap.Balance.AtLeast(amount) {
		e.mu.Unlock()
		return false
	}
	now := e.now()
	oldBalance := e.snap.Balance.Float64()
	e.snap.Balance = e.snap.Balance.Sub(amount)
	e.snap.Spent = e.snap.Spent.Add(amount)
	newBalance := e.snap.Balance.Float64()
	spent := e.snap.Spent.Float64()

	e.appendTxLocked(Transaction{
		ID:        e.newID(),
		Type:      TxSpend,
		Amount:    -amount,
		Reason:    reason,
		Metadata:  metadata,
		Timestamp: now,
		Balance:   newBalance,
		Spent:     &spent,
	})
	e.mu.Unlock()

	e.persistQuiet()

	e.bus.publish(Event{Kind: EventSpend, At: now, Spend: &SpendPayload{
		Amount: amount, Reason: reason,
		OldBalance: oldBalance, NewBalance: newBalance,
	}})
	e.bus.publish(Event{Kind: EventBalanceChange, At: now, Balance: &BalancePayload{
		OldBalance: oldBalance, NewBalance: newBalance,
	}})
	return true
}

// ClaimRewards moves the entire pending amount into claimed. Balance is
// unaffected. Returns false when nothing is pending.
func (e *Engine) ClaimRewards() bool {
	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.Lock()
	if !e.snap.Pending.IsPositive() {
		e.mu.Unlock()
		return false
	}
	now := e.now()
	amount := e.snap.Pending.Float64()
	balance := e.snap.Balance.Float64()
	e.snap.Claimed = e.snap.Claimed.Add(amount)
	e.snap.Pending = Num(0)
	claimed := e.snap.Claimed.Float64()

	e.appendTxLocked(Transaction{
		ID:        e.newID(),
		Type:      TxClaim,
		Amount:    amount,
		Reason:    "rewards claimed",
		Timestamp: now,
		Balance:   balance,
		Claimed:   &claimed,
	})
	e.mu.Unlock()

	e.persistQuiet()

	e.bus.publish(Event{Kind: EventBalanceChange, At: now, Balance: &BalancePayload{
		OldBalance: balance, NewBalance: balance,
	}})
	return true
}

// appendTxLocked prepends tx (newest-first) and trims the log to the cap.
// Caller holds e.mu.
func (e *Engine) appendTxLocked(tx Transaction) {
	txs := make([]Transaction, 0, len(e.snap.Transactions)+1)
	txs = append(txs, tx)
	txs = append(txs, e.snap.Transactions...)
	if len(txs) > e.logCap {
		txs = txs[:e.logCap]
	}
	e.snap.Transactions = txs
}

// persistQuiet re-serializes the full snapshot, recording but never
// propagating a failure.
func (e *Engine) persistQuiet() {
	e.mu.RLock()
	snap := e.snap.Clone()
	e.mu.RUnlock()

	err := persist(e.kv, snap)

	e.mu.Lock()
	e.lastWriteErr = err
	e.mu.Unlock()
}

// =============================================================================
// READERS - Non-blocking, latest committed state
// =============================================================================

// Balance returns the current spendable balance.
func (e *Engine) Balance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Balance.Float64()
}

// Pending returns tokens earned but not yet claimed.
func (e *Engine) Pending() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Pending.Float64()
}

// TotalEarned returns lifetime earnings.
func (e *Engine) TotalEarned() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.TotalEarned.Float64()
}

// Claimed returns the lifetime amount moved out of pending.
func (e *Engine) Claimed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Claimed.Float64()
}

// Spent returns lifetime spending.
func (e *Engine) Spent() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Spent.Float64()
}

// AvailableBalance returns balance minus pending.
func (e *Engine) AvailableBalance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Balance.Float64() - e.snap.Pending.Float64()
}

// Snapshot returns a deep copy of the full wallet state.
func (e *Engine) Snapshot() WalletSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Clone()
}

// Transactions returns the transaction log, newest first.
func (e *Engine) Transactions() []Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Transaction, len(e.snap.Transactions))
	copy(out, e.snap.Transactions)
	return out
}

// EarningsBreakdown returns per-category cumulative earnings.
func (e *Engine) EarningsBreakdown() map[Category]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[Category]float64, len(e.snap.EarningsBreakdown))
	for k, v := range e.snap.EarningsBreakdown {
		out[k] = v
	}
	return out
}

// Streaks returns the current streak counters.
func (e *Engine) Streaks() StreakData {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.StreakData
}

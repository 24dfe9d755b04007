/*
Package wallet provides the token reward ledger engine.

PURPOSE:
  This package owns the canonical wallet state for one pseudonymous user
  identity: earned/pending/claimed/spent buckets, the capped transaction
  log, streak counters, subscriptions, and achievements. All mutation goes
  through the Engine's three operations (award, spend, claim) plus the
  subscription/achievement registry built on top of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - WalletSnapshot: The full persisted state, one per identity
  - Transaction: One immutable log entry per mutation (newest-first)
  - NullFloat: A float64 that remembers whether it was persisted as null
  - Category: Closed set of earning categories with a fallback bucket

DESIGN PRINCIPLES:
  1. Single owner: One Engine per identity, no ambient globals
  2. Conservation: balance == totalEarned - spent at every observation
  3. Auditability: Every mutation appends exactly one transaction
  4. Recoverability: Nothing in the persisted state can make the wallet
     unusable - corruption falls back to the zero state

SEE ALSO:
  - engine.go: The three mutating operations and the concurrency gate
  - persist.go: Snapshot codec, legacy migration, numeric coercion
  - events.go: Typed publish/subscribe for observers
*/
package wallet

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// =============================================================================
// NULLFLOAT - float64 that round-trips JSON null
// =============================================================================

// NullFloat is a float64 bucket value that distinguishes "persisted as null"
// from "persisted as 0". A null bucket stays null across load/save cycles
// until a mutation materializes it; arithmetic treats null as zero.
//
// Infinity and NaN marshal as null, matching the legacy serializer the
// snapshot format inherited its quirks from.
type NullFloat struct {
	Value float64
	Null  bool
}

// Num returns a non-null NullFloat.
func Num(v float64) NullFloat { return NullFloat{Value: v} }

// Float64 returns the numeric value, with null read as 0.
func (n NullFloat) Float64() float64 {
	if n.Null {
		return 0
	}
	return n.Value
}

// Add materializes the bucket and adds delta to it.
func (n NullFloat) Add(delta float64) NullFloat {
	return NullFloat{Value: n.Float64() + delta}
}

// Sub materializes the bucket and subtracts delta from it.
func (n NullFloat) Sub(delta float64) NullFloat {
	return NullFloat{Value: n.Float64() - delta}
}

// AtLeast reports whether the bucket covers amount. A null bucket covers
// nothing.
func (n NullFloat) AtLeast(amount float64) bool {
	return !n.Null && n.Value >= amount
}

// IsPositive reports whether the bucket holds a value greater than zero.
func (n NullFloat) IsPositive() bool {
	return !n.Null && n.Value > 0
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if n.Null || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullFloat{Null: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NullFloat{Value: v}
	return nil
}

// =============================================================================
// CATEGORIES - Closed earning-category set
// =============================================================================

// Category buckets per-category cumulative earnings. The set is closed;
// unknown inputs collapse into CategoryOther so the breakdown map cannot
// grow unboundedly.
type Category string

const (
	CategoryPosts     Category = "posts"
	CategoryReactions Category = "reactions"
	CategoryComments  Category = "comments"
	CategoryHelpful   Category = "helpful"
	CategoryStreaks   Category = "streaks"
	CategoryBonuses   Category = "bonuses"
	CategoryCrisis    Category = "crisis"
	CategoryReporting Category = "reporting"
	CategoryReferrals Category = "referrals"
	CategoryOther     Category = "other"
)

var knownCategories = map[Category]bool{
	CategoryPosts:     true,
	CategoryReactions: true,
	CategoryComments:  true,
	CategoryHelpful:   true,
	CategoryStreaks:   true,
	CategoryBonuses:   true,
	CategoryCrisis:    true,
	CategoryReporting: true,
	CategoryReferrals: true,
	CategoryOther:     true,
}

// Normalize maps unknown categories into the fallback bucket.
func (c Category) Normalize() Category {
	if knownCategories[c] {
		return c
	}
	return CategoryOther
}

// Categories returns the closed category set, fallback bucket included.
func Categories() []Category {
	return []Category{
		CategoryPosts, CategoryReactions, CategoryComments, CategoryHelpful,
		CategoryStreaks, CategoryBonuses, CategoryCrisis, CategoryReporting,
		CategoryReferrals, CategoryOther,
	}
}

// =============================================================================
// TRANSACTION - One immutable log entry per mutation
// =============================================================================

type TransactionType string

const (
	TxEarn  TransactionType = "earn"
	TxSpend TransactionType = "spend"
	TxClaim TransactionType = "claim"
)

// Transaction records a single ledger mutation. Amount carries the sign the
// UI displays: positive for earn/claim, negative for spend. Balance is the
// running post-transaction balance; exactly one of Pending/Claimed/Spent is
// set, snapshotting that bucket at the moment of the mutation.
type Transaction struct {
	ID         string            `json:"id"`
	Type       TransactionType   `json:"type"`
	Amount     float64           `json:"amount"`
	Reason     string            `json:"reason"`
	ReasonCode Category          `json:"reasonCode,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Balance    float64           `json:"balance"`

	Pending *float64 `json:"pending,omitempty"`
	Claimed *float64 `json:"claimed,omitempty"`
	Spent   *float64 `json:"spent,omitempty"`
}

// MaxTransactions is the transaction log bound. The oldest entries are
// silently dropped on overflow; trimming never reorders what remains.
const MaxTransactions = 100

// =============================================================================
// STREAKS - Login and posting streak families
// =============================================================================

// StreakData holds two independent calendar-date streak families. Dates are
// stored as YYYY-MM-DD strings so the persisted form is timezone-stable.
type StreakData struct {
	CurrentStreak       int    `json:"currentStreak"`
	LongestStreak       int    `json:"longestStreak"`
	LastLoginDate       string `json:"lastLoginDate"`
	StreakBroken        bool   `json:"streakBroken"`
	LastStreakResetDate string `json:"lastStreakResetDate"`

	CurrentPostStreak       int    `json:"currentPostStreak"`
	LongestPostStreak       int    `json:"longestPostStreak"`
	LastPostDate            string `json:"lastPostDate"`
	PostStreakBroken        bool   `json:"postStreakBroken"`
	LastPostStreakResetDate string `json:"lastPostStreakResetDate"`
}

// =============================================================================
// SUBSCRIPTIONS & ACHIEVEMENTS
// =============================================================================

// Subscription is an optional recurring-cost feature charged through the
// ledger. Deactivation never refunds; a failed renewal disables instead of
// charging.
type Subscription struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MonthlyCost float64   `json:"monthlyCost"`
	Enabled     bool      `json:"enabled"`
	ActivatedAt time.Time `json:"activatedAt"`
	NextRenewal time.Time `json:"nextRenewal"`
}

// Achievement is a one-time unlockable milestone record.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// =============================================================================
// WALLET SNAPSHOT - The full persisted state
// =============================================================================

// WalletSnapshot is the complete wallet state for one identity. The five
// numeric buckets uphold balance == totalEarned - spent; claim reclassifies
// pending into claimed without touching balance.
type WalletSnapshot struct {
	TotalEarned NullFloat `json:"totalEarned"`
	Pending     NullFloat `json:"pending"`
	Claimed     NullFloat `json:"claimed"`
	Spent       NullFloat `json:"spent"`
	Balance     NullFloat `json:"balance"`

	Transactions      []Transaction           `json:"transactions"`
	EarningsBreakdown map[Category]float64    `json:"earningsBreakdown"`
	StreakData        StreakData              `json:"streakData"`
	Achievements      []Achievement           `json:"achievements"`
	Subscriptions     map[string]Subscription `json:"subscriptions"`
	LastLogin         *string                 `json:"lastLogin"`
}

// NewWalletSnapshot returns the zero state: empty log, zeroed buckets, no
// streaks, no subscriptions, lastLogin null.
func NewWalletSnapshot() WalletSnapshot {
	return WalletSnapshot{
		Transactions:      []Transaction{},
		EarningsBreakdown: make(map[Category]float64),
		Achievements:      []Achievement{},
		Subscriptions:     make(map[string]Subscription),
	}
}

// Clone returns a deep copy so readers can never alias engine-owned state.
func (s WalletSnapshot) Clone() WalletSnapshot {
	out := s
	out.Transactions = make([]Transaction, len(s.Transactions))
	copy(out.Transactions, s.Transactions)
	for i, tx := range out.Transactions {
		if tx.Metadata != nil {
			m := make(map[string]string, len(tx.Metadata))
			for k, v := range tx.Metadata {
				m[k] = v
			}
			out.Transactions[i].Metadata = m
		}
	}
	out.EarningsBreakdown = make(map[Category]float64, len(s.EarningsBreakdown))
	for k, v := range s.EarningsBreakdown {
		out.EarningsBreakdown[k] = v
	}
	out.Achievements = make([]Achievement, len(s.Achievements))
	copy(out.Achievements, s.Achievements)
	out.Subscriptions = make(map[string]Subscription, len(s.Subscriptions))
	for k, v := range s.Subscriptions {
		out.Subscriptions[k] = v
	}
	if s.LastLogin != nil {
		v := *s.LastLogin
		out.LastLogin = &v
	}
	return out
}

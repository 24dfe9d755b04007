/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the wallet API. These decouple the internal engine
  types from the external contract; handlers translate between the two.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation happens in handlers. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - wallet/types.go: The internal shapes these mirror
*/
package api

import (
	"github.com/solace/token-engine/wallet"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// WalletDTO is the balance summary returned for a user's wallet.
type WalletDTO struct {
	UserID           string             `json:"userId"`
	Balance          float64            `json:"balance"`
	Pending          float64            `json:"pending"`
	TotalEarned      float64            `json:"totalEarned"`
	Claimed          float64            `json:"claimed"`
	Spent            float64            `json:"spent"`
	AvailableBalance float64            `json:"availableBalance"`
	Earnings         map[string]float64 `json:"earnings"`
}

// OperationResultDTO reports a precondition-gated operation's outcome.
// Ok is false when the operation was rejected (insufficient balance,
// rate limited, nothing pending); state is unchanged in that case.
type OperationResultDTO struct {
	Ok      bool    `json:"ok"`
	Balance float64 `json:"balance"`
	Pending float64 `json:"pending"`
}

// TransactionsDTO wraps the transaction log, newest first.
type TransactionsDTO struct {
	Transactions []wallet.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
}

// StreaksDTO carries both streak families.
type StreaksDTO struct {
	Streaks wallet.StreakData `json:"streaks"`
}

// LoginResultDTO reports a login's streak update and any milestone bonus.
// BonusAwarded is false when StreakBonus is zero or the award rate limit
// rejected the bonus.
type LoginResultDTO struct {
	Streaks      wallet.StreakData `json:"streaks"`
	StreakBonus  float64           `json:"streakBonus"`
	BonusAwarded bool              `json:"bonusAwarded"`
}

// AchievementsDTO lists unlocked achievements.
type AchievementsDTO struct {
	Achievements []wallet.Achievement `json:"achievements"`
}

// SubscriptionsDTO lists the wallet's subscriptions.
type SubscriptionsDTO struct {
	Subscriptions map[string]wallet.Subscription `json:"subscriptions"`
}

// RenewalSweepDTO reports a renewal sweep's outcomes.
type RenewalSweepDTO struct {
	Results []RenewalResultDTO `json:"results"`
}

type RenewalResultDTO struct {
	UserID         string `json:"userId"`
	SubscriptionID string `json:"subscriptionId"`
	Charged        bool   `json:"charged"`
	Disabled       bool   `json:"disabled"`
}

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AwardRequest credits tokens to a wallet.
type AwardRequest struct {
	Amount   float64           `json:"amount"`
	Reason   string            `json:"reason"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SpendRequest debits tokens from a wallet.
type SpendRequest struct {
	Amount   float64           `json:"amount"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PostRewardRequest rates a post and awards the computed total.
type PostRewardRequest struct {
	PostID          string         `json:"postId"`
	IsFirstPost     bool           `json:"isFirstPost"`
	HasImage        bool           `json:"hasImage"`
	Reactions       map[string]int `json:"reactions,omitempty"`
	HelpfulCount    int            `json:"helpfulCount"`
	IsCrisisFlagged bool           `json:"isCrisisFlagged"`
}

// SubscribeRequest activates a subscription.
type SubscribeRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MonthlyCost float64 `json:"monthlyCost"`
}

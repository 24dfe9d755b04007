/*
handlers.go - HTTP API handlers for the token reward ledger

PURPOSE:
  Exposes wallet engines via REST. Handles HTTP request/response, JSON
  serialization, and delegates every state change to the engine.

ENDPOINTS:
  Wallet:
    GET    /api/wallets/{userID}               Balance summary
    GET    /api/wallets/{userID}/transactions  Transaction log, newest first
    POST   /api/wallets/{userID}/award         Credit tokens
    POST   /api/wallets/{userID}/spend         Debit tokens
    POST   /api/wallets/{userID}/claim         Reclassify pending as claimed

  Activity:
    POST   /api/wallets/{userID}/login         Record daily login (streaks)
    POST   /api/wallets/{userID}/posts         Rate a post and award it
    GET    /api/wallets/{userID}/streaks       Both streak families
    GET    /api/wallets/{userID}/achievements  Unlocked milestones

  Subscriptions:
    GET    /api/wallets/{userID}/subscriptions
    POST   /api/wallets/{userID}/subscriptions            Activate
    DELETE /api/wallets/{userID}/subscriptions/{subID}    Deactivate

  Admin:
    POST   /api/admin/renewals                 Run the renewal sweep now

ARCHITECTURE:
  Handler lazily opens one wallet.Engine per user and caches it for the
  process lifetime; the engine owns per-user serialization, the cache
  just guarantees one engine per user so that serialization holds across
  concurrent requests.

ERROR HANDLING:
  Malformed input is 400. Precondition rejections (insufficient balance,
  rate limit, nothing pending) are NOT errors: they return 200 with
  ok=false, matching the engine's boolean contract.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - wallet/engine.go: The operations these delegate to
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/solace/token-engine/config"
	"github.com/solace/token-engine/rewards"
	"github.com/solace/token-engine/store/sqlite"
	"github.com/solace/token-engine/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Config  config.Config
	Metrics *Metrics
	Logger  zerolog.Logger

	// Clock is the time source for activity timestamps and the engines'
	// award rate limiter. Tests replace it before serving requests.
	Clock func() time.Time

	mu      sync.Mutex
	engines map[string]*wallet.Engine
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store, cfg config.Config, metrics *Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:   store,
		Config:  cfg,
		Metrics: metrics,
		Logger:  logger,
		Clock:   time.Now,
		engines: make(map[string]*wallet.Engine),
	}
}

// engine returns the cached engine for userID, opening one on first use.
func (h *Handler) engine(userID string) *wallet.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.engines[userID]; ok {
		return e
	}
	e := wallet.NewEngine(userID, h.Store.Namespace(userID),
		wallet.WithRateLimit(h.Config.Wallet.RateLimit()),
		wallet.WithLogCap(h.Config.Wallet.TransactionCap),
		wallet.WithClock(func() time.Time { return h.Clock() }),
	)
	if h.Metrics != nil {
		h.Metrics.Observe(e)
	}
	log := h.Logger.With().Str("user_id", userID).Logger()
	e.Subscribe(wallet.EventReward, func(ev wallet.Event) {
		log.Info().
			Float64("amount", ev.Reward.Amount).
			Str("category", string(ev.Reward.Category)).
			Str("reason", ev.Reward.Reason).
			Msg("tokens awarded")
	})
	e.Subscribe(wallet.EventSpend, func(ev wallet.Event) {
		log.Info().
			Float64("amount", ev.Spend.Amount).
			Str("reason", ev.Spend.Reason).
			Msg("tokens spent")
	})
	e.Subscribe(wallet.EventAchievementUnlocked, func(ev wallet.Event) {
		log.Info().
			Str("achievement", ev.Achievement.Achievement.ID).
			Msg("achievement unlocked")
	})
	h.engines[userID] = e
	return e
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// GetWallet returns the balance summary.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	respondJSON(w, http.StatusOK, walletDTO(e))
}

// GetTransactions returns the transaction log, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	txs := e.Transactions()
	respondJSON(w, http.StatusOK, TransactionsDTO{Transactions: txs, Count: len(txs)})
}

// AwardTokens credits tokens. Rejected awards (non-positive amount, rate
// limit) come back ok=false.
func (h *Handler) AwardTokens(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e := h.engine(chi.URLParam(r, "userID"))
	ok := e.AwardTokens(req.Amount, req.Reason, wallet.Category(req.Category), req.Metadata)
	h.Metrics.Operation("award", ok)
	respondJSON(w, http.StatusOK, resultDTO(e, ok))
}

// SpendTokens debits tokens. Insufficient balance comes back ok=false.
func (h *Handler) SpendTokens(w http.ResponseWriter, r *http.Request) {
	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e := h.engine(chi.URLParam(r, "userID"))
	ok := e.SpendTokens(req.Amount, req.Reason, req.Metadata)
	h.Metrics.Operation("spend", ok)
	respondJSON(w, http.StatusOK, resultDTO(e, ok))
}

// ClaimRewards reclassifies pending tokens as claimed.
func (h *Handler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	ok := e.ClaimRewards()
	h.Metrics.Operation("claim", ok)
	respondJSON(w, http.StatusOK, resultDTO(e, ok))
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// RecordLogin records a daily login, updates streaks, and awards any
// streak milestone bonus. The response reports whether the bonus landed;
// a bonus arriving inside another award's rate-limit window is rejected,
// not silently dropped.
func (h *Handler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	streaks := e.RecordLogin(h.Clock())

	var bonus float64
	bonusAwarded := false
	if b := rewards.StreakBonus(streaks.CurrentStreak); b > 0 {
		bonus = b
		bonusAwarded = e.AwardTokens(b, "login streak milestone", wallet.CategoryStreaks, nil)
		if !bonusAwarded {
			h.Logger.Warn().
				Str("user_id", e.UserID()).
				Float64("bonus", b).
				Msg("login streak bonus rejected by award rate limit")
		}
	}
	e.CheckAndUnlockAchievements()
	respondJSON(w, http.StatusOK, LoginResultDTO{
		Streaks:      streaks,
		StreakBonus:  bonus,
		BonusAwarded: bonusAwarded,
	})
}

// RewardPost rates a post under the configured rules and awards the total.
func (h *Handler) RewardPost(w http.ResponseWriter, r *http.Request) {
	var req PostRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e := h.engine(chi.URLParam(r, "userID"))

	reward := h.Config.Rewards.CalculatePostReward(rewards.PostSignals{
		IsFirstPost:     req.IsFirstPost,
		HasImage:        req.HasImage,
		Reactions:       req.Reactions,
		HelpfulCount:    req.HelpfulCount,
		IsCrisisFlagged: req.IsCrisisFlagged,
	})

	meta := map[string]string{}
	if req.PostID != "" {
		meta["post_id"] = req.PostID
	}

	// The milestone bonus rides the same bundle as the post award, so the
	// rate limiter cannot reject it as a separate second award.
	streaks := e.RecordPost(h.Clock())
	bonus := rewards.StreakBonus(streaks.CurrentPostStreak)
	components := []wallet.AwardComponent{
		{Amount: reward.Total, Reason: "post reward", Category: wallet.CategoryPosts, Metadata: meta},
	}
	if bonus > 0 {
		components = append(components, wallet.AwardComponent{
			Amount: bonus, Reason: "posting streak milestone", Category: wallet.CategoryStreaks,
		})
	}
	ok := e.AwardBundle(components...)
	h.Metrics.Operation("post_reward", ok)
	e.CheckAndUnlockAchievements()

	respondJSON(w, http.StatusOK, struct {
		Ok          bool               `json:"ok"`
		Reward      rewards.PostReward `json:"reward"`
		StreakBonus float64            `json:"streakBonus"`
		Streaks     wallet.StreakData  `json:"streaks"`
		Balance     float64            `json:"balance"`
	}{Ok: ok, Reward: reward, StreakBonus: bonus, Streaks: streaks, Balance: e.Balance()})
}

// GetStreaks returns both streak families.
func (h *Handler) GetStreaks(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	respondJSON(w, http.StatusOK, StreaksDTO{Streaks: e.Streaks()})
}

// GetAchievements returns unlocked achievements.
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	respondJSON(w, http.StatusOK, AchievementsDTO{Achievements: e.Achievements()})
}

// =============================================================================
// SUBSCRIPTION HANDLERS
// =============================================================================

// ListSubscriptions returns the wallet's subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	respondJSON(w, http.StatusOK, SubscriptionsDTO{Subscriptions: e.Subscriptions()})
}

// ActivateSubscription charges the first month and enables a subscription.
func (h *Handler) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "subscription id is required")
		return
	}
	e := h.engine(chi.URLParam(r, "userID"))
	ok := e.ActivateSubscription(wallet.SubscriptionSpec{
		ID:          req.ID,
		Name:        req.Name,
		MonthlyCost: req.MonthlyCost,
	})
	h.Metrics.Operation("subscribe", ok)
	respondJSON(w, http.StatusOK, resultDTO(e, ok))
}

// DeactivateSubscription stops future charges without refunding.
func (h *Handler) DeactivateSubscription(w http.ResponseWriter, r *http.Request) {
	e := h.engine(chi.URLParam(r, "userID"))
	ok := e.DeactivateSubscription(chi.URLParam(r, "subID"))
	h.Metrics.Operation("unsubscribe", ok)
	respondJSON(w, http.StatusOK, resultDTO(e, ok))
}

// TriggerRenewals runs the renewal sweep across all wallets now.
func (h *Handler) TriggerRenewals(w http.ResponseWriter, r *http.Request) {
	results, err := h.RenewalSweep()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, RenewalSweepDTO{Results: results})
}

// RenewalSweep visits every persisted wallet and processes due renewals.
// Called from the cron schedule and from the admin endpoint.
func (h *Handler) RenewalSweep() ([]RenewalResultDTO, error) {
	namespaces, err := h.Store.ListNamespaces()
	if err != nil {
		return nil, err
	}
	var out []RenewalResultDTO
	for _, userID := range namespaces {
		e := h.engine(userID)
		for _, res := range e.CheckSubscriptionRenewals() {
			out = append(out, RenewalResultDTO{
				UserID:         userID,
				SubscriptionID: res.SubscriptionID,
				Charged:        res.Charged,
				Disabled:       res.Disabled,
			})
		}
	}
	if len(out) > 0 {
		h.Logger.Info().Int("renewals", len(out)).Msg("renewal sweep completed")
	}
	return out, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func walletDTO(e *wallet.Engine) WalletDTO {
	breakdown := e.EarningsBreakdown()
	earnings := make(map[string]float64, len(breakdown))
	for cat, v := range breakdown {
		earnings[string(cat)] = v
	}
	return WalletDTO{
		UserID:           e.UserID(),
		Balance:          e.Balance(),
		Pending:          e.Pending(),
		TotalEarned:      e.TotalEarned(),
		Claimed:          e.Claimed(),
		Spent:            e.Spent(),
		AvailableBalance: e.AvailableBalance(),
		Earnings:         earnings,
	}
}

func resultDTO(e *wallet.Engine, ok bool) OperationResultDTO {
	return OperationResultDTO{Ok: ok, Balance: e.Balance(), Pending: e.Pending()}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorDTO{Error: msg})
}

/*
Package rewards computes token amounts for content events.

PURPOSE:
  Pure reward calculation, fully decoupled from the ledger. Callers run
  the calculator over a post's signals, then separately award the total
  (or individual components, as with crisis bonuses deferred to a later
  point) through the wallet engine. Nothing here reads or mutates wallet
  state.

RULE TABLE:
  Components are additive:
    base       Fixed value of a regular post
    firstPost  FirstPost - base, only on the author's first post
    image      Fixed media bonus
    reactions  One engagement tier by total reaction count, highest only:
                 T >= 100  viral delta (ViralPost - base)
                 50..99    popular bonus
                 20..49    trending bonus
                 10..19    engaged bonus
                 < 10      nothing
    helpful    Fixed bonus when at least one helpful mark exists
    crisis     Fixed bonus on crisis-flagged posts

PRECISION:
  Rule values may be fractional (deployments tune them in config), so
  components are summed in decimal and exposed as float64 totals - the
  breakdown always adds up exactly to Total.

SEE ALSO:
  - config: TOML overrides for the rule values
  - wallet: The ledger the caller awards the result through
*/
package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULES - Declarative value table
// =============================================================================

// Rules holds the token values the calculator applies. Zero values switch
// a component off.
type Rules struct {
	BasePost  float64 `toml:"base_post"`
	FirstPost float64 `toml:"first_post"`
	ViralPost float64 `toml:"viral_post"`

	ImageBonus    float64 `toml:"image_bonus"`
	PopularBonus  float64 `toml:"popular_bonus"`
	TrendingBonus float64 `toml:"trending_bonus"`
	EngagedBonus  float64 `toml:"engaged_bonus"`
	HelpfulBonus  float64 `toml:"helpful_bonus"`
	CrisisBonus   float64 `toml:"crisis_bonus"`
}

// DefaultRules returns the stock value table.
func DefaultRules() Rules {
	return Rules{
		BasePost:      10,
		FirstPost:     50,
		ViralPost:     100,
		ImageBonus:    5,
		PopularBonus:  25,
		TrendingBonus: 15,
		EngagedBonus:  5,
		HelpfulBonus:  15,
		CrisisBonus:   20,
	}
}

// Engagement tier thresholds on total reaction count.
const (
	ViralThreshold    = 100
	PopularThreshold  = 50
	TrendingThreshold = 20
	EngagedThreshold  = 10
)

// =============================================================================
// SIGNALS AND RESULT
// =============================================================================

// PostSignals are the observable facts about a post the calculator rates.
type PostSignals struct {
	IsFirstPost     bool
	HasImage        bool
	Reactions       map[string]int // per-type counts; only the sum matters
	HelpfulCount    int
	IsCrisisFlagged bool
}

// TotalReactions sums reaction counts across all types.
func (s PostSignals) TotalReactions() int {
	total := 0
	for _, n := range s.Reactions {
		total += n
	}
	return total
}

// PostReward is the component breakdown for one post. Total is the exact
// sum of the components; Details holds one display line per nonzero
// component.
type PostReward struct {
	Base      float64  `json:"base"`
	FirstPost float64  `json:"firstPost"`
	Image     float64  `json:"image"`
	Reactions float64  `json:"reactions"`
	Helpful   float64  `json:"helpful"`
	Crisis    float64  `json:"crisis"`
	Total     float64  `json:"total"`
	Details   []string `json:"details"`
}

// =============================================================================
// CALCULATOR
// =============================================================================

// CalculatePostReward rates a post under the default rules.
func CalculatePostReward(sig PostSignals) PostReward {
	return DefaultRules().CalculatePostReward(sig)
}

// CalculatePostReward rates a post under r. Pure: no side effects, no
// ledger access.
func (r Rules) CalculatePostReward(sig PostSignals) PostReward {
	var out PostReward
	total := decimal.Zero

	add := func(target *float64, v float64, detail string) {
		if v == 0 {
			return
		}
		*target = v
		total = total.Add(decimal.NewFromFloat(v))
		out.Details = append(out.Details, fmt.Sprintf("%s: +%s tokens", detail, trimFloat(v)))
	}

	add(&out.Base, r.BasePost, "post")
	if sig.IsFirstPost {
		add(&out.FirstPost, r.FirstPost-r.BasePost, "first post")
	}
	if sig.HasImage {
		add(&out.Image, r.ImageBonus, "image")
	}

	// Highest applicable engagement tier only.
	switch t := sig.TotalReactions(); {
	case t >= ViralThreshold:
		add(&out.Reactions, r.ViralPost-r.BasePost, "viral post")
	case t >= PopularThreshold:
		add(&out.Reactions, r.PopularBonus, "popular post")
	case t >= TrendingThreshold:
		add(&out.Reactions, r.TrendingBonus, "trending post")
	case t >= EngagedThreshold:
		add(&out.Reactions, r.EngagedBonus, "engaged post")
	}

	if sig.HelpfulCount > 0 {
		add(&out.Helpful, r.HelpfulBonus, "marked helpful")
	}
	if sig.IsCrisisFlagged {
		add(&out.Crisis, r.CrisisBonus, "crisis support")
	}

	out.Total, _ = total.Float64()
	return out
}

// =============================================================================
// STREAK MILESTONES
// =============================================================================

// streakMilestones maps consecutive-day counts to bonus values.
var streakMilestones = map[int]float64{
	3:  5,
	7:  15,
	14: 30,
	30: 75,
}

// StreakBonus returns the bonus for reaching exactly days consecutive
// days, or 0 when days is not a milestone. Callers award the result under
// the streaks category.
func StreakBonus(days int) float64 {
	return streakMilestones[days]
}

func trimFloat(v float64) string {
	d := decimal.NewFromFloat(v)
	return d.String()
}

/*
achievements.go - One-time unlockable milestones

PURPOSE:
  Achievements are milestone records evaluated against wallet, earnings,
  and streak thresholds. Unlocking is idempotent: a definition whose
  condition holds is awarded at most once, and re-running the check never
  re-fires it. Definitions are data (predicate over the snapshot), so the
  default set can be replaced per deployment via WithAchievements.

SEE ALSO:
  - engine.go: WithAchievements option
  - events.go: EventAchievementUnlocked
*/
package wallet

// AchievementDef is a milestone definition: identity plus an unlock
// predicate over the committed snapshot.
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	Unlocked    func(s *WalletSnapshot) bool
}

// DefaultAchievements is the stock milestone set.
func DefaultAchievements() []AchievementDef {
	return []AchievementDef{
		{
			ID:          "first-token",
			Name:        "First Token",
			Description: "Earn your first token",
			Unlocked:    func(s *WalletSnapshot) bool { return s.TotalEarned.Float64() > 0 },
		},
		{
			ID:          "century-club",
			Name:        "Century Club",
			Description: "Earn 100 lifetime tokens",
			Unlocked:    func(s *WalletSnapshot) bool { return s.TotalEarned.Float64() >= 100 },
		},
		{
			ID:          "streak-week",
			Name:        "One Week Strong",
			Description: "Log in seven days in a row",
			Unlocked:    func(s *WalletSnapshot) bool { return s.StreakData.LongestStreak >= 7 },
		},
		{
			ID:          "prolific-poster",
			Name:        "Prolific Poster",
			Description: "Earn 50 tokens from posts",
			Unlocked:    func(s *WalletSnapshot) bool { return s.EarningsBreakdown[CategoryPosts] >= 50 },
		},
		{
			ID:          "big-spender",
			Name:        "Big Spender",
			Description: "Spend 100 lifetime tokens",
			Unlocked:    func(s *WalletSnapshot) bool { return s.Spent.Float64() >= 100 },
		},
	}
}

// CheckAndUnlockAchievements evaluates every definition against the
// current snapshot and appends a record for each newly met threshold,
// firing EventAchievementUnlocked per unlock. Already-unlocked
// achievements are never re-awarded. Returns the new unlocks.
func (e *Engine) CheckAndUnlockAchievements() []Achievement {
	e.gate.Lock()

	e.mu.Lock()
	unlocked := make(map[string]bool, len(e.snap.Achievements))
	for _, a := range e.snap.Achievements {
		unlocked[a.ID] = true
	}

	now := e.now()
	var fresh []Achievement
	for _, def := range e.achievements {
		if unlocked[def.ID] || def.Unlocked == nil || !def.Unlocked(&e.snap) {
			continue
		}
		a := Achievement{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			UnlockedAt:  now,
		}
		e.snap.Achievements = append(e.snap.Achievements, a)
		fresh = append(fresh, a)
	}
	e.mu.Unlock()
	e.gate.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	e.persistQuiet()
	for _, a := range fresh {
		e.bus.publish(Event{Kind: EventAchievementUnlocked, At: now, Achievement: &AchievementPayload{
			Achievement: a,
		}})
	}
	return fresh
}

// Achievements returns a copy of the unlocked achievement records.
func (e *Engine) Achievements() []Achievement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Achievement, len(e.snap.Achievements))
	copy(out, e.snap.Achievements)
	return out
}

/*
streak.go - Login and posting streak tracking

PURPOSE:
  Maintains two independent consecutive-calendar-day counters, decoupled
  from the balance: logging in (or posting) on the day after the previous
  login (or post) extends the streak, a gap breaks it and restarts at one,
  and repeated activity on the same day is a no-op. The tracker records
  activity only - awarding a streak bonus is the caller's decision, made
  with rewards.StreakBonus and an award the caller composes (the posts
  path bundles the bonus with the post award).

DATE SEMANTICS:
  Days are UTC calendar dates. "Consecutive" means the previous recorded
  date plus exactly one day; anything later breaks the streak and stamps
  the reset date. The longest-streak fields are high-water marks and never
  decrease.

SEE ALSO:
  - types.go: StreakData field definitions
  - rewards/calculator.go: Milestone bonus values
*/
package wallet

import "time"

// dateKey is the calendar-date form streaks are keyed by.
const dateKey = "2006-01-02"

// RecordLogin advances the login streak for the calendar date of t and
// stamps lastLogin on the snapshot. Returns the updated counters.
func (e *Engine) RecordLogin(t time.Time) StreakData {
	e.gate.Lock()
	defer e.gate.Unlock()

	day := t.UTC().Format(dateKey)

	e.mu.Lock()
	s := &e.snap.StreakData
	switch {
	case s.LastLoginDate == day:
		// Same day: no-op.
	case isNextDay(s.LastLoginDate, day):
		s.CurrentStreak++
		s.StreakBroken = false
		s.LastLoginDate = day
	default:
		if s.LastLoginDate != "" {
			s.StreakBroken = true
			s.LastStreakResetDate = day
		}
		s.CurrentStreak = 1
		s.LastLoginDate = day
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	login := day
	e.snap.LastLogin = &login
	out := *s
	e.mu.Unlock()

	e.persistQuiet()
	return out
}

// RecordPost advances the posting streak for the calendar date of t.
func (e *Engine) RecordPost(t time.Time) StreakData {
	e.gate.Lock()
	defer e.gate.Unlock()

	day := t.UTC().Format(dateKey)

	e.mu.Lock()
	s := &e.snap.StreakData
	switch {
	case s.LastPostDate == day:
		// Same day: no-op.
	case isNextDay(s.LastPostDate, day):
		s.CurrentPostStreak++
		s.PostStreakBroken = false
		s.LastPostDate = day
	default:
		if s.LastPostDate != "" {
			s.PostStreakBroken = true
			s.LastPostStreakResetDate = day
		}
		s.CurrentPostStreak = 1
		s.LastPostDate = day
	}
	if s.CurrentPostStreak > s.LongestPostStreak {
		s.LongestPostStreak = s.CurrentPostStreak
	}
	out := *s
	e.mu.Unlock()

	e.persistQuiet()
	return out
}

// isNextDay reports whether day is exactly one calendar day after prev.
// An empty or unparseable prev is never "consecutive".
func isNextDay(prev, day string) bool {
	if prev == "" {
		return false
	}
	p, err := time.Parse(dateKey, prev)
	if err != nil {
		return false
	}
	return p.AddDate(0, 0, 1).Format(dateKey) == day
}

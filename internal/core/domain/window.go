package domain

import "time"

// DefaultInitialLookback is how far back the first run of a connector
// reaches when it has never been synced.
const DefaultInitialLookback = 365 * 24 * time.Hour

// DefaultLookbackGrace is the defensive re-cover span applied when the
// watermark falls on the same calendar day as the run start. Providers
// with fast-moving content may configure a wider grace.
const DefaultLookbackGrace = 24 * time.Hour

// SyncWindow is the half-open [From, To) time interval one indexing run
// covers. Computed once at run start and immutable thereafter.
type SyncWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w SyncWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// PlanWindow computes the sync window for a run starting at now.
//
//   - Never synced: cover the full initial lookback.
//   - Watermark on the same calendar day as now: re-cover [now-grace, now)
//     to tolerate clock skew and late-arriving items.
//   - Otherwise: pick up exactly where the watermark left off.
//
// Pure function of its inputs; no error conditions.
func PlanWindow(lastSyncedAt *time.Time, now time.Time, grace time.Duration) SyncWindow {
	if grace <= 0 {
		grace = DefaultLookbackGrace
	}

	if lastSyncedAt == nil {
		return SyncWindow{From: now.Add(-DefaultInitialLookback), To: now}
	}

	if sameCalendarDay(*lastSyncedAt, now) {
		return SyncWindow{From: now.Add(-grace), To: now}
	}

	return SyncWindow{From: *lastSyncedAt, To: now}
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Package schedule answers the two questions the retry path asks: is this
// instant inside a retry window for the campaign, and when is the next one.
// Rules come from a YAML file that is re-read periodically, so operators can
// adjust calling windows without a restart.
package schedule

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Oracle serves windowed retry decisions from the most recently loaded rule
// set. Reads take a consistent snapshot; a failed reload keeps the previous
// rules in place.
type Oracle struct {
	path string

	mu       sync.RWMutex
	rs       RuleSet
	global   []Window
	campaign map[int64][]Window
}

// NewOracle builds an oracle over the YAML file at path. Until Load
// succeeds it serves DefaultRuleSet, which opens no windows.
func NewOracle(path string) *Oracle {
	o := &Oracle{path: path}
	o.Install(DefaultRuleSet())
	return o
}

// Load re-reads the rule file and swaps it in atomically. On error the
// previous rules stay active.
func (o *Oracle) Load() error {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return err
	}
	rs, err := ParseRuleSet(data)
	if err != nil {
		return err
	}
	o.Install(rs)
	return nil
}

// Install swaps in an already parsed rule set.
func (o *Oracle) Install(rs RuleSet) {
	campaign := make(map[int64][]Window, len(rs.CampaignRules))
	for _, cr := range rs.CampaignRules {
		campaign[cr.CampaignID] = flatten(cr.Rules)
	}
	o.mu.Lock()
	o.rs = rs
	o.global = flatten(rs.GlobalRules)
	o.campaign = campaign
	o.mu.Unlock()
}

// Watch reloads the rule file every interval until ctx is cancelled.
func (o *Oracle) Watch(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.Load(); err != nil {
					slog.Error("retry schedule reload failed, keeping previous rules",
						slog.String("path", o.path), slog.Any("error", err))
					continue
				}
				slog.Info("retry schedule reloaded", slog.String("path", o.path))
			}
		}
	}()
}

// Scheduler returns the ticker batch knobs from the active rule set.
func (o *Oracle) Scheduler() Scheduler {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rs.Scheduler
}

// View snapshots the rules that govern campaignID. A campaign with its own
// rules sees only those; everyone else sees the global rules.
func (o *Oracle) View(campaignID int64) RuleView {
	o.mu.RLock()
	defer o.mu.RUnlock()
	windows := o.global
	if cw, ok := o.campaign[campaignID]; ok {
		windows = cw
	}
	return RuleView{windows: windows, defaults: o.rs.Defaults}
}

// RuleView is an immutable snapshot of one campaign's effective windows.
// Its methods are pure functions of the supplied instant, evaluated in that
// instant's location.
type RuleView struct {
	windows  []Window
	defaults Defaults
}

// Defaults exposes the fallback knobs active for this view.
func (v RuleView) Defaults() Defaults {
	return v.defaults
}

// InWindow reports whether t lies inside a retry window and returns the
// first matching window in declaration order.
func (v RuleView) InWindow(t time.Time) (Window, bool) {
	day := t.Weekday()
	minute := t.Hour()*60 + t.Minute()
	for _, w := range v.windows {
		if w.Day == day && w.StartMinute <= minute && minute <= w.EndMinute {
			return w, true
		}
	}
	return Window{}, false
}

// NextRetry returns the earliest future instant eligible for a retry after
// t. Inside a window it is t plus the window's interval, provided that
// instant still falls within the same day's slot; otherwise the scan walks
// forward up to seven days for the next slot start. With no window in reach
// the default interval applies.
func (v RuleView) NextRetry(t time.Time) (time.Time, *Window) {
	if w, ok := v.InWindow(t); ok {
		candidate := t.Add(w.Interval())
		if sameDate(candidate, t) {
			minute := candidate.Hour()*60 + candidate.Minute()
			if w.StartMinute <= minute && minute <= w.EndMinute {
				return candidate, &w
			}
		}
	}

	for ahead := 0; ahead <= 7; ahead++ {
		day := t.AddDate(0, 0, ahead)
		wd := day.Weekday()
		for _, w := range v.windows {
			if w.Day != wd {
				continue
			}
			candidate := time.Date(day.Year(), day.Month(), day.Day(),
				w.StartMinute/60, w.StartMinute%60, 0, 0, t.Location())
			if candidate.After(t) {
				w := w
				return candidate, &w
			}
		}
	}

	return t.Add(time.Duration(v.defaults.RetryIntervalMinutes) * time.Minute), nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/service/schedule"
)

// runRulecheck validates a retry schedule file and prints every window it
// opens, plus where "now" lands for each campaign. Operators run it before
// rolling a schedule change; a bad file exits nonzero without touching any
// running process.
func runRulecheck(args []string) int {
	path := "config/retry_config.yaml"
	if v := os.Getenv("RETRY_SCHEDULE_CONFIG_PATH"); v != "" {
		path = v
	}
	if len(args) > 0 && args[0] != "" {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulecheck: %v\n", err)
		return 1
	}
	rs, err := schedule.ParseRuleSet(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulecheck: %s: %v\n", path, err)
		return 1
	}

	o := schedule.NewOracle(path)
	o.Install(rs)
	now := time.Now()

	fmt.Printf("retry schedule OK: %s\n", path)
	fmt.Printf("defaults: max_attempts=%d retry_interval=%dm concurrent_call_limit=%d\n",
		rs.Defaults.MaxAttempts, rs.Defaults.RetryIntervalMinutes, rs.Defaults.ConcurrentCallLimit)
	fmt.Printf("scheduler: batch_size=%d max_concurrent_retries=%d\n",
		rs.Scheduler.BatchSize, rs.Scheduler.MaxConcurrentRetries)

	fmt.Printf("\nglobal rules:\n")
	printRules(rs.GlobalRules)
	printStatus(o.View(0), now)

	for _, cr := range rs.CampaignRules {
		fmt.Printf("\ncampaign %d:\n", cr.CampaignID)
		printRules(cr.Rules)
		printStatus(o.View(cr.CampaignID), now)
	}
	return 0
}

func printRules(rules []schedule.Rule) {
	if len(rules) == 0 {
		fmt.Printf("  (no windows; default interval applies)\n")
		return
	}
	for _, r := range rules {
		for _, d := range r.Days {
			for _, s := range r.TimeSlots {
				fmt.Printf("  %-20s %-9s %s-%s  interval=%dm max_attempts=%d\n",
					r.Name, d, s.StartTime, s.EndTime, s.RetryIntervalMinutes, s.MaxAttempts)
			}
		}
	}
}

func printStatus(v schedule.RuleView, now time.Time) {
	if w, ok := v.InWindow(now); ok {
		fmt.Printf("  now %s: in window %q until %s\n",
			now.Format("Mon 15:04"), w.RuleName, minuteClock(w.EndMinute))
	} else {
		fmt.Printf("  now %s: outside every window\n", now.Format("Mon 15:04"))
	}
	next, w := v.NextRetry(now)
	if w != nil {
		fmt.Printf("  next retry: %s (window %q)\n", next.Format("Mon 2006-01-02 15:04"), w.RuleName)
	} else {
		fmt.Printf("  next retry: %s (default interval)\n", next.Format("Mon 2006-01-02 15:04"))
	}
}

func minuteClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleSet mirrors the retry schedule YAML document.
type RuleSet struct {
	Defaults      Defaults        `yaml:"defaults"`
	Scheduler     Scheduler       `yaml:"scheduler"`
	GlobalRules   []Rule          `yaml:"global_rules"`
	CampaignRules []CampaignRules `yaml:"campaign_rules"`
}

// Defaults apply when no rule matches or a slot omits a field.
type Defaults struct {
	MaxAttempts          int `yaml:"max_attempts"`
	RetryIntervalMinutes int `yaml:"retry_interval_minutes"`
	ConcurrentCallLimit  int `yaml:"concurrent_call_limit"`
}

// Scheduler holds the retry ticker's batch knobs.
type Scheduler struct {
	BatchSize            int `yaml:"batch_size"`
	MaxConcurrentRetries int `yaml:"max_concurrent_retries"`
}

// Rule opens one or more time slots on a set of weekdays.
type Rule struct {
	Name      string     `yaml:"name"`
	Days      []string   `yaml:"days"`
	TimeSlots []TimeSlot `yaml:"time_slots"`
}

// TimeSlot is a same-day window, inclusive on both endpoints at minute
// granularity.
type TimeSlot struct {
	StartTime            string `yaml:"start_time"`
	EndTime              string `yaml:"end_time"`
	MaxAttempts          int    `yaml:"max_attempts"`
	RetryIntervalMinutes int    `yaml:"retry_interval_minutes"`
}

// CampaignRules fully replace the global rules for one campaign.
type CampaignRules struct {
	CampaignID int64  `yaml:"campaign_id"`
	Rules      []Rule `yaml:"rules"`
}

// Window is one flattened (weekday, slot) pair. Flattening preserves
// declaration order: rule order, then day order within a rule, then slot
// order; ties between overlapping windows resolve by that order.
type Window struct {
	RuleName             string
	Day                  time.Weekday
	StartMinute          int
	EndMinute            int
	MaxAttempts          int
	RetryIntervalMinutes int
}

// Interval returns the slot's retry interval as a duration.
func (w Window) Interval() time.Duration {
	return time.Duration(w.RetryIntervalMinutes) * time.Minute
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DefaultRuleSet is the fallback used when no config file can be read: no
// windows are open, so every retry is pushed forward by the default
// interval until a valid config arrives.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Defaults: Defaults{
			MaxAttempts:          3,
			RetryIntervalMinutes: 60,
			ConcurrentCallLimit:  100,
		},
		Scheduler: Scheduler{
			BatchSize:            100,
			MaxConcurrentRetries: 50,
		},
	}
}

// ParseRuleSet decodes and validates a retry schedule document, filling
// omitted knobs with defaults.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("schedule.ParseRuleSet: %w", err)
	}
	rs.applyDefaults()
	if err := rs.validate(); err != nil {
		return RuleSet{}, fmt.Errorf("schedule.ParseRuleSet: %w", err)
	}
	return rs, nil
}

func (rs *RuleSet) applyDefaults() {
	if rs.Defaults.MaxAttempts <= 0 {
		rs.Defaults.MaxAttempts = 3
	}
	if rs.Defaults.RetryIntervalMinutes <= 0 {
		rs.Defaults.RetryIntervalMinutes = 60
	}
	if rs.Defaults.ConcurrentCallLimit <= 0 {
		rs.Defaults.ConcurrentCallLimit = 100
	}
	if rs.Scheduler.BatchSize <= 0 {
		rs.Scheduler.BatchSize = 100
	}
	if rs.Scheduler.MaxConcurrentRetries <= 0 {
		rs.Scheduler.MaxConcurrentRetries = 50
	}

	fill := func(rules []Rule) {
		for i := range rules {
			for j := range rules[i].TimeSlots {
				if rules[i].TimeSlots[j].MaxAttempts <= 0 {
					rules[i].TimeSlots[j].MaxAttempts = rs.Defaults.MaxAttempts
				}
				if rules[i].TimeSlots[j].RetryIntervalMinutes <= 0 {
					rules[i].TimeSlots[j].RetryIntervalMinutes = rs.Defaults.RetryIntervalMinutes
				}
			}
		}
	}
	fill(rs.GlobalRules)
	for i := range rs.CampaignRules {
		fill(rs.CampaignRules[i].Rules)
	}
}

func (rs RuleSet) validate() error {
	if err := validateRules("global_rules", rs.GlobalRules); err != nil {
		return err
	}
	for _, cr := range rs.CampaignRules {
		if cr.CampaignID <= 0 {
			return fmt.Errorf("campaign_rules: invalid campaign_id %d", cr.CampaignID)
		}
		if err := validateRules(fmt.Sprintf("campaign_rules[%d]", cr.CampaignID), cr.Rules); err != nil {
			return err
		}
	}
	return nil
}

func validateRules(where string, rules []Rule) error {
	for _, r := range rules {
		for _, d := range r.Days {
			if _, ok := weekdays[strings.ToLower(d)]; !ok {
				return fmt.Errorf("%s: rule %q: unknown day %q", where, r.Name, d)
			}
		}
		for _, s := range r.TimeSlots {
			start, err := parseMinute(s.StartTime)
			if err != nil {
				return fmt.Errorf("%s: rule %q: start_time: %w", where, r.Name, err)
			}
			end, err := parseMinute(s.EndTime)
			if err != nil {
				return fmt.Errorf("%s: rule %q: end_time: %w", where, r.Name, err)
			}
			if start > end {
				return fmt.Errorf("%s: rule %q: slot %s-%s starts after it ends", where, r.Name, s.StartTime, s.EndTime)
			}
		}
	}
	return nil
}

// parseMinute converts "HH:MM" to minutes since midnight.
func parseMinute(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// flatten expands rules into the ordered window table used for matching.
// Validation has already run, so parse errors cannot occur here.
func flatten(rules []Rule) []Window {
	var out []Window
	for _, r := range rules {
		for _, d := range r.Days {
			day := weekdays[strings.ToLower(d)]
			for _, s := range r.TimeSlots {
				start, _ := parseMinute(s.StartTime)
				end, _ := parseMinute(s.EndTime)
				out = append(out, Window{
					RuleName:             r.Name,
					Day:                  day,
					StartMinute:          start,
					EndMinute:            end,
					MaxAttempts:          s.MaxAttempts,
					RetryIntervalMinutes: s.RetryIntervalMinutes,
				})
			}
		}
	}
	return out
}

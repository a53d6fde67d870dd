package modules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"epidash/pkg/models"
)

// Interval is the epicurve binning resolution.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// dateFormats are the textual date layouts the loader tolerates, tried
// in order. Line lists in the wild mix ISO dates and day-first dates.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// ParseDate parses a single textual date value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// ValidateDates checks that every configured date column holds at
// least one parseable value. A column with zero parseable dates would
// otherwise render an empty chart, so it fails the launch instead.
func ValidateDates(ll *models.LineList, cfg models.TimeConfig) error {
	for _, col := range cfg.DateVars {
		parsed := 0
		for _, v := range ll.Values(col) {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if _, err := ParseDate(v); err == nil {
				parsed++
				break
			}
		}
		if parsed == 0 {
			return fmt.Errorf("time: column %q has no parseable dates", col)
		}
	}
	return nil
}

// EpicurveBin is one time bucket of the epidemic curve.
type EpicurveBin struct {
	Start  string         `json:"start"` // bucket start date, ISO
	Count  int            `json:"count"`
	Groups map[string]int `json:"groups,omitempty"` // per-stratum counts
}

// Epicurve is the aggregate served to the time module.
type Epicurve struct {
	DateVar  string        `json:"date_var"`
	Interval Interval      `json:"interval"`
	GroupVar string        `json:"group_var,omitempty"`
	Bins     []EpicurveBin `json:"bins"`
	Parsed   int           `json:"parsed"`
	Skipped  int           `json:"skipped"` // empty or unparseable cells
}

// BuildEpicurve bins cases of one date column by the given interval,
// optionally stratified by a grouping column.
func BuildEpicurve(ll *models.LineList, cfg models.TimeConfig, dateVar string, interval Interval, groupVar string) (*Epicurve, error) {
	if !containsString(cfg.DateVars, dateVar) {
		return nil, fmt.Errorf("time: %q is not a configured date column", dateVar)
	}
	if groupVar != "" && !hasGroupVar(cfg.GroupVars, groupVar) {
		return nil, fmt.Errorf("time: %q is not a configured grouping variable", groupVar)
	}
	switch interval {
	case IntervalDay, IntervalWeek, IntervalMonth:
	default:
		return nil, fmt.Errorf("time: unsupported interval %q", interval)
	}

	dates := ll.Values(dateVar)
	var groups []string
	if groupVar != "" {
		groups = ll.Values(groupVar)
	}

	byStart := make(map[string]*EpicurveBin)
	parsed, skipped := 0, 0
	for i, raw := range dates {
		t, err := ParseDate(raw)
		if err != nil {
			skipped++
			continue
		}
		parsed++

		start := bucketStart(t, interval)
		bin, ok := byStart[start]
		if !ok {
			bin = &EpicurveBin{Start: start}
			if groupVar != "" {
				bin.Groups = make(map[string]int)
			}
			byStart[start] = bin
		}
		bin.Count++
		if groupVar != "" {
			g := strings.TrimSpace(groups[i])
			if g == "" {
				g = "(missing)"
			}
			bin.Groups[g]++
		}
	}

	if parsed == 0 {
		return nil, fmt.Errorf("time: column %q has no parseable dates", dateVar)
	}

	bins := make([]EpicurveBin, 0, len(byStart))
	for _, b := range byStart {
		bins = append(bins, *b)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Start < bins[j].Start })

	return &Epicurve{
		DateVar:  dateVar,
		Interval: interval,
		GroupVar: groupVar,
		Bins:     bins,
		Parsed:   parsed,
		Skipped:  skipped,
	}, nil
}

// bucketStart truncates a date to the start of its day, ISO week or
// month bucket, formatted as an ISO date.
func bucketStart(t time.Time, interval Interval) string {
	switch interval {
	case IntervalWeek:
		// back up to Monday
		offset := (int(t.Weekday()) + 6) % 7
		t = t.AddDate(0, 0, -offset)
	case IntervalMonth:
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return t.Format("2006-01-02")
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func hasGroupVar(vars []models.GroupingVariable, column string) bool {
	for _, gv := range vars {
		if gv.Column == column {
			return true
		}
	}
	return false
}

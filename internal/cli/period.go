package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date-range presets offered on the sales listings.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodThisWeek  = "this_week"
	PeriodLastWeek  = "last_week"
	PeriodThisMonth = "this_month"
	PeriodLastMonth = "last_month"
	PeriodThisYear  = "this_year"
	PeriodLastYear  = "last_year"
)

var Periods = []string{
	PeriodToday, PeriodYesterday,
	PeriodThisWeek, PeriodLastWeek,
	PeriodThisMonth, PeriodLastMonth,
	PeriodThisYear, PeriodLastYear,
}

var periodLabels = map[string]string{
	PeriodToday:     "Hôm nay",
	PeriodYesterday: "Hôm qua",
	PeriodThisWeek:  "Tuần này",
	PeriodLastWeek:  "Tuần trước",
	PeriodThisMonth: "Tháng này",
	PeriodLastMonth: "Tháng trước",
	PeriodThisYear:  "Năm nay",
	PeriodLastYear:  "Năm trước",
}

const dateLayout = "2006-01-02"

// periodRange is inclusive on both ends and day-aligned.
type periodRange struct {
	From time.Time
	To   time.Time
}

func (p periodRange) IsZero() bool {
	return p.From.IsZero() && p.To.IsZero()
}

// DateFrom and DateTo are the wire values of the range.
func (p periodRange) DateFrom() string {
	if p.From.IsZero() {
		return ""
	}
	return p.From.Format(dateLayout)
}

func (p periodRange) DateTo() string {
	if p.To.IsZero() {
		return ""
	}
	return p.To.Format(dateLayout)
}

// resolvePeriod turns the --period, --from and --to flags into a range.
// Explicit dates win over a preset; no flags means no date filter.
func resolvePeriod(opts *Options, now time.Time) (periodRange, error) {
	if opts.From != "" || opts.To != "" {
		return parsePeriodFromFlags(opts, now)
	}
	if strings.TrimSpace(opts.Period) == "" {
		return periodRange{}, nil
	}
	return presetRange(strings.TrimSpace(opts.Period), now)
}

func presetRange(preset string, now time.Time) (periodRange, error) {
	today := startOfDay(now)
	switch preset {
	case PeriodToday:
		return periodRange{From: today, To: today}, nil
	case PeriodYesterday:
		day := today.AddDate(0, 0, -1)
		return periodRange{From: day, To: day}, nil
	case PeriodThisWeek:
		start := startOfWeek(today)
		return periodRange{From: start, To: start.AddDate(0, 0, 6)}, nil
	case PeriodLastWeek:
		start := startOfWeek(today).AddDate(0, 0, -7)
		return periodRange{From: start, To: start.AddDate(0, 0, 6)}, nil
	case PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return periodRange{From: start, To: start.AddDate(0, 1, -1)}, nil
	case PeriodLastMonth:
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return periodRange{From: start, To: start.AddDate(0, 1, -1)}, nil
	case PeriodThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return periodRange{From: start, To: start.AddDate(1, 0, -1)}, nil
	case PeriodLastYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		return periodRange{From: start, To: start.AddDate(1, 0, -1)}, nil
	default:
		return periodRange{}, fmt.Errorf("unknown --period %q, use one of %s", preset, strings.Join(Periods, ", "))
	}
}

func parsePeriodFromFlags(opts *Options, now time.Time) (periodRange, error) {
	var out periodRange
	var err error

	if opts.From != "" {
		out.From, err = parseDate(opts.From, now.Location())
		if err != nil {
			return periodRange{}, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if opts.To != "" {
		out.To, err = parseDate(opts.To, now.Location())
		if err != nil {
			return periodRange{}, fmt.Errorf("invalid --to date: %w", err)
		}
	}
	if out.To.IsZero() {
		out.To = startOfDay(now)
	}
	if !out.From.IsZero() && out.To.Before(out.From) {
		return periodRange{}, errors.New("--to must not be before --from")
	}
	return out, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek is the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func periodLabel(opts *Options, p periodRange) string {
	if l, ok := periodLabels[strings.TrimSpace(opts.Period)]; ok && opts.From == "" && opts.To == "" {
		return l
	}
	from := "-"
	if !p.From.IsZero() {
		from = formatDate(p.From)
	}
	return from + " → " + formatDate(p.To)
}

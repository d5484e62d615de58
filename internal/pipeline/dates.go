package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/calmzest/waterdash/internal/domain"
)

// The relative-date grammar is a fixed set of enumerated patterns, not a
// general date parser. Anything outside the grammar is "not parseable";
// callers treat that as a validation failure when a date is required.

const weekdayPattern = `(sunday|monday|tuesday|wednesday|thursday|friday|saturday)`

var (
	reLastWeekday     = regexp.MustCompile(`^last ` + weekdayPattern + `$`)
	reLastWeekWeekday = regexp.MustCompile(`^last week ` + weekdayPattern + `$`)
	reWeekdayLastWeek = regexp.MustCompile(`^` + weekdayPattern + ` last week$`)
	reDayOfMonth      = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th) (?:of )?this month$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// ParseRelativeDate resolves a relative date phrase against a fixed "today"
// reference. Recognized forms: "today"; "yesterday"; "last <weekday>" (the
// most recent occurrence strictly before today); "<weekday> last week" and
// "last week <weekday>" (that weekday in the previous calendar week);
// "<N>(st|nd|rd|th) [of] this month".
func ParseRelativeDate(expr string, today civil.Date) (civil.Date, bool) {
	s := strings.ToLower(strings.TrimSpace(expr))

	switch s {
	case "today":
		return today, true
	case "yesterday":
		return today.AddDays(-1), true
	}

	if m := reLastWeekWeekday.FindStringSubmatch(s); m != nil {
		return weekdayInPreviousWeek(today, weekdays[m[1]]), true
	}
	if m := reWeekdayLastWeek.FindStringSubmatch(s); m != nil {
		return weekdayInPreviousWeek(today, weekdays[m[1]]), true
	}

	if m := reLastWeekday.FindStringSubmatch(s); m != nil {
		target := weekdays[m[1]]
		// Walk back until strictly before today: if today is the target
		// weekday, go back a full week.
		diff := int(weekdayOf(today)) - int(target)
		if diff <= 0 {
			diff += 7
		}
		return today.AddDays(-diff), true
	}

	if m := reDayOfMonth.FindStringSubmatch(s); m != nil {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			return civil.Date{}, false
		}
		return civil.DateOf(time.Date(today.Year, today.Month, day, 0, 0, 0, 0, time.UTC)), true
	}

	return civil.Date{}, false
}

// weekdayInPreviousWeek computes the target weekday in the calendar week
// before the current one: start of the current week (Sunday) minus 7 days,
// plus the target offset.
func weekdayInPreviousWeek(today civil.Date, target time.Weekday) civil.Date {
	return today.AddDays(-7 - int(weekdayOf(today)) + int(target))
}

// ResolveDate accepts an already-absolute YYYY-MM-DD date or a relative
// phrase from the grammar above.
func ResolveDate(expr string, today civil.Date) (civil.Date, bool) {
	trimmed := strings.TrimSpace(expr)
	if d, err := civil.ParseDate(trimmed); err == nil {
		return d, true
	}
	return ParseRelativeDate(trimmed, today)
}

// DateRange is an inclusive calendar range; nil bounds mean unbounded.
type DateRange struct {
	Start *civil.Date
	End   *civil.Date
}

// RangeForTimeframe resolves an enumerated timeframe to a concrete range.
// THIS_WEEK runs Sunday through Saturday of the current week; THIS_MONTH
// covers the first through last calendar day of the current month.
// SPECIFIC_DATE requires a resolvable date expression. Unknown timeframes
// fall back to ALL_TIME.
func RangeForTimeframe(tf domain.Timeframe, dateExpr string, today civil.Date) (DateRange, error) {
	switch tf {
	case domain.TimeframeSpecificDate:
		if strings.TrimSpace(dateExpr) == "" {
			return DateRange{}, &ValidationError{Kind: ErrMissingRequiredField, Field: "date"}
		}
		d, ok := ResolveDate(dateExpr, today)
		if !ok {
			return DateRange{}, &ValidationError{Kind: ErrInvalidDate, Field: "date", Value: dateExpr}
		}
		return DateRange{Start: &d, End: &d}, nil

	case domain.TimeframeToday:
		d := today
		return DateRange{Start: &d, End: &d}, nil

	case domain.TimeframeThisWeek:
		start := today.AddDays(-int(weekdayOf(today)))
		end := start.AddDays(6)
		return DateRange{Start: &start, End: &end}, nil

	case domain.TimeframeThisMonth:
		first := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
		// Day zero of the next month normalizes to this month's last day.
		last := civil.DateOf(time.Date(today.Year, today.Month+1, 0, 0, 0, 0, 0, time.UTC))
		return DateRange{Start: &first, End: &last}, nil

	default:
		// ALL_TIME: unbounded.
		return DateRange{}, nil
	}
}

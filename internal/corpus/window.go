package corpus

import (
	"fmt"
	"strconv"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// ParseWindowBound parses one edge of a time window. Accepts Unix timestamps
// in seconds and human-readable dates ("2017-05-16 00:03", "10 minutes ago").
func ParseWindowBound(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s bound is required", fieldName)
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, fmt.Errorf("%s bound must be non-negative", fieldName)
		}
		return time.Unix(unix, 0).UTC(), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		// CurrentPeriod interprets partial dates like "May 16" as the current
		// period, which matches how operators phrase incident windows
		PreferredDateSource: dps.CurrentPeriod,
	}

	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a Unix timestamp or human-readable date: %w", fieldName, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("%s could not be parsed as a date: %s", fieldName, value)
	}
	return parsed.Time, nil
}

// ResolveWindow turns optional from/to strings into a concrete window.
// A missing "to" means now; a missing "from" defaults to defaultMinutes
// before "to".
func ResolveWindow(fromStr, toStr string, defaultMinutes int, now func() time.Time) (time.Time, time.Time, error) {
	to := now()
	if toStr != "" {
		parsed, err := ParseWindowBound(toStr, "to")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	from := to.Add(-time.Duration(defaultMinutes) * time.Minute)
	if fromStr != "" {
		parsed, err := ParseWindowBound(fromStr, "from")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("window start %s is not before end %s", from, to)
	}
	return from, to, nil
}

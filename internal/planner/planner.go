// Package planner implements the time-slice planner (spec §4.5): parsing
// time-annotation strings and partitioning a lookback period into
// GitHub-search-compatible date-range qualifiers, grounded on the
// original's lib/search/utils.py (to_second, slice_period).
package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timeAnnotationRE = regexp.MustCompile(`^\s*([1-9][0-9]*)?\s*(\w+)\s*$`)

var unitFactors = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"mo": 30 * 24 * time.Hour, "month": 30 * 24 * time.Hour, "months": 30 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour, "yr": 365 * 24 * time.Hour, "year": 365 * 24 * time.Hour, "years": 365 * 24 * time.Hour,
}

// ToSeconds parses a time-annotation string ("30d", "1w", "6 months") into
// a duration (spec §4.5 "Time-annotation grammar"). An unadorned amount
// defaults to 1.
func ToSeconds(annotation string) (time.Duration, error) {
	m := timeAnnotationRE.FindStringSubmatch(annotation)
	if m == nil {
		return 0, fmt.Errorf("planner: unknown time annotation %q", annotation)
	}

	amount := int64(1)
	if m[1] != "" {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("planner: unknown time annotation %q: %w", annotation, err)
		}
		amount = n
	}

	unit := strings.ToLower(m[2])
	factor, ok := unitFactors[unit]
	if !ok {
		return 0, fmt.Errorf("planner: unknown time annotation %q", annotation)
	}
	return time.Duration(amount) * factor, nil
}

// isoFormat is Go's reference-time layout for Python's
// datetime.isoformat() on a UTC-aware timestamp (trailing "+00:00" rather
// than "Z").
const isoFormat = "2006-01-02T15:04:05-07:00"

// SlicePeriod partitions [now-period, now] into back-to-back windows of
// length slice, each formatted as a GitHub search `created` qualifier
// value (spec §4.5, Property 5/6): "start..stop" for closed windows, and
// "start" with a bare ">" prefix for the final, still-open window
// reaching up to now. The result is ordered oldest-first unless
// newestFirst is set.
func SlicePeriod(period, slice string, newestFirst bool) ([]string, error) {
	periodDur, err := ToSeconds(period)
	if err != nil {
		return nil, err
	}
	sliceDur, err := ToSeconds(slice)
	if err != nil {
		return nil, err
	}
	if sliceDur <= 0 {
		return nil, fmt.Errorf("planner: slice duration must be positive")
	}

	now := time.Now().UTC().Truncate(time.Second)
	cursor := now.Add(-periodDur)

	var slices []string
	for {
		stop := cursor.Add(sliceDur)
		if !stop.Before(now) {
			slices = append(slices, ">"+cursor.Format(isoFormat))
			break
		}
		slices = append(slices, cursor.Format(isoFormat)+".."+stop.Format(isoFormat))
		cursor = stop
	}

	if newestFirst {
		reverseStrings(slices)
	}
	return slices, nil
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

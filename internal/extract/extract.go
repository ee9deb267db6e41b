// Package extract finds and validates participant identifiers in
// conversation text and survey fields, and derives fallback identifiers from
// timestamps.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Candidate is a structurally parsed participant identifier, pending range
// validation. Seq is 0 when the identifier carries no sequence number.
type Candidate struct {
	Day    int
	Month  int
	Year   int
	Hour   int
	Minute int
	Seq    int
	Layout string // name of the layout that matched
}

// Valid reports whether all calendar/time fields are in range. Candidates
// failing this are discarded, never coerced.
func (c Candidate) Valid() bool {
	if c.Day < 1 || c.Day > 31 {
		return false
	}
	if c.Month < 1 || c.Month > 12 {
		return false
	}
	if c.Hour < 0 || c.Hour > 23 {
		return false
	}
	if c.Minute < 0 || c.Minute > 59 {
		return false
	}
	if c.Seq < 0 {
		return false
	}
	return true
}

// Normalized renders the canonical identifier string,
// DDMMYYYY_HHMM or DDMMYYYY_HHMM_N.
func (c Candidate) Normalized() string {
	s := fmt.Sprintf("%02d%02d%04d_%02d%02d", c.Day, c.Month, c.Year, c.Hour, c.Minute)
	if c.Seq > 0 {
		s += "_" + strconv.Itoa(c.Seq)
	}
	return s
}

// Base returns the identifier without its sequence number, used when two
// submissions from the same session slot must be grouped.
func (c Candidate) Base() string {
	return fmt.Sprintf("%02d%02d%04d_%02d%02d", c.Day, c.Month, c.Year, c.Hour, c.Minute)
}

// Layout is one accepted textual shape for an identifier. Pattern must bind
// the named groups day, month, year, hour, minute and optionally seq.
type Layout struct {
	Name string
	re   *regexp.Regexp
}

// Builtin layouts in priority order. Matching stops at the first structural
// hit; the earlier loose fallbacks (bare numbers, "ID is 12345", ordinal
// words) produced false positives and are intentionally gone.
var builtinLayouts = []Layout{
	{
		Name: "compact",
		re:   regexp.MustCompile(`(?i)\b(?P<day>\d{2})(?P<month>\d{2})(?P<year>\d{4})[_\s-]+(?P<hour>\d{2})(?P<minute>\d{2})[_\s-]+(?:participant[_\s-]*)?(?P<seq>\d{1,3})\b`),
	},
	{
		Name: "clock_time",
		re:   regexp.MustCompile(`(?i)\b(?P<day>\d{2})(?P<month>\d{2})(?P<year>\d{4})[_\s-]+(?P<hour>\d{1,2})[:.h](?P<minute>\d{2})[_\s-]+(?:participant[_\s-]*)?(?P<seq>\d{1,3})\b`),
	},
	{
		Name: "participant_first",
		re:   regexp.MustCompile(`(?i)\bparticipant[_\s-]*(?P<seq>\d{1,3})\D{0,40}(?P<day>\d{2})(?P<month>\d{2})(?P<year>\d{4})[_\s-]+(?P<hour>\d{2})(?P<minute>\d{2})\b`),
	},
	{
		Name: "slashed_date",
		re:   regexp.MustCompile(`(?i)\b(?P<day>\d{1,2})[/-](?P<month>\d{1,2})[/-](?P<year>\d{4}|\d{2})[\s_]+(?P<hour>\d{1,2})[:.h](?P<minute>\d{2})(?:[\s_]+(?:participant[_\s-]*)?(?P<seq>\d{1,3}))?\b`),
	},
	{
		Name: "bare",
		re:   regexp.MustCompile(`(?i)\b(?P<day>\d{2})(?P<month>\d{2})(?P<year>\d{4})[_\s-]+(?P<hour>\d{2})(?P<minute>\d{2})\b`),
	},
}

// Extractor scans free text for participant identifiers.
type Extractor struct {
	layouts []Layout
}

// DefaultExtractor carries only the builtin layouts.
var DefaultExtractor = NewExtractor()

// NewExtractor returns an Extractor with the builtin layouts plus any extras,
// which are tried after the builtins in the order given.
func NewExtractor(extra ...Layout) *Extractor {
	layouts := make([]Layout, 0, len(builtinLayouts)+len(extra))
	layouts = append(layouts, builtinLayouts...)
	layouts = append(layouts, extra...)
	return &Extractor{layouts: layouts}
}

// FromText scans text for an identifier. Layouts apply in priority order and
// matching stops at the first structural hit; if that hit fails range
// validation the candidate is discarded and the scan ends. Absence of a match
// is a normal result, not an error.
func (e *Extractor) FromText(text string) (Candidate, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Candidate{}, false
	}
	for _, l := range e.layouts {
		m := l.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c, ok := candidateFromMatch(l, m)
		if !ok || !c.Valid() {
			// Structural match, invalid ranges: discard, no fallback.
			return Candidate{}, false
		}
		return c, true
	}
	return Candidate{}, false
}

// FromDeclared validates a survey's self-declared identifier field. The
// declared value must itself be one of the accepted layouts; anything else is
// treated as absent.
func (e *Extractor) FromDeclared(raw string) (Candidate, bool) {
	return e.FromText(raw)
}

func candidateFromMatch(l Layout, m []string) (Candidate, bool) {
	group := func(name string) string {
		for i, n := range l.re.SubexpNames() {
			if n == name && i < len(m) {
				return m[i]
			}
		}
		return ""
	}
	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return -1
		}
		return v
	}

	c := Candidate{
		Day:    atoi(group("day")),
		Month:  atoi(group("month")),
		Year:   atoi(group("year")),
		Hour:   atoi(group("hour")),
		Minute: atoi(group("minute")),
		Seq:    atoi(group("seq")),
		Layout: l.Name,
	}
	yearStr := group("year")
	if len(yearStr) == 2 {
		c.Year += 2000
	}
	if c.Day < 0 || c.Month < 0 || c.Year < 0 || c.Hour < 0 || c.Minute < 0 || c.Seq < 0 {
		return Candidate{}, false
	}
	return c, true
}

// Derive builds an identifier from a timestamp, for survey rows whose
// declared identifier is missing or invalid.
func Derive(t time.Time) Candidate {
	return Candidate{
		Day:    t.Day(),
		Month:  int(t.Month()),
		Year:   t.Year(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Layout: "derived",
	}
}

// EquivalenceKey normalizes an identifier string into the key used to detect
// that two survey rows belong to the same participant: non-alphanumerics
// removed, lowercased.
func EquivalenceKey(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range strings.ToLower(id) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

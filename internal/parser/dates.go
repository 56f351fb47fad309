package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// deadlineMarkers are the expressions that mark a date as an explicit
// deadline. A date found next to one of these gets a confidence boost.
const deadlineMarkers = `(?:まで|期限|締切|締め切り|〆切)`

// deadlineBoost is added when a date appears with a deadline marker
const deadlineBoost = 0.1

// DateMatch is the result of date extraction
type DateMatch struct {
	// Date is the resolved calendar date in YYYY-MM-DD form
	Date string
	// Confidence combines the pattern-class base confidence with the
	// deadline-marker boost
	Confidence float64
	// Remaining is the input with the matched span removed
	Remaining string
}

// datePattern is one recognizable date pattern class with its fixed base
// confidence and a resolver turning the match into a calendar date.
type datePattern struct {
	re         *regexp.Regexp
	confidence float64
	resolve    func(m []string, now time.Time) (time.Time, error)
}

var weekdayOffsets = map[string]int{
	"月": 0, "火": 1, "水": 2, "木": 3, "金": 4, "土": 5, "日": 6,
}

// jpWeekday converts Go's Sunday-origin weekday to the Monday-origin
// numbering the relative-date arithmetic uses
func jpWeekday(now time.Time) int {
	return (int(now.Weekday()) + 6) % 7
}

// daysUntilWeekday returns the days ahead to the named weekday within the
// current week, rolling to next week when the day already passed
func daysUntilWeekday(target string, now time.Time) int {
	ahead := weekdayOffsets[target] - jpWeekday(now)
	if ahead <= 0 {
		ahead += 7
	}
	return ahead
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

func newDatePatterns() []datePattern {
	return []datePattern{
		{
			// absolute YYYY-MM-DD (also YYYY/MM/DD and YYYY年M月D日)
			re:         regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})日?`),
			confidence: 1.0,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return resolveYMD(m[1], m[2], m[3], now)
			},
		},
		{
			// absolute MM-DD, year inferred as the current year
			re:         regexp.MustCompile(`(\d{1,2})[-/月](\d{1,2})日?`),
			confidence: 1.0,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return resolveYMD(strconv.Itoa(now.Year()), m[1], m[2], now)
			},
		},
		{
			re:         regexp.MustCompile(`今日`),
			confidence: 1.0,
			resolve:    daysFromNow(0),
		},
		{
			re:         regexp.MustCompile(`明日`),
			confidence: 1.0,
			resolve:    daysFromNow(1),
		},
		{
			re:         regexp.MustCompile(`明後日`),
			confidence: 1.0,
			resolve:    daysFromNow(2),
		},
		{
			// "N days from now"
			re:         regexp.MustCompile(`(\d+)日後`),
			confidence: 0.9,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					return time.Time{}, err
				}
				return now.AddDate(0, 0, n), nil
			},
		},
		{
			// this weekend (Saturday of the current week)
			re:         regexp.MustCompile(`今週末`),
			confidence: 0.8,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return now.AddDate(0, 0, 5-jpWeekday(now)), nil
			},
		},
		{
			re:         regexp.MustCompile(`来週末`),
			confidence: 0.8,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return now.AddDate(0, 0, 12-jpWeekday(now)), nil
			},
		},
		{
			re:         regexp.MustCompile(`今月末`),
			confidence: 0.9,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return endOfMonth(now), nil
			},
		},
		{
			re:         regexp.MustCompile(`来月末`),
			confidence: 0.9,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return endOfMonth(now.AddDate(0, 1, 0)), nil
			},
		},
		{
			re:         regexp.MustCompile(`今週の(月|火|水|木|金|土|日)曜日`),
			confidence: 0.9,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return now.AddDate(0, 0, daysUntilWeekday(m[1], now)), nil
			},
		},
		{
			re:         regexp.MustCompile(`来週の(月|火|水|木|金|土|日)曜日`),
			confidence: 0.9,
			resolve: func(m []string, now time.Time) (time.Time, error) {
				return now.AddDate(0, 0, daysUntilWeekday(m[1], now)+7), nil
			},
		},
	}
}

func daysFromNow(n int) func(m []string, now time.Time) (time.Time, error) {
	return func(_ []string, now time.Time) (time.Time, error) {
		return now.AddDate(0, 0, n), nil
	}
}

func resolveYMD(year, month, day string, now time.Time) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %04d-%02d-%02d", y, m, d)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, now.Location())
	// time.Date normalizes overflow (e.g. Feb 30 -> Mar 2); reject that
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, fmt.Errorf("invalid calendar date: %04d-%02d-%02d", y, m, d)
	}
	return t, nil
}

// combined deadline-marker regexes are derived from the date patterns at
// construction time so the pattern list stays the single source of truth
type compiledDatePattern struct {
	datePattern
	withMarker *regexp.Regexp
}

func compileDatePatterns() []compiledDatePattern {
	patterns := newDatePatterns()
	compiled := make([]compiledDatePattern, 0, len(patterns))
	for _, p := range patterns {
		src := p.re.String()
		combined := regexp.MustCompile(`(?:` + src + `.*?` + deadlineMarkers + `|` + deadlineMarkers + `.*?` + src + `)`)
		compiled = append(compiled, compiledDatePattern{datePattern: p, withMarker: combined})
	}
	return compiled
}

// ExtractDate finds the first recognizable date expression. Patterns
// combined with a deadline marker are tried first and get the marker
// boost; the same patterns without a marker come second at their base
// confidence. Returns nil when no pattern matches.
func (p *Parser) ExtractDate(text string) *DateMatch {
	now := p.now()

	// first pass: date next to a deadline marker
	for _, pat := range p.datePatterns {
		loc := pat.withMarker.FindStringIndex(text)
		if loc == nil {
			continue
		}
		span := text[loc[0]:loc[1]]
		m := pat.re.FindStringSubmatch(span)
		if m == nil {
			continue
		}
		date, err := pat.resolve(m, now)
		if err != nil {
			continue
		}
		confidence := pat.confidence + deadlineBoost
		if confidence > p.vocab.Confidence.Max {
			confidence = p.vocab.Confidence.Max
		}
		return &DateMatch{
			Date:       date.Format("2006-01-02"),
			Confidence: confidence,
			Remaining:  strings.TrimSpace(text[:loc[0]] + text[loc[1]:]),
		}
	}

	// second pass: bare date at base confidence
	for _, pat := range p.datePatterns {
		loc := pat.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		m := pat.re.FindStringSubmatch(text[loc[0]:loc[1]])
		if m == nil {
			continue
		}
		date, err := pat.resolve(m, now)
		if err != nil {
			continue
		}
		return &DateMatch{
			Date:       date.Format("2006-01-02"),
			Confidence: pat.confidence,
			Remaining:  strings.TrimSpace(text[:loc[0]] + text[loc[1]:]),
		}
	}

	return nil
}

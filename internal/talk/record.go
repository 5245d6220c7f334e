package talk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"conftalks/internal/textutil"
)

// Season identifies which of the two yearly conferences a talk belongs to.
type Season string

const (
	SeasonApril   Season = "April"
	SeasonOctober Season = "October"
)

// ErrInvalidSeason is returned when a season string is neither April nor October.
var ErrInvalidSeason = errors.New("invalid season")

// ParseSeason accepts the canonical names as well as the two-digit month used in
// archive URLs.
func ParseSeason(value string) (Season, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "april", "04", "4":
		return SeasonApril, nil
	case "october", "10":
		return SeasonOctober, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeason, value)
	}
}

// Valid reports whether s is one of the enumerated seasons.
func (s Season) Valid() bool {
	return s == SeasonApril || s == SeasonOctober
}

// order sorts April ahead of October within a year.
func (s Season) order() int {
	if s == SeasonApril {
		return 0
	}
	return 1
}

// Record is one scraped talk before dimension resolution. JSON field names
// match the archive written by earlier releases.
type Record struct {
	Calling string `json:"calling"`
	Season  Season `json:"season"`
	Session string `json:"session,omitempty"`
	Speaker string `json:"speaker"`
	Talk    string `json:"talk"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Year    int    `json:"year"`
}

// UnmarshalJSON accepts year as a JSON number or a quoted string such as
// "2020". A year that is neither decodes as 0 and fails Validate, so one bad
// entry does not reject the whole archive.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		Year json.RawMessage `json:"year"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.plain)
	r.Year = parseYear(raw.Year)
	return nil
}

func parseYear(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var value string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0
		}
	} else {
		value = string(raw)
	}
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return year
}

// Period renders the conference period for log lines, e.g. "2020 April".
func (r Record) Period() string {
	return fmt.Sprintf("%d %s", r.Year, r.Season)
}

// Validate checks the fields the loader cannot work without.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("record: title required")
	}
	if r.Year < 1000 || r.Year > 9999 {
		return fmt.Errorf("record: year %d out of range", r.Year)
	}
	if !r.Season.Valid() {
		return fmt.Errorf("record: %w: %q", ErrInvalidSeason, r.Season)
	}
	return nil
}

// Clean returns a copy of r with every string field normalized through
// textutil.Clean. Titles and URLs are also trimmed.
func (r Record) Clean() Record {
	r.Title = strings.TrimSpace(textutil.Clean(r.Title))
	r.Speaker = textutil.Clean(r.Speaker)
	r.Calling = textutil.Clean(r.Calling)
	r.URL = strings.TrimSpace(textutil.Clean(r.URL))
	r.Talk = textutil.Clean(r.Talk)
	r.Session = textutil.Clean(r.Session)
	return r
}

var (
	urlYearPattern  = regexp.MustCompile(`/(\d{4})/`)
	urlMonthPattern = regexp.MustCompile(`/\d{4}/(04|10)(/|$|\?)`)
)

// PeriodFromURL extracts the conference year and season from an archive URL
// such as /study/general-conference/2020/04/some-talk.
func PeriodFromURL(rawURL string) (int, Season, error) {
	match := urlYearPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return 0, "", fmt.Errorf("no year in url %q", rawURL)
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, "", fmt.Errorf("parse year from %q: %w", rawURL, err)
	}
	season := SeasonOctober
	if month := urlMonthPattern.FindStringSubmatch(rawURL); month != nil && month[1] == "04" {
		season = SeasonApril
	}
	return year, season, nil
}

package calling

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"conftalks/internal/textutil"
)

// UnrankedRank marks the sentinel calling and organization.
const UnrankedRank = 1000

// Unknown is the name used for both the sentinel calling and its organization.
const Unknown = "Unknown"

// ErrUnsupportedCalling reports role text that cannot be decomposed or
// classified.
var ErrUnsupportedCalling = errors.New("unsupported calling")

// Calling is a parsed role line.
type Calling struct {
	Name             string
	Organization     string
	OrganizationRank int
	Rank             int
	Emeritus         bool
}

// Known reports whether c came from a real classification rather than the
// sentinel.
func (c Calling) Known() bool {
	return c.OrganizationRank < UnrankedRank
}

// Sentinel returns the placeholder calling used when no role text is present
// or it could not be classified.
func Sentinel() Calling {
	return Calling{
		Name:             Unknown,
		Organization:     Unknown,
		OrganizationRank: UnrankedRank,
		Rank:             UnrankedRank,
	}
}

var qualifierPattern = regexp.MustCompile(`(?i)^(recently )?((?:released|former) )?((?:as|member of the) )?`)

// Parse classifies raw role text. Blank input yields the sentinel without an
// error. On failure the sentinel is returned alongside an error wrapping
// ErrUnsupportedCalling; its Emeritus flag still reflects a leading qualifier.
func Parse(raw string) (Calling, error) {
	text := textutil.Collapse(raw)
	if text == "" {
		return Sentinel(), nil
	}

	// Pad so a bare qualifier such as "Former" is consumed whole.
	padded := text + " "
	qualifier := qualifierPattern.FindString(padded)
	remainder := strings.TrimSpace(padded[len(qualifier):])
	if remainder == "" {
		return unsupported(qualifier), fmt.Errorf("%w: %q has no calling after qualifier", ErrUnsupportedCalling, raw)
	}
	if bad, ok := firstDisallowed(remainder); ok {
		return unsupported(qualifier), fmt.Errorf("%w: %q contains %q", ErrUnsupportedCalling, raw, bad)
	}

	name := titleCase(remainder)
	lowered := strings.ToLower(remainder)
	class, err := classify(name, lowered)
	if err != nil {
		return unsupported(qualifier), fmt.Errorf("%w: %q", err, raw)
	}

	return Calling{
		Name:             name,
		Organization:     class.Organization,
		OrganizationRank: class.OrganizationRank,
		Rank:             PositionRank(lowered),
		Emeritus:         qualifier != "",
	}, nil
}

// unsupported is the sentinel for a failed parse. A consumed qualifier still
// marks the speaker as emeritus.
func unsupported(qualifier string) Calling {
	c := Sentinel()
	c.Emeritus = qualifier != ""
	return c
}

// titleCase builds a fresh caser per call; cases.Caser is not safe to share
// between goroutines.
func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

func firstDisallowed(value string) (rune, bool) {
	for _, r := range value {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case strings.ContainsRune(",()-.'\u2019", r):
		default:
			return r, true
		}
	}
	return 0, false
}

func classify(name, lowered string) (Classification, error) {
	for _, rule := range rules {
		if rule.Match(lowered) {
			return rule.Classify(name, lowered)
		}
	}
	return Classification{Organization: LocalOrganization, OrganizationRank: LocalRank}, nil
}

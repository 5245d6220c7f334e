// Package speaker extracts a display name from the byline printed above a
// talk, for example "By Elder John Doe".
package speaker

import (
	"errors"
	"regexp"
	"strings"

	"conftalks/internal/textutil"
)

// ErrLowConfidence is logged when a byline does not follow the expected
// pattern and the trimmed text is used as the name.
var ErrLowConfidence = errors.New("speaker byline did not match pattern")

// Speaker is a parsed byline. Name is held in NFD.
type Speaker struct {
	Name          string
	Office        string
	LowConfidence bool
}

var bylinePattern = regexp.MustCompile(`(?i)^(?:presented )?by (?:(president|elder|brother|sister|bishop) )?([^\s,.'\x{2019}-][\p{L}\p{M},.'\x{2019}\- ]+)$`)

// Parse returns the speaker named by raw. The boolean is false when raw is
// blank.
func Parse(raw string) (Speaker, bool) {
	text := textutil.Collapse(textutil.NFD(raw))
	if text == "" {
		return Speaker{}, false
	}
	match := bylinePattern.FindStringSubmatch(text)
	if match == nil {
		return Speaker{Name: text, LowConfidence: true}, true
	}
	return Speaker{
		Name:   strings.TrimSpace(match[2]),
		Office: normalizeOffice(match[1]),
	}, true
}

func normalizeOffice(office string) string {
	if office == "" {
		return ""
	}
	return strings.ToUpper(office[:1]) + strings.ToLower(office[1:])
}

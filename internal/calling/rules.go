package calling

import (
	"fmt"
	"strings"
)

// Organization ranks.
const (
	FirstPresidencyRank    = 1
	TwelveRank             = 2
	SeventyRank            = 3
	PresidingBishopricRank = 4
	CommitteeRank          = 50
	LocalRank              = 99
)

// Canonical organization names.
const (
	FirstPresidency    = "First Presidency"
	Twelve             = "Quorum of the Twelve Apostles"
	Seventy            = "Quorum of the Seventy"
	PresidingBishopric = "Presiding Bishopric"
	LocalOrganization  = "Local"
)

// MemberRank is the calling rank for a role with no recognized position.
const MemberRank = 5

// Classification is the organization a calling belongs to.
type Classification struct {
	Organization     string
	OrganizationRank int
}

// Rule is one row of the classification table. Match and Classify receive
// the lowercased calling; Classify also receives the title-cased name.
type Rule struct {
	Name     string
	Match    func(lowered string) bool
	Classify func(name, lowered string) (Classification, error)
}

type auxiliary struct {
	keyword string
	name    string
	rank    int
}

var auxiliaries = []auxiliary{
	{"young men", "Young Men General Presidency", 5},
	{"sunday school", "Sunday School General Presidency", 6},
	{"relief society", "Relief Society General Presidency", 7},
	{"young women", "Young Women General Presidency", 8},
	{"primary", "Primary General Presidency", 9},
}

var committees = []string{"church audit committee", "church leadership committee"}

type position struct {
	keyword string
	rank    int
}

// Order matters: "acting president" must be tested before "president".
var positions = []position{
	{"first counselor", 2},
	{"second counselor", 3},
	{"counselor", 4},
	{"acting president", 2},
	{"presiding bishop", 1},
	{"president", 1},
}

var rules = []Rule{
	{Name: "president of the church", Match: contains("president of the church"), Classify: fixed(FirstPresidency, FirstPresidencyRank)},
	{Name: "first presidency", Match: contains("first presidency"), Classify: fixed(FirstPresidency, FirstPresidencyRank)},
	{Name: "twelve", Match: contains("of the twelve"), Classify: fixed(Twelve, TwelveRank)},
	{Name: "seventy", Match: contains("seventy"), Classify: fixed(Seventy, SeventyRank)},
	{Name: "presiding bishopric", Match: contains("presiding bishop"), Classify: fixed(PresidingBishopric, PresidingBishopricRank)},
	{Name: "auxiliary general presidency", Match: matchAuxiliary, Classify: classifyAuxiliary},
	{Name: "church committee", Match: matchCommittee, Classify: classifyCommittee},
}

// Rules returns a copy of the ordered classification table. Callings that
// match no rule fall back to the Local organization.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// PositionRank returns the seniority of a calling within its organization.
func PositionRank(lowered string) int {
	for _, p := range positions {
		if strings.Contains(lowered, p.keyword) {
			return p.rank
		}
	}
	return MemberRank
}

func contains(fragment string) func(string) bool {
	return func(lowered string) bool {
		return strings.Contains(lowered, fragment)
	}
}

func fixed(org string, rank int) func(string, string) (Classification, error) {
	return func(string, string) (Classification, error) {
		return Classification{Organization: org, OrganizationRank: rank}, nil
	}
}

func endsWithGeneralPresidency(lowered string) bool {
	return strings.HasSuffix(lowered, "general presidency") || strings.HasSuffix(lowered, "general president")
}

func matchAuxiliary(lowered string) bool {
	if endsWithGeneralPresidency(lowered) {
		return true
	}
	hasGeneral := false
	for _, word := range strings.Fields(lowered) {
		if strings.Trim(word, ",.()") == "general" {
			hasGeneral = true
			break
		}
	}
	if !hasGeneral {
		return false
	}
	for _, aux := range auxiliaries {
		if strings.Contains(lowered, aux.keyword) {
			return true
		}
	}
	return false
}

func classifyAuxiliary(_ string, lowered string) (Classification, error) {
	if !endsWithGeneralPresidency(lowered) {
		return Classification{}, fmt.Errorf("%w: auxiliary role is not a general presidency", ErrUnsupportedCalling)
	}
	for _, aux := range auxiliaries {
		if strings.Contains(lowered, aux.keyword) {
			return Classification{Organization: aux.name, OrganizationRank: aux.rank}, nil
		}
	}
	return Classification{}, fmt.Errorf("%w: unknown general presidency", ErrUnsupportedCalling)
}

func matchCommittee(lowered string) bool {
	for _, c := range committees {
		if strings.Contains(lowered, c) {
			return true
		}
	}
	return false
}

func classifyCommittee(_ string, lowered string) (Classification, error) {
	for _, c := range committees {
		if strings.Contains(lowered, c) {
			return Classification{Organization: titleCase(c), OrganizationRank: CommitteeRank}, nil
		}
	}
	return Classification{}, fmt.Errorf("%w: unknown committee", ErrUnsupportedCalling)
}

package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"conftalks/internal/services"
	"conftalks/internal/talk"
)

// Titles of pages that are not talks: reports, sustainings, whole sessions
// and video presentations.
var (
	skipPrefixes = []string{
		"Church Auditing Department Report",
		"Statistical Report",
		"Audit Report",
		"The Annual Report of the Church",
		"Church Finance Committee Report",
		"The Sustaining of Church Officers",
		"The Church Audit Committee Report",
		"Sustaining of ",
		"Video:",
		"Saturday Morning",
		"Proclamation",
	}
	skipContains = []string{"[Video Presentation]"}
	skipSuffixes = []string{"Session"}
)

// Skipped reports whether a page title names something other than a talk.
func Skipped(title string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	for _, fragment := range skipContains {
		if strings.Contains(title, fragment) {
			return true
		}
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(title, suffix) {
			return true
		}
	}
	return false
}

// ParseTalk extracts a record from a talk page. ok is false for pages on the
// skip list. The period comes from the URL.
func ParseTalk(doc *goquery.Document, link TalkLink) (rec talk.Record, ok bool, err error) {
	title := strings.TrimSpace(doc.Find("h1#title1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		return talk.Record{}, false, services.Wrap(services.ErrValidation, component, "parse talk", link.URL+": no title", nil)
	}
	if Skipped(title) {
		return talk.Record{}, false, nil
	}

	year, season, err := talk.PeriodFromURL(link.URL)
	if err != nil {
		return talk.Record{}, false, services.Wrap(services.ErrValidation, component, "parse talk", link.URL, err)
	}

	var paragraphs []string
	doc.Find("div.body-block p").Each(func(_ int, p *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(p.Text()))
	})

	return talk.Record{
		Title:   title,
		Speaker: strings.TrimSpace(doc.Find("p.author-name").First().Text()),
		Calling: strings.TrimSpace(doc.Find("p.author-role").First().Text()),
		Year:    year,
		Season:  season,
		URL:     link.URL,
		Talk:    strings.Join(paragraphs, "\n\n"),
		Session: link.Session,
	}, true, nil
}

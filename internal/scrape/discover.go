package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"conftalks/internal/logging"
)

var (
	conferencePathPattern = regexp.MustCompile(`^/study/general-conference/\d{4}/(04|10)/?$`)
	decadePathPattern     = regexp.MustCompile(`^/study/general-conference/\d{8}/?$`)
	talkPathPattern       = regexp.MustCompile(`^/study/general-conference/\d{4}/(04|10)/.+`)
)

// TalkLink is one talk URL with the session it was listed under.
type TalkLink struct {
	Session string
	URL     string
}

// ConferencePages lists every conference page reachable from the archive
// index, expanding decade pages. Order follows the index and duplicates are
// dropped. A decade page that cannot be fetched is logged and skipped.
func (s *Scraper) ConferencePages(ctx context.Context) ([]string, error) {
	indexURL := s.absolute(s.indexPath)
	doc, err := s.fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("conference index: %w", err)
	}

	seen := make(map[string]struct{})
	var pages []string
	add := func(page string) {
		if _, ok := seen[page]; ok {
			return
		}
		seen[page] = struct{}{}
		pages = append(pages, page)
	}

	for _, href := range archiveLinks(doc) {
		path := pathOf(href)
		switch {
		case conferencePathPattern.MatchString(path):
			add(s.absolute(path))
		case decadePathPattern.MatchString(path):
			decadeURL := s.absolute(path)
			decade, err := s.fetch(ctx, decadeURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logging.WarnWithContext(s.logger, "decade page unavailable", "decade_fetch_failed",
					logging.String(logging.FieldURL, decadeURL),
					logging.Error(err),
					logging.String(logging.FieldImpact, "conferences from this decade are missing"),
				)
				continue
			}
			for _, inner := range archiveLinks(decade) {
				if innerPath := pathOf(inner); conferencePathPattern.MatchString(innerPath) {
					add(s.absolute(innerPath))
				}
			}
		}
	}
	s.logger.Info("conference pages discovered", logging.Int("count", len(pages)))
	return pages, nil
}

// TalkLinks lists talk URLs per session on a conference page. Links to the
// session pages themselves are excluded.
func (s *Scraper) TalkLinks(ctx context.Context, conferenceURL string) ([]TalkLink, error) {
	doc, err := s.fetch(ctx, conferenceURL)
	if err != nil {
		return nil, fmt.Errorf("conference page: %w", err)
	}

	var links []TalkLink
	doc.Find(`li[data-content-type="general-conference-session"]`).Each(func(_ int, session *goquery.Selection) {
		title := strings.TrimSpace(session.Find("p.title").First().Text())
		unique := make(map[string]struct{})
		session.Find(`a[href^="/study/general-conference/"]`).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			path := pathOf(href)
			if !talkPathPattern.MatchString(path) || strings.HasSuffix(path, "session") {
				return
			}
			unique[s.absolute(path)] = struct{}{}
		})
		urls := make([]string, 0, len(unique))
		for u := range unique {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		for _, u := range urls {
			links = append(links, TalkLink{Session: title, URL: u})
		}
		s.logger.Debug("session talks listed",
			logging.String("session", title),
			logging.Int("count", len(urls)),
			logging.String(logging.FieldURL, conferenceURL),
		)
	})
	return links, nil
}

func archiveLinks(doc *goquery.Document) []string {
	var hrefs []string
	doc.Find(`a[href^="/study/general-conference/"]`).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

func pathOf(href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return parsed.Path
}

// absolute joins path onto the base URL and pins the language query.
func (s *Scraper) absolute(path string) string {
	u := url.URL{Path: path}
	if s.language != "" {
		u.RawQuery = url.Values{"lang": []string{s.language}}.Encode()
	}
	return s.baseURL + u.String()
}

package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"conftalks/internal/services"
)

const component = "scrape"

// fetch GETs pageURL and parses it, retrying transient failures.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	attempts := s.retryAttempts + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		doc, err := s.fetchOnce(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !services.Retryable(err) || attempt == attempts {
			break
		}
		if err := s.sleep(ctx, s.retryDelay*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "build request", pageURL, err)
	}
	req.Header.Set("Accept", "text/html")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, services.Wrap(services.ErrTimeout, component, "fetch", pageURL, err)
		}
		return nil, services.Wrap(services.ErrTransient, component, "fetch", pageURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, services.Wrap(services.ErrNotFound, component, "fetch", fmt.Sprintf("%s: http %d", pageURL, resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, component, "fetch", fmt.Sprintf("%s: http %d", pageURL, resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, services.Wrap(services.ErrValidation, component, "fetch", fmt.Sprintf("%s: http %d", pageURL, resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "parse html", pageURL, err)
	}
	return doc, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

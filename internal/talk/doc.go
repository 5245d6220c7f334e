// Package talk defines the raw talk record produced by the scraper and consumed
// by the loader, together with the archive helpers that persist the full record
// set as JSON.
//
// A Record is the pre-resolution shape of one talk: free-text speaker and
// calling strings, the conference year and season, the source URL, and the
// body text. Empty strings stand for fields the source page did not provide.
package talk

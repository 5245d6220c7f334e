// Package services defines error markers shared by the external integrations
// (the archive scraper and the topic service client).
//
// Wrap tags a failure with one of the sentinel markers plus a short
// component/operation detail; Retryable reports whether a tagged failure is
// worth another attempt.
package services

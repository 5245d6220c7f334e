// Package scrape fetches the General Conference archive and turns talk pages
// into talk.Record values.
//
// Discovery walks the archive index, expanding decade pages into their
// conference pages, then lists talk links per session. Talk pages are
// fetched and parsed in parallel with a bounded errgroup; a page that fails
// or is on the skip list is logged and dropped without failing the run.
// Results come back in discovery order and are re-sorted by the caller.
package scrape

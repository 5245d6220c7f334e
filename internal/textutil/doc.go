// Package textutil normalizes scraped text before it is archived or persisted.
//
// Every string field that leaves the scraper passes through Clean so equality
// comparisons in the store (speaker names, talk titles, calling names) are
// stable regardless of how the source page encoded accented characters:
//   - text is held in Unicode NFD (decomposed) form
//   - tabs become four spaces
//   - non-breaking spaces become plain spaces
//
// Collapse and IsBlank are small helpers shared by the parsers.
package textutil

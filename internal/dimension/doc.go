// Package dimension resolves reference rows (conferences, organizations,
// callings, speakers) to database ids, caching them for the length of one
// loader run.
//
// The cache is owned by the caller and cleared with Reset at the start of
// every run. Persisted storage stays the source of truth: a miss always goes
// to the store, which selects or inserts the row. Neither Cache nor Resolver
// is safe for concurrent use; the loader drives them from a single goroutine.
package dimension

// Package topics gates optional topic enrichment for newly created talks.
//
// A Gate wraps an Extractor (normally the llm client), calls it at most once
// per talk, and cleans the raw answer into a short list of topic names. In
// lenient mode failures are logged and the talk is stored without topics; in
// strict mode they surface as ErrEnrichmentFailed so the caller can skip the
// talk.
package topics

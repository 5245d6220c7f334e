// Package ingest loads cleaned talk records into the relational store.
//
// Loader.Ingest handles one record: it resolves the conference period and
// calling, probes for an existing talk, asks the topic gate for topics when
// the talk is new, and writes the talk with its child rows in a single
// transaction. Existing talks are never updated. Loader.Run drives a batch,
// isolates per-record failures, and records the run in ingest_runs.
package ingest

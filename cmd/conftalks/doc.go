// Package main hosts the conftalks CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, applies
// flag overrides, and hands off to the internal packages: harvest for scrape
// and load, store for stats and schema maintenance, and the llm client for
// the topic service health check.
package main

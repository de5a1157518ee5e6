// Package routing implements endpoint selection: the terminal step of a
// pipeline that chooses which downstream endpoint serves a call and fails
// over to the next candidate when one fails.
//
// # Overview
//
// A selector holds an ordered or shuffled list of Dispatchers and hands the
// call to each in turn through Failover. Every dispatcher is tried at most
// once per request. The first success is returned unchanged. When every
// candidate has failed the selector returns one ExhaustedError that carries
// the last downstream response, if any, so the caller sees the downstream
// status rather than a summary of internal attempts.
//
// Failover stops early when the caller goes away or the pipeline's overall
// request deadline passes.
//
// The selection strategies (single, random, priority) live in the
// strategies subpackage.
package routing

// Package types defines the values shared by every stage of the gateway:
// the classified error taxonomy, the OpenAI-compatible error envelope, and
// the Response produced by an endpoint dispatcher.
//
// # Error classes
//
//   - ClassClient: never retried, returned immediately
//   - ClassTransient: retried by the dispatcher, then failed over
//   - ClassTerminal: failed over to an untried endpoint, otherwise surfaced
//   - ClassCapacity: fails fast, never queued
//
// Errors produced by the gateway are rendered as:
//
//	{"error": {"message": "...", "type": "not_found", "code": "unrouted_host"}}
package types

// Package stores provides Redis-backed coordination records for challenge
// sessions.
//
// # Design
//
// [SessionLock] is a SET NX PX lock keyed by subject. The value is the
// owning session ID and release goes through a compare-and-delete script, so
// an instance can never release a lock it no longer owns.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient
// session records. It does NOT generate challenges or decide outcomes.
//
// # What this package must NOT do
//
//   - Import goCaptcha or any sibling internal package.
//   - Store challenge answers.
package stores

// Package bus provides response sources for the challenge engine: the
// transport side that hears what subjects type.
//
// Both sources implement the engine's ResponseSource contract. AwaitOne only
// sees messages published after it was called, returns the first one whose
// author passes the filter, and reports "no response" with ok=false when the
// timeout elapses.
//
//   - [MemorySource]: in-process fan-out, for tests, CLIs and single-binary bots.
//   - [RedisSource]: Redis pub/sub, for transports running in another process.
package bus

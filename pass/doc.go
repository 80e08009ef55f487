// Package pass mints and verifies verification passes: short-lived signed
// tokens proving that a subject solved a challenge.
//
// Passes are JWTs (Ed25519 by default, HS256 optional) carrying the subject
// ID as "sub", the session ID as "sid" and the attempt number that solved
// the challenge as "att".
package pass

// Package middleware exposes HTTP guards that admit only requests carrying a
// verification pass minted by a goCaptcha engine.
//
// # Guards
//
//   - [RequirePass]: any valid pass.
//   - [RequireSubjectPass]: a valid pass minted for the subject the request names.
//
// Each guard reads the pass from "Authorization: Bearer <pass>" or the
// X-Captcha-Pass header, calls Engine.VerifyPass, and injects the verified
// claims into the request context ([PassFromContext]).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It never parses
// pass tokens itself and never touches Redis.
package middleware

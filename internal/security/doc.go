// Package security builds the configuration posture report exposed by
// Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Import goCaptcha; callers copy the fields they need into [ReportInput].
package security

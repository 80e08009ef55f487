package middleware

import (
	"net/http"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// RequireSubjectPass is [RequirePass] that also demands the pass was minted
// for the subject the request acts on. subject returning "" rejects the
// request.
func RequireSubjectPass(verifier PassVerifier, subject func(*http.Request) string) func(http.Handler) http.Handler {
	return guard(verifier, func(r *http.Request, claims *goCaptcha.PassClaims) bool {
		if subject == nil {
			return false
		}
		want := subject(r)
		return want != "" && want == claims.SubjectID
	})
}

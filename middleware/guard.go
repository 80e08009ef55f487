package middleware

import (
	"context"
	"net/http"
	"strings"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// PassHeader is the alternative to an Authorization bearer for clients that
// already use Authorization for something else.
const PassHeader = "X-Captcha-Pass"

// PassVerifier is satisfied by *goCaptcha.Engine.
type PassVerifier interface {
	VerifyPass(ctx context.Context, token string) (*goCaptcha.PassClaims, error)
}

var _ PassVerifier = (*goCaptcha.Engine)(nil)

type passContextKey struct{}

func PassFromContext(ctx context.Context) (*goCaptcha.PassClaims, bool) {
	claims, ok := ctx.Value(passContextKey{}).(*goCaptcha.PassClaims)
	return claims, ok
}

// RequirePass rejects requests without a valid verification pass with 403.
func RequirePass(verifier PassVerifier) func(http.Handler) http.Handler {
	return guard(verifier, nil)
}

func guard(verifier PassVerifier, accept func(*http.Request, *goCaptcha.PassClaims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "captcha required", http.StatusForbidden)
				return
			}

			token, ok := passToken(r)
			if !ok {
				http.Error(w, "captcha required", http.StatusForbidden)
				return
			}

			claims, err := verifier.VerifyPass(r.Context(), token)
			if err != nil || claims == nil {
				http.Error(w, "captcha required", http.StatusForbidden)
				return
			}
			if accept != nil && !accept(r, claims) {
				http.Error(w, "captcha required", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), passContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	token := strings.TrimSpace(r.Header.Get(PassHeader))
	return token, token != ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

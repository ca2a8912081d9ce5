package router

import (
	"net/http"
	"strings"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
)

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func middlewareAuthentication(verifier jwt.JWT) Middleware {
	unauthorized := func(w http.ResponseWriter, msg, challenge string) {
		w.Header().Set("WWW-Authenticate", challenge)
		writeJSON(w, errorResponse{Message: msg}, http.StatusUnauthorized)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Authentication required", `Bearer realm="verification"`)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token", `Bearer realm="verification", error="invalid_token"`)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

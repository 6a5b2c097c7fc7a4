// Package api implements the HTTP gateway in front of the operation catalog
// using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerAuth guards the gateway with a static bearer token. A nil result
// means no guard.
//
// The gateway token is unrelated to the kernel token; callers of the gateway
// never see the latter.
func BearerAuth(token string) func(http.Handler) http.Handler {
	if token == "" {
		return nil
	}
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="siyuanflow"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package clientinfo parses the User-Agent header into structured client
// facts. Ingestion folds them into event metadata so aggregations can split
// activity by platform.
package clientinfo

import (
	"net/http"

	"github.com/mssola/useragent"

	"pitlog/pkg/requestcontext"
)

// Middleware parses the User-Agent and stores the result in the context. An
// absent or unparseable header leaves the zero value; nothing fails.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ua := useragent.New(raw)
		browser, _ := ua.Browser()
		info := requestcontext.ClientInfo{
			Platform: ua.OS(),
			Browser:  browser,
			Mobile:   ua.Mobile(),
		}

		ctx := requestcontext.WithClient(r.Context(), info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

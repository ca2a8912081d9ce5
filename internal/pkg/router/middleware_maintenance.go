package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
)

// middlewareMaintenance answers 503 for the routes listed in
// app.maintenance.endpoints. An entry is either a route pattern or
// "METHOD pattern".
func middlewareMaintenance(cfg config.Config) Middleware {
	blocked := make(map[string]struct{})
	var retryAfter string
	if cfg != nil {
		for _, e := range cfg.GetArray("app.maintenance.endpoints") {
			if e = strings.Join(strings.Fields(e), " "); e != "" {
				blocked[e] = struct{}{}
			}
		}
		if secs := cfg.GetInt("app.maintenance.retry_after_seconds"); secs > 0 {
			retryAfter = strconv.Itoa(secs)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(blocked) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := matchedRoutePath(r)
			_, byPath := blocked[path]
			_, byMethod := blocked[r.Method+" "+path]
			if !byPath && !byMethod {
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}

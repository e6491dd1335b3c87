package httpx

import (
	"net/http"
	"strings"
)

const (
	corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowedHeaders = "Authorization, Content-Type, X-Request-ID"
)

type corsPolicy struct {
	origins  []string
	wildcard bool
}

func newCORSPolicy(origins []string) corsPolicy {
	policy := corsPolicy{}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			policy.wildcard = true
			continue
		}
		policy.origins = append(policy.origins, strings.TrimRight(origin, "/"))
	}
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	if p.wildcard {
		return true
	}
	for _, candidate := range p.origins {
		if strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

// withCORS decorates API responses and answers preflight requests with 204
// before authentication runs.
func (r *Router) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin == "" || !strings.HasPrefix(req.URL.Path, "/api/") {
			next(w, req)
			return
		}
		preflight := req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""
		if !r.cors.allows(origin) {
			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next(w, req)
			return
		}
		header := w.Header()
		header.Add("Vary", "Origin")
		header.Set("Access-Control-Allow-Methods", corsAllowedMethods)
		header.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
		header.Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, X-Request-ID")
		if r.cors.wildcard {
			header.Set("Access-Control-Allow-Origin", "*")
		} else {
			header.Set("Access-Control-Allow-Origin", origin)
		}
		if preflight {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, req)
	}
}

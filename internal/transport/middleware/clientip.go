package middleware

import (
	"net"
	"net/http"

	"github.com/frahmantamala/gameserver-admin/internal"
)

// ClientIP stores the caller address in the request context for audit
// entries and session metadata. Run it after chi's RealIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(internal.ContextWithClientIP(r.Context(), ip)))
	})
}

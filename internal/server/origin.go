package server

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/pfrederiksen/cricpulse/internal/logger"
)

var errForbiddenOrigin = errors.New("origin not allowed")

// LocalOrigin accepts requests without an Origin header, requests from the
// server's own host and requests from a loopback host.
func LocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return isLoopback(u.Hostname())
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// requireOrigin rejects state-changing requests whose Origin fails the
// server's origin check, so a web page on another site cannot drive them.
func (s *Server) requireOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkOrigin(r) {
			s.metrics.IncrCounter("server.origin.rejected")
			s.log.Warn("request origin rejected", logger.Fields{
				"origin": r.Header.Get("Origin"),
				"path":   r.URL.Path,
			})
			s.writeError(w, http.StatusForbidden, errForbiddenOrigin)
			return
		}
		next(w, r)
	}
}

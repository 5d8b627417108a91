package metadata

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"intake/pkg/requestcontext"
)

// Resolver derives the client IP of a request. Proxy headers are honoured
// only when the socket peer is a trusted proxy; otherwise any client could
// pick its own address by setting X-Forwarded-For.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver accepts proxy addresses as CIDRs ("10.0.0.0/8") or single IPs.
// An empty list trusts no proxy.
func NewResolver(trustedProxies []string) (*Resolver, error) {
	r := &Resolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		r.trusted = append(r.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return r, nil
}

func (r *Resolver) isTrusted(ip string) bool {
	if r == nil || len(r.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the socket peer unless it is a trusted proxy. Behind a
// trusted proxy it walks X-Forwarded-For from the right and returns the
// first hop that is not itself trusted, falling back to X-Real-IP.
func (r *Resolver) ClientIP(req *http.Request) string {
	peer := remoteIP(req.RemoteAddr)
	if !r.isTrusted(peer) {
		return peer
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !r.isTrusted(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

// remoteIP strips the port from "ip:port" or "[::1]:port".
func remoteIP(addr string) string {
	if addr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// ClientMetadata stores the client IP and User-Agent in the request
// context. Apply it before rate limiting. A nil resolver trusts no proxy.
func ClientMetadata(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(r.Context(), resolver.ClientIP(r), r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

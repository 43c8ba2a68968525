package identity

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

// HeaderAPIKey carries the shared secret that exempts a caller from rate limiting.
const HeaderAPIKey = "apikey"

// Identity is the rate-limit identity of one request.
type Identity struct {
	Privileged bool   // Caller presented the shared secret
	Key        string // Network address of an anonymous caller; empty when privileged
}

// Resolver classifies callers as privileged or anonymous.
type Resolver struct {
	secret            []byte
	trustForwardedFor bool
}

// NewResolver returns a Resolver for the given shared secret. An empty secret
// disables the privileged path entirely.
func NewResolver(secret string, trustForwardedFor bool) *Resolver {
	return &Resolver{
		secret:            []byte(secret),
		trustForwardedFor: trustForwardedFor,
	}
}

// Resolve classifies an HTTP caller from its headers and remote address.
func (r *Resolver) Resolve(h http.Header, remoteAddr string) Identity {
	addr := remoteAddr
	if r.trustForwardedFor {
		// First X-Forwarded-For entry is the original client
		if xff := h.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				addr = first
			}
		}
	}

	return r.ResolveKey(h.Get(HeaderAPIKey), addr)
}

// ResolveRequest is Resolve applied to r.
func (r *Resolver) ResolveRequest(req *http.Request) Identity {
	return r.Resolve(req.Header, req.RemoteAddr)
}

// ResolveKey classifies a caller from the presented secret and its address.
func (r *Resolver) ResolveKey(presented, remoteAddr string) Identity {
	if r.matches(presented) {
		return Identity{Privileged: true}
	}
	return Identity{Key: hostOnly(remoteAddr)}
}

func (r *Resolver) matches(presented string) bool {
	if len(r.secret) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), r.secret) == 1
}

// hostOnly strips the port so every connection from one host shares a key.
func hostOnly(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

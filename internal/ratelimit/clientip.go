package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// FallbackIP substitutes for a missing or malformed forwarded address.
// The header is attacker-controlled, so an unparseable value is never
// used as an identifier or forwarded downstream.
const FallbackIP = "127.0.0.1"

// ClientIP derives the client identifier from the X-Forwarded-For
// header: first entry if comma-separated, validated as an IPv4 or IPv6
// address, loopback placeholder otherwise.
func ClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return FallbackIP
	}

	first, _, _ := strings.Cut(forwarded, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return FallbackIP
	}
	return first
}

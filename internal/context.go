package internal

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ctxKey string

const (
	ContextUserKey          ctxKey = "userID"
	ContextSourceAddressKey ctxKey = "sourceAddress"
	ContextPeerAddressKey   ctxKey = "peerAddress"
)

// UnknownSourceAddress is recorded when no client address can be determined.
const UnknownSourceAddress = "unknown"

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

func SourceAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return UnknownSourceAddress
	}
	if addr, ok := ctx.Value(ContextSourceAddressKey).(string); ok && addr != "" {
		return addr
	}
	return UnknownSourceAddress
}

func ContextWithSourceAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ContextSourceAddressKey, addr)
}

// PeerAddressFromContext returns the connection address captured before any proxy header rewrite.
func PeerAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return UnknownSourceAddress
	}
	if addr, ok := ctx.Value(ContextPeerAddressKey).(string); ok && addr != "" {
		return addr
	}
	return UnknownSourceAddress
}

func ContextWithPeerAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ContextPeerAddressKey, addr)
}

// SourceAddress picks the first X-Forwarded-For hop, falling back to the peer address.
func SourceAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	return PeerAddress(r)
}

// PeerAddress is the host part of RemoteAddr. Client supplied headers are ignored.
func PeerAddress(r *http.Request) string {
	if r.RemoteAddr == "" {
		return UnknownSourceAddress
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

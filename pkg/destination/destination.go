// Package destination implements the five-step procedure that turns an
// incoming request line and its headers into a concrete (host, port) to
// connect to, and the URI the proxy should actually forward.
package destination

import (
	"strconv"
	"strings"

	"github.com/proxycore/httprelay/pkg/header"
	"github.com/proxycore/httprelay/pkg/perror"
	"github.com/proxycore/httprelay/pkg/upstream"
)

// Resolve determines the destination for a request. A non-nil relay means
// an upstream relay proxy is in play, which changes whether the URI is
// rewritten to path-only form (step 5 of spec.md §4.C: a relay needs to see
// the full absolute-form request, an origin does not).
func Resolve(method, uri string, headers *header.Block, relay *upstream.Relay) (host string, port int, rewrittenURI string, err error) {
	relayConfigured := relay != nil
	defaultPort := 80
	if method == "CONNECT" {
		defaultPort = 443
	}

	target := uri
	if target == "*" {
		h := headers.Host()
		if h == "" {
			return "", 0, "", perror.NewProtocolBroken("resolve_destination", "request-target is * but Host header is absent")
		}
		host, port, err = splitAuthorityParts(h, defaultPort)
		if err != nil {
			return "", 0, "", err
		}
		return host, port, uri, nil
	}

	if idx := strings.Index(target, "://"); idx >= 0 {
		scheme := target[:idx]
		rest := target[idx+3:]
		switch scheme {
		case "http":
			// default port stays as set by method above (80 normally; CONNECT
			// never carries an http:// target, so this path is 80 in practice)
		case "https":
			defaultPort = 443
		default:
			return "", 0, "", perror.NewProtocolBroken("resolve_destination", "unsupported URI scheme: "+scheme)
		}

		authority := rest
		path := ""
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			authority = rest[:slash]
			path = rest[slash:]
		}
		if authority == "" {
			return "", 0, "", perror.NewProtocolBroken("resolve_destination", "missing authority in absolute-form URI")
		}
		host, port, err = splitAuthorityParts(authority, defaultPort)
		if err != nil {
			return "", 0, "", err
		}
		if relayConfigured {
			return host, port, uri, nil
		}
		if path == "" {
			path = "/"
		}
		return host, port, path, nil
	}

	// No scheme prefix: CONNECT's authority-form target ("host:port"), or a
	// bare authority with no Host header to fall back on.
	h := headers.Host()
	if target != "" && method == "CONNECT" {
		return splitAuthority(target, defaultPort)
	}
	if h == "" {
		return "", 0, "", perror.NewProtocolBroken("resolve_destination", "no authority in request-target and no Host header")
	}
	host, port, err = splitAuthorityParts(h, defaultPort)
	if err != nil {
		return "", 0, "", err
	}
	return host, port, uri, nil
}

// splitAuthority resolves a bare "host", "host:", or "host:port" string into
// (host, port, rewrittenURI), where rewrittenURI is the authority unchanged
// (the CONNECT authority-form case, which has no path component to preserve).
func splitAuthority(authority string, defaultPort int) (string, int, string, error) {
	host, port, err := splitAuthorityParts(authority, defaultPort)
	if err != nil {
		return "", 0, "", err
	}
	return host, port, authority, nil
}

func splitAuthorityParts(authority string, defaultPort int) (string, int, error) {
	host := authority
	port := defaultPort
	if colon := strings.LastIndexByte(authority, ':'); colon >= 0 {
		host = authority[:colon]
		portStr := authority[colon+1:]
		if portStr != "" {
			p, err := strconv.Atoi(portStr)
			if err != nil || p < 1 || p > 65535 {
				return "", 0, perror.NewProtocolBroken("resolve_destination", "invalid port in authority: "+authority)
			}
			port = p
		}
	}
	if host == "" {
		return "", 0, perror.NewProtocolBroken("resolve_destination", "empty host in authority: "+authority)
	}
	return host, port, nil
}

package upstream

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/proxycore/httprelay/pkg/perror"
)

// Relay describes an upstream relay proxy the connection manager should dial
// through instead of connecting to the origin directly. The zero value (nil
// *Relay in callers) means "no relay, dial the origin."
type Relay struct {
	Type     string // "http", "https", or "socks5"
	Host     string
	Port     int
	Username string
	Password string
}

// defaultRelayPort mirrors the teacher's ParseProxyURL default-port table,
// minus socks4 (see DESIGN.md: SOCKS4 is not carried forward at this layer).
func defaultRelayPort(scheme string) int {
	switch scheme {
	case "http":
		return 8080
	case "https":
		return 443
	case "socks5":
		return 1080
	}
	return 0
}

// ParseRelayURL parses a relay proxy URL of the form
// "scheme://[user[:pass]@]host[:port]" into a Relay.
func ParseRelayURL(raw string) (*Relay, error) {
	if raw == "" {
		return nil, perror.NewRuntimeError("parse_relay_url", "relay URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, perror.NewRuntimeError("parse_relay_url", fmt.Sprintf("invalid relay URL: %v", err))
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	case "":
		return nil, perror.NewRuntimeError("parse_relay_url", "relay URL must include a scheme (http://, https://, or socks5://)")
	default:
		return nil, perror.NewRuntimeError("parse_relay_url", "unsupported relay scheme: "+u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, perror.NewRuntimeError("parse_relay_url", "relay URL must include a host")
	}

	port := defaultRelayPort(u.Scheme)
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 1 || p > 65535 {
			return nil, perror.NewRuntimeError("parse_relay_url", "invalid relay port: "+portStr)
		}
		port = p
	}

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	return &Relay{Type: u.Scheme, Host: host, Port: port, Username: username, Password: password}, nil
}

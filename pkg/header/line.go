// Package header implements the HTTP/1.x message primitives shared by both
// sides of a relayed request: request and status lines, and the
// order-preserving header block with typed accessors for the handful of
// headers the pipeline engine actually inspects.
package header

import (
	"strconv"
	"strings"

	"github.com/proxycore/httprelay/pkg/perror"
)

// RequestLine is the parsed (method, uri, protocol_version) triple. No
// original text is stored: the text view is String(), rebuilt from the
// fields on each call, so mutating Method or URI is reflected in it.
type RequestLine struct {
	Method          string
	URI             string
	ProtocolVersion string // numeric suffix of "HTTP/X.Y", e.g. "1.1"
}

// ParseRequestLine splits a raw request line into its three tokens.
// Leading empty lines (bare CRLF sent by some clients between requests) are
// the caller's responsibility to skip before calling this.
func ParseRequestLine(line string) (RequestLine, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RequestLine{}, perror.NewProtocolBroken("parse_request_line", "expected method, uri, and protocol version")
	}
	version, err := parseHTTPVersion(fields[2])
	if err != nil {
		return RequestLine{}, err
	}
	return RequestLine{Method: fields[0], URI: fields[1], ProtocolVersion: version}, nil
}

// String reassembles the textual request line, e.g. "GET / HTTP/1.1".
func (r RequestLine) String() string {
	return r.Method + " " + r.URI + " HTTP/" + r.ProtocolVersion
}

// StatusLine is the parsed (protocol_version, status_code, reason) triple;
// String() rebuilds the text. Reason may be empty; the status code must be
// three digits with a leading 1-5, so 100-599 are accepted.
type StatusLine struct {
	ProtocolVersion string
	StatusCode      int
	Reason          string
}

// ParseStatusLine splits a raw status line into version, code, and reason.
func ParseStatusLine(line string) (StatusLine, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, perror.NewProtocolBroken("parse_status_line", "expected protocol version and status code")
	}
	version, err := parseHTTPVersion(parts[0])
	if err != nil {
		return StatusLine{}, err
	}
	if len(parts[1]) != 3 || parts[1][0] < '1' || parts[1][0] > '5' {
		return StatusLine{}, perror.NewProtocolBroken("parse_status_line", "status code must be three digits, 1xx-5xx")
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return StatusLine{}, perror.NewProtocolBroken("parse_status_line", "status code is not numeric")
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return StatusLine{ProtocolVersion: version, StatusCode: code, Reason: reason}, nil
}

// String reassembles the textual status line, e.g. "HTTP/1.1 200 OK".
func (s StatusLine) String() string {
	out := "HTTP/" + s.ProtocolVersion + " " + strconv.Itoa(s.StatusCode)
	if s.Reason != "" {
		out += " " + s.Reason
	}
	return out
}

func parseHTTPVersion(token string) (string, error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(token, prefix) {
		return "", perror.NewProtocolBroken("parse_http_version", "missing HTTP/ prefix")
	}
	version := strings.TrimPrefix(token, prefix)
	if !strings.Contains(version, ".") {
		return "", perror.NewProtocolBroken("parse_http_version", "missing major.minor separator")
	}
	return version, nil
}

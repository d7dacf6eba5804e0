package header

import (
	"strconv"
	"strings"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/perror"
)

// entry is one header line as it appeared on the wire: the name as sent,
// its lower-cased form (the lookup key), and its value.
type entry struct {
	original string
	lower    string
	value    string
}

// tokenized is the set of headers the pipeline materializes as lower-cased,
// comma-split token lists rather than raw strings.
var tokenized = map[string]bool{
	"connection":       true,
	"proxy-connection": true,
	"transfer-encoding": true,
}

// Block is the order-preserving header container: the "single source of
// truth" list of entries, plus a serialized-text cache invalidated on any
// mutation. Duplicate header lines are concatenated with "," at parse time,
// except Content-Length, where the last occurrence wins.
type Block struct {
	entries []entry
	cache   string
	cacheOK bool
}

// NewBlock returns an empty header block.
func NewBlock() *Block {
	return &Block{}
}

// LineReader reads one line at a time, without the trailing newline, the way
// pkg/socket.Socket.ReadLine does. ParseBlock is defined against this
// function type instead of *socket.Socket to avoid a dependency cycle
// (pkg/socket also imports pkg/header for RequestLine/StatusLine parsing).
type LineReader func() (string, error)

// ParseBlock reads header lines from next until a blank line, building a
// Block. A line with no colon is HTTP_PROTOCOL_BROKEN.
func ParseBlock(next LineReader) (*Block, error) {
	b := NewBlock()
	total := 0
	for {
		line, err := next()
		if err != nil {
			return nil, err
		}
		total += len(line)
		if total > constants.MaxHeaderBlockBytes {
			return nil, perror.NewProtocolBroken("parse_header_block", "header block exceeds maximum size")
		}
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, perror.NewProtocolBroken("parse_header_block", "header line has no colon: "+line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		b.addParsed(name, value)
	}
	return b, nil
}

func (b *Block) addParsed(name, value string) {
	lower := strings.ToLower(name)
	if tokenized[lower] {
		value = strings.ToLower(value)
	}
	if lower == "content-length" {
		for i := range b.entries {
			if b.entries[i].lower == lower {
				b.entries[i] = entry{original: name, lower: lower, value: value}
				b.invalidate()
				return
			}
		}
		b.entries = append(b.entries, entry{original: name, lower: lower, value: value})
		b.invalidate()
		return
	}
	for i := range b.entries {
		if b.entries[i].lower == lower {
			b.entries[i].value += "," + value
			b.invalidate()
			return
		}
	}
	b.entries = append(b.entries, entry{original: name, lower: lower, value: value})
	b.invalidate()
}

func (b *Block) invalidate() {
	b.cacheOK = false
}

// Get returns the combined value for name, and whether it was present.
func (b *Block) Get(name string) (string, bool) {
	lower := strings.ToLower(name)
	for i := range b.entries {
		if b.entries[i].lower == lower {
			return b.entries[i].value, true
		}
	}
	return "", false
}

// Set replaces name's value, preserving its position if already present, or
// appends it otherwise. An empty value still sets the header; use Remove to
// delete it.
func (b *Block) Set(name, value string) {
	lower := strings.ToLower(name)
	if tokenized[lower] {
		value = strings.ToLower(value)
	}
	for i := range b.entries {
		if b.entries[i].lower == lower {
			b.entries[i] = entry{original: name, lower: lower, value: value}
			b.invalidate()
			return
		}
	}
	b.entries = append(b.entries, entry{original: name, lower: lower, value: value})
	b.invalidate()
}

// Remove deletes name, if present.
func (b *Block) Remove(name string) {
	lower := strings.ToLower(name)
	for i := range b.entries {
		if b.entries[i].lower == lower {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			b.invalidate()
			return
		}
	}
}

// Names returns the header names in wire order, as originally cased.
func (b *Block) Names() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.original
	}
	return out
}

// Serialize renders the headers-in-order text view, each line terminated by
// CRLF, including the trailing blank line that ends the header block.
func (b *Block) Serialize() string {
	if b.cacheOK {
		return b.cache
	}
	var sb strings.Builder
	for _, e := range b.entries {
		sb.WriteString(e.original)
		sb.WriteString(": ")
		sb.WriteString(e.value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	b.cache = sb.String()
	b.cacheOK = true
	return b.cache
}

// Tokens splits a comma-separated header value into lower-cased, trimmed
// tokens. Used by Connection/ProxyConnection/TransferEncoding.
func Tokens(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Connection returns the Connection header's tokens.
func (b *Block) Connection() []string {
	v, _ := b.Get("Connection")
	return Tokens(v)
}

// ProxyConnection returns the Proxy-Connection header's tokens.
func (b *Block) ProxyConnection() []string {
	v, _ := b.Get("Proxy-Connection")
	return Tokens(v)
}

// TransferEncoding returns the Transfer-Encoding header's tokens.
func (b *Block) TransferEncoding() []string {
	v, _ := b.Get("Transfer-Encoding")
	return Tokens(v)
}

// ContentLength returns the parsed Content-Length, and whether it was
// present and valid. A negative or implausibly large value is reported as
// absent, matching the protection spec.md's fixed-length relay applies.
func (b *Block) ContentLength() (int64, bool) {
	v, ok := b.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 || n > constants.MaxContentLength {
		return 0, false
	}
	return n, true
}

// SetContentLength sets the Content-Length header to n.
func (b *Block) SetContentLength(n int64) {
	b.Set("Content-Length", strconv.FormatInt(n, 10))
}

// ContentEncoding returns the raw Content-Encoding header value.
func (b *Block) ContentEncoding() string {
	v, _ := b.Get("Content-Encoding")
	return v
}

// Host returns the raw Host header value.
func (b *Block) Host() string {
	v, _ := b.Get("Host")
	return v
}

// Referer returns the raw Referer header value.
func (b *Block) Referer() string {
	v, _ := b.Get("Referer")
	return v
}

// CacheControl returns the raw Cache-Control header value.
func (b *Block) CacheControl() string {
	v, _ := b.Get("Cache-Control")
	return v
}

// Expires returns the raw Expires header value.
func (b *Block) Expires() string {
	v, _ := b.Get("Expires")
	return v
}

// Pragma returns the raw Pragma header value.
func (b *Block) Pragma() string {
	v, _ := b.Get("Pragma")
	return v
}

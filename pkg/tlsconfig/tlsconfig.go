// Package tlsconfig provides helpers for configuring the TLS version floor
// and cipher suites used when this proxy dials an HTTPS relay upstream.
package tlsconfig

import "crypto/tls"

// TLS protocol versions referenced by ApplyVersionProfile/ApplyCipherSuites.
const (
	VersionTLS12 uint16 = tls.VersionTLS12
	VersionTLS13 uint16 = tls.VersionTLS13
)

// VersionProfile is a named minimum/maximum TLS version pair.
type VersionProfile struct {
	Min         uint16
	Max         uint16
	Description string
}

// ProfileSecure requires TLS 1.2 or newer: the floor this proxy holds every
// HTTPS relay connection to.
var ProfileSecure = VersionProfile{
	Min:         VersionTLS12,
	Max:         VersionTLS13,
	Description: "TLS 1.2+ - secure and widely compatible",
}

// CipherSuitesTLS12Secure lists ECDHE/AEAD cipher suites for TLS 1.2.
var CipherSuitesTLS12Secure = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

// ApplyVersionProfile applies a version floor/ceiling to a tls.Config.
func ApplyVersionProfile(config *tls.Config, profile VersionProfile) {
	config.MinVersion = profile.Min
	config.MaxVersion = profile.Max
}

// ApplyCipherSuites sets config.CipherSuites appropriately for minVersion.
// TLS 1.3 negotiates its own suites, so minVersion >= VersionTLS13 leaves
// CipherSuites nil.
func ApplyCipherSuites(config *tls.Config, minVersion uint16) {
	if minVersion >= VersionTLS13 {
		config.CipherSuites = nil
		return
	}
	config.CipherSuites = CipherSuitesTLS12Secure
}

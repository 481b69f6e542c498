package mysql

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
)

// defaultHostnameVerifier implements RFC 6125-style matching: the
// configured host must appear among the certificate's SANs (falling
// back to the deprecated CommonName only when no SAN is present at
// all), wildcard label matching in the left-most DNS label. Used under
// SSLModeVerifyIdentity; SSLModeVerifyCA stops at chain validation and
// never calls this.
type defaultHostnameVerifier struct{}

func (defaultHostnameVerifier) Verify(host string, sans []string, commonName string) bool {
	names := sans
	if len(names) == 0 && commonName != "" {
		names = []string{commonName}
	}
	for _, n := range names {
		if matchHostname(host, n) {
			return true
		}
	}
	return false
}

func matchHostname(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	if host == pattern {
		return true
	}
	if !strings.HasPrefix(pattern, "*.") {
		return false
	}
	hostLabels := strings.SplitN(host, ".", 2)
	patternRest := pattern[2:]
	if len(hostLabels) != 2 {
		return false
	}
	return hostLabels[1] == patternRest
}

// buildTLSConfig turns §6's sslMode/sslCa/sslCert/sslKey/tlsVersion
// options into a *tls.Config. Hostname verification beyond what
// crypto/tls does natively is run by the caller, handshake.go's
// upgradeTLS, which calls verifyIdentity on the connection state after
// the TLS handshake under VERIFY_IDENTITY.
func buildTLSConfig(cfg *Config, host string) (*tls.Config, error) {
	tc := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: cfg.SSLMode == SSLModeRequired,
	}
	if cfg.SSLCA != "" {
		pool := x509.NewCertPool()
		pem, err := os.ReadFile(cfg.SSLCA)
		if err != nil {
			return nil, fmt.Errorf("mysql: reading sslCa: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("mysql: sslCa %q contains no usable certificates", cfg.SSLCA)
		}
		tc.RootCAs = pool
	}
	if cfg.SSLCert != "" && cfg.SSLKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			return nil, fmt.Errorf("mysql: loading sslCert/sslKey: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	if len(cfg.TLSVersions) > 0 {
		min, max, err := tlsVersionRange(cfg.TLSVersions)
		if err != nil {
			return nil, err
		}
		tc.MinVersion, tc.MaxVersion = min, max
	}
	return tc, nil
}

func tlsVersionRange(versions []string) (min, max uint16, err error) {
	ids := map[string]uint16{
		"TLSv1.2": tls.VersionTLS12,
		"TLSv1.3": tls.VersionTLS13,
	}
	for _, v := range versions {
		id, ok := ids[v]
		if !ok {
			return 0, 0, fmt.Errorf("mysql: unsupported tlsVersion %q", v)
		}
		if min == 0 || id < min {
			min = id
		}
		if id > max {
			max = id
		}
	}
	return min, max, nil
}

// verifyIdentity re-checks the already chain-validated connection state
// against the configured HostnameVerifier, used only under
// SSLModeVerifyIdentity (VERIFY_CA relies on the handshake's own chain
// validation and stops there, per §6).
func verifyIdentity(state *tls.ConnectionState, host string, verifier HostnameVerifier) error {
	if verifier == nil {
		verifier = defaultHostnameVerifier{}
	}
	if len(state.PeerCertificates) == 0 {
		return fmt.Errorf("mysql: no peer certificate presented")
	}
	leaf := state.PeerCertificates[0]
	sans := append([]string(nil), leaf.DNSNames...)
	for _, ip := range leaf.IPAddresses {
		sans = append(sans, ip.String())
	}
	if verifier.Verify(host, sans, leaf.Subject.CommonName) {
		return nil
	}
	return fmt.Errorf("mysql: certificate is not valid for host %q", host)
}

// splitHostPort strips the port for hostname verification purposes.
func splitHostPort(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}

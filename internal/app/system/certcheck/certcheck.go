// Package certcheck reports TLS certificate expiry for the service's own
// public endpoint. Informational only; used by the health endpoint.
package certcheck

import (
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"time"
)

// Info describes the leaf certificate served for a host.
type Info struct {
	DaysLeft int
	IsValid  bool
	Error    string
}

// Check dials baseURL's host over TLS and inspects the leaf certificate.
// Non-https URLs and dial failures produce IsValid=false with the reason in
// Error; the caller treats that as informational, not fatal.
func Check(baseURL string) Info {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return Info{Error: "unparseable base URL"}
	}
	if u.Scheme != "https" {
		return Info{Error: "not an https endpoint"}
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, "443")
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := tls.DialWithDialer(dialer, "tcp", host, &tls.Config{ServerName: u.Hostname()})
	if err != nil {
		return Info{Error: err.Error()}
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return Info{Error: "no peer certificates"}
	}

	leaf := certs[0]
	now := time.Now()
	daysLeft := int(leaf.NotAfter.Sub(now).Hours() / 24)
	valid := now.After(leaf.NotBefore) && now.Before(leaf.NotAfter)

	return Info{DaysLeft: daysLeft, IsValid: valid}
}

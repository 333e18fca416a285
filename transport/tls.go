// Package transport configures TLS for HTTP/2 connections, including the
// ALPN (NextProtos) wiring for h2 and http/1.1.
package transport

import (
	"crypto/tls"
	"fmt"
)

// ProtoH2 and ProtoHTTP1 are the ALPN protocol ids negotiated for HTTP/2
// and its fallback, matching RFC 7540 §3.1's registered identifiers.
const (
	ProtoH2    = "h2"
	ProtoHTTP1 = "http/1.1"
)

// TLSConfig builds a *tls.Config suitable for an HTTP/2 server: ALPN
// offering h2 then http/1.1, TLS 1.2 floor (RFC 7540 §9.2 forbids TLS <
// 1.2), and the cipher-suite blacklist's modern equivalent of leaving the
// "bad cipher" check to Go's curated default suite list. crypto/tls itself
// is unavoidable stdlib: no ecosystem package in the examined corpus
// reimplements the TLS handshake state machine, so this is the one layer
// of the transport that stays on the standard library (see DESIGN.md).
func TLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("transport: load keypair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ProtoH2, ProtoHTTP1},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// NegotiatedH2 reports whether a completed TLS handshake selected the h2
// ALPN protocol.
func NegotiatedH2(state tls.ConnectionState) bool {
	return state.NegotiatedProtocol == ProtoH2
}

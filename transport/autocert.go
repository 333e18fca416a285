package transport

import (
	"crypto/tls"

	"golang.org/x/crypto/acme/autocert"
)

// AutocertConfig builds a *tls.Config backed by Let's Encrypt via
// golang.org/x/crypto/acme/autocert, for deployments that don't want to
// manage certificate files by hand (an alternative to TLSConfig). cacheDir
// is where autocert persists issued certificates between restarts; hosts
// restricts issuance to the configured domain names, per autocert's own
// HostPolicy guidance against open-ended issuance.
func AutocertConfig(cacheDir string, hosts ...string) *tls.Config {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(hosts...),
		Cache:      autocert.DirCache(cacheDir),
	}

	cfg := m.TLSConfig()
	cfg.NextProtos = dedupeProtos(append([]string{ProtoH2}, cfg.NextProtos...))

	return cfg
}

func dedupeProtos(protos []string) []string {
	seen := make(map[string]bool, len(protos))
	out := protos[:0]
	for _, p := range protos {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

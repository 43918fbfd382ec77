package httpx

import "golang.org/x/crypto/acme/autocert"

const certCacheDir = ".rtcmeet/certs"

type TLS struct {
	CertManager *autocert.Manager
}

func NewTLSConfig(host string) *TLS {
	tls := TLS{
		CertManager: &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache(certCacheDir),
		},
	}
	if host != "" {
		tls.CertManager.HostPolicy = autocert.HostWhitelist(host)
	}
	return &tls
}

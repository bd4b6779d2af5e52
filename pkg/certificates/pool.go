package certificates

import (
	"crypto/x509"
	"fmt"
	"os"
)

// ClientCAPool returns the system certificate pool extended with the PEM
// certificates found in caFile. Used when the synthetics API is reached
// through a TLS-intercepting proxy with a private CA.
func ClientCAPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %s: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return pool, nil
}

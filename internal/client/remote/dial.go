package remote

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions selects the channel security.
type DialOptions struct {
	CACert    string // PEM bundle; system roots when empty
	Insecure  bool   // TLS without certificate verification (dev)
	Plaintext bool   // no TLS at all (local dev only)
}

func loadTLS(o DialOptions) (credentials.TransportCredentials, error) {
	if o.Plaintext {
		return insecure.NewCredentials(), nil
	}
	if o.Insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // opt-in dev flag
	}
	if o.CACert == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(o.CACert)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial creates a lazily connecting channel to addr.
func Dial(addr string, o DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	creds, err := loadTLS(o)
	if err != nil {
		return nil, err
	}
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, extra...)
	return grpc.NewClient(addr, opts...)
}

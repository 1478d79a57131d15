// Package certsetup implements spec.md §6's TLS bootstrap: on first run it
// writes a self-signed CA plus a server and a client ECDSA P-256 leaf under
// the plugin data directory, and reuses them verbatim on every later start.
// The shape (CA, then server/client leaves signed by it, SANs fixed to the
// plugin's own identity) mirrors the original implementation's
// grpc/tls.rs, translated into Go's crypto/x509 idiom; lnd's own
// lightningnetwork/lnd/cert package is used for the narrow, well-documented
// pieces (turning a tls.Certificate into a tls.Config, and building the CA
// pool; the cert/key pairs themselves are loaded with tls.X509KeyPair)
// rather than reimplemented, since real source for
// that module isn't present in the pack to ground a from-scratch
// reimplementation against (see DESIGN.md).
package certsetup

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/lightningnetwork/lnd/cert"
)

// validity is how long generated leaves and the CA are valid for.
const validity = 14 * 365 * 24 * time.Hour

// keyPerm is the file mode private key PEMs are written with: owner-only,
// per spec.md §6.
const keyPerm = 0o600

// sanNames are the subject-alternative-names every leaf carries, per
// spec.md §6.
var sanNames = []string{"hold", "hold", "localhost"}

// sanIPs are the IP SANs every leaf carries.
var sanIPs = []net.IP{net.ParseIP("127.0.0.1")}

// Bundle is the bootstrapped TLS material: a server identity for the gRPC
// listener and a CA pool clients/server both trust.
type Bundle struct {
	ServerCert tls.Certificate
	ClientCert tls.Certificate
	CAPool     *x509.CertPool
}

// ServerTLSConfig returns a *tls.Config requiring mutual TLS (spec.md §6:
// "Client authentication is required"), ready to pass to grpc.Creds via
// credentials.NewTLS.
func (b *Bundle) ServerTLSConfig() *tls.Config {
	tlsCfg := cert.TLSConfFromCert(b.ServerCert)
	tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	tlsCfg.ClientCAs = b.CAPool

	return tlsCfg
}

// ClientTLSConfig returns a *tls.Config for a client connecting to the
// bootstrapped server, presenting the client leaf and trusting the CA.
func (b *Bundle) ClientTLSConfig() *tls.Config {
	tlsCfg := cert.TLSConfFromCert(b.ClientCert)
	tlsCfg.RootCAs = b.CAPool

	return tlsCfg
}

// Bootstrap loads the CA/server/client material from dir, generating
// whatever is missing. Existing files are reused verbatim (spec.md §6).
func Bootstrap(dir string) (*Bundle, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cert dir: %w", err)
	}

	caCertPEM, caKeyPEM, caCert, caKey, err := loadOrGenerate(
		dir, "ca", "Hold Root CA", nil, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap CA: %w", err)
	}

	serverCertPEM, serverKeyPEM, _, _, err := loadOrGenerate(
		dir, "server", "Hold gRPC server", caCert, caKey,
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap server cert: %w", err)
	}

	clientCertPEM, clientKeyPEM, _, _, err := loadOrGenerate(
		dir, "client", "Hold gRPC client", caCert, caKey,
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap client cert: %w", err)
	}

	serverCert, err := tls.X509KeyPair(serverCertPEM, serverKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load server keypair: %w", err)
	}

	clientCert, err := tls.X509KeyPair(clientCertPEM, clientKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load client keypair: %w", err)
	}

	pool, err := cert.NewCertPool(caCertPEM)
	if err != nil {
		return nil, fmt.Errorf("build CA pool: %w", err)
	}

	return &Bundle{
		ServerCert: serverCert,
		ClientCert: clientCert,
		CAPool:     pool,
	}, nil
}

// loadOrGenerate loads an existing <name>.pem/<name>-key.pem pair from dir,
// generating and persisting a new one signed by (parentCert, parentKey) if
// either file is missing. parentCert == nil means self-signed (the CA
// itself).
func loadOrGenerate(dir, name, commonName string, parentCert *x509.Certificate,
	parentKey *ecdsa.PrivateKey) (certPEM, keyPEM []byte,
	leafCert *x509.Certificate, leafKey *ecdsa.PrivateKey, err error) {

	certPath := filepath.Join(dir, name+".pem")
	keyPath := filepath.Join(dir, name+"-key.pem")

	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	if certErr == nil && keyErr == nil {
		certPEM, err = os.ReadFile(certPath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		keyPEM, err = os.ReadFile(keyPath)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		leafCert, leafKey, err = parseKeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		return certPEM, keyPEM, leafCert, leafKey, nil
	}

	return generate(dir, name, commonName, parentCert, parentKey)
}

func generate(dir, name, commonName string, parentCert *x509.Certificate,
	parentKey *ecdsa.PrivateKey) (certPEM, keyPEM []byte,
	leafCert *x509.Certificate, leafKey *ecdsa.PrivateKey, err error) {

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	isCA := parentCert == nil

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  isCA,
		DNSNames:              sanNames,
		IPAddresses:           sanIPs,
	}
	if isCA {
		template.KeyUsage |= x509.KeyUsageCertSign
	}

	signerCert, signerKey := template, priv
	if !isCA {
		signerCert, signerKey = parentCert, parentKey
	}

	der, err := x509.CreateCertificate(
		rand.Reader, template, signerCert, &priv.PublicKey, signerKey,
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal key: %w", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	certPath := filepath.Join(dir, name+".pem")
	keyPath := filepath.Join(dir, name+"-key.pem")

	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("write cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, keyPerm); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("write key: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return certPEM, keyPEM, leaf, priv, nil
}

func parseKeyPair(certPEM, keyPEM []byte) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, nil, fmt.Errorf("decode cert PEM")
	}
	leaf, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse cert: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("decode key PEM")
	}
	key, err := x509.ParseECPrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse key: %w", err)
	}

	return leaf, key, nil
}

// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package certinfo is the certificate-info collaborator spec §6 describes:
// given DER certificate bytes, it returns the subject/issuer DN and the
// issuer's raw public key bytes the responder registry needs to compute an
// issuerKeyHash at load time. It is intentionally the only place in this
// module that parses a general-purpose X.509 certificate.
package certinfo

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"github.com/cloudflare/cfssl/helpers"
)

// Info is the information the registry extracts from a trusted issuer
// certificate at load time.
type Info struct {
	Subject         pkix.Name
	Issuer          pkix.Name
	PublicKeyBytes  []byte // DER SubjectPublicKeyInfo.subjectPublicKey, right-aligned bit string content
	Raw             []byte // full DER certificate
	SerialNumber    []byte // big-endian magnitude of the certificate's own serial, without DER's leading 0x00 sign octet (the form ocsp.CertID.SerialHex keys on)
	NotAfter        int64  // unix seconds; cmd/ca-admin derives a record's expiry from this
}

// Collaborator is implemented by anything that can extract Info from a DER
// certificate. The default implementation wraps crypto/x509 and
// cfssl/helpers; a test double can substitute canned Info values.
type Collaborator interface {
	Parse(der []byte) (*Info, error)
}

// X509Collaborator is the default Collaborator, backed by crypto/x509.
type X509Collaborator struct{}

// Parse decodes a DER certificate and extracts the fields the registry and
// cmd/ca-admin need.
func (X509Collaborator) Parse(der []byte) (*Info, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("certinfo: parsing certificate: %w", err)
	}

	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(cert.RawSubjectPublicKeyInfo, &spki); err != nil {
		return nil, fmt.Errorf("certinfo: parsing SubjectPublicKeyInfo: %w", err)
	}

	return &Info{
		Subject:        cert.Subject,
		Issuer:         cert.Issuer,
		PublicKeyBytes: spki.PublicKey.RightAlign(),
		Raw:            cert.Raw,
		SerialNumber:   cert.SerialNumber.Bytes(),
		NotAfter:       cert.NotAfter.Unix(),
	}, nil
}

// ParsePEMOrDER loads a certificate from file contents that may be either
// PEM or raw DER: it tries cfssl/helpers.ParseCertificatePEM first and falls
// back to parsing the contents as DER.
func ParsePEMOrDER(contents []byte) (*x509.Certificate, error) {
	if cert, err := helpers.ParseCertificatePEM(contents); err == nil {
		return cert, nil
	}
	return x509.ParseCertificate(contents)
}

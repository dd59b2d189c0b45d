// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package registry

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bseddon/ocsp-responder/certinfo"
)

func writeTestIssuer(t *testing.T) (certPath, keyPath string, keyHash []byte) {
	t.Helper()
	dir := t.TempDir()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test issuer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		IsCA:         true,
		KeyUsage:     x509.KeyUsageCertSign,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	certPath = filepath.Join(dir, "issuer.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), 0644); err != nil {
		t.Fatal(err)
	}

	keyBytes := x509.MarshalPKCS1PrivateKey(key)
	keyPath = filepath.Join(dir, "issuer.key")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyBytes}), 0644); err != nil {
		t.Fatal(err)
	}

	spkiHash := sha1.Sum(x509.MarshalPKCS1PublicKey(&key.PublicKey))
	return certPath, keyPath, spkiHash[:]
}

func TestLoadAndLookup(t *testing.T) {
	certPath, keyPath, _ := writeTestIssuer(t)

	reg, err := Load([]IssuerConfig{{
		Certificate: certPath,
		Key:         KeyConfig{File: keyPath},
	}}, certinfo.X509Collaborator{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("got %d entries, want 1", reg.Len())
	}

	// Recover the key hash by parsing the cert the way Load did: it is
	// SHA-1 over the SubjectPublicKeyInfo's subjectPublicKey bit-string
	// content, not over the whole SubjectPublicKeyInfo encoding.
	certBytes, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(certBytes)
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	info, err := certinfo.X509Collaborator{}.Parse(cert.Raw)
	if err != nil {
		t.Fatal(err)
	}
	keyHash := sha1.Sum(info.PublicKeyBytes)

	entry, err := reg.Lookup(keyHash[:])
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if base64.StdEncoding.EncodeToString(entry.KeyHash) != base64.StdEncoding.EncodeToString(keyHash[:]) {
		t.Fatalf("entry KeyHash mismatch")
	}
}

func TestLookupUnknownIssuer(t *testing.T) {
	certPath, keyPath, _ := writeTestIssuer(t)
	reg, err := Load([]IssuerConfig{{Certificate: certPath, Key: KeyConfig{File: keyPath}}}, certinfo.X509Collaborator{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = reg.Lookup([]byte("not-a-real-hash-0000"))
	if err == nil {
		t.Fatal("expected error for unknown issuerKeyHash")
	}
}

// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package crl

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/bseddon/ocsp-responder/der"
)

func testIssuer(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber:    big.NewInt(1),
		Subject:         pkix.Name{CommonName: "test CA"},
		NotBefore:       time.Now().Add(-time.Hour),
		NotAfter:        time.Now().Add(24 * time.Hour),
		IsCA:            true,
		KeyUsage:        x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		SubjectKeyId:    []byte{0x01, 0x02, 0x03, 0x04},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatal(err)
	}
	return cert, key
}

func TestBuildCRLRoundTrip(t *testing.T) {
	issuer, key := testIssuer(t)
	now := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)
	reasonKeyCompromise := 1

	entries := []RevokedEntry{{
		Serial:         big.NewInt(0x0A1B2C),
		RevocationDate: now,
		Reason:         &reasonKeyCompromise,
	}}

	crlDER, err := Build(issuer, key, Metadata{Number: 1, Version: 2, Days: 30}, entries, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	root, err := der.Decode(crlDER)
	if err != nil {
		t.Fatalf("decoding CertificateList: %v", err)
	}
	tbsCertList, ok := root.ChildAtIndex(0)
	if !ok {
		t.Fatal("missing tbsCertList")
	}

	// version [v2=1], signature, issuer, thisUpdate, nextUpdate, revokedCertificates, [0] extensions
	versionEl, ok := tbsCertList.ChildAtIndex(0)
	if !ok {
		t.Fatal("missing version")
	}
	version, err := versionEl.AsBigInt()
	if err != nil || version.Int64() != 1 {
		t.Fatalf("got version %v err %v, want 1 (v2)", version, err)
	}

	issuerNameEl, _ := tbsCertList.ChildAtIndex(2)
	if der.Encode(issuerNameEl)[0] != 0x30 {
		t.Fatalf("issuer name is not a SEQUENCE")
	}

	thisUpdateEl, _ := tbsCertList.ChildAtIndex(3)
	thisUpdate, err := thisUpdateEl.AsUTCTime()
	if err != nil {
		t.Fatal(err)
	}
	if !thisUpdate.Equal(now) {
		t.Fatalf("got thisUpdate %v want %v", thisUpdate, now)
	}

	nextUpdateEl, _ := tbsCertList.ChildAtIndex(4)
	nextUpdate, err := nextUpdateEl.AsUTCTime()
	if err != nil {
		t.Fatal(err)
	}
	wantNext := now.AddDate(0, 0, 30)
	if !nextUpdate.Equal(wantNext) {
		t.Fatalf("got nextUpdate %v want %v", nextUpdate, wantNext)
	}

	revokedSeq, ok := tbsCertList.ChildAtIndex(5)
	if !ok || len(revokedSeq.Elements()) != 1 {
		t.Fatalf("expected exactly one revoked entry")
	}
	revoked := revokedSeq.Children[0]
	serialEl, _ := revoked.ChildAtIndex(0)
	serial, err := serialEl.AsBigInt()
	if err != nil || serial.Int64() != 0x0A1B2C {
		t.Fatalf("got serial %v err %v", serial, err)
	}

	crlExtEl := tbsCertList.NthChildOfType(0, der.ClassContextSpecific, der.Explicit)
	if crlExtEl == nil {
		t.Fatal("missing CRL extensions")
	}
	if len(crlExtEl.Elements()) != 2 {
		t.Fatalf("got %d CRL extensions, want 2 (AKID, CRLNumber)", len(crlExtEl.Elements()))
	}
}

func TestBuildCRLVersion1OmitsVersionAndExtensions(t *testing.T) {
	issuer, key := testIssuer(t)
	now := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)

	crlDER, err := Build(issuer, key, Metadata{Number: 1, Version: 1, Days: 30}, nil, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	root, err := der.Decode(crlDER)
	if err != nil {
		t.Fatal(err)
	}
	tbsCertList, _ := root.ChildAtIndex(0)
	// No version field: child 0 should be the signature AlgorithmIdentifier, not an INTEGER.
	child0, _ := tbsCertList.ChildAtIndex(0)
	if child0.IsUniversal(der.TagInteger) {
		t.Fatal("v1 CRL should not encode a version field")
	}
}

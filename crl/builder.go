// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package crl builds and signs RFC 5280 §5 CertificateLists, the
// out-of-band collaborator spec §4.6 describes: invoked by operational
// tooling (cmd/crl-build), not by the OCSP responder itself.
package crl

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"fmt"
	"math/big"
	"time"

	"github.com/bseddon/ocsp-responder/der"
)

// RevokedEntry is one CRL entry: a revoked serial, its revocation date, and
// optional CRL entry extensions (spec §4.6).
type RevokedEntry struct {
	Serial          *big.Int
	RevocationDate  time.Time
	Reason          *int // CRL reason code; omitted when nil
	InvalidityDate  *time.Time
	HoldInstruction *der.OID
}

// Metadata is the per-build CRL parameters spec §4.6 names: number,
// version, validity window, and hash algorithm choice.
type Metadata struct {
	Number  int64
	Version int // 1 or 2
	Days    int
	Legacy  bool // sign with SHA-1 instead of SHA-256
}

// Build constructs and signs a CertificateList for issuer, at instant now,
// per spec §4.6. issuerKey must correspond to issuer's public key.
func Build(issuer *x509.Certificate, issuerKey crypto.Signer, meta Metadata, entries []RevokedEntry, now time.Time) ([]byte, error) {
	if meta.Version != 1 && meta.Version != 2 {
		return nil, fmt.Errorf("crl: unsupported version %d", meta.Version)
	}

	thisUpdate := now
	nextUpdate := now.AddDate(0, 0, meta.Days)

	sigOID, hash, err := signatureAlgorithmFor(issuerKey.Public(), meta.Legacy)
	if err != nil {
		return nil, fmt.Errorf("crl: %w", err)
	}

	issuerNameEl, err := encodeName(issuer.RawSubject)
	if err != nil {
		return nil, fmt.Errorf("crl: encoding issuer name: %w", err)
	}

	tbsChildren := []*der.Element{}
	if meta.Version == 2 {
		tbsChildren = append(tbsChildren, der.NewInteger(big.NewInt(1))) // v2 (0-indexed)
	}
	tbsChildren = append(tbsChildren,
		signatureAlgorithmElement(sigOID),
		issuerNameEl,
		der.NewUTCTime(thisUpdate),
		der.NewUTCTime(nextUpdate),
	)

	if len(entries) > 0 {
		revokedChildren := make([]*der.Element, len(entries))
		for i, e := range entries {
			revokedChildren[i] = buildRevokedCertificate(e, meta.Version)
		}
		tbsChildren = append(tbsChildren, der.NewSequence(revokedChildren...))
	}

	if meta.Version == 2 {
		crlExtensions, err := buildCRLExtensions(issuer, meta.Number)
		if err != nil {
			return nil, fmt.Errorf("crl: %w", err)
		}
		tbsChildren = append(tbsChildren, der.ExplicitTag(0, crlExtensions))
	}

	tbsCertList := der.NewSequence(tbsChildren...)
	tbsBytes := der.Encode(tbsCertList)

	digest := hash.New()
	digest.Write(tbsBytes)
	signature, err := issuerKey.Sign(rand.Reader, digest.Sum(nil), hash)
	if err != nil {
		return nil, fmt.Errorf("crl: signing: %w", err)
	}

	certList := der.NewSequence(
		tbsCertList,
		signatureAlgorithmElement(sigOID),
		der.NewBitString(signature),
	)
	return der.Encode(certList), nil
}

// buildRevokedCertificate builds one revoked-certificate entry, adding
// crlEntryExtensions only in a v2 CRL when reason-related data is present
// (spec §4.6).
func buildRevokedCertificate(e RevokedEntry, version int) *der.Element {
	children := []*der.Element{
		der.NewInteger(e.Serial),
		der.NewUTCTime(e.RevocationDate),
	}
	if version != 2 {
		return der.NewSequence(children...)
	}

	var extChildren []*der.Element
	if e.Reason != nil {
		extChildren = append(extChildren, extensionElement(der.OIDCRLReason, false, der.Encode(der.NewEnumerated(*e.Reason))))
		if *e.Reason == 1 && e.InvalidityDate != nil { // keyCompromise
			extChildren = append(extChildren, extensionElement(der.OIDInvalidityDate, false, der.Encode(der.NewGeneralizedTime(*e.InvalidityDate))))
		}
		if *e.Reason == 6 && e.HoldInstruction != nil { // certificateHold
			extChildren = append(extChildren, extensionElement(der.OIDHoldInstructionCode, false, der.Encode(der.NewOID(*e.HoldInstruction))))
		}
	}
	if len(extChildren) > 0 {
		children = append(children, der.NewSequence(extChildren...))
	}
	return der.NewSequence(children...)
}

// buildCRLExtensions builds the CRL-level extensions sequence: authority
// key identifier and CRL number (spec §4.6, v2 only).
func buildCRLExtensions(issuer *x509.Certificate, number int64) (*der.Element, error) {
	var akidBytes []byte
	if len(issuer.SubjectKeyId) > 0 {
		akidBytes = issuer.SubjectKeyId
	} else {
		sum := sha1.Sum(issuer.RawSubjectPublicKeyInfo)
		akidBytes = sum[:]
	}
	akidSeq := der.NewSequence(der.ImplicitTag(0, der.NewOctetString(akidBytes)))
	akidExt := extensionElement(der.OIDAuthorityKeyID, false, der.Encode(akidSeq))

	crlNumberExt := extensionElement(der.OIDCRLNumber, false, der.Encode(der.NewInteger(big.NewInt(number))))

	return der.NewSequence(akidExt, crlNumberExt), nil
}

// extensionElement builds an Extension SEQUENCE: extnID, optional critical
// BOOLEAN (only emitted when true, per DER's DEFAULT-omission rule), and
// extnValue as an OCTET STRING wrapping the already-encoded inner value.
func extensionElement(oid der.OID, critical bool, innerDER []byte) *der.Element {
	children := []*der.Element{der.NewOID(oid)}
	if critical {
		children = append(children, der.NewBoolean(true))
	}
	children = append(children, der.NewOctetString(innerDER))
	return der.NewSequence(children...)
}

// encodeName re-wraps a certificate's already-DER-encoded Name (RDNSequence)
// as an Element, since the CRL's issuer field must byte-match the
// certificate's own encoding rather than be rebuilt from parsed pkix.Name
// fields.
func encodeName(rawName []byte) (*der.Element, error) {
	return der.Decode(rawName)
}

func signatureAlgorithmElement(oid der.OID) *der.Element {
	if oid.Equal(der.OIDECDSAWithSHA256) {
		return der.NewSequence(der.NewOID(oid))
	}
	return der.NewSequence(der.NewOID(oid), der.NewNull())
}

// signatureAlgorithmFor picks the CRL signature algorithm for issuerKey's
// public key, mirroring the ocsp package's response-signing choice (RSA
// with SHA-256 by default, SHA-1 for legacy consumers, ECDSA with SHA-256).
func signatureAlgorithmFor(pub crypto.PublicKey, legacy bool) (der.OID, crypto.Hash, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		if legacy {
			return der.OIDSHA1WithRSA, crypto.SHA1, nil
		}
		return der.OIDSHA256WithRSA, crypto.SHA256, nil
	case *ecdsa.PublicKey:
		return der.OIDECDSAWithSHA256, crypto.SHA256, nil
	default:
		return nil, 0, fmt.Errorf("unsupported issuer key type %T", pub)
	}
}

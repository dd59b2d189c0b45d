// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/bseddon/ocsp-responder/der"
)

// CertID identifies a certificate in an OCSP request, per RFC 6960 §4.1.1.
// Equality is defined byte-for-byte across all four fields (spec §3), and
// SerialNumberRaw is the exact DER INTEGER content octets as decoded, not a
// re-minimized math/big round trip, so that a request's CertID always
// compares equal to the CertID extracted from the response built for it
// (spec §8).
type CertID struct {
	HashAlgorithm   der.OID
	IssuerNameHash  []byte
	IssuerKeyHash   []byte
	SerialNumberRaw []byte
}

// Equal reports whether two CertIDs are byte-identical in all four fields.
func (c CertID) Equal(o CertID) bool {
	return c.HashAlgorithm.Equal(o.HashAlgorithm) &&
		bytes.Equal(c.IssuerNameHash, o.IssuerNameHash) &&
		bytes.Equal(c.IssuerKeyHash, o.IssuerKeyHash) &&
		bytes.Equal(c.SerialNumberRaw, o.SerialNumberRaw)
}

// SerialHex renders the serial number as upper-case hex, stripping the
// single leading 0x00 pad octet DER requires on a positive INTEGER whose
// high bit would otherwise read as negative. This is the key the status
// resolver (spec §4.4) and revocation store use.
func (c CertID) SerialHex() string {
	b := c.SerialNumberRaw
	if len(b) > 1 && b[0] == 0x00 && b[1]&0x80 != 0 {
		b = b[1:]
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// Element builds the DER CertID SEQUENCE:
//
//	CertID ::= SEQUENCE {
//	  hashAlgorithm  AlgorithmIdentifier,
//	  issuerNameHash OCTET STRING,
//	  issuerKeyHash  OCTET STRING,
//	  serialNumber   CertificateSerialNumber }
func (c CertID) Element() *der.Element {
	algID := der.NewSequence(der.NewOID(c.HashAlgorithm), der.NewNull())
	return der.NewSequence(
		algID,
		der.NewOctetString(c.IssuerNameHash),
		der.NewOctetString(c.IssuerKeyHash),
		der.NewIntegerFromBytes(c.SerialNumberRaw),
	)
}

// ParseCertID extracts a CertID from its DER SEQUENCE by positional access,
// per spec §4.2 step 7: child 1 is the hash-algorithm AlgorithmIdentifier
// (its first inner element is the OID), child 2 issuerNameHash, child 3
// issuerKeyHash, child 4 the serial number.
func ParseCertID(e *der.Element) (CertID, error) {
	if !e.Constructed || e.Class != der.ClassUniversal || e.Tag != der.TagSequence {
		return CertID{}, errNotASequence("CertID")
	}
	algID, ok := e.ChildAtIndex(0)
	if !ok || !algID.Constructed {
		return CertID{}, errMalformed("CertID: missing hashAlgorithm")
	}
	oidEl, ok := algID.ChildAtIndex(0)
	if !ok {
		return CertID{}, errMalformed("CertID: hashAlgorithm has no OID")
	}
	hashAlg, err := oidEl.AsOID()
	if err != nil {
		return CertID{}, errMalformed("CertID: hashAlgorithm OID: %v", err)
	}

	nameHashEl, ok := e.ChildAtIndex(1)
	if !ok || !nameHashEl.IsUniversal(der.TagOctetString) {
		return CertID{}, errMalformed("CertID: missing issuerNameHash")
	}
	keyHashEl, ok := e.ChildAtIndex(2)
	if !ok || !keyHashEl.IsUniversal(der.TagOctetString) {
		return CertID{}, errMalformed("CertID: missing issuerKeyHash")
	}
	serialEl, ok := e.ChildAtIndex(3)
	if !ok || !serialEl.IsUniversal(der.TagInteger) {
		return CertID{}, errMalformed("CertID: missing serialNumber")
	}
	serialRaw, err := serialEl.RawIntegerBytes()
	if err != nil {
		return CertID{}, errMalformed("CertID: serialNumber: %v", err)
	}

	return CertID{
		HashAlgorithm:   hashAlg,
		IssuerNameHash:  append([]byte(nil), nameHashEl.Value...),
		IssuerKeyHash:   append([]byte(nil), keyHashEl.Value...),
		SerialNumberRaw: serialRaw,
	}, nil
}

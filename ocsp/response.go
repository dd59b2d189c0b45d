// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"time"

	"github.com/bseddon/ocsp-responder/der"
	rerrors "github.com/bseddon/ocsp-responder/errors"
)

// Responder is everything the response builder needs about the signing
// identity for one issuer: its registry entry, in spec §4.3 terms.
type Responder struct {
	KeyHash []byte          // SHA-1 of the responder's DER public key bytes (also the registry lookup key's preimage)
	Signer  crypto.Signer
	Certs   []*x509.Certificate // optional chain embedded in certs [0]
	Legacy  bool                // sign with SHA-1 instead of the SHA-256 default, for legacy consumers
}

// responseStatusSuccessful is the ENUMERATED value for OCSPResponseStatus
// "successful (0)" (spec §4.8 / RFC 6960 §4.2.1).
const responseStatusSuccessful = 0

// BuildSuccessResponse assembles and signs a complete OCSPResponse for a
// single CertID, per spec §4.5. now is the single instant used for
// producedAt, thisUpdate, and nextUpdate = now.Add(ttl), preserving the
// producedAt ≤ thisUpdate ≤ nextUpdate invariant (spec §8) by construction.
func BuildSuccessResponse(certID CertID, status Status, now time.Time, ttl time.Duration, responder Responder) ([]byte, error) {
	nextUpdate := now.Add(ttl)

	singleResponse := buildSingleResponse(certID, status, now, nextUpdate)
	responseData := der.NewSequence(
		der.ExplicitTag(2, der.NewOctetString(responder.KeyHash)),
		der.NewGeneralizedTime(now),
		der.NewSequence(singleResponse),
	)

	tbsBytes := der.Encode(responseData)

	sigOID, hash, err := signatureAlgorithmFor(responder.Signer.Public(), responder.Legacy)
	if err != nil {
		return nil, rerrors.SignerFailureError("selecting signature algorithm: %v", err)
	}
	digest := hash.New()
	digest.Write(tbsBytes)
	signature, err := responder.Signer.Sign(rand.Reader, digest.Sum(nil), hash)
	if err != nil {
		return nil, rerrors.SignerFailureError("signing ResponseData: %v", err)
	}

	basicResponseChildren := []*der.Element{
		responseData,
		signatureAlgorithmElement(sigOID),
		der.NewBitString(signature),
	}
	if len(responder.Certs) > 0 {
		certElements := make([]*der.Element, len(responder.Certs))
		for i, c := range responder.Certs {
			certElement, err := der.Decode(c.Raw)
			if err != nil {
				return nil, rerrors.InternalServerError("decoding responder chain certificate %d: %v", i, err)
			}
			certElements[i] = certElement
		}
		certsSeq := der.NewSequence(certElements...)
		basicResponseChildren = append(basicResponseChildren, der.ExplicitTag(0, certsSeq))
	}
	basicResponse := der.NewSequence(basicResponseChildren...)
	basicBytes := der.Encode(basicResponse)

	responseBytes := der.NewSequence(
		der.NewOID(der.OIDPKIXOCSPBasic),
		der.NewOctetString(basicBytes),
	)
	ocspResponse := der.NewSequence(
		der.NewEnumerated(responseStatusSuccessful),
		der.ExplicitTag(0, responseBytes),
	)

	return der.Encode(ocspResponse), nil
}

// buildSingleResponse constructs one SingleResponse SEQUENCE, branching on
// status.Kind the way spec §4.5's CertStatus CHOICE requires.
func buildSingleResponse(certID CertID, status Status, thisUpdate, nextUpdate time.Time) *der.Element {
	var certStatus *der.Element
	switch status.Kind {
	case Good:
		certStatus = der.ImplicitTag(0, der.NewNull())
	case Revoked:
		revokedInfoChildren := []*der.Element{der.NewGeneralizedTime(status.RevocationTime)}
		if status.Reason != nil {
			revokedInfoChildren = append(revokedInfoChildren, der.ExplicitTag(0, der.NewEnumerated(*status.Reason)))
		}
		revokedInfo := &der.Element{Class: der.ClassUniversal, Tag: der.TagSequence, Constructed: true, Children: revokedInfoChildren}
		certStatus = der.ImplicitTag(1, revokedInfo)
	default: // Unknown
		certStatus = der.ImplicitTag(2, der.NewNull())
	}

	return der.NewSequence(
		certID.Element(),
		certStatus,
		der.NewGeneralizedTime(thisUpdate),
		der.ExplicitTag(0, der.NewGeneralizedTime(nextUpdate)),
	)
}

// signatureAlgorithmElement builds the AlgorithmIdentifier SEQUENCE for a
// signature OID. RSA algorithms carry an explicit NULL parameters field per
// convention; ECDSA's parameters field is absent.
func signatureAlgorithmElement(oid der.OID) *der.Element {
	if oid.Equal(der.OIDECDSAWithSHA256) {
		return der.NewSequence(der.NewOID(oid))
	}
	return der.NewSequence(der.NewOID(oid), der.NewNull())
}

// signatureAlgorithmFor picks the default signature algorithm for a public
// key (spec §4.5: "RSA with SHA-256 by default; SHA-1 retained for
// compatibility with legacy consumers").
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
		return nil, 0, rerrors.SignerFailureError("unsupported responder key type %T", pub)
	}
}

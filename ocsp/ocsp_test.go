// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/bseddon/ocsp-responder/der"
	rerrors "github.com/bseddon/ocsp-responder/errors"
)

func testCertID() CertID {
	return CertID{
		HashAlgorithm:   der.OIDSHA1,
		IssuerNameHash:  bytes.Repeat([]byte{0xAA}, 20),
		IssuerKeyHash:   bytes.Repeat([]byte{0xBB}, 20),
		SerialNumberRaw: []byte{0x0A, 0x1B, 0x2C},
	}
}

// buildOCSPRequestDER hand-builds a minimal OCSPRequest containing a single
// Request wrapping certID, with no version/requestorName/extensions, for
// exercising ParseRequest.
func buildOCSPRequestDER(certID CertID) []byte {
	request := der.NewSequence(certID.Element())
	requestList := der.NewSequence(request)
	tbsRequest := der.NewSequence(requestList)
	ocspRequest := der.NewSequence(tbsRequest)
	return der.Encode(ocspRequest)
}

func TestParseRequestGoldenPath(t *testing.T) {
	certID := testCertID()
	parsed, err := ParseRequest(buildOCSPRequestDER(certID))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !parsed.CertID.Equal(certID) {
		t.Fatalf("got CertID %+v want %+v", parsed.CertID, certID)
	}
}

func TestParseRequestRejectsEmptyRequestList(t *testing.T) {
	tbsRequest := der.NewSequence(der.NewSequence())
	ocspRequest := der.NewSequence(tbsRequest)
	_, err := ParseRequest(der.Encode(ocspRequest))
	if err == nil {
		t.Fatal("expected error for empty requestList")
	}
}

func TestParseRequestRejectsMultipleEntries(t *testing.T) {
	certID := testCertID()
	requestList := der.NewSequence(der.NewSequence(certID.Element()), der.NewSequence(certID.Element()))
	tbsRequest := der.NewSequence(requestList)
	ocspRequest := der.NewSequence(tbsRequest)
	_, err := ParseRequest(der.Encode(ocspRequest))
	if err == nil {
		t.Fatal("expected error for multiple requestList entries")
	}
}

func TestParseRequestRejectsCriticalExtension(t *testing.T) {
	certID := testCertID()
	requestList := der.NewSequence(der.NewSequence(certID.Element()))
	criticalExt := der.NewSequence(der.NewOID(der.OID{1, 2, 3}), der.NewBoolean(true), der.NewOctetString([]byte{0x01}))
	extensions := der.ExplicitTag(2, der.NewSequence(criticalExt))
	tbsRequest := der.NewSequence(requestList, extensions)
	ocspRequest := der.NewSequence(tbsRequest)
	_, err := ParseRequest(der.Encode(ocspRequest))
	if err == nil {
		t.Fatal("expected error for critical extension")
	}
}

func TestParseRequestRejectsUnsupportedVersion(t *testing.T) {
	certID := testCertID()
	version := der.ExplicitTag(0, der.NewInteger(big.NewInt(1)))
	requestList := der.NewSequence(der.NewSequence(certID.Element()))
	tbsRequest := der.NewSequence(version, requestList)
	ocspRequest := der.NewSequence(tbsRequest)
	_, err := ParseRequest(der.Encode(ocspRequest))
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestResolveGood(t *testing.T) {
	now := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)
	record := RevocationRecord{Status: StatusValid, ExpiryDate: "991231235959Z"}
	status, err := Resolve(record, now)
	if err != nil {
		t.Fatal(err)
	}
	if status.Kind != Good {
		t.Fatalf("got %v want Good", status.Kind)
	}
}

func TestResolveRevokedWithReason(t *testing.T) {
	now := time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC)
	record := RevocationRecord{
		Status:      StatusRevoked,
		ExpiryDate:  "991231235959Z",
		RevokedDate: "230615101530Z,keyCompromise",
	}
	status, err := Resolve(record, now)
	if err != nil {
		t.Fatal(err)
	}
	if status.Kind != Revoked {
		t.Fatalf("got %v want Revoked", status.Kind)
	}
	if status.Reason == nil || *status.Reason != 1 {
		t.Fatalf("got reason %v want 1 (keyCompromise)", status.Reason)
	}
	want := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)
	if !status.RevocationTime.Equal(want) {
		t.Fatalf("got revocationTime %v want %v", status.RevocationTime, want)
	}
}

func TestResolveRevokedUnknownReasonOmitted(t *testing.T) {
	now := time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC)
	record := RevocationRecord{
		Status:      StatusRevoked,
		ExpiryDate:  "991231235959Z",
		RevokedDate: "230615101530Z,somethingNobodyRecognises",
	}
	status, err := Resolve(record, now)
	if err != nil {
		t.Fatal(err)
	}
	if status.Reason != nil {
		t.Fatalf("got reason %v want nil", *status.Reason)
	}
}

func TestResolveExpiredSurfacesUnauthorized(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	record := RevocationRecord{Status: StatusValid, ExpiryDate: "231231235959Z"}
	_, err := Resolve(record, now)
	if err == nil {
		t.Fatal("expected error for expired certificate")
	}
	if !bytes.Equal(MapError(err), ResponseUnauthorized) {
		t.Fatal("expired certificate did not map to unauthorized")
	}
}

func TestCacheControlFresh(t *testing.T) {
	now := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	nextUpdate := now.Add(24 * time.Hour)
	header, stale := CacheControl(now, nextUpdate, nil)
	if stale {
		t.Fatal("expected fresh")
	}
	want := "max-age=86400,public,no-transform,must-revalidate"
	if header != want {
		t.Fatalf("got %q want %q", header, want)
	}
}

func TestCacheControlClampedByMaxAge(t *testing.T) {
	now := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	nextUpdate := now.Add(24 * time.Hour)
	maxAge := 3600 * time.Second
	header, stale := CacheControl(now, nextUpdate, &maxAge)
	if stale {
		t.Fatal("expected fresh")
	}
	want := "max-age=3600,public,no-transform,must-revalidate"
	if header != want {
		t.Fatalf("got %q want %q", header, want)
	}
}

func TestCacheControlStale(t *testing.T) {
	now := time.Date(2023, 6, 16, 0, 0, 0, 0, time.UTC)
	nextUpdate := now.Add(-time.Hour)
	header, stale := CacheControl(now, nextUpdate, nil)
	if !stale {
		t.Fatal("expected stale")
	}
	want := "max-age=0,public,no-transform,must-revalidate"
	if header != want {
		t.Fatalf("got %q want %q", header, want)
	}
}

func TestMapErrorTable(t *testing.T) {
	cases := []struct {
		err  error
		want []byte
	}{
		{rerrors.MalformedASN1Error("x"), ResponseMalformedRequest},
		{rerrors.RequestListEmptyError("x"), ResponseMalformedRequest},
		{rerrors.RequestListMultipleError("x"), ResponseMalformedRequest},
		{rerrors.UnsupportedVersionError("x"), ResponseMalformedRequest},
		{rerrors.UnsupportedCriticalExtensionError("x"), ResponseMalformedRequest},
		{rerrors.StoreUnavailableError("x"), ResponseTryLater},
		{rerrors.TryLaterError("x"), ResponseTryLater},
		{rerrors.SigRequiredError("x"), ResponseSigRequired},
		{rerrors.UnknownIssuerError("x"), ResponseUnauthorized},
		{rerrors.InternalServerError("x"), ResponseInternalError},
		{rerrors.SignerFailureError("x"), ResponseInternalError},
	}
	for _, c := range cases {
		if got := MapError(c.err); !bytes.Equal(got, c.want) {
			t.Errorf("%v: got %x want %x", c.err, got, c.want)
		}
	}
}

func TestMapErrorTreatsUnrecognisedErrorAsInternal(t *testing.T) {
	if got := MapError(bytesError("boom")); !bytes.Equal(got, ResponseInternalError) {
		t.Errorf("got %x want internalError", got)
	}
}

type bytesError string

func (e bytesError) Error() string { return string(e) }

func TestBuildSuccessResponseRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	keyHash := sha1.Sum([]byte("fake-responder-public-key"))
	responder := Responder{KeyHash: keyHash[:], Signer: key}

	certID := testCertID()
	now := time.Date(2023, 6, 15, 10, 15, 30, 0, time.UTC)
	status := Status{Kind: Good}

	respDER, err := BuildSuccessResponse(certID, status, now, 24*time.Hour, responder)
	if err != nil {
		t.Fatalf("BuildSuccessResponse: %v", err)
	}

	root, err := der.Decode(respDER)
	if err != nil {
		t.Fatalf("decoding built response: %v", err)
	}
	statusEl, ok := root.ChildAtIndex(0)
	if !ok {
		t.Fatal("missing responseStatus")
	}
	statusCode, err := statusEl.AsEnumerated()
	if err != nil || statusCode != 0 {
		t.Fatalf("got responseStatus %d err %v, want 0", statusCode, err)
	}

	responseBytesEl := root.NthChildOfType(0, der.ClassContextSpecific, der.Explicit)
	if responseBytesEl == nil {
		t.Fatal("missing responseBytes")
	}
	responseTypeEl, _ := responseBytesEl.ChildAtIndex(0)
	oid, err := responseTypeEl.AsOID()
	if err != nil || !oid.Equal(der.OIDPKIXOCSPBasic) {
		t.Fatalf("got responseType %v err %v", oid, err)
	}
	responseOctets, _ := responseBytesEl.ChildAtIndex(1)
	basicResponse, err := der.Decode(responseOctets.Value)
	if err != nil {
		t.Fatalf("decoding BasicOCSPResponse: %v", err)
	}

	responseData, _ := basicResponse.ChildAtIndex(0)
	singleResponses, _ := responseData.ChildAtIndex(2)
	singleResponse := singleResponses.Children[0]
	gotCertIDEl, _ := singleResponse.ChildAtIndex(0)
	gotCertID, err := ParseCertID(gotCertIDEl)
	if err != nil {
		t.Fatalf("ParseCertID on built response: %v", err)
	}
	if !gotCertID.Equal(certID) {
		t.Fatalf("response CertID %+v != request CertID %+v", gotCertID, certID)
	}

	// Spec §8: the signature over responseData must verify under the
	// responder public key in Responder.Signer.
	signatureAlgEl, _ := basicResponse.ChildAtIndex(1)
	sigOIDEl, _ := signatureAlgEl.ChildAtIndex(0)
	sigOID, err := sigOIDEl.AsOID()
	if err != nil || !sigOID.Equal(der.OIDSHA256WithRSA) {
		t.Fatalf("got signatureAlgorithm %v err %v, want sha256WithRSAEncryption", sigOID, err)
	}

	signatureEl, _ := basicResponse.ChildAtIndex(2)
	signature, err := signatureEl.AsBitString()
	if err != nil {
		t.Fatalf("reading signature bit string: %v", err)
	}

	tbsBytes := der.Encode(responseData)
	digest := sha256.Sum256(tbsBytes)
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], signature); err != nil {
		t.Fatalf("signature does not verify under responder key: %v", err)
	}
}

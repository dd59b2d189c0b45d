// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"github.com/bseddon/ocsp-responder/der"
	rerrors "github.com/bseddon/ocsp-responder/errors"
)

// OIDNonce is the id-pkix-ocsp-nonce extension OID (1.3.6.1.5.5.7.48.1.2).
// The core parses it out but never echoes it (spec §9 Open Questions);
// echoing it back is left as an optional capability a caller can bolt on
// with the Nonce field below.
var OIDNonce = der.OID{1, 3, 6, 1, 5, 5, 7, 48, 1, 2}

// ParsedRequest is the result of successfully parsing an OCSPRequest: the
// single CertID it asks about, plus the nonce extension value if the
// requester sent one (ignored for response construction, kept for a future
// echo capability).
type ParsedRequest struct {
	CertID CertID
	Nonce  []byte
}

// ParseRequest decodes and validates a DER OCSPRequest, per spec §4.2. It
// enforces: version 0 (if present), no unimplemented critical extensions at
// either the TBSRequest or single-Request level, and exactly one entry in
// requestList.
func ParseRequest(requestDER []byte) (*ParsedRequest, error) {
	root, err := der.Decode(requestDER)
	if err != nil {
		return nil, rerrors.MalformedASN1Error("decoding OCSPRequest: %v", err)
	}
	if !root.Constructed || root.Tag != der.TagSequence {
		return nil, errNotASequence("OCSPRequest")
	}
	tbsRequest, ok := root.ChildAtIndex(0)
	if !ok || !tbsRequest.Constructed {
		return nil, errMalformed("OCSPRequest: missing tbsRequest")
	}

	if err := checkVersion(tbsRequest); err != nil {
		return nil, err
	}

	if ext := tbsRequest.NthChildOfType(2, der.ClassContextSpecific, der.Explicit); ext != nil {
		if err := checkCriticalExtensions(ext); err != nil {
			return nil, err
		}
	}

	requestListEl := findRequestList(tbsRequest)
	if requestListEl == nil {
		return nil, errMalformed("OCSPRequest: missing requestList")
	}
	switch len(requestListEl.Elements()) {
	case 0:
		return nil, rerrors.RequestListEmptyError("requestList is empty")
	case 1:
		// exactly one, as required
	default:
		return nil, rerrors.RequestListMultipleError("requestList has %d entries, only 1 supported", len(requestListEl.Elements()))
	}

	requestEl := requestListEl.Children[0]
	if !requestEl.Constructed {
		return nil, errMalformed("Request: not a SEQUENCE")
	}

	if singleExt := requestEl.NthChildOfType(0, der.ClassContextSpecific, der.Explicit); singleExt != nil {
		if err := checkCriticalExtensions(singleExt); err != nil {
			return nil, err
		}
	}

	reqCertEl, ok := requestEl.ChildAtIndex(0)
	if !ok {
		return nil, errMalformed("Request: missing reqCert")
	}
	certID, err := ParseCertID(reqCertEl)
	if err != nil {
		return nil, err
	}

	var nonce []byte
	if ext := tbsRequest.NthChildOfType(2, der.ClassContextSpecific, der.Explicit); ext != nil {
		nonce = extensionValue(ext, OIDNonce)
	}

	return &ParsedRequest{CertID: certID, Nonce: nonce}, nil
}

// checkVersion enforces spec §4.2 step 2: a present [0] EXPLICIT Version
// must be 0 (v1); absence defaults to v1.
func checkVersion(tbsRequest *der.Element) error {
	versionEl := tbsRequest.NthChildOfType(0, der.ClassContextSpecific, der.Explicit)
	if versionEl == nil {
		return nil
	}
	v, err := versionEl.AsBigInt()
	if err != nil {
		return errMalformed("Version: %v", err)
	}
	if v.Sign() != 0 {
		return rerrors.UnsupportedVersionError("unsupported OCSPRequest version %s", v.String())
	}
	return nil
}

// findRequestList locates the untagged (universal SEQUENCE) child of
// tbsRequest: the only field among version/requestorName/requestList/
// requestExtensions that is not context-specific tagged.
func findRequestList(tbsRequest *der.Element) *der.Element {
	for _, child := range tbsRequest.Elements() {
		if child.Class == der.ClassUniversal && child.Tag == der.TagSequence {
			return child
		}
	}
	return nil
}

// checkCriticalExtensions fails if any Extension in extensionsSeq has
// critical=TRUE, since this responder implements none (spec §4.2 steps
// 4 & 6).
func checkCriticalExtensions(extensionsSeq *der.Element) error {
	for _, ext := range extensionsSeq.Elements() {
		critical := false
		if len(ext.Elements()) == 3 {
			b, err := ext.Children[1].AsBoolean()
			if err != nil {
				return errMalformed("Extension: malformed critical flag: %v", err)
			}
			critical = b
		}
		if critical {
			oid, _ := ext.Children[0].AsOID()
			return rerrors.UnsupportedCriticalExtensionError("unsupported critical extension %s", oid)
		}
	}
	return nil
}

// extensionValue returns the raw extnValue octets of the extension matching
// oid within extensionsSeq, or nil if absent.
func extensionValue(extensionsSeq *der.Element, oid der.OID) []byte {
	for _, ext := range extensionsSeq.Elements() {
		extnIDEl, ok := ext.ChildAtIndex(0)
		if !ok {
			continue
		}
		extnID, err := extnIDEl.AsOID()
		if err != nil || !extnID.Equal(oid) {
			continue
		}
		valueIdx := 1
		if len(ext.Elements()) == 3 {
			valueIdx = 2
		}
		valueEl, ok := ext.ChildAtIndex(valueIdx)
		if !ok || !valueEl.IsUniversal(der.TagOctetString) {
			continue
		}
		return valueEl.Value
	}
	return nil
}

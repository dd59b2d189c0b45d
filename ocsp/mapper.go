// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	rerrors "github.com/bseddon/ocsp-responder/errors"
)

// OCSPResponseStatus values, RFC 6960 §4.2.1.
const (
	responseStatusMalformedRequest = 1
	responseStatusInternalError    = 2
	responseStatusTryLater         = 3
	responseStatusSigRequired      = 5
	responseStatusUnauthorized     = 6
)

// Pre-serialized error OCSPResponse bodies: SEQUENCE { responseStatus
// ENUMERATED } with no responseBytes, per spec §4.8 — these are never
// signed, so they are constants rather than built through the DER encoder.
var (
	ResponseMalformedRequest = []byte{0x30, 0x03, 0x0A, 0x01, responseStatusMalformedRequest}
	ResponseInternalError    = []byte{0x30, 0x03, 0x0A, 0x01, responseStatusInternalError}
	ResponseTryLater         = []byte{0x30, 0x03, 0x0A, 0x01, responseStatusTryLater}
	ResponseSigRequired      = []byte{0x30, 0x03, 0x0A, 0x01, responseStatusSigRequired}
	ResponseUnauthorized     = []byte{0x30, 0x03, 0x0A, 0x01, responseStatusUnauthorized}
)

// MapError translates an internal error into the pre-serialized
// OCSPResponse error body spec §4.8 assigns it. Any error not recognised as
// a *rerrors.ResponderError is treated as an internal failure, since it
// means a collaborator panicked or returned a bare error instead of going
// through the error taxonomy.
func MapError(err error) []byte {
	rerr, ok := err.(*rerrors.ResponderError)
	if !ok {
		return ResponseInternalError
	}
	switch rerr.Type {
	case rerrors.MalformedASN1, rerrors.RequestListEmpty, rerrors.RequestListMultiple,
		rerrors.UnsupportedVersion, rerrors.UnsupportedCriticalExtension:
		return ResponseMalformedRequest
	case rerrors.StoreUnavailable, rerrors.TryLater:
		return ResponseTryLater
	case rerrors.SigRequired:
		return ResponseSigRequired
	case rerrors.UnknownIssuer:
		return ResponseUnauthorized
	default: // InternalServer, SignerFailure, ConfigError, NotFound
		return ResponseInternalError
	}
}

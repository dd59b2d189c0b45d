// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ocsp

import (
	"strconv"
	"strings"
	"time"

	rerrors "github.com/bseddon/ocsp-responder/errors"
)

// StatusKind distinguishes the three CertStatus variants (spec §3). Unlike a
// typical Go enum, Status carries its variant-specific data directly so
// callers don't need a parallel switch to read RevocationTime/Reason.
type StatusKind int

const (
	Good StatusKind = iota
	Revoked
	Unknown
)

// Status is the CertStatus tagged union: Good and Unknown carry no data,
// Revoked carries a revocation time and an optional CRL reason code.
type Status struct {
	Kind            StatusKind
	RevocationTime  time.Time
	Reason          *int
}

// RecordStatus is the three-valued status a RevocationRecord's status field
// carries, before expiry is checked against now.
type RecordStatus byte

const (
	StatusValid   RecordStatus = 'V'
	StatusRevoked RecordStatus = 'R'
	StatusExpired RecordStatus = 'E'
)

// RevocationRecord is what the backing store returns for a known serial
// (spec §3). ExpiryDate and RevokedDate are kept as the raw strings the
// store emits (UTCTime-shaped) so parsing failures are reported with
// provenance from the resolver, not silently defaulted by the store layer.
type RevocationRecord struct {
	Status      RecordStatus
	ExpiryDate  string // UTCTime: YYMMDDHHMMSSZ
	RevokedDate string // "YYMMDDHHMMSSZ[,reason]" when Status == StatusRevoked
}

// ErrNotFound is returned by a Store when a serial is not present.
var ErrNotFound = rerrors.NotFoundError("serial not found in store")

// reasonCodes maps the revocation reason names the store uses to their CRL
// reason codes (spec §4.4). An unrecognised name yields no reason (nil),
// per spec: "Unknown reason strings yield null reason".
var reasonCodes = map[string]int{
	"unspecified":          0,
	"keyCompromise":        1,
	"cACompromise":         2,
	"affiliationChanged":   3,
	"superseded":           4,
	"cessationOfOperation": 5,
	"certificateHold":      6,
	"removeFromCRL":        8,
	"privilegeWithdrawn":   9,
	"aACompromise":         10,
}

// reasonNames is the inverse of reasonCodes, used by ReasonName to render a
// reason code back to its name (cmd/ca-admin list-reasons).
var reasonNames = func() map[int]string {
	m := make(map[int]string, len(reasonCodes))
	for name, code := range reasonCodes {
		m[code] = name
	}
	return m
}()

// ReasonCode maps a reason name to its CRL reason code. ok is false for an
// unrecognised name.
func ReasonCode(name string) (code int, ok bool) {
	code, ok = reasonCodes[name]
	return code, ok
}

// ReasonName maps a CRL reason code back to its name. ok is false for an
// unrecognised code.
func ReasonName(code int) (name string, ok bool) {
	name, ok = reasonNames[code]
	return name, ok
}

// Resolve implements the spec §4.4 status-resolver algorithm: given the
// record fetched for a serial and the instant "now", produce the CertStatus
// to embed in the SingleResponse, or an error if the record maps to a
// non-answerable status (expired: a deliberate policy choice, see §9).
func Resolve(record RevocationRecord, now time.Time) (Status, error) {
	expiry, err := parseUTCTime(record.ExpiryDate)
	if err != nil {
		return Status{}, rerrors.InternalServerError("resolving status: parsing expiryDate: %v", err)
	}

	status := record.Status
	if now.After(expiry) {
		status = StatusExpired
	}

	switch status {
	case StatusValid:
		return Status{Kind: Good}, nil
	case StatusExpired:
		return Status{}, rerrors.UnknownIssuerError("certificate expired %s, treated as unauthorized", expiry)
	case StatusRevoked:
		dateField, reasonName, _ := strings.Cut(record.RevokedDate, ",")
		revokedAt, err := parseUTCTime(dateField)
		if err != nil {
			return Status{}, rerrors.InternalServerError("resolving status: parsing revokedDate: %v", err)
		}
		result := Status{Kind: Revoked, RevocationTime: revokedAt}
		if reasonName != "" {
			if code, ok := ReasonCode(reasonName); ok {
				result.Reason = &code
			}
		}
		return result, nil
	default:
		return Status{}, rerrors.InternalServerError("resolving status: unrecognised status byte %q", string(status))
	}
}

// ParseRevokedDate splits a store's "YYMMDDHHMMSSZ[,reasonName]" revokedDate
// field into a revocation instant and optional CRL reason code, the way
// Resolve does for a single lookup. Exported for operational tooling (CRL
// rebuilding) that walks every revoked entry rather than resolving one
// serial at a time.
func ParseRevokedDate(raw string) (time.Time, *int, error) {
	dateField, reasonName, _ := strings.Cut(raw, ",")
	revokedAt, err := parseUTCTime(dateField)
	if err != nil {
		return time.Time{}, nil, rerrors.InternalServerError("parsing revokedDate: %v", err)
	}
	if reasonName == "" {
		return revokedAt, nil, nil
	}
	if code, ok := ReasonCode(reasonName); ok {
		return revokedAt, &code, nil
	}
	return revokedAt, nil, nil
}

// parseUTCTime parses the YYMMDDHHMMSSZ date strings the revocation store
// holds, reading every two-digit year as 20YY: the stores write dates in
// that form for any year, so an expiry of "991231235959Z" is 2099. Unlike
// der.AsUTCTime, it does not apply the RFC 5280 50/49 pivot; this package
// parses the store's raw strings itself rather than going through a
// der.Element.
func parseUTCTime(s string) (time.Time, error) {
	if len(s) != 13 || s[12] != 'Z' {
		return time.Time{}, strconv.ErrSyntax
	}
	if _, err := strconv.Atoi(s[0:2]); err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102150405Z", "20"+s)
}

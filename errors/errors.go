// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package errors

import "fmt"

// ErrorType provides a coarse category for ResponderErrors, which the ocsp
// package's mapper (§4.8) uses to pick an OCSPResponseStatus.
type ErrorType int

const (
	InternalServer ErrorType = iota
	MalformedASN1
	UnsupportedVersion
	UnsupportedCriticalExtension
	RequestListEmpty
	RequestListMultiple
	UnknownIssuer
	StoreUnavailable
	SignerFailure
	ConfigError
	NotFound
	TryLater
	SigRequired
)

func (t ErrorType) String() string {
	switch t {
	case InternalServer:
		return "internal server error"
	case MalformedASN1:
		return "malformed ASN.1"
	case UnsupportedVersion:
		return "unsupported version"
	case UnsupportedCriticalExtension:
		return "unsupported critical extension"
	case RequestListEmpty:
		return "empty request list"
	case RequestListMultiple:
		return "request list has more than one entry"
	case UnknownIssuer:
		return "unknown issuer"
	case StoreUnavailable:
		return "store unavailable"
	case SignerFailure:
		return "signer failure"
	case ConfigError:
		return "configuration error"
	case NotFound:
		return "not found"
	case TryLater:
		return "try later"
	case SigRequired:
		return "signature required"
	default:
		return fmt.Sprintf("error type %d", int(t))
	}
}

// ResponderError represents an internal error the responder core raises.
// It is distinct from transport-level errors (malformed HTTP framing,
// unsupported method), which the HTTP collaborator handles before the
// core ever sees the request (§7).
type ResponderError struct {
	Type   ErrorType
	Detail string
}

func (e *ResponderError) Error() string {
	return e.Detail
}

// New is a convenience function for creating a new ResponderError.
func New(errType ErrorType, msg string, args ...interface{}) error {
	return &ResponderError{Type: errType, Detail: fmt.Sprintf(msg, args...)}
}

// Is reports whether err is a *ResponderError of the given type.
func Is(err error, errType ErrorType) bool {
	rErr, ok := err.(*ResponderError)
	if !ok {
		return false
	}
	return rErr.Type == errType
}

func InternalServerError(msg string, args ...interface{}) error {
	return New(InternalServer, msg, args...)
}

func MalformedASN1Error(msg string, args ...interface{}) error {
	return New(MalformedASN1, msg, args...)
}

func UnsupportedVersionError(msg string, args ...interface{}) error {
	return New(UnsupportedVersion, msg, args...)
}

func UnsupportedCriticalExtensionError(msg string, args ...interface{}) error {
	return New(UnsupportedCriticalExtension, msg, args...)
}

func RequestListEmptyError(msg string, args ...interface{}) error {
	return New(RequestListEmpty, msg, args...)
}

func RequestListMultipleError(msg string, args ...interface{}) error {
	return New(RequestListMultiple, msg, args...)
}

func UnknownIssuerError(msg string, args ...interface{}) error {
	return New(UnknownIssuer, msg, args...)
}

func StoreUnavailableError(msg string, args ...interface{}) error {
	return New(StoreUnavailable, msg, args...)
}

func SignerFailureError(msg string, args ...interface{}) error {
	return New(SignerFailure, msg, args...)
}

func ConfigErrorError(msg string, args ...interface{}) error {
	return New(ConfigError, msg, args...)
}

func NotFoundError(msg string, args ...interface{}) error {
	return New(NotFound, msg, args...)
}

func TryLaterError(msg string, args ...interface{}) error {
	return New(TryLater, msg, args...)
}

func SigRequiredError(msg string, args ...interface{}) error {
	return New(SigRequired, msg, args...)
}

package ocsp

import rerrors "github.com/bseddon/ocsp-responder/errors"

func errMalformed(format string, args ...interface{}) error {
	return rerrors.MalformedASN1Error(format, args...)
}

func errNotASequence(what string) error {
	return rerrors.MalformedASN1Error("%s: expected a SEQUENCE", what)
}

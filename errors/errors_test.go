package errors

import (
	"errors"
	"testing"
)

func TestIsMatchesType(t *testing.T) {
	err := UnknownIssuerError("no entry for key hash %s", "abc123")
	if !Is(err, UnknownIssuer) {
		t.Error("expected Is to match UnknownIssuer")
	}
	if Is(err, TryLater) {
		t.Error("expected Is not to match TryLater")
	}
}

func TestIsRejectsPlainError(t *testing.T) {
	if Is(errors.New("boom"), InternalServer) {
		t.Error("expected Is to reject a non-ResponderError")
	}
}

package der

import (
	"fmt"
	"time"
)

const (
	generalizedTimeLayout = "20060102150405Z"
	utcTimeLayout         = "060102150405Z"
)

// NewGeneralizedTime builds a universal GeneralizedTime in the
// YYYYMMDDHHMMSSZ form RFC 6960/5280 require: UTC, whole seconds, no
// fractional part.
func NewGeneralizedTime(t time.Time) *Element {
	s := t.UTC().Truncate(time.Second).Format(generalizedTimeLayout)
	return &Element{Class: ClassUniversal, Tag: TagGeneralizedTime, Value: []byte(s)}
}

// AsTime decodes a universal GeneralizedTime into a language-neutral instant
// (UTC, microsecond-truncated, though OCSP/CRL GeneralizedTime values never
// carry fractional seconds).
func (e *Element) AsTime() (time.Time, error) {
	if !e.IsUniversal(TagGeneralizedTime) {
		return time.Time{}, fmt.Errorf("der: not a GeneralizedTime")
	}
	t, err := time.Parse(generalizedTimeLayout, string(e.Value))
	if err != nil {
		return time.Time{}, fmt.Errorf("der: malformed GeneralizedTime %q: %w", e.Value, err)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

// NewUTCTime builds a universal UTCTime in the YYMMDDHHMMSSZ form RFC 5280
// CRLs use for thisUpdate/nextUpdate and revocationDate.
func NewUTCTime(t time.Time) *Element {
	s := t.UTC().Truncate(time.Second).Format(utcTimeLayout)
	return &Element{Class: ClassUniversal, Tag: TagUTCTime, Value: []byte(s)}
}

// AsUTCTime decodes a universal UTCTime into a language-neutral instant.
// Per RFC 5280 §4.1.2.5.1, two-digit years in [50,99] are 19xx and years in
// [00,49] are 20xx; Go's own "06" pivot (69/70) would get this wrong, so the
// year is rewritten before parsing rather than adjusted after.
func (e *Element) AsUTCTime() (time.Time, error) {
	if !e.IsUniversal(TagUTCTime) {
		return time.Time{}, fmt.Errorf("der: not a UTCTime")
	}
	s := string(e.Value)
	if len(s) != len(utcTimeLayout) {
		return time.Time{}, fmt.Errorf("der: malformed UTCTime %q", s)
	}
	yy := s[0:2]
	century := "20"
	if yy >= "50" {
		century = "19"
	}
	t, err := time.Parse(generalizedTimeLayout, century+s)
	if err != nil {
		return time.Time{}, fmt.Errorf("der: malformed UTCTime %q: %w", s, err)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

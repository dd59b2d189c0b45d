package der

import (
	"bytes"
	"math/big"
	"testing"
	"time"
)

func roundTrip(t *testing.T, e *Element) *Element {
	t.Helper()
	encoded := Encode(e)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(Encode(e)): %v", err)
	}
	if !bytes.Equal(Encode(decoded), encoded) {
		t.Fatalf("Encode(Decode(Encode(e))) != Encode(e)")
	}
	return decoded
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 127, 128, -128, -129, 255, 256, 1 << 20, -(1 << 20)} {
		e := NewInteger(big.NewInt(n))
		got := roundTrip(t, e)
		v, err := got.AsBigInt()
		if err != nil {
			t.Fatalf("AsBigInt: %v", err)
		}
		if v.Int64() != n {
			t.Errorf("n=%d: got %d", n, v.Int64())
		}
	}
}

func TestSerialNumberRawBytesPreserved(t *testing.T) {
	raw := []byte{0x00, 0xA1, 0xB2, 0xC3}
	e := NewIntegerFromBytes(raw)
	got := roundTrip(t, e)
	out, err := got.RawIntegerBytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("got %x want %x", out, raw)
	}
}

func TestOIDRoundTrip(t *testing.T) {
	e := NewOID(OIDPKIXOCSPBasic)
	got := roundTrip(t, e)
	oid, err := got.AsOID()
	if err != nil {
		t.Fatal(err)
	}
	if !oid.Equal(OIDPKIXOCSPBasic) {
		t.Errorf("got %v want %v", oid, OIDPKIXOCSPBasic)
	}
}

func TestGeneralizedTimeFormat(t *testing.T) {
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewGeneralizedTime(when)
	if string(e.Value) != "20240101000000Z" {
		t.Fatalf("got %q", e.Value)
	}
	got := roundTrip(t, e)
	parsed, err := got.AsTime()
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Equal(when) {
		t.Errorf("got %v want %v", parsed, when)
	}
}

func TestUTCTimePivotYear(t *testing.T) {
	cases := []struct {
		in   string
		year int
	}{
		{"230615101530Z", 2023},
		{"500101000000Z", 1950},
		{"491231235959Z", 2049},
	}
	for _, c := range cases {
		e := &Element{Class: ClassUniversal, Tag: TagUTCTime, Value: []byte(c.in)}
		got, err := e.AsUTCTime()
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if got.Year() != c.year {
			t.Errorf("%s: got year %d want %d", c.in, got.Year(), c.year)
		}
	}
}

func TestSequenceNesting(t *testing.T) {
	inner := NewSequence(NewInteger(big.NewInt(1)), NewOctetString([]byte("hi")))
	outer := NewSequence(inner, NewBoolean(true))
	got := roundTrip(t, outer)
	if len(got.Elements()) != 2 {
		t.Fatalf("expected 2 children, got %d", len(got.Elements()))
	}
	child0, ok := got.ChildAtIndex(0)
	if !ok || len(child0.Elements()) != 2 {
		t.Fatalf("expected inner sequence with 2 children")
	}
}

func TestExplicitAndImplicitTagging(t *testing.T) {
	version := ExplicitTag(0, NewInteger(big.NewInt(0)))
	seq := NewSequence(version)
	got := roundTrip(t, seq)
	found := got.NthChildOfType(0, ClassContextSpecific, Explicit)
	if found == nil {
		t.Fatal("expected to find explicit [0]")
	}
	v, err := found.AsBigInt()
	if err != nil || v.Int64() != 0 {
		t.Fatalf("got %v err %v", v, err)
	}

	implicitNull := ImplicitTag(0, NewNull())
	seq2 := NewSequence(implicitNull)
	got2 := roundTrip(t, seq2)
	found2 := got2.NthChildOfType(0, ClassContextSpecific, Implicit)
	if found2 == nil {
		t.Fatal("expected to find implicit [0]")
	}
}

func TestDecodeRejectsIndefiniteLength(t *testing.T) {
	_, err := Decode([]byte{0x30, 0x80, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for indefinite length")
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	e := NewInteger(big.NewInt(1))
	encoded := append(Encode(e), 0xFF)
	_, err := Decode(encoded)
	if err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := Decode([]byte{0x30, 0x05, 0x02, 0x01})
	if err == nil {
		t.Fatal("expected error for truncated element")
	}
}

func TestDecodeRejectsNonMinimalLength(t *testing.T) {
	// Long form encoding 1 (0x81 0x01) where short form suffices.
	_, err := Decode([]byte{0x02, 0x81, 0x01, 0x01})
	if err == nil {
		t.Fatal("expected error for non-minimal length")
	}
}

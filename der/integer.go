package der

import (
	"fmt"
	"math/big"
)

// NewInteger builds a universal INTEGER from an arbitrary-precision value,
// encoded as minimal two's-complement big-endian octets per DER.
func NewInteger(v *big.Int) *Element {
	return &Element{Class: ClassUniversal, Tag: TagInteger, Value: bigIntToMinimalBytes(v)}
}

// AsBigInt decodes a universal INTEGER, preserving sign, into a *big.Int.
// The serial number round-trip invariant in spec §3/§8 depends on this
// using the same minimal two's-complement rule the encoder does, so
// decode(encode(x)) always reproduces the same raw octets via NewInteger.
func (e *Element) AsBigInt() (*big.Int, error) {
	if !e.IsUniversal(TagInteger) {
		return nil, fmt.Errorf("der: not an INTEGER")
	}
	return minimalBytesToBigInt(e.Value), nil
}

// RawIntegerBytes exposes the exact content octets of an INTEGER element,
// for callers (the CertID serial number) that must preserve byte-for-byte
// encoding rather than round-trip through math/big.
func (e *Element) RawIntegerBytes() ([]byte, error) {
	if !e.IsUniversal(TagInteger) {
		return nil, fmt.Errorf("der: not an INTEGER")
	}
	return append([]byte(nil), e.Value...), nil
}

// NewIntegerFromBytes builds an INTEGER element directly from already
// minimal two's-complement content octets, bypassing math/big entirely.
// This is what the request parser uses to preserve a decoded serial
// number's raw bytes exactly, per spec §4.2 step 7.
func NewIntegerFromBytes(raw []byte) *Element {
	return &Element{Class: ClassUniversal, Tag: TagInteger, Value: append([]byte(nil), raw...)}
}

func bigIntToMinimalBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0x00}
	}
	if v.Sign() > 0 {
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
	// Negative: two's complement of the smallest byte length that fits.
	// n bytes hold down to -2^(8n-1), so size by the bit length of |v|-1.
	magMinusOne := new(big.Int).Sub(new(big.Int).Neg(v), big.NewInt(1))
	nBytes := magMinusOne.BitLen()/8 + 1
	twos := new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8)))
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0x00}, b...)
	}
	return b
}

func minimalBytesToBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	if b[0]&0x80 == 0 {
		return new(big.Int).SetBytes(b)
	}
	// Negative: interpret as two's complement.
	twos := new(big.Int).SetBytes(b)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
	return new(big.Int).Sub(twos, mod)
}

func minimalSignedBytes(v int64) []byte {
	return bigIntToMinimalBytes(big.NewInt(v))
}

func bytesToInt64(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("der: empty integer content")
	}
	if len(b) > 8 {
		return 0, fmt.Errorf("der: integer too large for int64")
	}
	v := minimalBytesToBigInt(b)
	return v.Int64(), nil
}

package der

import "fmt"

// OID is a parsed OBJECT IDENTIFIER, as a sequence of arcs.
type OID []uint64

// Equal reports whether two OIDs name the same arcs.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

func (o OID) String() string {
	s := ""
	for i, arc := range o {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d", arc)
	}
	return s
}

// NewOID builds a universal OBJECT IDENTIFIER element.
func NewOID(oid OID) *Element {
	return &Element{Class: ClassUniversal, Tag: TagOID, Value: encodeOID(oid)}
}

// AsOID decodes a universal OBJECT IDENTIFIER.
func (e *Element) AsOID() (OID, error) {
	if !e.IsUniversal(TagOID) {
		return nil, fmt.Errorf("der: not an OBJECT IDENTIFIER")
	}
	return decodeOID(e.Value)
}

func encodeOID(oid OID) []byte {
	if len(oid) < 2 {
		return nil
	}
	out := []byte{byte(oid[0]*40 + oid[1])}
	for _, arc := range oid[2:] {
		out = append(out, encodeBase128(arc)...)
	}
	return out
}

func encodeBase128(v uint64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var groups []byte
	for v > 0 {
		groups = append([]byte{byte(v & 0x7F)}, groups...)
		v >>= 7
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] |= 0x80
	}
	return groups
}

func decodeOID(b []byte) (OID, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("der: empty OID content")
	}
	oid := OID{uint64(b[0] / 40), uint64(b[0] % 40)}
	var arc uint64
	started := false
	for _, c := range b[1:] {
		arc = arc<<7 | uint64(c&0x7F)
		started = true
		if c&0x80 == 0 {
			oid = append(oid, arc)
			arc = 0
			started = false
		}
	}
	if started {
		return nil, fmt.Errorf("der: truncated OID arc")
	}
	return oid, nil
}

// Well-known OIDs used by the OCSP/CRL core.
var (
	OIDSHA1   = OID{1, 3, 14, 3, 2, 26}
	OIDSHA256 = OID{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384 = OID{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512 = OID{2, 16, 840, 1, 101, 3, 4, 2, 3}

	OIDPKIXOCSPBasic = OID{1, 3, 6, 1, 5, 5, 7, 48, 1, 1}

	OIDSHA1WithRSA     = OID{1, 2, 840, 113549, 1, 1, 5}
	OIDSHA256WithRSA   = OID{1, 2, 840, 113549, 1, 1, 11}
	OIDECDSAWithSHA256 = OID{1, 2, 840, 10045, 4, 3, 2}

	OIDCRLReason          = OID{2, 5, 29, 21}
	OIDInvalidityDate     = OID{2, 5, 29, 24}
	OIDHoldInstructionCode = OID{2, 5, 29, 23}
	OIDAuthorityKeyID     = OID{2, 5, 29, 35}
	OIDCRLNumber          = OID{2, 5, 29, 20}

	// HoldInstructionNone, the default holdInstructionCode arc, RFC 5280 §5.3.1.
	OIDHoldInstructionNone = OID{2, 2, 840, 10040, 2, 1}
)

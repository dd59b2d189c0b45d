package der

// Encode serializes an Element tree to its canonical DER form. For any
// Element produced by this package's constructors or by Decode,
// Decode(Encode(e)) yields a structurally equal Element, and
// Encode(Decode(Encode(e))) == Encode(e) (spec §4.1/§8 round-trip laws).
func Encode(e *Element) []byte {
	content := e.content()
	out := encodeIdentifier(e.Class, e.Tag, e.Constructed)
	out = append(out, encodeLength(len(content))...)
	out = append(out, content...)
	return out
}

// content returns the element's content octets, recomputing them from
// Children for constructed elements so that mutations to Children (as the
// response/CRL builders do while assembling a tree) are always reflected.
func (e *Element) content() []byte {
	if !e.Constructed {
		return e.Value
	}
	var out []byte
	for _, child := range e.Children {
		out = append(out, Encode(child)...)
	}
	return out
}

func encodeIdentifier(class Class, tag int, constructed bool) []byte {
	b := byte(class) << 6
	if constructed {
		b |= 0x20
	}
	if tag < 0x1F {
		b |= byte(tag)
		return []byte{b}
	}
	b |= 0x1F
	out := []byte{b}
	out = append(out, encodeBase128(uint64(tag))...)
	return out
}

func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var octets []byte
	for v := n; v > 0; v >>= 8 {
		octets = append([]byte{byte(v)}, octets...)
	}
	return append([]byte{0x80 | byte(len(octets))}, octets...)
}

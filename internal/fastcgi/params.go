package fastcgi

import (
	"encoding/binary"
	"fmt"
)

// NameValue is one FCGI_PARAMS / GET_VALUES name/value pair.
type NameValue struct {
	Name  string
	Value []byte
}

// encodeLength appends the 1-byte or 4-byte-big-endian length form
// (spec.md §4.1: lengths under 128 use the short form, the high bit of the
// first byte flags the long form otherwise).
func encodeLength(dst []byte, n int) []byte {
	if n < 128 {
		return append(dst, byte(n))
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n)|0x80000000)
	return append(dst, b[:]...)
}

// decodeLength reads one length field, returning the value, bytes consumed,
// and whether there was enough data.
func decodeLength(b []byte) (n int, consumed int, ok bool) {
	if len(b) < 1 {
		return 0, 0, false
	}
	if b[0]&0x80 == 0 {
		return int(b[0]), 1, true
	}
	if len(b) < 4 {
		return 0, 0, false
	}
	v := binary.BigEndian.Uint32(b[0:4]) & 0x7fffffff
	return int(v), 4, true
}

// EncodeNameValuePairs serializes pairs into an FCGI_PARAMS-style payload.
func EncodeNameValuePairs(pairs []NameValue) []byte {
	out := make([]byte, 0, 64*len(pairs))
	for _, p := range pairs {
		out = encodeLength(out, len(p.Name))
		out = encodeLength(out, len(p.Value))
		out = append(out, p.Name...)
		out = append(out, p.Value...)
	}
	return out
}

// DecodeNameValuePairs parses a concatenated PARAMS payload. It is tolerant
// of a pair split across multiple PARAMS records only when the caller has
// already reassembled the full payload (see Conn's per-request params
// accumulator); a length that would overrun the buffer is reported as
// ErrMalformedLength rather than panicking.
func DecodeNameValuePairs(b []byte) ([]NameValue, error) {
	var pairs []NameValue
	for len(b) > 0 {
		nameLen, n1, ok := decodeLength(b)
		if !ok {
			return nil, ErrMalformedLength
		}
		b = b[n1:]
		valLen, n2, ok := decodeLength(b)
		if !ok {
			return nil, ErrMalformedLength
		}
		b = b[n2:]
		if nameLen < 0 || valLen < 0 || nameLen+valLen > len(b) {
			return nil, fmt.Errorf("%w: name=%d value=%d remaining=%d", ErrMalformedLength, nameLen, valLen, len(b))
		}
		name := string(b[:nameLen])
		b = b[nameLen:]
		val := make([]byte, valLen)
		copy(val, b[:valLen])
		b = b[valLen:]
		pairs = append(pairs, NameValue{Name: name, Value: val})
	}
	return pairs, nil
}

// ParamsMap is a convenience over DecodeNameValuePairs for PARAMS records,
// where values are always treated as UTF-8 text (CGI meta-variables).
func ParamsMap(payload []byte) (map[string]string, error) {
	pairs, err := DecodeNameValuePairs(payload)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Name] = string(p.Value)
	}
	return m, nil
}

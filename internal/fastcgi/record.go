// Package fastcgi implements the FastCGI record codec and the per-connection
// responder state machine described in spec.md §4.1/§6. All multi-byte
// integers are big-endian, framed the same way the teacher's
// common/cliformat.Encode/Decode builds a length-prefixed binary frame
// (marker + big-endian lengths + payload), generalized here to the FastCGI
// header's version/type/requestID/contentLength/padding/reserved layout.
package fastcgi

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record types (spec.md §4.1).
const (
	TypeBeginRequest   uint8 = 1
	TypeAbortRequest   uint8 = 2
	TypeEndRequest     uint8 = 3
	TypeParams         uint8 = 4
	TypeStdin          uint8 = 5
	TypeStdout         uint8 = 6
	TypeStderr         uint8 = 7
	TypeData           uint8 = 8
	TypeGetValues      uint8 = 9
	TypeGetValuesResult uint8 = 10
	TypeUnknownType    uint8 = 11
)

// Version is the only FastCGI protocol version this server understands.
const Version uint8 = 1

// HeaderLen is the fixed 8-byte record header size.
const HeaderLen = 8

// MaxPayload is the largest content-length a single record may carry.
const MaxPayload = 65535

// MaxRecordSize is a full record with header and maximum padding, the
// minimum read-buffer size spec.md §4.1 requires.
const MaxRecordSize = HeaderLen + MaxPayload + 255

// ReadBufferSize is the per-connection fixed buffer size used by Conn.
const ReadBufferSize = 65798

// Roles (only Responder is ever requested of this server).
const RoleResponder uint16 = 1

// Protocol statuses for END_REQUEST.
const (
	StatusRequestComplete uint8 = 0
	StatusCantMultiplex   uint8 = 1
	StatusOverloaded       uint8 = 2
	StatusUnknownRole      uint8 = 3
)

var (
	// ErrBadVersion is returned when a header's version byte isn't 1.
	ErrBadVersion = errors.New("fastcgi: unsupported protocol version")
	// ErrMalformedLength is returned when a name/value pair length would
	// overrun its enclosing record payload.
	ErrMalformedLength = errors.New("fastcgi: malformed name/value length")
	// ErrOutOfOrder is returned when a PARAMS or STDIN record arrives in a
	// state that doesn't accept it (spec.md §4.1 state machine).
	ErrOutOfOrder = errors.New("fastcgi: out-of-order record")
)

// Header is the 8-byte record header.
type Header struct {
	Version       uint8
	Type          uint8
	RequestID     uint16
	ContentLength uint16
	PaddingLength uint8
	Reserved      uint8
}

// Encode writes the header into an 8-byte buffer.
func (h Header) Encode() [HeaderLen]byte {
	var b [HeaderLen]byte
	b[0] = h.Version
	b[1] = h.Type
	binary.BigEndian.PutUint16(b[2:4], h.RequestID)
	binary.BigEndian.PutUint16(b[4:6], h.ContentLength)
	b[6] = h.PaddingLength
	b[7] = byte(h.Reserved)
	return b
}

// DecodeHeader parses an 8-byte slice into a Header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("fastcgi: short header: %d bytes", len(b))
	}
	h := Header{
		Version:       b[0],
		Type:          b[1],
		RequestID:     binary.BigEndian.Uint16(b[2:4]),
		ContentLength: binary.BigEndian.Uint16(b[4:6]),
		PaddingLength: b[6],
		Reserved:      b[7],
	}
	if h.Version != Version {
		return h, ErrBadVersion
	}
	return h, nil
}

// paddingFor returns the padding byte count that aligns contentLen to 8
// bytes, matching the teacher's writeRecord padding calculation.
func paddingFor(contentLen int) uint8 {
	return uint8((8 - (contentLen % 8)) % 8)
}

// EncodeRecord builds a complete record (header + payload + padding).
func EncodeRecord(recType uint8, requestID uint16, payload []byte) []byte {
	pad := paddingFor(len(payload))
	h := Header{
		Version:       Version,
		Type:          recType,
		RequestID:     requestID,
		ContentLength: uint16(len(payload)),
		PaddingLength: pad,
	}
	hb := h.Encode()
	out := make([]byte, 0, HeaderLen+len(payload)+int(pad))
	out = append(out, hb[:]...)
	out = append(out, payload...)
	if pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out
}

// BeginRequestBody is the 8-byte payload of a BEGIN_REQUEST record.
type BeginRequestBody struct {
	Role      uint16
	Flags     uint8
	KeepConn  bool
}

const flagKeepConn uint8 = 1

func DecodeBeginRequestBody(payload []byte) (BeginRequestBody, error) {
	if len(payload) < 8 {
		return BeginRequestBody{}, fmt.Errorf("fastcgi: short BEGIN_REQUEST body: %d bytes", len(payload))
	}
	role := binary.BigEndian.Uint16(payload[0:2])
	flags := payload[2]
	return BeginRequestBody{Role: role, Flags: flags, KeepConn: flags&flagKeepConn != 0}, nil
}

// EncodeEndRequestBody builds the 8-byte END_REQUEST payload.
func EncodeEndRequestBody(appStatus uint32, protocolStatus uint8) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], appStatus)
	b[4] = protocolStatus
	return b
}

// EncodeGetValuesResult answers FCGI_GET_VALUES with the configured worker
// count for FCGI_MAX_CONNS, FCGI_MAX_REQS, and FCGI_MPXS_CONNS alike, per
// spec.md §4.1/§6.
func EncodeGetValuesResult(maxWorkers int) []byte {
	workers := []byte(fmt.Sprintf("%d", maxWorkers))
	pairs := []NameValue{
		{Name: "FCGI_MAX_CONNS", Value: workers},
		{Name: "FCGI_MAX_REQS", Value: workers},
		{Name: "FCGI_MPXS_CONNS", Value: workers},
	}
	return EncodeNameValuePairs(pairs)
}

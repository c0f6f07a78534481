package fastcgi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHeaderRoundTrip exercises spec.md §8: decode(encode(R)) == R for any
// well-formed record header.
func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{Version: Version, Type: TypeBeginRequest, RequestID: 1, ContentLength: 8, PaddingLength: 0},
		{Version: Version, Type: TypeParams, RequestID: 1, ContentLength: 65535, PaddingLength: 1},
		{Version: Version, Type: TypeStdin, RequestID: 7, ContentLength: 0, PaddingLength: 0},
		{Version: Version, Type: TypeEndRequest, RequestID: 65535, ContentLength: 8, PaddingLength: 0},
	}
	for _, h := range cases {
		enc := h.Encode()
		got, err := DecodeHeader(enc[:])
		require.NoError(t, err)
		require.Equal(t, h, got)
	}
}

func TestDecodeHeaderRejectsBadVersion(t *testing.T) {
	b := Header{Version: 2, Type: TypeStdin}.Encode()
	_, err := DecodeHeader(b[:])
	require.ErrorIs(t, err, ErrBadVersion)
}

func TestDecodeHeaderShort(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestEncodeRecordPadsToEightBytes(t *testing.T) {
	rec := EncodeRecord(TypeStdin, 1, []byte("hello"))
	require.Equal(t, 0, len(rec)%8)
	h, err := DecodeHeader(rec[:HeaderLen])
	require.NoError(t, err)
	require.EqualValues(t, 5, h.ContentLength)
	require.EqualValues(t, 3, h.PaddingLength)
}

func TestEncodeRecordEmptyPayloadNoPadding(t *testing.T) {
	rec := EncodeRecord(TypeStdin, 1, nil)
	require.Equal(t, HeaderLen, len(rec))
}

func TestBeginRequestBodyRoundTrip(t *testing.T) {
	payload := make([]byte, 8)
	payload[0] = 0
	payload[1] = 1 // RoleResponder
	payload[2] = flagKeepConn
	body, err := DecodeBeginRequestBody(payload)
	require.NoError(t, err)
	require.Equal(t, RoleResponder, body.Role)
	require.True(t, body.KeepConn)
}

func TestNameValuePairsRoundTrip(t *testing.T) {
	pairs := []NameValue{
		{Name: "REQUEST_METHOD", Value: []byte("GET")},
		{Name: "QUERY_STRING", Value: []byte("")},
		{Name: "LONG_VALUE", Value: make([]byte, 200)},
	}
	enc := EncodeNameValuePairs(pairs)
	got, err := DecodeNameValuePairs(enc)
	require.NoError(t, err)
	require.Equal(t, pairs, got)
}

func TestDecodeNameValuePairsMalformed(t *testing.T) {
	// Claims a 10-byte name with nothing following.
	_, err := DecodeNameValuePairs([]byte{10, 0})
	require.ErrorIs(t, err, ErrMalformedLength)
}

func TestParamsMap(t *testing.T) {
	enc := EncodeNameValuePairs([]NameValue{
		{Name: "SCRIPT_NAME", Value: []byte("/index")},
		{Name: "REMOTE_ADDR", Value: []byte("127.0.0.1")},
	})
	m, err := ParamsMap(enc)
	require.NoError(t, err)
	require.Equal(t, "/index", m["SCRIPT_NAME"])
	require.Equal(t, "127.0.0.1", m["REMOTE_ADDR"])
}

func TestEncodeGetValuesResultUsesWorkerCountThroughout(t *testing.T) {
	payload := EncodeGetValuesResult(16)
	m, err := ParamsMap(payload)
	require.NoError(t, err)
	require.Equal(t, "16", m["FCGI_MAX_CONNS"])
	require.Equal(t, "16", m["FCGI_MAX_REQS"])
	require.Equal(t, "16", m["FCGI_MPXS_CONNS"])
}

package fastcgi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeBeginParamsStdin drives one full request cycle over a client-side
// net.Conn, the way a web server's FastCGI client would.
func writeBeginParamsStdin(t *testing.T, client net.Conn, reqID uint16, keepConn bool, params []NameValue, stdin []byte) {
	t.Helper()
	var flags uint8
	if keepConn {
		flags = flagKeepConn
	}
	begin := make([]byte, 8)
	begin[0] = 0
	begin[1] = 1 // RoleResponder
	begin[2] = flags
	_, err := client.Write(EncodeRecord(TypeBeginRequest, reqID, begin))
	require.NoError(t, err)

	_, err = client.Write(EncodeRecord(TypeParams, reqID, EncodeNameValuePairs(params)))
	require.NoError(t, err)
	_, err = client.Write(EncodeRecord(TypeParams, reqID, nil))
	require.NoError(t, err)

	if len(stdin) > 0 {
		_, err = client.Write(EncodeRecord(TypeStdin, reqID, stdin))
		require.NoError(t, err)
	}
	_, err = client.Write(EncodeRecord(TypeStdin, reqID, nil))
	require.NoError(t, err)
}

func TestServeDispatchesOneRequestAndCloses(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	var gotParams map[string]string
	var gotStdin []byte
	done := make(chan error, 1)
	go func() {
		c := NewConn(server, 4)
		done <- c.Serve(context.Background(), func(_ context.Context, params map[string]string, stdin []byte) ([]byte, uint32) {
			gotParams = params
			gotStdin = append([]byte(nil), stdin...)
			return []byte("Status: 200 OK\r\n\r\nhello"), 0
		})
	}()

	writeBeginParamsStdin(t, client, 1, false, []NameValue{
		{Name: "REQUEST_METHOD", Value: []byte("GET")},
		{Name: "SCRIPT_NAME", Value: []byte("/index")},
	}, nil)

	h, payload, err := readClientRecord(t, client)
	require.NoError(t, err)
	require.Equal(t, TypeStdout, h.Type)
	require.Equal(t, "Status: 200 OK\r\n\r\nhello", string(payload))

	h, payload, err = readClientRecord(t, client)
	require.NoError(t, err)
	require.Equal(t, TypeStdout, h.Type)
	require.Empty(t, payload)

	h, payload, err = readClientRecord(t, client)
	require.NoError(t, err)
	require.Equal(t, TypeEndRequest, h.Type)
	require.Len(t, payload, 8)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after non-keep-conn request completed")
	}

	require.Equal(t, "GET", gotParams["REQUEST_METHOD"])
	require.Equal(t, "/index", gotParams["SCRIPT_NAME"])
	require.Empty(t, gotStdin)
}

func TestServeUnknownRole(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go func() {
		c := NewConn(server, 1)
		_ = c.Serve(context.Background(), func(context.Context, map[string]string, []byte) ([]byte, uint32) {
			t.Fatal("handler should not run for an unsupported role")
			return nil, 0
		})
	}()

	begin := make([]byte, 8)
	begin[1] = 2 // FCGI_FILTER, unsupported
	_, err := client.Write(EncodeRecord(TypeBeginRequest, 1, begin))
	require.NoError(t, err)

	h, payload, err := readClientRecord(t, client)
	require.NoError(t, err)
	require.Equal(t, TypeEndRequest, h.Type)
	require.Equal(t, StatusUnknownRole, payload[4])
}

func readClientRecord(t *testing.T, client net.Conn) (Header, []byte, error) {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hb [HeaderLen]byte
	if _, err := readFull(client, hb[:]); err != nil {
		return Header{}, nil, err
	}
	h, err := DecodeHeader(hb[:])
	if err != nil {
		return Header{}, nil, err
	}
	payload := make([]byte, h.ContentLength)
	if len(payload) > 0 {
		if _, err := readFull(client, payload); err != nil {
			return Header{}, nil, err
		}
	}
	if h.PaddingLength > 0 {
		pad := make([]byte, h.PaddingLength)
		if _, err := readFull(client, pad); err != nil {
			return Header{}, nil, err
		}
	}
	return h, payload, nil
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

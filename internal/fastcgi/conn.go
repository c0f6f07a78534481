package fastcgi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// HandlerFunc answers one completed FastCGI request (PARAMS + STDIN fully
// received) with the raw response bytes (HTTP-style header block and body,
// already assembled by the response package) and an application exit status.
// Errors inside the handler are the caller's concern: per spec.md §7 this
// server never lets a single request's failure take the connection down, so
// HandlerFunc has no error return — a handler that wants to signal failure
// encodes it into body/appStatus itself.
type HandlerFunc func(ctx context.Context, params map[string]string, stdin []byte) (body []byte, appStatus uint32)

type requestState struct {
	keepConn   bool
	paramsBuf  []byte
	params     map[string]string
	paramsDone bool
	stdinBuf   []byte
}

// Conn drives the record state machine for one accepted socket: INIT (no
// request yet) -> BEGIN_REQUEST -> PARAMS* -> PARAMS_DONE (empty PARAMS) ->
// STDIN* -> DISPATCH (empty STDIN), with ABORT_REQUEST accepted at any point
// once a request is open (spec.md §4.1). GET_VALUES is answered regardless
// of request state, matching FastCGI's management-record semantics.
type Conn struct {
	r          *bufio.Reader
	nc         net.Conn
	maxWorkers int
}

// NewConn wraps an accepted connection. The reader buffer is sized to hold
// one maximum-length record without a mid-record refill.
func NewConn(nc net.Conn, maxWorkers int) *Conn {
	return &Conn{r: bufio.NewReaderSize(nc, ReadBufferSize), nc: nc, maxWorkers: maxWorkers}
}

func (c *Conn) readRecord() (Header, []byte, error) {
	var hb [HeaderLen]byte
	if _, err := io.ReadFull(c.r, hb[:]); err != nil {
		return Header{}, nil, err
	}
	h, err := DecodeHeader(hb[:])
	if err != nil {
		return Header{}, nil, err
	}
	var payload []byte
	if h.ContentLength > 0 {
		payload = make([]byte, h.ContentLength)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return Header{}, nil, err
		}
	}
	if h.PaddingLength > 0 {
		if _, err := io.CopyN(io.Discard, c.r, int64(h.PaddingLength)); err != nil {
			return Header{}, nil, err
		}
	}
	return h, payload, nil
}

func (c *Conn) writeRecord(recType uint8, requestID uint16, payload []byte) error {
	_, err := c.nc.Write(EncodeRecord(recType, requestID, payload))
	return err
}

// writeResponse frames body as one or more STDOUT records (each capped at
// MaxPayload), a terminating empty STDOUT record, then END_REQUEST.
func (c *Conn) writeResponse(requestID uint16, body []byte, appStatus uint32) error {
	for len(body) > 0 {
		n := len(body)
		if n > MaxPayload {
			n = MaxPayload
		}
		if err := c.writeRecord(TypeStdout, requestID, body[:n]); err != nil {
			return err
		}
		body = body[n:]
	}
	if err := c.writeRecord(TypeStdout, requestID, nil); err != nil {
		return err
	}
	return c.writeRecord(TypeEndRequest, requestID, EncodeEndRequestBody(appStatus, StatusRequestComplete))
}

// Serve runs the record loop to completion: until the peer closes the
// connection, or until a non-KEEP_CONN request finishes with no other
// request open. It returns nil on a clean EOF.
func (c *Conn) Serve(ctx context.Context, handle HandlerFunc) error {
	reqs := make(map[uint16]*requestState)
	for {
		h, payload, err := c.readRecord()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fastcgi: read record: %w", err)
		}

		switch h.Type {
		case TypeGetValues:
			if err := c.writeRecord(TypeGetValuesResult, h.RequestID, EncodeGetValuesResult(c.maxWorkers)); err != nil {
				return err
			}

		case TypeBeginRequest:
			body, err := DecodeBeginRequestBody(payload)
			if err != nil {
				return fmt.Errorf("fastcgi: begin request %d: %w", h.RequestID, err)
			}
			if body.Role != RoleResponder {
				if err := c.writeRecord(TypeEndRequest, h.RequestID, EncodeEndRequestBody(0, StatusUnknownRole)); err != nil {
					return err
				}
				continue
			}
			reqs[h.RequestID] = &requestState{keepConn: body.KeepConn}

		case TypeParams:
			st := reqs[h.RequestID]
			if st == nil || st.paramsDone {
				// out-of-order PARAMS for an unknown/finished request: close the connection
				return fmt.Errorf("fastcgi: PARAMS for request %d: %w", h.RequestID, ErrOutOfOrder)
			}
			if len(payload) == 0 {
				pm, err := ParamsMap(st.paramsBuf)
				if err != nil {
					return fmt.Errorf("fastcgi: decode params for request %d: %w", h.RequestID, err)
				}
				st.params = pm
				st.paramsDone = true
				st.paramsBuf = nil
			} else {
				st.paramsBuf = append(st.paramsBuf, payload...)
			}

		case TypeStdin:
			st := reqs[h.RequestID]
			if st == nil || !st.paramsDone {
				return fmt.Errorf("fastcgi: STDIN for request %d: %w", h.RequestID, ErrOutOfOrder)
			}
			if len(payload) == 0 {
				body, appStatus := handle(ctx, st.params, st.stdinBuf)
				delete(reqs, h.RequestID)
				if err := c.writeResponse(h.RequestID, body, appStatus); err != nil {
					return err
				}
				if !st.keepConn && len(reqs) == 0 {
					return nil
				}
			} else {
				st.stdinBuf = append(st.stdinBuf, payload...)
			}

		case TypeAbortRequest:
			if st := reqs[h.RequestID]; st != nil {
				delete(reqs, h.RequestID)
				if err := c.writeRecord(TypeEndRequest, h.RequestID, EncodeEndRequestBody(0, StatusRequestComplete)); err != nil {
					return err
				}
				if !st.keepConn && len(reqs) == 0 {
					return nil
				}
			}

		default:
			unknown := make([]byte, 8)
			unknown[0] = h.Type
			if err := c.writeRecord(TypeUnknownType, h.RequestID, unknown); err != nil {
				return err
			}
		}
	}
}

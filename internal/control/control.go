// Package control implements the loopback-only "stop the server" side
// channel, grounded on original_source's sys/app.rs (App::set_control, the
// client side used by the `stop` CLI verb) and sys/go/go.rs (Go::run_command
// / Go::send_answer, the server side). Wire format is plain ASCII:
//
//	request:  "<id> <command> [param]"
//	response: "<id> <command> ok:[payload]"
//
// id on the request is the requesting client's own process id and is
// ignored by the server beyond validating it parses as a uint16;
// id on the response is the server's own process id.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// dialTimeout and readTimeout mirror app.rs's connect_timeout(1s) and
// set_read_timeout(30s).
const (
	dialTimeout = 1 * time.Second
	readTimeout = 30 * time.Second
)

// Send connects to addr and issues command (with an optional single
// parameter), returning the payload after "ok:" in the response. Used by
// the `stop` CLI verb.
func Send(addr *net.TCPAddr, command, param string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr.String(), dialTimeout)
	if err != nil {
		return "", fmt.Errorf("control: dial %s: %w", addr, err)
	}
	defer conn.Close()

	request := strings.TrimSpace(fmt.Sprintf("%d %s %s", os.Getpid(), command, param))
	if _, err := conn.Write([]byte(request)); err != nil {
		return "", fmt.Errorf("control: write request: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	data, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("control: read response: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("control: empty response")
	}
	return parseResponse(string(data), command)
}

func parseResponse(data, command string) (string, error) {
	first := strings.IndexByte(data, ' ')
	if first < 0 {
		return "", fmt.Errorf("control: malformed response %q", data)
	}
	if _, err := strconv.ParseUint(data[:first], 10, 16); err != nil {
		return "", fmt.Errorf("control: malformed server id in response %q", data)
	}
	rest := data[first+1:]
	second := strings.IndexByte(rest, ' ')
	if second < 0 {
		return "", fmt.Errorf("control: malformed response %q", data)
	}
	if got := rest[:second]; got != command {
		return "", fmt.Errorf("control: response for %q, expected %q", got, command)
	}
	tail := rest[second+1:]
	if !strings.HasPrefix(tail, "ok:") {
		return "", fmt.Errorf("control: server rejected command: %q", tail)
	}
	return strings.TrimPrefix(tail, "ok:"), nil
}

// StopFunc is invoked when a well-formed "stop" command arrives.
type StopFunc func()

// Listener is the loopback control socket a running server listens on
// alongside its FastCGI sockets.
type Listener struct {
	ln  net.Listener
	pid int
	stop StopFunc
}

// Listen binds the control socket. Per spec.md this must be loopback-only;
// addr is expected to already carry a loopback IP (internal/config resolves
// "irc" to 127.0.0.1:<port>).
func Listen(addr *net.TCPAddr, stop StopFunc) (*Listener, error) {
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("control: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, pid: os.Getpid(), stop: stop}, nil
}

// Run accepts control connections until ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return
	}
	if _, err := strconv.ParseUint(fields[0], 10, 16); err != nil {
		return
	}

	switch fields[1] {
	case "stop":
		l.stop()
		l.respond(conn, "stop")
	}
}

func (l *Listener) respond(conn net.Conn, command string) {
	answer := fmt.Sprintf("%d %s ok:", l.pid, command)
	w := bufio.NewWriter(conn)
	_, _ = w.WriteString(answer)
	_ = w.Flush()
}

// Close stops accepting new control connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

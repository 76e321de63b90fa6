// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/namdaets/ircclient/irc/logger"
)

func newTestLogger(t *testing.T) *logger.Manager {
	t.Helper()
	logman, err := logger.NewManager(nil)
	if err != nil {
		t.Fatal(err)
	}
	return logman
}

// newTestSocket pairs a Socket with the far end of an in-memory
// connection, plus a channel of the raw lines the "server" receives.
func newTestSocket(t *testing.T, config SocketConfig) (*Socket, net.Conn, <-chan string) {
	t.Helper()
	local, remote := net.Pipe()
	socket := NewSocket(NewIRCStreamConn(local), config, newTestLogger(t))
	t.Cleanup(func() {
		socket.Close(DisconnectReason{Kind: DisconnectUserRequested})
		remote.Close()
	})

	received := make(chan string, 64)
	go func() {
		reader := bufio.NewReader(remote)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(received)
				return
			}
			received <- strings.TrimRight(line, "\r\n")
		}
	}()
	return socket, remote, received
}

func expectLine(t *testing.T, received <-chan string, expected string) {
	t.Helper()
	select {
	case line := <-received:
		if line != expected {
			t.Errorf("got line %q, expected %q", line, expected)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", expected)
	}
}

func TestSocketSendFraming(t *testing.T) {
	local, remote := net.Pipe()
	socket := NewSocket(NewIRCStreamConn(local), SocketConfig{}, newTestLogger(t))
	t.Cleanup(func() {
		socket.Close(DisconnectReason{Kind: DisconnectUserRequested})
		remote.Close()
	})

	if err := socket.Send("PONG :abc123"); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	remote.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := remote.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "PONG :abc123\r\n" {
		t.Errorf("got wire bytes %q", got)
	}
	// exactly one terminator; no empty line follows
	remote.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if n, err = remote.Read(buf); err == nil {
		t.Errorf("unexpected extra wire bytes %q", string(buf[:n]))
	}
}

func TestSocketSend(t *testing.T) {
	socket, _, received := newTestSocket(t, SocketConfig{})

	if err := socket.Send("PRIVMSG #chan :hello"); err != nil {
		t.Fatal(err)
	}
	expectLine(t, received, "PRIVMSG #chan :hello")

	if err := socket.Send("PRIVMSG #chan :again"); err != nil {
		t.Fatal(err)
	}
	expectLine(t, received, "PRIVMSG #chan :again")
}

func TestSocketReceive(t *testing.T) {
	socket, remote, _ := newTestSocket(t, SocketConfig{})

	go remote.Write([]byte("PING :abc\r\n:server NOTICE * :hi\r\n"))

	select {
	case line := <-socket.Lines():
		if line != "PING :abc" {
			t.Errorf("got %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a line")
	}
	select {
	case line := <-socket.Lines():
		if line != ":server NOTICE * :hi" {
			t.Errorf("got %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a line")
	}
}

func TestSocketServerClose(t *testing.T) {
	socket, remote, _ := newTestSocket(t, SocketConfig{})

	remote.Close()

	// the line channel closes and the reason arrives exactly once
	select {
	case _, ok := <-socket.Lines():
		if ok {
			t.Errorf("unexpected line")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("line channel not closed")
	}
	select {
	case reason := <-socket.Done():
		if reason.Kind != DisconnectServerClosed && reason.Kind != DisconnectNetworkError {
			t.Errorf("got reason %v", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect reason delivered")
	}
}

func TestSocketCloseIsIdempotent(t *testing.T) {
	socket, _, _ := newTestSocket(t, SocketConfig{})

	socket.Close(DisconnectReason{Kind: DisconnectUserRequested})
	socket.Close(DisconnectReason{Kind: DisconnectNetworkError, Detail: "late"})

	select {
	case reason := <-socket.Done():
		if reason.Kind != DisconnectUserRequested {
			t.Errorf("later close overrode the reason: %v", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect reason delivered")
	}
	// only the first reason is ever delivered
	select {
	case reason := <-socket.Done():
		t.Errorf("second reason delivered: %v", reason)
	case <-time.After(50 * time.Millisecond):
	}

	if err := socket.Send("anything"); err != errSocketClosed {
		t.Errorf("Send after close: %v", err)
	}
}

func TestSocketLiveness(t *testing.T) {
	socket, _, received := newTestSocket(t, SocketConfig{
		PingInterval: 50 * time.Millisecond,
		PingTimeout:  50 * time.Millisecond,
	})

	// silence provokes a PING
	select {
	case line := <-received:
		if !strings.HasPrefix(line, "PING ") {
			t.Fatalf("got %q, expected a PING", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no liveness PING sent")
	}

	// continued silence is a ping timeout
	select {
	case reason := <-socket.Done():
		if reason.Kind != DisconnectPingTimeout {
			t.Errorf("got reason %v", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect on ping timeout")
	}
}

func TestSocketLivenessQuiescent(t *testing.T) {
	socket, remote, _ := newTestSocket(t, SocketConfig{
		PingInterval: 100 * time.Millisecond,
		PingTimeout:  100 * time.Millisecond,
	})

	// drain so the read loop never blocks
	go func() {
		for range socket.Lines() {
		}
	}()

	// steady traffic means no PING and no timeout
	stop := time.After(350 * time.Millisecond)
	ticker := time.NewTicker(30 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			remote.Write([]byte(":server NOTICE * :tick\r\n"))
		case <-stop:
			break loop
		}
	}

	select {
	case reason := <-socket.Done():
		t.Errorf("healthy connection was closed: %v", reason)
	default:
	}
}

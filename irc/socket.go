// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/namdaets/ircclient/irc/logger"
)

// DisconnectKind says why a connection ended.
type DisconnectKind uint

const (
	// DisconnectUserRequested: the local collaborator asked to close.
	DisconnectUserRequested DisconnectKind = iota
	// DisconnectServerClosed: the server closed the stream (read EOF).
	DisconnectServerClosed
	// DisconnectNetworkError: a read or write failed mid-session.
	DisconnectNetworkError
	// DisconnectPingTimeout: the server went silent past the ping deadline.
	DisconnectPingTimeout
)

func (kind DisconnectKind) String() string {
	switch kind {
	case DisconnectUserRequested:
		return "user-requested"
	case DisconnectServerClosed:
		return "server-closed"
	case DisconnectNetworkError:
		return "network-error"
	default:
		return "ping-timeout"
	}
}

// DisconnectReason is delivered exactly once per connection.
type DisconnectReason struct {
	Kind   DisconnectKind
	Detail string
}

func (reason DisconnectReason) String() string {
	if reason.Detail == "" {
		return reason.Kind.String()
	}
	return fmt.Sprintf("%s: %s", reason.Kind, reason.Detail)
}

// SocketConfig tunes a Socket.
type SocketConfig struct {
	Flood FloodConfig
	// PingInterval is how long without traffic before we send the server
	// a PING; PingTimeout is how much longer we wait for any traffic
	// after that before giving up on the connection.
	PingInterval time.Duration
	PingTimeout  time.Duration
	// QueueLen bounds the normal outbound queue.
	QueueLen int
}

const defaultWriteQueueLen = 128

// Socket owns one transport connection: it frames incoming bytes into
// lines, drains an outbound queue under flood control, and watches
// liveness. A Socket is single-use; reconnection means a fresh Socket.
type Socket struct {
	conn IRCConn
	log  *logger.Manager

	lines  chan string
	urgent chan string
	queued chan string

	pacer Pacer

	lastTouch atomic.Int64 // nanoseconds, last time we heard from the server

	closed    chan struct{}
	closeOnce sync.Once
	reason    DisconnectReason
	done      chan DisconnectReason
}

// NewSocket wraps an established connection and starts its read, write
// and liveness loops.
func NewSocket(conn IRCConn, config SocketConfig, log *logger.Manager) *Socket {
	queueLen := config.QueueLen
	if queueLen <= 0 {
		queueLen = defaultWriteQueueLen
	}

	socket := &Socket{
		conn:   conn,
		log:    log,
		lines:  make(chan string),
		urgent: make(chan string, 16),
		queued: make(chan string, queueLen),
		closed: make(chan struct{}),
		done:   make(chan DisconnectReason, 1),
	}
	socket.pacer.Initialize(config.Flood)
	socket.markActivity()

	go socket.readLines()
	go socket.writeLines()
	if config.PingInterval > 0 && config.PingTimeout > 0 {
		go socket.watchLiveness(config.PingInterval, config.PingTimeout)
	}

	return socket
}

func (socket *Socket) String() string {
	return socket.conn.RemoteAddr().String()
}

// Lines returns the channel of framed incoming lines; it is closed when
// the connection ends.
func (socket *Socket) Lines() <-chan string {
	return socket.lines
}

// Done yields the disconnect reason, exactly once, after the connection
// ends.
func (socket *Socket) Done() <-chan DisconnectReason {
	return socket.done
}

// Send queues a line (without terminator) for paced delivery, preserving
// FIFO order with respect to other Send calls.
func (socket *Socket) Send(line string) error {
	select {
	case <-socket.closed:
		return errSocketClosed
	default:
	}
	select {
	case socket.queued <- line:
		return nil
	case <-socket.closed:
		return errSocketClosed
	default:
		return errSocketWriteQ
	}
}

// SendUrgent queues a line that bypasses flood control and jumps ahead
// of the normal queue; liveness responses are never delayed.
func (socket *Socket) SendUrgent(line string) error {
	select {
	case socket.urgent <- line:
		return nil
	case <-socket.closed:
		return errSocketClosed
	}
}

// Close tears the connection down with the given reason. Later calls and
// internally detected errors after the first close are ignored.
func (socket *Socket) Close(reason DisconnectReason) {
	socket.finish(reason)
}

func (socket *Socket) finish(reason DisconnectReason) {
	socket.closeOnce.Do(func() {
		socket.reason = reason
		close(socket.closed)
		// unblocks the read loop, which closes socket.lines
		socket.conn.Close()
		socket.done <- reason
		socket.log.Debug("conn", fmt.Sprintf("%s closed", socket), reason.String())
	})
}

func (socket *Socket) markActivity() {
	socket.lastTouch.Store(time.Now().UnixNano())
}

func (socket *Socket) idleTime() time.Duration {
	return time.Since(time.Unix(0, socket.lastTouch.Load()))
}

func (socket *Socket) readLines() {
	for {
		lineBytes, err := socket.conn.ReadLine()
		if err != nil {
			var reason DisconnectReason
			if err == io.EOF {
				reason = DisconnectReason{Kind: DisconnectServerClosed}
			} else {
				reason = DisconnectReason{Kind: DisconnectNetworkError, Detail: err.Error()}
			}
			close(socket.lines)
			socket.finish(reason)
			return
		}
		if len(lineBytes) == 0 {
			continue
		}
		socket.markActivity()
		line := string(lineBytes)
		socket.log.Debug("rx", line)

		select {
		case socket.lines <- line:
		case <-socket.closed:
			close(socket.lines)
			return
		}
	}
}

func (socket *Socket) writeLines() {
	for {
		// urgent lines always drain first
		select {
		case line := <-socket.urgent:
			socket.write(line)
			continue
		default:
		}

		select {
		case line := <-socket.urgent:
			socket.write(line)
		case line := <-socket.queued:
			socket.pacer.Touch()
			// an urgent line that arrived while the pacer slept still
			// goes out ahead of the queued line
			socket.drainUrgent()
			socket.write(line)
		case <-socket.closed:
			return
		}
	}
}

func (socket *Socket) drainUrgent() {
	for {
		select {
		case line := <-socket.urgent:
			socket.write(line)
		default:
			return
		}
	}
}

func (socket *Socket) write(line string) {
	err := socket.conn.Write(append([]byte(line), '\r', '\n'))
	if err != nil {
		if err != io.EOF {
			socket.finish(DisconnectReason{Kind: DisconnectNetworkError, Detail: err.Error()})
		}
		return
	}
	socket.log.Debug("tx", line)
}

// watchLiveness sends a PING after interval of silence and closes the
// connection if the silence continues past interval+timeout.
func (socket *Socket) watchLiveness(interval, timeout time.Duration) {
	pinged := false
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-socket.closed:
			return
		case <-timer.C:
		}

		idle := socket.idleTime()
		switch {
		case idle < interval:
			pinged = false
			timer.Reset(interval - idle)
		case !pinged:
			socket.SendUrgent(fmt.Sprintf("PING :%d", time.Now().Unix()))
			pinged = true
			timer.Reset(timeout)
		default:
			socket.finish(DisconnectReason{Kind: DisconnectPingTimeout})
			return
		}
	}
}

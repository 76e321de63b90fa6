// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"bufio"
	"bytes"
	"net"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	// generous read buffer: servers should stay within 512 bytes per line,
	// but a tolerant client reads ahead and truncates instead of failing
	maxReadQBytes = 4096
)

var (
	crlf = []byte{'\r', '\n'}
)

// IRCConn abstracts away the distinction between a regular
// net.Conn (which includes both raw TCP and TLS) and a websocket.
// It doesn't expose Read and Write because websockets are message-oriented,
// not stream-oriented.
type IRCConn interface {
	Write([]byte) error
	ReadLine() (line []byte, err error)
	RemoteAddr() net.Addr

	Close() error
}

// IRCStreamConn is an IRCConn over a regular stream connection.
type IRCStreamConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func NewIRCStreamConn(conn net.Conn) *IRCStreamConn {
	return &IRCStreamConn{
		conn: conn,
	}
}

func (cc *IRCStreamConn) Write(buf []byte) (err error) {
	_, err = cc.conn.Write(buf)
	return
}

// ReadLine returns the next CR-LF-terminated line with the terminator
// stripped; a lone LF is tolerated. An overlong line is truncated to the
// protocol's 512-byte window rather than treated as fatal, matching
// server-side truncation behavior.
func (cc *IRCStreamConn) ReadLine() (line []byte, err error) {
	if cc.reader == nil {
		cc.reader = bufio.NewReaderSize(cc.conn, maxReadQBytes)
	}

	var isPrefix bool
	line, isPrefix, err = cc.reader.ReadLine()
	if err != nil {
		return nil, err
	}
	if isPrefix {
		// drain the remainder of the overlong line
		for isPrefix && err == nil {
			_, isPrefix, err = cc.reader.ReadLine()
		}
		if err != nil {
			return nil, err
		}
	}
	if len(line) > MaxLineLen-2 {
		line = line[:MaxLineLen-2]
	}
	line = bytes.TrimSuffix(line, crlf)
	return
}

func (cc *IRCStreamConn) RemoteAddr() net.Addr {
	return cc.conn.RemoteAddr()
}

func (cc *IRCStreamConn) Close() (err error) {
	return cc.conn.Close()
}

// IRCWSConn is an IRCConn over a websocket (one text message per line).
type IRCWSConn struct {
	conn *websocket.Conn
}

func NewIRCWSConn(conn *websocket.Conn) IRCWSConn {
	return IRCWSConn{conn: conn}
}

func (wc IRCWSConn) Write(buf []byte) (err error) {
	buf = bytes.TrimSuffix(buf, crlf)
	// there's not much we can do about this; silently drop the message
	if !utf8.Valid(buf) {
		return nil
	}
	return wc.conn.WriteMessage(websocket.TextMessage, buf)
}

func (wc IRCWSConn) ReadLine() (line []byte, err error) {
	for {
		var messageType int
		messageType, line, err = wc.conn.ReadMessage()
		// on empty message or non-text message, try again, block if necessary
		if err != nil || (messageType == websocket.TextMessage && len(line) != 0) {
			if len(line) > MaxLineLen-2 {
				line = line[:MaxLineLen-2]
			}
			return
		}
	}
}

func (wc IRCWSConn) RemoteAddr() net.Addr {
	return wc.conn.RemoteAddr()
}

func (wc IRCWSConn) Close() (err error) {
	return wc.conn.Close()
}

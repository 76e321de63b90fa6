// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultConnectTimeout bounds connection establishment, including the
// TLS or websocket handshake.
const DefaultConnectTimeout = 30 * time.Second

// DialConfig describes how to reach a server.
type DialConfig struct {
	// Address is the host:port to dial.
	Address string
	// TLS enables implicit TLS on the connection.
	TLS bool
	// TLSConfig optionally customizes the TLS client configuration.
	TLSConfig *tls.Config
	// WebsocketURL, if set, connects over IRC-over-WebSocket (ws:// or
	// wss://) instead of a stream socket; Address and TLS are ignored.
	WebsocketURL string
	// Timeout bounds the whole connection attempt.
	Timeout time.Duration
}

// Dial establishes the transport for a connection, classifying failures
// into ConnectError kinds so callers can react deterministically.
func Dial(config DialConfig) (IRCConn, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	if config.WebsocketURL != "" {
		return dialWebsocket(config, timeout)
	}
	return dialStream(config, timeout)
}

func dialStream(config DialConfig, timeout time.Duration) (IRCConn, error) {
	deadline := time.Now().Add(timeout)

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.Dial("tcp", config.Address)
	if err != nil {
		return nil, &ConnectError{Kind: classifyDialError(err), Err: err}
	}

	if config.TLS {
		tlsConfig := config.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		if tlsConfig.ServerName == "" {
			host, _, splitErr := net.SplitHostPort(config.Address)
			if splitErr == nil {
				c := tlsConfig.Clone()
				c.ServerName = host
				tlsConfig = c
			}
		}
		tlsConn := tls.Client(conn, tlsConfig)
		tlsConn.SetDeadline(deadline)
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			kind := ConnectTLSFailure
			if isTimeout(err) {
				kind = ConnectTimeout
			}
			return nil, &ConnectError{Kind: kind, Err: err}
		}
		tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	return NewIRCStreamConn(conn), nil
}

func dialWebsocket(config DialConfig, timeout time.Duration) (IRCConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		TLSClientConfig:  config.TLSConfig,
		Subprotocols:     []string{"text.ircv3.net"},
	}
	conn, _, err := dialer.Dial(config.WebsocketURL, http.Header{})
	if err != nil {
		return nil, &ConnectError{Kind: classifyDialError(err), Err: err}
	}
	return NewIRCWSConn(conn), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyDialError(err error) ConnectErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectDNSFailure
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused
	}
	if isTimeout(err) {
		return ConnectTimeout
	}
	return ConnectOther
}

// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"time"

	"github.com/namdaets/ircclient/irc/modes"
)

// Event is an externally relevant occurrence emitted by the engine.
// Events are immutable once constructed; the concrete types below form a
// closed set.
type Event interface {
	event()
}

// ConnectedEvent is emitted once the transport is established, before
// registration completes.
type ConnectedEvent struct {
	Address string
	TLS     bool
}

// RegisteredEvent is emitted on RPL_WELCOME; Nick is the nickname the
// server actually assigned.
type RegisteredEvent struct {
	Nick string
}

// DisconnectedEvent is emitted exactly once per connection when it ends.
type DisconnectedEvent struct {
	Reason DisconnectReason
}

// MessageEvent is a PRIVMSG or NOTICE. Channel is empty for private
// messages. PlainText is Text with IRC formatting codes stripped.
type MessageEvent struct {
	Channel   string // empty if this is a private message
	From      string
	Text      string
	PlainText string
	Notice    bool
}

// ActionEvent is a CTCP ACTION ("/me ...").
type ActionEvent struct {
	Channel string
	From    string
	Text    string
}

// CTCPEvent is a CTCP request or (when Reply is set) reply other than
// ACTION.
type CTCPEvent struct {
	From    string
	Target  string
	Command string
	Args    string
	Reply   bool
}

// JoinedEvent reports a JOIN; Nick may be this client's own nickname.
type JoinedEvent struct {
	Channel string
	Nick    string
}

// PartedEvent reports a PART.
type PartedEvent struct {
	Channel string
	Nick    string
	Reason  string
}

// KickedEvent reports a KICK.
type KickedEvent struct {
	Channel string
	Nick    string
	By      string
	Reason  string
}

// QuitEvent reports a QUIT; Channels lists the channels the nick was
// removed from.
type QuitEvent struct {
	Nick     string
	Reason   string
	Channels []string
}

// NickChangedEvent reports a NICK, including this client's own.
type NickChangedEvent struct {
	Old string
	New string
}

// TopicChangedEvent reports a topic change or the topic learned on join.
type TopicChangedEvent struct {
	Channel string
	By      string
	Topic   string
}

// ModeChangedEvent reports a user or channel mode delta.
type ModeChangedEvent struct {
	Target  string
	By      string
	Changes modes.ModeChanges
}

// NamesUpdatedEvent is emitted after a complete NAMES list for a channel
// has been applied; partial lists are never visible.
type NamesUpdatedEvent struct {
	Channel string
}

// ServerNoticeEvent carries server text with no more specific meaning:
// MOTD lines, unknown numerics, NOTICEs from the server itself.
type ServerNoticeEvent struct {
	Text string
}

// WhoisEvent carries an assembled WHOIS response.
type WhoisEvent struct {
	Nick     string
	Username string
	Host     string
	Realname string
	Server   string
	Channels []string
	Idle     time.Duration
}

// ErrorKind classifies ErrorEvents.
type ErrorKind uint

const (
	// ErrorRegistrationFailed means the registration handshake cannot
	// complete (nick alternates exhausted, server password rejected).
	ErrorRegistrationFailed ErrorKind = iota
	// ErrorSASLFailed means the optional SASL step was rejected.
	ErrorSASLFailed
	// ErrorProtocol means the server sent a line the codec rejected.
	ErrorProtocol
)

func (kind ErrorKind) String() string {
	switch kind {
	case ErrorRegistrationFailed:
		return "registration-failed"
	case ErrorSASLFailed:
		return "sasl-failed"
	default:
		return "protocol-error"
	}
}

// ErrorEvent reports a failure the presentation layer should surface.
type ErrorEvent struct {
	Kind   ErrorKind
	Detail string
}

func (ConnectedEvent) event()    {}
func (RegisteredEvent) event()   {}
func (DisconnectedEvent) event() {}
func (MessageEvent) event()      {}
func (ActionEvent) event()       {}
func (CTCPEvent) event()         {}
func (JoinedEvent) event()       {}
func (PartedEvent) event()       {}
func (KickedEvent) event()       {}
func (QuitEvent) event()         {}
func (NickChangedEvent) event()  {}
func (TopicChangedEvent) event() {}
func (ModeChangedEvent) event()  {}
func (NamesUpdatedEvent) event() {}
func (ServerNoticeEvent) event() {}
func (WhoisEvent) event()        {}
func (ErrorEvent) event()        {}

// critical events may never be dropped by the event bus
func eventIsCritical(ev Event) bool {
	switch ev.(type) {
	case DisconnectedEvent, ErrorEvent:
		return true
	default:
		return false
	}
}

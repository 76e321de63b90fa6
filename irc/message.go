// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"bytes"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

const (
	// MaxLineLen is the maximum length of a protocol line, including the
	// CR-LF terminator.
	MaxLineLen = 512

	// MaxParams is the maximum number of parameters a message can carry:
	// 14 middle parameters plus the trailing parameter.
	MaxParams = 15
)

// Message represents a decoded IRC protocol line: an optional prefix
// (server name or nick!user@host), a command (alphabetic token or
// three-digit numeric), and up to 15 ordered parameters of which the
// last may contain spaces.
type Message struct {
	Prefix  string
	Command string
	Params  []string

	forceTrailing bool
}

// MakeMessage provides a simple way to create a new Message.
func MakeMessage(prefix string, command string, params ...string) (msg Message) {
	msg.Prefix = prefix
	msg.Command = command
	msg.Params = params
	return msg
}

// ForceTrailing ensures that when the message is serialized, the final
// parameter will be encoded as a trailing parameter (preceded by a colon)
// even when that is not syntactically required.
func (msg *Message) ForceTrailing() {
	msg.forceTrailing = true
}

// Nick returns the name component of the message prefix (typically a
// nickname, but possibly a server name).
func (msg *Message) Nick() string {
	nuh, err := ircmsg.ParseNUH(msg.Prefix)
	if err != nil {
		return ""
	}
	return nuh.Name
}

// Trailing returns the last parameter, or the empty string if there are
// no parameters.
func (msg *Message) Trailing() string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[len(msg.Params)-1]
}

// slice off any amount of ' ' from the front of the string
func trimInitialSpaces(str string) string {
	var i int
	for i = 0; i < len(str) && str[i] == ' '; i++ {
	}
	return str[i:]
}

func commandIsWellFormed(command string) bool {
	if len(command) == 0 {
		return false
	}
	digits := 0
	for i := 0; i < len(command); i++ {
		chr := command[i]
		switch {
		case 'a' <= chr && chr <= 'z', 'A' <= chr && chr <= 'Z':
		case '0' <= chr && chr <= '9':
			digits++
		default:
			return false
		}
	}
	if digits == 0 {
		return true
	}
	// numerics are exactly three digits, nothing mixed
	return digits == len(command) && len(command) == 3
}

// ParseLine creates and returns a Message from the given IRC line. The
// framer strips the CR-LF terminator before lines reach this function,
// but a stray terminator is tolerated.
func ParseLine(line string) (msg Message, err error) {
	// remove either \n or \r\n from the end of the line:
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	// now validate for the 3 forbidden bytes:
	if strings.IndexByte(line, '\x00') != -1 || strings.IndexByte(line, '\n') != -1 || strings.IndexByte(line, '\r') != -1 {
		return msg, ErrorLineContainsBadChar
	}

	if len(line) < 1 {
		return msg, ErrorLineIsEmpty
	}

	// prefix
	if line[0] == ':' {
		prefixEnd := strings.IndexByte(line, ' ')
		if prefixEnd == -1 {
			return msg, ErrorLineIsEmpty
		}
		msg.Prefix = line[1:prefixEnd]
		// skip over the prefix and the separating space
		line = line[prefixEnd+1:]
	}

	line = trimInitialSpaces(line)

	// command
	commandEnd := strings.IndexByte(line, ' ')
	paramStart := commandEnd + 1
	if commandEnd == -1 {
		commandEnd = len(line)
		paramStart = len(line)
	}
	command := line[:commandEnd]
	if len(command) == 0 {
		return msg, ErrorLineIsEmpty
	}
	if !commandIsWellFormed(command) {
		return msg, ErrorMalformedCommand
	}
	// normalize command to uppercase:
	msg.Command = strings.ToUpper(command)
	line = line[paramStart:]

	for {
		line = trimInitialSpaces(line)
		if len(line) == 0 {
			break
		}
		if len(msg.Params) == MaxParams {
			return msg, ErrorTooManyParams
		}
		// handle trailing; remember the marker so re-encoding the
		// message reproduces the original line
		if line[0] == ':' {
			msg.Params = append(msg.Params, line[1:])
			msg.forceTrailing = true
			break
		}
		paramEnd := strings.IndexByte(line, ' ')
		if paramEnd == -1 {
			msg.Params = append(msg.Params, line)
			break
		}
		msg.Params = append(msg.Params, line[:paramEnd])
		line = line[paramEnd+1:]
	}

	return msg, nil
}

func paramRequiresTrailing(param string) bool {
	return len(param) == 0 || strings.IndexByte(param, ' ') != -1 || param[0] == ':'
}

// Line returns a sendable line created from a Message, terminated with CR-LF.
func (msg *Message) Line() (result string, err error) {
	bytes, err := msg.LineBytes()
	if err == nil {
		result = string(bytes)
	}
	return
}

// LineBytes returns a sendable line, as a []byte, created from a Message.
func (msg *Message) LineBytes() (result []byte, err error) {
	if len(msg.Command) == 0 {
		return nil, ErrorCommandMissing
	}
	if !commandIsWellFormed(msg.Command) {
		return nil, ErrorMalformedCommand
	}
	if len(msg.Params) > MaxParams {
		return nil, ErrorTooManyParams
	}

	var buf bytes.Buffer

	if len(msg.Prefix) > 0 {
		buf.WriteByte(':')
		buf.WriteString(msg.Prefix)
		buf.WriteByte(' ')
	}

	buf.WriteString(msg.Command)

	for i, param := range msg.Params {
		buf.WriteByte(' ')
		requiresTrailing := paramRequiresTrailing(param)
		lastParam := i == len(msg.Params)-1
		if (requiresTrailing || msg.forceTrailing) && lastParam {
			buf.WriteByte(':')
		} else if requiresTrailing && !lastParam {
			return nil, ErrorBadParam
		}
		buf.WriteString(param)
	}

	buf.WriteString("\r\n")

	result = buf.Bytes()
	if len(result) > MaxLineLen {
		return nil, ErrorLineTooLong
	}
	toValidate := result[:len(result)-2]
	if bytes.IndexByte(toValidate, '\x00') != -1 || bytes.IndexByte(toValidate, '\r') != -1 || bytes.IndexByte(toValidate, '\n') != -1 {
		return nil, ErrorLineContainsBadChar
	}
	return result, nil
}

// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line     string
		expected Message
	}{
		{
			line: ":alice!a@example.com PRIVMSG #chan :hello world",
			expected: Message{
				Prefix:        "alice!a@example.com",
				Command:       "PRIVMSG",
				Params:        []string{"#chan", "hello world"},
				forceTrailing: true,
			},
		},
		{
			line: "privmsg #chan hi",
			expected: Message{
				Command: "PRIVMSG",
				Params:  []string{"#chan", "hi"},
			},
		},
		{
			line: ":irc.example.com 001 tester :Welcome to the network",
			expected: Message{
				Prefix:        "irc.example.com",
				Command:       "001",
				Params:        []string{"tester", "Welcome to the network"},
				forceTrailing: true,
			},
		},
		{
			line:     "PING :1234",
			expected: Message{Command: "PING", Params: []string{"1234"}, forceTrailing: true},
		},
		{
			// a stray terminator is tolerated
			line:     "PING token\r\n",
			expected: Message{Command: "PING", Params: []string{"token"}},
		},
		{
			// empty trailing is a real, empty parameter
			line:     "TOPIC #chan :",
			expected: Message{Command: "TOPIC", Params: []string{"#chan", ""}, forceTrailing: true},
		},
		{
			// runs of spaces between parameters collapse
			line:     "MODE   #chan  +v   bob",
			expected: Message{Command: "MODE", Params: []string{"#chan", "+v", "bob"}},
		},
		{
			line:     "QUIT",
			expected: Message{Command: "QUIT"},
		},
		{
			// a colon inside a middle parameter is literal
			line:     "PRIVMSG #chan :the time is 12:30",
			expected: Message{Command: "PRIVMSG", Params: []string{"#chan", "the time is 12:30"}, forceTrailing: true},
		},
	}

	for _, testCase := range testCases {
		msg, err := ParseLine(testCase.line)
		if err != nil {
			t.Errorf("ParseLine(%q) returned error: %v", testCase.line, err)
			continue
		}
		if !reflect.DeepEqual(msg, testCase.expected) {
			t.Errorf("ParseLine(%q): got %#v, expected %#v", testCase.line, msg, testCase.expected)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	testCases := []struct {
		line     string
		expected error
	}{
		{"", ErrorLineIsEmpty},
		{"\r\n", ErrorLineIsEmpty},
		{"   ", ErrorLineIsEmpty},
		{":prefix.only", ErrorLineIsEmpty},
		{":prefix ", ErrorLineIsEmpty},
		{"PRIVMSG #chan :hel\x00lo", ErrorLineContainsBadChar},
		{"NOTICE #chan :hi\rthere\nfriend", ErrorLineContainsBadChar},
		{"12 foo", ErrorMalformedCommand},
		{"1234 foo", ErrorMalformedCommand},
		{"PRIV1MSG #chan hi", ErrorMalformedCommand},
		{"PRIV-MSG #chan hi", ErrorMalformedCommand},
		{"CMD " + strings.Repeat("p ", 16), ErrorTooManyParams},
	}

	for _, testCase := range testCases {
		_, err := ParseLine(testCase.line)
		if err != testCase.expected {
			t.Errorf("ParseLine(%q): got error %v, expected %v", testCase.line, err, testCase.expected)
		}
	}
}

func TestLine(t *testing.T) {
	testCases := []struct {
		msg      Message
		expected string
	}{
		{
			msg:      MakeMessage("", "PRIVMSG", "#chan", "hello world"),
			expected: "PRIVMSG #chan :hello world\r\n",
		},
		{
			msg:      MakeMessage("", "PRIVMSG", "#chan", "hi"),
			expected: "PRIVMSG #chan hi\r\n",
		},
		{
			msg:      MakeMessage("alice!a@example.com", "PRIVMSG", "#chan", "hi there"),
			expected: ":alice!a@example.com PRIVMSG #chan :hi there\r\n",
		},
		{
			msg:      MakeMessage("", "TOPIC", "#chan", ""),
			expected: "TOPIC #chan :\r\n",
		},
		{
			msg:      MakeMessage("", "PRIVMSG", "#chan", ":sideways smile"),
			expected: "PRIVMSG #chan ::sideways smile\r\n",
		},
		{
			msg:      MakeMessage("", "QUIT"),
			expected: "QUIT\r\n",
		},
	}

	for _, testCase := range testCases {
		line, err := testCase.msg.Line()
		if err != nil {
			t.Errorf("Line(%#v) returned error: %v", testCase.msg, err)
			continue
		}
		if line != testCase.expected {
			t.Errorf("Line(%#v): got %q, expected %q", testCase.msg, line, testCase.expected)
		}
	}
}

func TestLineForceTrailing(t *testing.T) {
	msg := MakeMessage("", "QUIT", "bye")
	line, err := msg.Line()
	if err != nil || line != "QUIT bye\r\n" {
		t.Errorf("got %q, %v", line, err)
	}
	msg.ForceTrailing()
	line, err = msg.Line()
	if err != nil || line != "QUIT :bye\r\n" {
		t.Errorf("got %q, %v", line, err)
	}
}

func TestLineErrors(t *testing.T) {
	testCases := []struct {
		msg      Message
		expected error
	}{
		{MakeMessage("", "", "#chan"), ErrorCommandMissing},
		{MakeMessage("", "12", "#chan"), ErrorMalformedCommand},
		{MakeMessage("", "KICK", "bad param", "target"), ErrorBadParam},
		{MakeMessage("", "KICK", "", "target"), ErrorBadParam},
		{MakeMessage("", "KICK", ":param", "target"), ErrorBadParam},
		{MakeMessage("", "PRIVMSG", "#chan", strings.Repeat("y", 600)), ErrorLineTooLong},
		{MakeMessage("", "PRIVMSG", "#chan", "evil\r\ninjection"), ErrorLineContainsBadChar},
	}

	for _, testCase := range testCases {
		_, err := testCase.msg.Line()
		if err != testCase.expected {
			t.Errorf("Line(%#v): got error %v, expected %v", testCase.msg, err, testCase.expected)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		":alice!a@example.com PRIVMSG #chan :hello world\r\n",
		"PING :12345\r\n",
		":irc.example.com 005 nick CASEMAPPING=ascii PREFIX=(ov)@+ :are supported by this server\r\n",
		"JOIN #alpha,#beta\r\n",
	}
	for _, line := range lines {
		msg, err := ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		out, err := msg.Line()
		if err != nil {
			t.Fatalf("Line() of %q: %v", line, err)
		}
		if out != line {
			t.Errorf("round trip of %q produced %q", line, out)
		}
	}
}

func TestNick(t *testing.T) {
	msg := MakeMessage("alice!a@example.com", "PRIVMSG", "#chan", "hi")
	if nick := msg.Nick(); nick != "alice" {
		t.Errorf("got %q", nick)
	}
	// a server prefix has no user part; the whole prefix is the name
	msg = MakeMessage("irc.example.com", "PING", "token")
	if nick := msg.Nick(); nick != "irc.example.com" {
		t.Errorf("got %q", nick)
	}
	msg = MakeMessage("", "PING", "token")
	if nick := msg.Nick(); nick != "" {
		t.Errorf("got %q", nick)
	}
}

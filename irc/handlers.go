// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircfmt"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/ergochat/irc-go/ircutils"

	"github.com/namdaets/ircclient/irc/modes"
)

// PING <token>
func pingHandler(client *Client, msg Message) {
	socket := client.currentSocket()
	if socket == nil {
		return
	}
	pong := MakeMessage("", "PONG", msg.Params...)
	pong.ForceTrailing()
	line, err := wireLine(pong)
	if err != nil {
		return
	}
	socket.SendUrgent(line)
}

// PONG: activity was already recorded when the line was read.
func pongHandler(client *Client, msg Message) {
}

// PRIVMSG/NOTICE <target> <text>, including CTCP traffic.
func privmsgHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	notice := msg.Command == "NOTICE"
	from := msg.Nick()
	target, text := msg.Params[0], msg.Params[1]

	// a NOTICE from the server itself (prefix with no user part) is
	// informational text, not a conversation
	if notice && !strings.Contains(msg.Prefix, "!") {
		client.bus.Publish(ServerNoticeEvent{Text: text})
		return
	}

	channel := ""
	if session.IsChannelName(target) {
		channel = target
	}

	if ctcpCommand, ctcpArgs, ok := parseCTCP(text); ok {
		if ctcpCommand == "ACTION" {
			client.bus.Publish(ActionEvent{Channel: channel, From: from, Text: ctcpArgs})
			return
		}
		if !notice {
			client.replyToCTCP(from, ctcpCommand, ctcpArgs)
		}
		client.bus.Publish(CTCPEvent{
			From:    from,
			Target:  target,
			Command: ctcpCommand,
			Args:    ctcpArgs,
			Reply:   notice,
		})
		return
	}

	client.bus.Publish(MessageEvent{
		Channel:   channel,
		From:      from,
		Text:      text,
		PlainText: ircfmt.Strip(text),
		Notice:    notice,
	})
}

// parseCTCP recognizes a 0x01-delimited CTCP payload and splits it into
// command and arguments. The trailing delimiter is optional on the wire.
func parseCTCP(text string) (command, args string, ok bool) {
	if len(text) < 2 || text[0] != CTCPDelim {
		return
	}
	payload := strings.TrimSuffix(text[1:], string(CTCPDelim))
	command, args, _ = strings.Cut(payload, " ")
	command = strings.ToUpper(command)
	if command == "" {
		return "", "", false
	}
	return command, args, true
}

// conventional automatic replies to CTCP queries
func (client *Client) replyToCTCP(from, command, args string) {
	switch command {
	case "VERSION":
		client.SendCTCPReply(from, "VERSION", Ver)
	case "PING":
		client.SendCTCPReply(from, "PING", args)
	case "TIME":
		client.SendCTCPReply(from, "TIME", time.Now().Format(time.RFC1123))
	case "CLIENTINFO":
		client.SendCTCPReply(from, "CLIENTINFO", "ACTION CLIENTINFO PING TIME VERSION")
	}
}

// JOIN <channel>
func joinHandler(client *Client, msg Message) {
	if len(msg.Params) < 1 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[0]
	nick := msg.Nick()
	if session.nickIsSelf(nick) {
		session.addChannel(channel)
	}
	session.addMember(channel, nick, nil)
	client.bus.Publish(JoinedEvent{Channel: channel, Nick: nick})
}

// PART <channel> [<reason>]
func partHandler(client *Client, msg Message) {
	if len(msg.Params) < 1 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[0]
	nick := msg.Nick()
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[1]
	}
	if session.nickIsSelf(nick) {
		session.removeChannel(channel)
	} else {
		session.removeMember(channel, nick)
	}
	client.bus.Publish(PartedEvent{Channel: channel, Nick: nick, Reason: reason})
}

// KICK <channel> <target> [<reason>]
func kickHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel, target := msg.Params[0], msg.Params[1]
	reason := ""
	if len(msg.Params) > 2 {
		reason = msg.Params[2]
	}
	if session.nickIsSelf(target) {
		session.removeChannel(channel)
	} else {
		session.removeMember(channel, target)
	}
	client.bus.Publish(KickedEvent{
		Channel: channel,
		Nick:    target,
		By:      msg.Nick(),
		Reason:  reason,
	})
}

// QUIT [<reason>]
func quitHandler(client *Client, msg Message) {
	session := client.Session()
	if session == nil {
		return
	}
	nick := msg.Nick()
	reason := ""
	if len(msg.Params) > 0 {
		reason = msg.Params[0]
	}
	channels := session.removeNickEverywhere(nick)
	client.bus.Publish(QuitEvent{Nick: nick, Reason: reason, Channels: channels})
}

// NICK <newnick>
func nickHandler(client *Client, msg Message) {
	if len(msg.Params) < 1 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	oldNick := msg.Nick()
	newNick := msg.Params[0]
	session.renameNick(oldNick, newNick)
	client.bus.Publish(NickChangedEvent{Old: oldNick, New: newNick})
}

// TOPIC <channel> <topic>
func topicHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel, topic := msg.Params[0], msg.Params[1]
	session.setTopic(channel, topic, msg.Nick(), time.Now())
	client.bus.Publish(TopicChangedEvent{Channel: channel, By: msg.Nick(), Topic: topic})
}

// MODE <target> <modestring> [<args>...]
func modeHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	target := msg.Params[0]

	if !session.IsChannelName(target) {
		// user modes have no arguments and no membership table
		client.bus.Publish(ModeChangedEvent{
			Target:  target,
			By:      msg.Nick(),
			Changes: parseUserModes(msg.Params[1:]),
		})
		return
	}

	changes, unknown := modes.ParseChanges(session.chanModeTypes(), session.prefixTable(), msg.Params[1:]...)
	if len(unknown) > 0 {
		client.log.Debug("dispatch", fmt.Sprintf("unknown mode(s) %q on %s", string(unknown), target))
	}
	session.applyModeChanges(target, changes)
	client.bus.Publish(ModeChangedEvent{Target: target, By: msg.Nick(), Changes: changes})
}

// parseUserModes parses a user modestring like "+iw-o". User modes take
// no parameters.
func parseUserModes(params []string) (changes modes.ModeChanges) {
	if len(params) == 0 {
		return
	}
	op := modes.Add
	for _, r := range params[0] {
		switch r {
		case '+':
			op = modes.Add
		case '-':
			op = modes.Remove
		default:
			changes = append(changes, modes.ModeChange{Mode: modes.Mode(r), Op: op})
		}
	}
	return
}

// ERROR <text>: the server is about to close the connection.
func errorHandler(client *Client, msg Message) {
	text := ""
	if len(msg.Params) > 0 {
		text = msg.Params[0]
	}
	client.log.Info("client", "server error:", text)
	client.bus.Publish(ServerNoticeEvent{Text: text})
}

//
// registration and capability negotiation
//

// 001 RPL_WELCOME: registration is complete; the first parameter is the
// nickname the server actually assigned.
func welcomeHandler(client *Client, msg Message) {
	if len(msg.Params) < 1 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	nick := msg.Params[0]
	session.setNick(nick)
	session.setRegistration(Registered)
	client.log.Info("client", "registered as", nick)
	client.bus.Publish(RegisteredEvent{Nick: nick})

	if client.config.NickservPassword != "" {
		identify := MakeMessage("", "PRIVMSG", "NickServ", "IDENTIFY "+client.config.NickservPassword)
		identify.ForceTrailing()
		client.sendMessage(identify)
	}
	if len(client.config.Channels) > 0 {
		client.sendCommand("JOIN", strings.Join(client.config.Channels, ","))
	}
}

// 005 RPL_ISUPPORT
func isupportHandler(client *Client, msg Message) {
	session := client.Session()
	if session == nil {
		return
	}
	session.applyISupport(msg.Params)
}

// 432/433/436: the requested nickname is unavailable. During
// registration we walk the alternates; afterwards it just means a manual
// nick change failed.
func nickUnavailableHandler(client *Client, msg Message) {
	session := client.Session()
	if session == nil {
		return
	}
	if session.registrationState() == Registered {
		client.bus.Publish(ServerNoticeEvent{Text: paramText(msg)})
		return
	}

	client.nickIndex++
	if client.nickIndex >= len(client.nickChoices) {
		client.failConnection(ErrorRegistrationFailed, "all nickname choices are taken")
		return
	}
	next := client.nickChoices[client.nickIndex]
	client.log.Info("client", "nickname unavailable, trying", next)
	session.setNick(next)
	client.sendCommand("NICK", next)
}

// 464 ERR_PASSWDMISMATCH
func passwdMismatchHandler(client *Client, msg Message) {
	client.failConnection(ErrorRegistrationFailed, "server password rejected")
}

// CAP <nick> <subcommand> [...]: we only ever negotiate sasl.
func capHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	subcommand := strings.ToUpper(msg.Params[1])
	caps := ""
	if len(msg.Params) > 2 {
		caps = msg.Params[len(msg.Params)-1]
	}

	switch subcommand {
	case "LS":
		client.capsLS = append(client.capsLS, caps)
		// a * before the capability list means more LS lines follow
		if len(msg.Params) > 3 && msg.Params[2] == "*" {
			return
		}
		advertised := strings.Join(client.capsLS, " ")
		client.capsLS = nil
		if capAdvertised(advertised, "sasl") {
			client.sendCommand("CAP", "REQ", "sasl")
		} else {
			client.saslUnavailable("server does not support sasl")
		}
	case "ACK":
		if capAdvertised(caps, "sasl") {
			client.saslStarted = true
			client.sendCommand("AUTHENTICATE", "PLAIN")
		}
	case "NAK":
		client.saslUnavailable("server refused the sasl capability")
	}
}

// capAdvertised matches a capability name within a CAP list, where each
// entry may carry a =value suffix.
func capAdvertised(caps, name string) bool {
	for _, entry := range strings.Fields(caps) {
		entryName, _, _ := strings.Cut(entry, "=")
		if entryName == name {
			return true
		}
	}
	return false
}

func (client *Client) saslUnavailable(detail string) {
	if client.config.SASL.Require {
		client.failConnection(ErrorSASLFailed, detail)
		return
	}
	client.log.Warning("client", detail+", continuing without authentication")
	client.sendCommand("CAP", "END")
}

// AUTHENTICATE +: the server is ready for the PLAIN response.
func authenticateHandler(client *Client, msg Message) {
	if !client.saslStarted {
		return
	}
	raw := []byte(client.config.SASL.Username + "\x00" + client.config.SASL.Username + "\x00" + client.config.SASL.Password)
	for _, chunk := range ircutils.EncodeSASLResponse(raw) {
		client.sendCommand("AUTHENTICATE", chunk)
	}
}

// 903 RPL_SASLSUCCESS
func saslSuccessHandler(client *Client, msg Message) {
	client.log.Info("client", "sasl authentication succeeded")
	client.sendCommand("CAP", "END")
}

// 902/904/905/906: authentication failed.
func saslFailHandler(client *Client, msg Message) {
	detail := paramText(msg)
	if client.config.SASL.Require {
		client.failConnection(ErrorSASLFailed, detail)
		return
	}
	client.bus.Publish(ErrorEvent{Kind: ErrorSASLFailed, Detail: detail})
	client.sendCommand("CAP", "END")
}

// 900/901/907: informational acknowledgements.
func saslNoticeHandler(client *Client, msg Message) {
	client.log.Debug("client", "sasl:", paramText(msg))
}

//
// state numerics
//

// 221 RPL_UMODEIS <nick> <modestring>
func umodeisHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	client.bus.Publish(ModeChangedEvent{
		Target:  msg.Params[0],
		Changes: parseUserModes(msg.Params[1:]),
	})
}

// 324 RPL_CHANNELMODEIS <nick> <channel> <modestring> [<args>...]
func channelmodeisHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[1]
	changes, _ := modes.ParseChanges(session.chanModeTypes(), session.prefixTable(), msg.Params[2:]...)
	session.applyModeChanges(channel, changes)
	client.bus.Publish(ModeChangedEvent{Target: channel, Changes: changes})
}

// 331 RPL_NOTOPIC <nick> <channel>
func notopicHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[1]
	session.setTopic(channel, "", "", time.Time{})
	client.bus.Publish(TopicChangedEvent{Channel: channel})
}

// 332 RPL_TOPIC <nick> <channel> <topic>
func topicReplyHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel, topic := msg.Params[1], msg.Params[2]
	session.setTopic(channel, topic, "", time.Time{})
	client.bus.Publish(TopicChangedEvent{Channel: channel, Topic: topic})
}

// 333 RPL_TOPICWHOTIME <nick> <channel> <setter> <timestamp>: metadata
// for the topic we just learned via 332.
func topicTimeHandler(client *Client, msg Message) {
	if len(msg.Params) < 4 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[1]
	topic, ok := session.Topic(channel)
	if !ok {
		return
	}
	setter := ""
	if nuh, err := ircmsg.ParseNUH(msg.Params[2]); err == nil {
		setter = nuh.Name
	}
	var setAt time.Time
	if unix, err := strconv.ParseInt(msg.Params[3], 10, 64); err == nil {
		setAt = time.Unix(unix, 0)
	}
	session.setTopic(channel, topic, setter, setAt)
}

// 353 RPL_NAMREPLY <nick> <symbol> <channel> <names>
func namreplyHandler(client *Client, msg Message) {
	if len(msg.Params) < 4 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	session.accumulateNames(msg.Params[2], strings.Fields(msg.Params[3]))
}

// 366 RPL_ENDOFNAMES <nick> <channel>: the accumulated list becomes
// visible in one step.
func endofnamesHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	channel := msg.Params[1]
	if session.endNames(channel) {
		client.bus.Publish(NamesUpdatedEvent{Channel: channel})
	}
}

//
// whois assembly: the reply numerics accumulate into one WhoisEvent,
// published on 318.
//

func (client *Client) whoisInProgress(session *Session, nick string) *WhoisEvent {
	key := session.Casefold(nick)
	info, ok := client.whois[key]
	if !ok {
		info = &WhoisEvent{Nick: nick}
		client.whois[key] = info
	}
	return info
}

// 311 RPL_WHOISUSER <nick> <target> <user> <host> * <realname>
func whoisUserHandler(client *Client, msg Message) {
	if len(msg.Params) < 6 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	info := client.whoisInProgress(session, msg.Params[1])
	info.Username = msg.Params[2]
	info.Host = msg.Params[3]
	info.Realname = msg.Params[5]
}

// 312 RPL_WHOISSERVER <nick> <target> <server> <serverinfo>
func whoisServerHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	client.whoisInProgress(session, msg.Params[1]).Server = msg.Params[2]
}

// 317 RPL_WHOISIDLE <nick> <target> <seconds> [<signon>]
func whoisIdleHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	seconds, err := strconv.ParseInt(msg.Params[2], 10, 64)
	if err != nil {
		return
	}
	client.whoisInProgress(session, msg.Params[1]).Idle = time.Duration(seconds) * time.Second
}

// 319 RPL_WHOISCHANNELS <nick> <target> <channels>
func whoisChannelsHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	info := client.whoisInProgress(session, msg.Params[1])
	info.Channels = append(info.Channels, strings.Fields(msg.Params[2])...)
}

// 313 RPL_WHOISOPERATOR and friends carry no fields we model.
func whoisNoticeHandler(client *Client, msg Message) {
}

// 318 RPL_ENDOFWHOIS <nick> <target>
func endofwhoisHandler(client *Client, msg Message) {
	if len(msg.Params) < 2 {
		return
	}
	session := client.Session()
	if session == nil {
		return
	}
	key := session.Casefold(msg.Params[1])
	info, ok := client.whois[key]
	if !ok {
		return
	}
	delete(client.whois, key)
	client.bus.Publish(*info)
}

//
// informational numerics
//

// 301 RPL_AWAY <nick> <target> <message>
func awayHandler(client *Client, msg Message) {
	if len(msg.Params) < 3 {
		return
	}
	client.bus.Publish(ServerNoticeEvent{
		Text: fmt.Sprintf("%s is away: %s", msg.Params[1], msg.Params[2]),
	})
}

// 372/375/376/422: MOTD text.
func motdHandler(client *Client, msg Message) {
	client.bus.Publish(ServerNoticeEvent{Text: paramText(msg)})
}

// unknownHandler catches everything without a dedicated handler and
// surfaces it as a server notice; unrecognized traffic is never fatal.
// Numerics drop the leading nickname parameter, other commands keep
// their raw content.
func unknownHandler(client *Client, msg Message) {
	if len(msg.Command) == 3 && msg.Command[0] >= '0' && msg.Command[0] <= '9' {
		client.bus.Publish(ServerNoticeEvent{Text: paramText(msg)})
		return
	}
	client.log.Debug("dispatch", "unhandled command", msg.Command)
	text := msg.Command
	if len(msg.Params) > 0 {
		text += " " + strings.Join(msg.Params, " ")
	}
	client.bus.Publish(ServerNoticeEvent{Text: text})
}

// paramText extracts the human-readable portion of a numeric reply,
// skipping the client's own nickname in the first parameter.
func paramText(msg Message) string {
	if len(msg.Params) > 1 {
		return strings.Join(msg.Params[1:], " ")
	}
	if len(msg.Params) == 1 {
		return msg.Params[0]
	}
	return ""
}

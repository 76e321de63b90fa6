// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/namdaets/ircclient/irc/logger"
)

// ClientState is the coarse lifecycle state of a Client.
type ClientState uint

const (
	// StateDisconnected: no transport; the initial and terminal state.
	StateDisconnected ClientState = iota
	// StateConnecting: a dial is in flight.
	StateConnecting
	// StateConnected: the transport is up (registration may still be in
	// progress; see Session.Registered).
	StateConnected
	// StateClosing: a graceful quit is in flight.
	StateClosing
)

func (state ClientState) String() string {
	switch state {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "closing"
	}
}

// how long a graceful quit waits for the server to close the connection
// before forcing it
const quitTimeout = 5 * time.Second

// how many underscore-suffixed fallbacks we generate after the
// configured alternates are exhausted
const nickSuffixFallbacks = 3

// Client drives one logical server connection: it dials, registers,
// dispatches incoming lines to handlers, reconnects if configured, and
// publishes events. Collaborators talk to it through the outbound intent
// methods and an event bus subscription.
type Client struct {
	config *Config
	log    *logger.Manager
	bus    *EventBus

	stateMutex sync.Mutex
	state      ClientState
	closing    bool // suppress reconnection and remap the disconnect reason
	socket     *Socket
	session    *Session

	// registration bookkeeping, touched only on the dispatch goroutine
	nickChoices []string
	nickIndex   int
	saslStarted bool
	capsLS      []string // accumulated multi-line CAP LS reply
	whois       map[string]*WhoisEvent
}

// NewClient creates a Client from a prepared Config. It does not
// connect.
func NewClient(config *Config, log *logger.Manager) *Client {
	return &Client{
		config: config,
		log:    log,
		bus:    NewEventBus(),
	}
}

// Subscribe registers an event consumer; see EventBus.Subscribe.
func (client *Client) Subscribe(buffer int) *Subscription {
	return client.bus.Subscribe(buffer)
}

// State returns the client's lifecycle state.
func (client *Client) State() ClientState {
	client.stateMutex.Lock()
	defer client.stateMutex.Unlock()
	return client.state
}

// Session returns the state model for the current connection, or nil if
// there is none.
func (client *Client) Session() *Session {
	client.stateMutex.Lock()
	defer client.stateMutex.Unlock()
	return client.session
}

// Connect dials the configured server, starts the dispatch loop and
// begins registration. It blocks until the transport is established (or
// fails with a *ConnectError); registration completes asynchronously and
// is reported via RegisteredEvent.
func (client *Client) Connect() error {
	client.stateMutex.Lock()
	if client.state != StateDisconnected {
		client.stateMutex.Unlock()
		return errAlreadyStarted
	}
	client.state = StateConnecting
	client.closing = false
	client.stateMutex.Unlock()

	conn, err := Dial(client.dialConfig())
	if err != nil {
		client.setState(StateDisconnected)
		return err
	}

	isTLS := client.config.Server.TLS ||
		strings.HasPrefix(client.config.Server.WebsocketURL, "wss://")
	session := NewSession(isTLS)
	socket := NewSocket(conn, SocketConfig{
		Flood:        client.config.Flood,
		PingInterval: client.config.PingInterval,
		PingTimeout:  client.config.PingTimeout,
	}, client.log)

	client.stateMutex.Lock()
	client.socket = socket
	client.session = session
	client.state = StateConnected
	client.stateMutex.Unlock()

	client.nickChoices = nickChoices(client.config)
	client.nickIndex = 0
	client.saslStarted = false
	client.capsLS = nil
	client.whois = make(map[string]*WhoisEvent)

	client.log.Info("client", "connected to", socket.String())
	client.bus.Publish(ConnectedEvent{
		Address: client.config.Server.Address,
		TLS:     isTLS,
	})

	client.register(socket, session)
	go client.run(socket, session)
	return nil
}

func (client *Client) dialConfig() DialConfig {
	var tlsConfig *tls.Config
	if client.config.Server.InsecureSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return DialConfig{
		Address:      client.config.Server.Address,
		TLS:          client.config.Server.TLS,
		TLSConfig:    tlsConfig,
		WebsocketURL: client.config.Server.WebsocketURL,
		Timeout:      client.config.Server.ConnectTimeout,
	}
}

// nickChoices is the full ordered list of nicknames to try during
// registration: the configured nick, the alternates, then
// underscore-suffixed fallbacks.
func nickChoices(config *Config) (choices []string) {
	choices = append(choices, config.Nick)
	choices = append(choices, config.AltNicks...)
	suffixed := config.Nick
	for i := 0; i < nickSuffixFallbacks; i++ {
		suffixed += "_"
		choices = append(choices, suffixed)
	}
	return
}

// register performs the opening handshake. When SASL is configured we
// open capability negotiation first; the server holds registration until
// CAP END.
func (client *Client) register(socket *Socket, session *Session) {
	if client.saslConfigured() {
		socket.Send("CAP LS 302")
	}
	if client.config.Server.Password != "" {
		client.sendCommand("PASS", client.config.Server.Password)
	}
	client.sendCommand("NICK", client.nickChoices[0])
	session.setNick(client.nickChoices[0])
	session.setRegistration(NickSent)
	userMsg := MakeMessage("", "USER", client.config.Username, "0", "*", client.config.Realname)
	userMsg.ForceTrailing()
	client.sendMessage(userMsg)
	session.setRegistration(UserSent)
}

func (client *Client) saslConfigured() bool {
	return client.config.SASL.Username != "" && client.config.SASL.Password != ""
}

// run is the dispatch loop: one goroutine per connection, the only
// goroutine that mutates the session.
func (client *Client) run(socket *Socket, session *Session) {
	for line := range socket.Lines() {
		client.dispatchLine(line)
	}
	reason := <-socket.Done()

	client.stateMutex.Lock()
	if client.closing {
		reason.Kind = DisconnectUserRequested
	}
	client.socket = nil
	client.session = nil
	client.state = StateDisconnected
	reconnect := client.config.AutoReconnect && reason.Kind != DisconnectUserRequested
	client.stateMutex.Unlock()

	session.clearChannels()
	client.log.Info("client", "disconnected:", reason.String())
	client.bus.Publish(DisconnectedEvent{Reason: reason})

	if reconnect {
		go client.reconnectLoop()
	}
}

// reconnectLoop redials after the configured wait until a connection
// sticks or the client is asked to stop.
func (client *Client) reconnectLoop() {
	for {
		time.Sleep(client.config.ReconnectWait)

		client.stateMutex.Lock()
		stop := client.closing || client.state != StateDisconnected
		client.stateMutex.Unlock()
		if stop {
			return
		}

		err := client.Connect()
		if err == nil {
			return
		}
		client.log.Warning("client", "reconnect failed:", err.Error())
	}
}

func (client *Client) dispatchLine(line string) {
	msg, err := ParseLine(line)
	if err != nil {
		client.log.Warning("dispatch", "dropped malformed line:", err.Error())
		client.bus.Publish(ErrorEvent{Kind: ErrorProtocol, Detail: err.Error()})
		return
	}
	handler, ok := serverCommands[msg.Command]
	if !ok {
		unknownHandler(client, msg)
		return
	}
	handler(client, msg)
}

func (client *Client) setState(state ClientState) {
	client.stateMutex.Lock()
	client.state = state
	client.stateMutex.Unlock()
}

func (client *Client) currentSocket() *Socket {
	client.stateMutex.Lock()
	defer client.stateMutex.Unlock()
	return client.socket
}

// failConnection tears the connection down after an unrecoverable
// protocol-level failure (registration cannot complete). Reconnection is
// suppressed: redialing would only fail the same way.
func (client *Client) failConnection(kind ErrorKind, detail string) {
	client.bus.Publish(ErrorEvent{Kind: kind, Detail: detail})
	client.stateMutex.Lock()
	client.closing = true
	socket := client.socket
	client.stateMutex.Unlock()
	if socket != nil {
		socket.Close(DisconnectReason{Kind: DisconnectUserRequested, Detail: detail})
	}
}

// Quit sends QUIT and waits for the server to close the connection,
// forcing it after a grace period. Safe to call from any goroutine.
func (client *Client) Quit(reason string) error {
	client.stateMutex.Lock()
	if client.state != StateConnected {
		client.stateMutex.Unlock()
		return errNotConnected
	}
	client.state = StateClosing
	client.closing = true
	socket := client.socket
	client.stateMutex.Unlock()

	msg := MakeMessage("", "QUIT", reason)
	msg.ForceTrailing()
	line, err := wireLine(msg)
	if err == nil {
		socket.SendUrgent(line)
	}
	time.AfterFunc(quitTimeout, func() {
		socket.Close(DisconnectReason{Kind: DisconnectUserRequested, Detail: "quit"})
	})
	return nil
}

// Disconnect tears the connection down immediately, without a QUIT.
func (client *Client) Disconnect() error {
	client.stateMutex.Lock()
	if client.socket == nil {
		client.closing = true
		client.stateMutex.Unlock()
		return errAlreadyClosed
	}
	client.closing = true
	socket := client.socket
	client.stateMutex.Unlock()
	socket.Close(DisconnectReason{Kind: DisconnectUserRequested})
	return nil
}

// Shutdown disconnects and closes the event bus. The client cannot be
// reused afterwards.
func (client *Client) Shutdown() {
	client.Disconnect()
	client.bus.Shutdown()
}

//
// outbound intents. Each validates before anything reaches the wire and
// returns a *ValidationError on constraint violations.
//

// wireLine serializes a message for submission to the Socket, which owns
// the CR-LF framing.
func wireLine(msg Message) (string, error) {
	line, err := msg.Line()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\r\n"), nil
}

func (client *Client) sendMessage(msg Message) error {
	socket := client.currentSocket()
	if socket == nil {
		return errNotConnected
	}
	line, err := wireLine(msg)
	if err != nil {
		return err
	}
	return socket.Send(line)
}

func (client *Client) sendCommand(command string, params ...string) error {
	return client.sendMessage(MakeMessage("", command, params...))
}

func validateTarget(target string) error {
	if target == "" {
		return &ValidationError{Field: "target", Reason: "is empty"}
	}
	if strings.ContainsAny(target, " \x00\r\n,") {
		return &ValidationError{Field: "target", Reason: "contains an invalid character"}
	}
	return nil
}

func validateText(field, text string) error {
	if err := ValidateText(text); err != nil {
		return &ValidationError{Field: field, Reason: err.Error()}
	}
	return nil
}

// SendMessage sends a PRIVMSG to a channel or nickname.
func (client *Client) SendMessage(target, text string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if err := validateText("text", text); err != nil {
		return err
	}
	msg := MakeMessage("", "PRIVMSG", target, text)
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// SendNotice sends a NOTICE to a channel or nickname.
func (client *Client) SendNotice(target, text string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if err := validateText("text", text); err != nil {
		return err
	}
	msg := MakeMessage("", "NOTICE", target, text)
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// SendAction sends a CTCP ACTION ("/me") to a channel or nickname.
func (client *Client) SendAction(target, text string) error {
	if err := validateText("text", text); err != nil {
		return err
	}
	return client.SendCTCP(target, "ACTION", text)
}

// SendCTCP sends a CTCP request inside a PRIVMSG.
func (client *Client) SendCTCP(target, command string, args string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if command == "" {
		return &ValidationError{Field: "command", Reason: "is empty"}
	}
	payload := strings.ToUpper(command)
	if args != "" {
		payload = payload + " " + args
	}
	msg := MakeMessage("", "PRIVMSG", target, fmt.Sprintf("%c%s%c", CTCPDelim, payload, CTCPDelim))
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// SendCTCPReply sends a CTCP reply inside a NOTICE.
func (client *Client) SendCTCPReply(target, command string, args string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	payload := strings.ToUpper(command)
	if args != "" {
		payload = payload + " " + args
	}
	msg := MakeMessage("", "NOTICE", target, fmt.Sprintf("%c%s%c", CTCPDelim, payload, CTCPDelim))
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// Join asks to join one or more channels. Confirmation arrives as a
// JoinedEvent when the server echoes our JOIN.
func (client *Client) Join(channels ...string) error {
	if len(channels) == 0 {
		return &ValidationError{Field: "channel", Reason: "no channels given"}
	}
	chanTypes := defaultChanTypes
	if session := client.Session(); session != nil {
		if value, ok := session.SupportValue("CHANTYPES"); ok {
			chanTypes = value
		}
	}
	for _, channel := range channels {
		if err := ValidateChannel(channel, chanTypes); err != nil {
			return &ValidationError{Field: "channel", Reason: err.Error()}
		}
	}
	return client.sendCommand("JOIN", strings.Join(channels, ","))
}

// JoinWithKey asks to join a single channel that requires a key (mode +k).
func (client *Client) JoinWithKey(channel, key string) error {
	if key == "" {
		return client.Join(channel)
	}
	chanTypes := defaultChanTypes
	if session := client.Session(); session != nil {
		if value, ok := session.SupportValue("CHANTYPES"); ok {
			chanTypes = value
		}
	}
	if err := ValidateChannel(channel, chanTypes); err != nil {
		return &ValidationError{Field: "channel", Reason: err.Error()}
	}
	if strings.ContainsAny(key, " \x00\r\n,") {
		return &ValidationError{Field: "key", Reason: "contains an invalid character"}
	}
	return client.sendCommand("JOIN", channel, key)
}

// Part leaves a channel we are on.
func (client *Client) Part(channel, reason string) error {
	session := client.Session()
	if session == nil {
		return errNotConnected
	}
	if !session.IsOnChannel(channel) {
		return errNotOnChannel
	}
	if reason == "" {
		return client.sendCommand("PART", channel)
	}
	if err := validateText("reason", reason); err != nil {
		return err
	}
	msg := MakeMessage("", "PART", channel, reason)
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// ChangeNick asks the server for a new nickname. The change is not
// applied locally until the server echoes it (NickChangedEvent).
func (client *Client) ChangeNick(nick string) error {
	if err := ValidateNickname(nick); err != nil {
		return &ValidationError{Field: "nickname", Reason: err.Error()}
	}
	return client.sendCommand("NICK", nick)
}

// SetTopic sets a channel topic.
func (client *Client) SetTopic(channel, topic string) error {
	if err := validateTarget(channel); err != nil {
		return err
	}
	if err := validateText("topic", topic); err != nil {
		return err
	}
	msg := MakeMessage("", "TOPIC", channel, topic)
	msg.ForceTrailing()
	return client.sendMessage(msg)
}

// RequestMode queries the modes of a channel or of ourselves; the answer
// arrives as a ModeChangedEvent.
func (client *Client) RequestMode(target string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	return client.sendCommand("MODE", target)
}

// RequestNames refreshes the member list of a channel; the answer
// arrives as a NamesUpdatedEvent.
func (client *Client) RequestNames(channel string) error {
	if err := validateTarget(channel); err != nil {
		return err
	}
	return client.sendCommand("NAMES", channel)
}

// Whois queries information about a nickname; the assembled answer
// arrives as a WhoisEvent.
func (client *Client) Whois(nick string) error {
	if err := ValidateNickname(nick); err != nil {
		return &ValidationError{Field: "nickname", Reason: err.Error()}
	}
	return client.sendCommand("WHOIS", nick)
}

// SendRaw sends a preformatted line, validating it against the message
// grammar first. An escape hatch for commands the Client has no method
// for.
func (client *Client) SendRaw(line string) error {
	msg, err := ParseLine(line)
	if err != nil {
		return err
	}
	return client.sendMessage(msg)
}

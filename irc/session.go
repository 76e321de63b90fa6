// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"sort"
	"sync"
	"time"

	"github.com/namdaets/ircclient/irc/modes"
)

// RegistrationState tracks the registration handshake.
type RegistrationState uint

const (
	// Unregistered: nothing sent yet.
	Unregistered RegistrationState = iota
	// NickSent: NICK has been sent.
	NickSent
	// UserSent: NICK and USER have both been sent.
	UserSent
	// Registered: the server acknowledged us with RPL_WELCOME.
	Registered
)

type channelMember struct {
	nick     string // display form
	prefixes *modes.ModeSet
}

// ChannelState is everything the engine knows about one joined channel.
// It is created when our own JOIN is acknowledged and destroyed when we
// part, are kicked, or disconnect.
type ChannelState struct {
	name       string // display form
	topic      string
	topicSetBy string
	topicSetAt time.Time
	modes      *modes.ModeSet
	members    map[string]*channelMember // keyed by casefolded nick
}

func newChannelState(name string) *ChannelState {
	return &ChannelState{
		name:    name,
		modes:   modes.NewModeSet(),
		members: make(map[string]*channelMember),
	}
}

// Session is the in-memory model of one connection: who we are, what
// channels we are in, who else is in them, and what the modes are. It is
// mutated only on the dispatch goroutine; collaborators get read-only
// snapshot accessors guarded by an RWMutex.
type Session struct {
	mutex sync.RWMutex

	nick         string
	registration RegistrationState
	isTLS        bool
	isupport     ISupport
	channels     map[string]*ChannelState // keyed by casefolded name

	// NAMES replies accumulate here and flush into channels atomically
	// on RPL_ENDOFNAMES, so partial lists are never visible
	pendingNames map[string]map[string]*channelMember
}

// NewSession returns a Session in its initial state.
func NewSession(isTLS bool) *Session {
	session := &Session{
		isTLS:        isTLS,
		channels:     make(map[string]*ChannelState),
		pendingNames: make(map[string]map[string]*channelMember),
	}
	session.isupport.Initialize()
	return session
}

// fold canonicalizes a name under the server's declared casemapping.
// Callers must hold the mutex in at least read mode.
func (session *Session) fold(name string) string {
	return session.isupport.CaseMapping.Fold(name)
}

//
// read accessors, safe for concurrent use by collaborators
//

// CurrentNick returns the nickname the server currently knows us by.
func (session *Session) CurrentNick() string {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.nick
}

// Registered returns whether the registration handshake has completed.
func (session *Session) Registered() bool {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.registration == Registered
}

// IsTLS returns whether the transport is TLS-wrapped.
func (session *Session) IsTLS() bool {
	return session.isTLS
}

// IsOnChannel returns whether we are currently joined to the channel.
func (session *Session) IsOnChannel(channel string) bool {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	_, ok := session.channels[session.fold(channel)]
	return ok
}

// Channels returns the display names of all joined channels, sorted.
func (session *Session) Channels() (result []string) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	for _, channel := range session.channels {
		result = append(result, channel.name)
	}
	sort.Strings(result)
	return
}

// MembersOf returns the sorted nicknames present on a channel.
func (session *Session) MembersOf(channel string) (result []string) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	for _, member := range state.members {
		result = append(result, member.nick)
	}
	sort.Strings(result)
	return
}

// ModesOf returns the channel membership modes (operator, voice, ...)
// held by nick on the channel.
func (session *Session) ModesOf(channel, nick string) (result modes.Modes) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	member, ok := state.members[session.fold(nick)]
	if !ok {
		return
	}
	return member.prefixes.AllModes()
}

// ChannelModes returns the channel-wide modes currently set.
func (session *Session) ChannelModes(channel string) (result modes.Modes) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	return state.modes.AllModes()
}

// Topic returns a channel's topic, with ok reporting whether we are on
// the channel at all.
func (session *Session) Topic(channel string) (topic string, ok bool) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	return state.topic, true
}

// SupportValue returns the server's advertised value for an ISUPPORT
// token.
func (session *Session) SupportValue(name string) (value string, ok bool) {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	value, ok = session.isupport.Get(name)
	return
}

// NetworkName returns the network name from ISUPPORT, if advertised.
func (session *Session) NetworkName() string {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.isupport.Network
}

// Casefold canonicalizes a name under the server's declared casemapping,
// so collaborators can compare names the way the server does.
func (session *Session) Casefold(name string) string {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.fold(name)
}

// IsChannelName reports whether target names a channel rather than a
// nickname, per the server's channel type prefixes.
func (session *Session) IsChannelName(target string) bool {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.isupport.IsChannelName(target)
}

//
// mutations, invoked only by the dispatcher
//

func (session *Session) setNick(nick string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.nick = nick
}

// nickIsSelf compares a nickname against our own under the active
// casemapping.
func (session *Session) nickIsSelf(nick string) bool {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.fold(nick) == session.fold(session.nick)
}

func (session *Session) setRegistration(state RegistrationState) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.registration = state
}

func (session *Session) registrationState() RegistrationState {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.registration
}

func (session *Session) applyISupport(params []string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.isupport.Apply(params)
}

func (session *Session) prefixTable() modes.PrefixTable {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.isupport.Prefixes
}

func (session *Session) chanModeTypes() modes.ChanModeTypes {
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	return session.isupport.ChanModes
}

func (session *Session) addChannel(name string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	folded := session.fold(name)
	if _, ok := session.channels[folded]; !ok {
		session.channels[folded] = newChannelState(name)
	}
}

func (session *Session) removeChannel(name string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	folded := session.fold(name)
	delete(session.channels, folded)
	delete(session.pendingNames, folded)
}

func (session *Session) addMember(channel, nick string, prefixModes modes.Modes) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	member, ok := state.members[session.fold(nick)]
	if !ok {
		member = &channelMember{nick: nick, prefixes: modes.NewModeSet()}
		state.members[session.fold(nick)] = member
	}
	for _, mode := range prefixModes {
		member.prefixes.SetMode(mode, true)
	}
}

func (session *Session) removeMember(channel, nick string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	delete(state.members, session.fold(nick))
}

// removeNickEverywhere handles a QUIT: the nick is dropped from every
// channel, and the affected channel names are returned for the event.
func (session *Session) removeNickEverywhere(nick string) (channels []string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	folded := session.fold(nick)
	for _, state := range session.channels {
		if _, ok := state.members[folded]; ok {
			delete(state.members, folded)
			channels = append(channels, state.name)
		}
	}
	sort.Strings(channels)
	return
}

// renameNick handles a NICK change, moving the member entry in every
// channel and updating our own nick if it was ours.
func (session *Session) renameNick(old, new string) (isSelf bool) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	oldFolded := session.fold(old)
	newFolded := session.fold(new)
	for _, state := range session.channels {
		if member, ok := state.members[oldFolded]; ok {
			delete(state.members, oldFolded)
			member.nick = new
			state.members[newFolded] = member
		}
	}
	if session.fold(session.nick) == oldFolded {
		session.nick = new
		return true
	}
	return false
}

func (session *Session) setTopic(channel, topic, by string, at time.Time) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	state.topic = topic
	state.topicSetBy = by
	state.topicSetAt = at
}

// applyModeChanges applies a MODE delta to a channel: membership modes
// adjust member prefix sets, everything else adjusts the channel mode
// set.
func (session *Session) applyModeChanges(channel string, changes modes.ModeChanges) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	state, ok := session.channels[session.fold(channel)]
	if !ok {
		return
	}
	table := session.isupport.Prefixes
	for _, change := range changes {
		on := change.Op == modes.Add
		if table.HasMode(change.Mode) {
			member, ok := state.members[session.fold(change.Arg)]
			if ok {
				member.prefixes.SetMode(change.Mode, on)
			}
			continue
		}
		state.modes.SetMode(change.Mode, on)
	}
}

// accumulateNames buffers one RPL_NAMREPLY; the visible member list is
// untouched until endNames.
func (session *Session) accumulateNames(channel string, decorated []string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	folded := session.fold(channel)
	pending, ok := session.pendingNames[folded]
	if !ok {
		pending = make(map[string]*channelMember)
		session.pendingNames[folded] = pending
	}
	table := session.isupport.Prefixes
	for _, entry := range decorated {
		prefixModes, nick := table.SplitMembershipPrefixes(entry)
		if nick == "" {
			continue
		}
		member := &channelMember{nick: nick, prefixes: modes.NewModeSet()}
		for _, mode := range prefixModes {
			member.prefixes.SetMode(mode, true)
		}
		pending[session.fold(nick)] = member
	}
}

// endNames atomically replaces the channel's member list with the
// accumulated one. It reports whether we are on the channel.
func (session *Session) endNames(channel string) bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	folded := session.fold(channel)
	pending, ok := session.pendingNames[folded]
	if !ok {
		return false
	}
	delete(session.pendingNames, folded)
	state, ok := session.channels[folded]
	if !ok {
		return false
	}
	state.members = pending
	return true
}

// clearChannels empties the channel map; used at disconnect.
func (session *Session) clearChannels() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.channels = make(map[string]*ChannelState)
	session.pendingNames = make(map[string]map[string]*channelMember)
}

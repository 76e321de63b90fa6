// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"strconv"
	"strings"

	"github.com/namdaets/ircclient/irc/modes"
)

// ISupport tracks the tokens a server advertises in RPL_ISUPPORT (005)
// replies, plus derived values the engine consults on every dispatch.
type ISupport struct {
	Tokens map[string]string

	CaseMapping CaseMapping
	Prefixes    modes.PrefixTable
	ChanModes   modes.ChanModeTypes
	ChanTypes   string
	NickLen     int
	Network     string
}

// Initialize resets the list to the protocol defaults.
func (is *ISupport) Initialize() {
	is.Tokens = make(map[string]string)
	is.CaseMapping = CaseMappingRFC1459
	is.Prefixes = modes.DefaultPrefixTable()
	is.ChanModes = modes.DefaultChanModeTypes()
	is.ChanTypes = defaultChanTypes
	is.NickLen = 0
}

// Get returns a token's value and whether the token was advertised.
func (is *ISupport) Get(name string) (value string, ok bool) {
	value, ok = is.Tokens[name]
	return
}

// Apply folds one RPL_ISUPPORT reply into the list. params are the
// message parameters: the client's nick, the tokens, and the trailing
// "are supported by this server" text.
func (is *ISupport) Apply(params []string) {
	if len(params) < 2 {
		return
	}
	// skip the nick parameter and the trailing human-readable text
	tokens := params[1 : len(params)-1]
	for _, token := range tokens {
		if len(token) == 0 {
			continue
		}
		// a leading dash withdraws a previously advertised token
		if token[0] == '-' {
			is.remove(token[1:])
			continue
		}
		name, value := token, ""
		if idx := strings.IndexByte(token, '='); idx != -1 {
			name, value = token[:idx], token[idx+1:]
		}
		is.add(strings.ToUpper(name), value)
	}
}

func (is *ISupport) add(name, value string) {
	is.Tokens[name] = value

	switch name {
	case "CASEMAPPING":
		if mapping, ok := ParseCaseMapping(value); ok {
			is.CaseMapping = mapping
		}
	case "PREFIX":
		if table, ok := modes.ParsePrefixToken(value); ok {
			is.Prefixes = table
		}
	case "CHANMODES":
		if types, ok := modes.ParseChanModesToken(value); ok {
			is.ChanModes = types
		}
	case "CHANTYPES":
		if value != "" {
			is.ChanTypes = value
		}
	case "NICKLEN":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			is.NickLen = n
		}
	case "NETWORK":
		is.Network = value
	}
}

func (is *ISupport) remove(name string) {
	name = strings.ToUpper(name)
	delete(is.Tokens, name)

	// withdrawn tokens revert to the protocol defaults
	switch name {
	case "CASEMAPPING":
		is.CaseMapping = CaseMappingRFC1459
	case "PREFIX":
		is.Prefixes = modes.DefaultPrefixTable()
	case "CHANMODES":
		is.ChanModes = modes.DefaultChanModeTypes()
	case "CHANTYPES":
		is.ChanTypes = defaultChanTypes
	case "NICKLEN":
		is.NickLen = 0
	case "NETWORK":
		is.Network = ""
	}
}

// IsChannelName reports whether target names a channel under the
// advertised channel type prefixes.
func (is *ISupport) IsChannelName(target string) bool {
	if len(target) == 0 {
		return false
	}
	return strings.ContainsRune(is.ChanTypes, rune(target[0]))
}

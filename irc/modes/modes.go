// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package modes

import (
	"strings"

	"github.com/namdaets/ircclient/irc/utils"
)

// ModeOp is an operation performed with modes
type ModeOp rune

const (
	// Add is used when adding the given mode.
	Add ModeOp = '+'
	// Remove is used when taking away the given mode.
	Remove ModeOp = '-'
)

// Mode represents a user/channel mode
type Mode rune

func (mode Mode) String() string {
	return string(mode)
}

// ModeChange is a single mode changing
type ModeChange struct {
	Mode Mode
	Op   ModeOp
	Arg  string
}

// ModeChanges are a collection of 'ModeChange's
type ModeChanges []ModeChange

// Strings returns the wire representation of the changes: a mode string
// followed by the arguments in order.
func (changes ModeChanges) Strings() (result []string) {
	if len(changes) == 0 {
		return
	}

	var builder strings.Builder

	op := changes[0].Op
	builder.WriteRune(rune(op))

	for _, change := range changes {
		if change.Op != op {
			op = change.Op
			builder.WriteRune(rune(op))
		}
		builder.WriteRune(rune(change.Mode))
	}

	result = append(result, builder.String())

	for _, change := range changes {
		if change.Arg == "" {
			continue
		}
		result = append(result, change.Arg)
	}
	return
}

// Modes is just a raw list of modes
type Modes []Mode

func (modes Modes) String() string {
	var builder strings.Builder
	for _, m := range modes {
		builder.WriteRune(rune(m))
	}
	return builder.String()
}

// Channel membership prefix modes, in descending order of precedence.
// Servers may advertise a different table via ISUPPORT PREFIX; this is
// the conventional default.
var (
	ChannelFounder  Mode = 'q' // prefix ~
	ChannelAdmin    Mode = 'a' // prefix &
	ChannelOperator Mode = 'o' // prefix @
	Halfop          Mode = 'h' // prefix %
	Voice           Mode = 'v' // prefix +

	DefaultUserModes = Modes{
		ChannelFounder, ChannelAdmin, ChannelOperator, Halfop, Voice,
	}

	DefaultUserPrefixes = []rune{'~', '&', '@', '%', '+'}
)

// PrefixTable maps channel membership modes (e.g. 'o') to the prefix
// characters that decorate nicknames in NAMES replies (e.g. '@'), in
// descending order of precedence. It is built from ISUPPORT PREFIX.
type PrefixTable struct {
	Modes    Modes
	Prefixes []rune
}

// DefaultPrefixTable returns the conventional (qaohv)~&@%+ table.
func DefaultPrefixTable() PrefixTable {
	return PrefixTable{
		Modes:    DefaultUserModes,
		Prefixes: DefaultUserPrefixes,
	}
}

// ParsePrefixToken parses an ISUPPORT PREFIX value such as "(qaohv)~&@%+".
// A malformed token yields ok == false and the caller should keep the
// previous table.
func ParsePrefixToken(token string) (table PrefixTable, ok bool) {
	if len(token) == 0 || token[0] != '(' {
		return
	}
	closeIdx := strings.IndexByte(token, ')')
	if closeIdx == -1 {
		return
	}
	modeChars := token[1:closeIdx]
	prefixChars := token[closeIdx+1:]
	if len(modeChars) != len(prefixChars) || len(modeChars) == 0 {
		return
	}
	for i := 0; i < len(modeChars); i++ {
		table.Modes = append(table.Modes, Mode(modeChars[i]))
		table.Prefixes = append(table.Prefixes, rune(prefixChars[i]))
	}
	return table, true
}

// HasMode returns whether the table contains the given membership mode.
func (table PrefixTable) HasMode(mode Mode) bool {
	for _, m := range table.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// ModeForPrefix returns the membership mode for a prefix character.
func (table PrefixTable) ModeForPrefix(prefix rune) (mode Mode, ok bool) {
	for i, p := range table.Prefixes {
		if p == prefix {
			return table.Modes[i], true
		}
	}
	return
}

// SplitMembershipPrefixes takes a nickname as it appears in a NAMES reply
// and splits the leading membership prefixes from the bare nick.
func (table PrefixTable) SplitMembershipPrefixes(decorated string) (prefixModes Modes, nick string) {
	nick = decorated
	for len(nick) > 0 {
		mode, ok := table.ModeForPrefix(rune(nick[0]))
		if !ok {
			return
		}
		prefixModes = append(prefixModes, mode)
		nick = nick[1:]
	}
	return
}

// ChanModeTypes describes which channel modes take arguments, per the
// ISUPPORT CHANMODES classification: type A modes are lists (always an
// argument), type B always take an argument, type C take one only when
// set, type D never do.
type ChanModeTypes struct {
	A string
	B string
	C string
	D string
}

// DefaultChanModeTypes returns the RFC 2811 baseline classification.
func DefaultChanModeTypes() ChanModeTypes {
	return ChanModeTypes{
		A: "beI",
		B: "k",
		C: "l",
		D: "imnpst",
	}
}

// ParseChanModesToken parses an ISUPPORT CHANMODES value such as
// "beI,k,l,imnpst". Extra comma groups are ignored.
func ParseChanModesToken(token string) (types ChanModeTypes, ok bool) {
	groups := strings.Split(token, ",")
	if len(groups) < 4 {
		return
	}
	types.A = groups[0]
	types.B = groups[1]
	types.C = groups[2]
	types.D = groups[3]
	return types, true
}

// ParseChanges interprets the parameters of a MODE line as seen by a
// client: a mode string of +/- and mode characters, followed by the
// arguments consumed by the modes that take one. Membership modes always
// take a nickname argument. Unknown mode characters are assumed to take
// no argument and are reported in unknown.
func ParseChanges(types ChanModeTypes, table PrefixTable, params ...string) (changes ModeChanges, unknown []rune) {
	if len(params) == 0 {
		return
	}

	op := Add
	modeArg := params[0]
	skipArgs := 1

	for _, modeChar := range modeArg {
		if modeChar == '-' || modeChar == '+' {
			op = ModeOp(modeChar)
			continue
		}
		change := ModeChange{
			Mode: Mode(modeChar),
			Op:   op,
		}

		known := true
		takesArg := false
		switch {
		case table.HasMode(change.Mode):
			takesArg = true
		case strings.ContainsRune(types.A, modeChar):
			takesArg = true
		case strings.ContainsRune(types.B, modeChar):
			takesArg = true
		case strings.ContainsRune(types.C, modeChar):
			takesArg = op == Add
		case strings.ContainsRune(types.D, modeChar):
		default:
			known = false
		}

		if takesArg && len(params) > skipArgs {
			change.Arg = params[skipArgs]
			skipArgs++
		}

		if known {
			changes = append(changes, change)
		} else {
			unknown = append(unknown, modeChar)
			changes = append(changes, change)
		}
	}

	return changes, unknown
}

// ModeSet holds a set of modes.
type ModeSet [2]uint32

// valid modes go from 65 ('A') to 122 ('z'), making at most 58 possible values;
// subtract 65 from the mode value and use that bit of the uint32 to represent it
const (
	minMode = 65  // 'A'
	maxMode = 122 // 'z'
)

// NewModeSet returns a pointer to a new ModeSet
func NewModeSet() *ModeSet {
	var set ModeSet
	return &set
}

// Clear removes all modes from the set.
func (set *ModeSet) Clear() {
	utils.BitsetClear(set[:])
}

// HasMode tests whether `mode` is set
func (set *ModeSet) HasMode(mode Mode) bool {
	if set == nil {
		return false
	}
	if mode < minMode || mode > maxMode {
		return false
	}

	return utils.BitsetGet(set[:], uint(mode)-minMode)
}

// SetMode sets `mode` to be on or off, returning whether the value actually changed
func (set *ModeSet) SetMode(mode Mode, on bool) (applied bool) {
	if mode < minMode || mode > maxMode {
		return false
	}
	return utils.BitsetSet(set[:], uint(mode)-minMode, on)
}

// Empty returns whether the set contains no modes.
func (set *ModeSet) Empty() bool {
	if set == nil {
		return true
	}
	return utils.BitsetEmpty(set[:])
}

// AllModes returns the modes in the set as a slice
func (set *ModeSet) AllModes() (result Modes) {
	if set == nil {
		return
	}

	var i Mode
	for i = minMode; i <= maxMode; i++ {
		if set.HasMode(i) {
			result = append(result, i)
		}
	}
	return
}

// String returns the modes in this set.
func (set *ModeSet) String() (result string) {
	if set == nil {
		return
	}

	var buf strings.Builder
	for _, mode := range set.AllModes() {
		buf.WriteRune(rune(mode))
	}
	return buf.String()
}

// HighestOf returns the most privileged membership mode in the set,
// according to the precedence order of the given prefix table. If none
// are present it returns the zero mode.
func (set *ModeSet) HighestOf(table PrefixTable) (result Mode) {
	for _, mode := range table.Modes {
		if set.HasMode(mode) {
			return mode
		}
	}
	return
}

// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"strings"

	"golang.org/x/text/secure/precis"
)

// CaseMapping is a scheme for case-insensitive comparison of nicknames
// and channel names. The server declares its scheme via the ISUPPORT
// CASEMAPPING token; rfc1459 is the protocol default.
type CaseMapping uint

const (
	// CaseMappingRFC1459 treats {}|^ as the lowercase equivalents of []\~.
	CaseMappingRFC1459 CaseMapping = iota
	// CaseMappingRFC1459Strict is rfc1459 without the ^/~ equivalence.
	CaseMappingRFC1459Strict
	// CaseMappingASCII folds only a-z/A-Z.
	CaseMappingASCII
	// CaseMappingPRECIS folds per the PRECIS UsernameCaseMapped profile
	// (advertised by some modern servers as rfc8265).
	CaseMappingPRECIS
)

// ParseCaseMapping translates an ISUPPORT CASEMAPPING value. Unrecognized
// values yield ok == false and the caller should keep the current scheme.
func ParseCaseMapping(value string) (mapping CaseMapping, ok bool) {
	switch strings.ToLower(value) {
	case "rfc1459":
		return CaseMappingRFC1459, true
	case "strict-rfc1459", "rfc1459-strict":
		return CaseMappingRFC1459Strict, true
	case "ascii":
		return CaseMappingASCII, true
	case "precis", "rfc8265":
		return CaseMappingPRECIS, true
	default:
		return
	}
}

func foldASCIIByte(chr byte) byte {
	if 'A' <= chr && chr <= 'Z' {
		return chr + ('a' - 'A')
	}
	return chr
}

// Each pass of PRECIS casefolding is a composition of idempotent operations,
// but not idempotent itself. Therefore, the spec says "do it four times and
// hope it converges".
func iterateFolding(profile *precis.Profile, oldStr string) (str string, err error) {
	str = oldStr
	for i := 0; i < 4; i++ {
		str, err = profile.CompareKey(str)
		if err != nil {
			return "", err
		}
		if oldStr == str {
			break
		}
		oldStr = str
	}
	if oldStr != str {
		return "", errCouldNotStabilize
	}
	return str, nil
}

// Fold returns the canonical lowercase form of name under the mapping.
// All identity comparisons (membership lookups, self-nick detection,
// channel lookups) must go through this.
func (mapping CaseMapping) Fold(name string) string {
	if mapping == CaseMappingPRECIS {
		if folded, err := iterateFolding(precis.UsernameCaseMapped, name); err == nil {
			return folded
		}
		// a name PRECIS rejects still needs a canonical form; fall back to ascii
	}

	var builder strings.Builder
	builder.Grow(len(name))
	for i := 0; i < len(name); i++ {
		chr := foldASCIIByte(name[i])
		if mapping == CaseMappingRFC1459 || mapping == CaseMappingRFC1459Strict {
			switch chr {
			case '[':
				chr = '{'
			case ']':
				chr = '}'
			case '\\':
				chr = '|'
			}
			if mapping == CaseMappingRFC1459 && chr == '~' {
				chr = '^'
			}
		}
		builder.WriteByte(chr)
	}
	return builder.String()
}

// channel name prefixes per RFC 2811; servers may restrict these via
// ISUPPORT CHANTYPES
const defaultChanTypes = "#&+!"

// ValidateChannel checks that name is usable as a channel name under the
// given channel type prefixes.
func ValidateChannel(name string, chanTypes string) error {
	if len(name) == 0 {
		return errStringIsEmpty
	}
	if !strings.ContainsRune(chanTypes, rune(name[0])) {
		return errInvalidCharacter
	}
	if len(name) > 64 {
		return errInvalidCharacter
	}
	// space and comma are separators, \x07 (BEL) is forbidden by RFC 2811
	if strings.ContainsAny(name, " ,\x07\x00\r\n") {
		return errInvalidCharacter
	}
	return nil
}

// ValidateNickname checks that name is usable as a nickname.
func ValidateNickname(name string) error {
	if len(name) == 0 {
		return errStringIsEmpty
	}
	// space can't be used
	// , is used as a separator
	// * and ? are used in mask matching
	// . denotes a server name
	// ! separates nickname from username
	// @ separates username from hostname
	// : means trailing
	if strings.ContainsAny(name, " ,*?.!@:\x00\r\n") {
		return errInvalidCharacter
	}
	// # & + ! are channel prefixes, ~&@%+ are membership prefixes,
	// $ is a server mask; none can start a nickname
	if strings.ContainsAny(string(name[0]), "#&+!~@%$:") || ('0' <= name[0] && name[0] <= '9') || name[0] == '-' {
		return errInvalidCharacter
	}
	return nil
}

// ValidateText checks that a message body or freeform argument cannot
// break out of its line.
func ValidateText(text string) error {
	if strings.ContainsAny(text, "\x00\r\n") {
		return errInvalidCharacter
	}
	return nil
}

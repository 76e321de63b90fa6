// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import "fmt"

// SemVer is the semantic version of ircclient.
const SemVer = "1.0.0"

var (
	// Ver is the full version of ircclient, used in CTCP VERSION replies.
	Ver = fmt.Sprintf("ircclient-%s", SemVer)
	// Commit is the full git hash, if available
	Commit string
)

// initialize version strings (these are set in package main via linker flags)
func SetVersionString(version, commit string) {
	Commit = commit
	if version != "" {
		Ver = fmt.Sprintf("ircclient-%s", version)
	} else if len(Commit) == 40 {
		Ver = fmt.Sprintf("ircclient-%s-%s", SemVer, Commit[:16])
	}
}

const (
	// CTCPDelim frames CTCP requests and replies inside PRIVMSG/NOTICE text.
	CTCPDelim = '\x01'
)

// numeric replies handled by the dispatcher
const (
	RPL_WELCOME       = "001"
	RPL_YOURHOST      = "002"
	RPL_CREATED       = "003"
	RPL_MYINFO        = "004"
	RPL_ISUPPORT      = "005"
	RPL_UMODEIS       = "221"
	RPL_AWAY          = "301"
	RPL_WHOISUSER     = "311"
	RPL_WHOISSERVER   = "312"
	RPL_WHOISOPERATOR = "313"
	RPL_WHOISIDLE     = "317"
	RPL_ENDOFWHOIS    = "318"
	RPL_WHOISCHANNELS = "319"
	RPL_CHANNELMODEIS = "324"
	RPL_NOTOPIC       = "331"
	RPL_TOPIC         = "332"
	RPL_TOPICTIME     = "333"
	RPL_NAMREPLY      = "353"
	RPL_ENDOFNAMES    = "366"
	RPL_MOTD          = "372"
	RPL_MOTDSTART     = "375"
	RPL_ENDOFMOTD     = "376"

	ERR_NOSUCHNICK       = "401"
	ERR_NOSUCHCHANNEL    = "403"
	ERR_NOMOTD           = "422"
	ERR_ERRONEUSNICKNAME = "432"
	ERR_NICKNAMEINUSE    = "433"
	ERR_NICKCOLLISION    = "436"
	ERR_NOTREGISTERED    = "451"
	ERR_PASSWDMISMATCH   = "464"

	RPL_LOGGEDIN    = "900"
	RPL_LOGGEDOUT   = "901"
	ERR_NICKLOCKED  = "902"
	RPL_SASLSUCCESS = "903"
	ERR_SASLFAIL    = "904"
	ERR_SASLTOOLONG = "905"
	ERR_SASLABORTED = "906"
	ERR_SASLALREADY = "907"
)

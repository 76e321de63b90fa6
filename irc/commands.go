// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

// a serverHandler digests one parsed message from the server. Handlers
// run on the dispatch goroutine; they may mutate the session and publish
// events.
type serverHandler func(client *Client, msg Message)

// serverCommands maps normalized command names and numerics to their
// handlers. Anything absent falls through to unknownHandler.
var serverCommands = map[string]serverHandler{
	"PING":         pingHandler,
	"PONG":         pongHandler,
	"PRIVMSG":      privmsgHandler,
	"NOTICE":       privmsgHandler,
	"JOIN":         joinHandler,
	"PART":         partHandler,
	"KICK":         kickHandler,
	"QUIT":         quitHandler,
	"NICK":         nickHandler,
	"TOPIC":        topicHandler,
	"MODE":         modeHandler,
	"ERROR":        errorHandler,
	"CAP":          capHandler,
	"AUTHENTICATE": authenticateHandler,

	RPL_WELCOME:  welcomeHandler,
	RPL_ISUPPORT: isupportHandler,

	RPL_UMODEIS:       umodeisHandler,
	RPL_CHANNELMODEIS: channelmodeisHandler,

	RPL_NOTOPIC:   notopicHandler,
	RPL_TOPIC:     topicReplyHandler,
	RPL_TOPICTIME: topicTimeHandler,

	RPL_NAMREPLY:   namreplyHandler,
	RPL_ENDOFNAMES: endofnamesHandler,

	RPL_WHOISUSER:     whoisUserHandler,
	RPL_WHOISSERVER:   whoisServerHandler,
	RPL_WHOISOPERATOR: whoisNoticeHandler,
	RPL_WHOISIDLE:     whoisIdleHandler,
	RPL_WHOISCHANNELS: whoisChannelsHandler,
	RPL_ENDOFWHOIS:    endofwhoisHandler,

	RPL_AWAY:      awayHandler,
	RPL_MOTDSTART: motdHandler,
	RPL_MOTD:      motdHandler,
	RPL_ENDOFMOTD: motdHandler,
	ERR_NOMOTD:    motdHandler,

	ERR_ERRONEUSNICKNAME: nickUnavailableHandler,
	ERR_NICKNAMEINUSE:    nickUnavailableHandler,
	ERR_NICKCOLLISION:    nickUnavailableHandler,
	ERR_PASSWDMISMATCH:   passwdMismatchHandler,

	RPL_LOGGEDIN:    saslNoticeHandler,
	RPL_LOGGEDOUT:   saslNoticeHandler,
	RPL_SASLSUCCESS: saslSuccessHandler,
	ERR_NICKLOCKED:  saslFailHandler,
	ERR_SASLFAIL:    saslFailHandler,
	ERR_SASLTOOLONG: saslFailHandler,
	ERR_SASLABORTED: saslFailHandler,
	ERR_SASLALREADY: saslNoticeHandler,
}

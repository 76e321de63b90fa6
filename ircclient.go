// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	"github.com/namdaets/ircclient/irc"
	"github.com/namdaets/ircclient/irc/logger"
)

//go:embed default.yaml
var defaultConfig string

// set via linker flags, either by make or by goreleaser:
var commit = ""  // git hash
var version = "" // tagged version

func main() {
	irc.SetVersionString(version, commit)
	usage := `ircclient.
Usage:
	ircclient run [--conf <filename>] [--quiet]
	ircclient defaultconfig
	ircclient -h | --help
	ircclient --version
Options:
	--conf <filename>  Configuration file to use [default: ircclient.yaml].
	--quiet            Don't show startup/shutdown lines.
	-h --help          Show this screen.
	--version          Show version.`

	arguments, _ := docopt.ParseArgs(usage, nil, irc.Ver)

	if arguments["defaultconfig"].(bool) {
		fmt.Print(defaultConfig)
		return
	}

	configfile := arguments["--conf"].(string)
	config, err := irc.LoadConfig(configfile)
	if err != nil {
		log.Fatal("Config file did not load successfully: ", err.Error())
	}

	logman, err := logger.NewManager(config.Logging)
	if err != nil {
		log.Fatal("Logger did not load successfully: ", err.Error())
	}

	if !arguments["run"].(bool) {
		return
	}

	if !arguments["--quiet"].(bool) {
		logman.Info("client", fmt.Sprintf("%s starting", irc.Ver))
	}

	client := irc.NewClient(config, logman)
	sub := client.Subscribe(irc.DefaultSubscriberQueueLen)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logman.Info("client", "shutting down")
		if err := client.Quit("shutting down"); err != nil {
			client.Shutdown()
		}
	}()

	if err := client.Connect(); err != nil {
		logman.Error("client", fmt.Sprintf("Could not connect: %s", err.Error()))
		os.Exit(1)
	}

	for ev := range sub.C {
		printEvent(ev)
		if done, exitCode := eventEndsRun(ev, config); done {
			os.Exit(exitCode)
		}
	}
}

// eventEndsRun decides whether an event terminates the foreground run:
// a disconnect does, unless reconnection is configured and the server
// (not the operator) ended the connection.
func eventEndsRun(ev irc.Event, config *irc.Config) (done bool, exitCode int) {
	dc, ok := ev.(irc.DisconnectedEvent)
	if !ok {
		return false, 0
	}
	if dc.Reason.Kind == irc.DisconnectUserRequested {
		return true, 0
	}
	if config.AutoReconnect {
		return false, 0
	}
	return true, 1
}

func printEvent(ev irc.Event) {
	switch ev := ev.(type) {
	case irc.ConnectedEvent:
		fmt.Printf("* connected to %s (tls=%v)\n", ev.Address, ev.TLS)
	case irc.RegisteredEvent:
		fmt.Printf("* registered as %s\n", ev.Nick)
	case irc.DisconnectedEvent:
		fmt.Printf("* disconnected (%s)\n", ev.Reason)
	case irc.MessageEvent:
		target := ev.Channel
		if target == "" {
			target = "(private)"
		}
		if ev.Notice {
			fmt.Printf("%s -%s- %s\n", target, ev.From, ev.PlainText)
		} else {
			fmt.Printf("%s <%s> %s\n", target, ev.From, ev.PlainText)
		}
	case irc.ActionEvent:
		fmt.Printf("%s * %s %s\n", ev.Channel, ev.From, ev.Text)
	case irc.CTCPEvent:
		fmt.Printf("* ctcp %s from %s: %s %s\n", kindOfCTCP(ev), ev.From, ev.Command, ev.Args)
	case irc.JoinedEvent:
		fmt.Printf("%s * %s joined\n", ev.Channel, ev.Nick)
	case irc.PartedEvent:
		fmt.Printf("%s * %s left (%s)\n", ev.Channel, ev.Nick, ev.Reason)
	case irc.KickedEvent:
		fmt.Printf("%s * %s was kicked by %s (%s)\n", ev.Channel, ev.Nick, ev.By, ev.Reason)
	case irc.QuitEvent:
		fmt.Printf("* %s quit (%s)\n", ev.Nick, ev.Reason)
	case irc.NickChangedEvent:
		fmt.Printf("* %s is now known as %s\n", ev.Old, ev.New)
	case irc.TopicChangedEvent:
		fmt.Printf("%s * topic: %s\n", ev.Channel, ev.Topic)
	case irc.ModeChangedEvent:
		fmt.Printf("%s * mode %v by %s\n", ev.Target, ev.Changes.Strings(), ev.By)
	case irc.NamesUpdatedEvent:
		fmt.Printf("%s * member list updated\n", ev.Channel)
	case irc.ServerNoticeEvent:
		fmt.Printf("* %s\n", ev.Text)
	case irc.WhoisEvent:
		fmt.Printf("* whois %s: %s@%s (%s) on %s, idle %s\n",
			ev.Nick, ev.Username, ev.Host, ev.Realname, ev.Channels, ev.Idle)
	case irc.ErrorEvent:
		fmt.Printf("* error (%s): %s\n", ev.Kind, ev.Detail)
	}
}

func kindOfCTCP(ev irc.CTCPEvent) string {
	if ev.Reply {
		return "reply"
	}
	return "request"
}


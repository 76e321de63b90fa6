// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"testing"

	"github.com/namdaets/ircclient/irc/modes"
)

func TestISupportApply(t *testing.T) {
	var is ISupport
	is.Initialize()

	is.Apply([]string{
		"tester",
		"CASEMAPPING=ascii",
		"PREFIX=(qov)~@+",
		"CHANMODES=beI,k,l,imnst",
		"CHANTYPES=#",
		"NICKLEN=20",
		"NETWORK=TestNet",
		"are supported by this server",
	})

	if is.CaseMapping != CaseMappingASCII {
		t.Errorf("CASEMAPPING not applied: %v", is.CaseMapping)
	}
	if mode, ok := is.Prefixes.ModeForPrefix('~'); !ok || mode != modes.Mode('q') {
		t.Errorf("PREFIX not applied: %v %v", mode, ok)
	}
	if is.ChanTypes != "#" {
		t.Errorf("CHANTYPES not applied: %q", is.ChanTypes)
	}
	if is.NickLen != 20 {
		t.Errorf("NICKLEN not applied: %d", is.NickLen)
	}
	if is.Network != "TestNet" {
		t.Errorf("NETWORK not applied: %q", is.Network)
	}
	if value, ok := is.Get("NICKLEN"); !ok || value != "20" {
		t.Errorf("token not recorded: %q %v", value, ok)
	}
	if is.IsChannelName("&local") {
		t.Errorf("IsChannelName ignored the restricted CHANTYPES")
	}
	if !is.IsChannelName("#chan") {
		t.Errorf("IsChannelName rejected a channel")
	}
}

func TestISupportAccumulates(t *testing.T) {
	var is ISupport
	is.Initialize()

	// tokens from multiple 005 lines accumulate
	is.Apply([]string{"tester", "NICKLEN=20", "are supported by this server"})
	is.Apply([]string{"tester", "NETWORK=TestNet", "are supported by this server"})

	if is.NickLen != 20 || is.Network != "TestNet" {
		t.Errorf("tokens did not accumulate: %d %q", is.NickLen, is.Network)
	}
}

func TestISupportWithdrawal(t *testing.T) {
	var is ISupport
	is.Initialize()

	is.Apply([]string{"tester", "CHANTYPES=#", "CASEMAPPING=ascii", "are supported by this server"})
	is.Apply([]string{"tester", "-CHANTYPES", "are supported by this server"})

	if is.ChanTypes != defaultChanTypes {
		t.Errorf("withdrawn CHANTYPES did not revert: %q", is.ChanTypes)
	}
	if is.CaseMapping != CaseMappingASCII {
		t.Errorf("unrelated token was disturbed")
	}
	if _, ok := is.Get("CHANTYPES"); ok {
		t.Errorf("withdrawn token still recorded")
	}
}

func TestISupportIgnoresGarbage(t *testing.T) {
	var is ISupport
	is.Initialize()

	is.Apply([]string{"tester", "CASEMAPPING=klingon", "NICKLEN=potato", "are supported by this server"})

	if is.CaseMapping != CaseMappingRFC1459 {
		t.Errorf("unrecognized casemapping changed the scheme")
	}
	if is.NickLen != 0 {
		t.Errorf("unparseable NICKLEN was applied: %d", is.NickLen)
	}
}

// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"reflect"
	"testing"
	"time"

	"github.com/namdaets/ircclient/irc/modes"
)

func TestSessionChannelIdentity(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#Foo")

	// rfc1459 is the default casemapping
	if !session.IsOnChannel("#foo") || !session.IsOnChannel("#FOO") {
		t.Errorf("channel lookup is not case-insensitive")
	}
	session.addChannel("#weird[]")
	if !session.IsOnChannel("#weird{}") {
		t.Errorf("rfc1459 folding not applied to channel names")
	}

	// the display forms are preserved
	if channels := session.Channels(); !reflect.DeepEqual(channels, []string{"#Foo", "#weird[]"}) {
		t.Errorf("got channels %v", channels)
	}

	session.removeChannel("#fOO")
	if session.IsOnChannel("#Foo") {
		t.Errorf("removeChannel did not fold")
	}
}

func TestSessionNames(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#go")

	session.accumulateNames("#go", []string{"@Alice", "+bob"})
	session.accumulateNames("#go", []string{"carol"})

	// nothing is visible until the end of the list
	if members := session.MembersOf("#go"); len(members) != 0 {
		t.Fatalf("partial NAMES list became visible: %v", members)
	}

	if !session.endNames("#go") {
		t.Fatal("endNames did not find the channel")
	}
	members := session.MembersOf("#go")
	if !reflect.DeepEqual(members, []string{"Alice", "bob", "carol"}) {
		t.Errorf("got members %v", members)
	}

	// membership prefixes became modes
	if ms := session.ModesOf("#go", "alice"); len(ms) != 1 || ms[0] != modes.Mode('o') {
		t.Errorf("got modes %v for alice", ms)
	}
	if ms := session.ModesOf("#go", "BOB"); len(ms) != 1 || ms[0] != modes.Mode('v') {
		t.Errorf("got modes %v for bob", ms)
	}
	if ms := session.ModesOf("#go", "carol"); len(ms) != 0 {
		t.Errorf("got modes %v for carol", ms)
	}

	// a fresh NAMES run replaces the member list wholesale
	session.accumulateNames("#go", []string{"dave"})
	session.endNames("#go")
	if members := session.MembersOf("#go"); !reflect.DeepEqual(members, []string{"dave"}) {
		t.Errorf("member list was not replaced: %v", members)
	}
}

func TestSessionEndNamesUnknownChannel(t *testing.T) {
	session := NewSession(false)
	if session.endNames("#nowhere") {
		t.Errorf("endNames invented a channel")
	}
	session.accumulateNames("#nowhere", []string{"ghost"})
	if session.endNames("#nowhere") {
		t.Errorf("endNames applied names for a channel we are not on")
	}
}

func TestSessionMembership(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#a")
	session.addChannel("#b")
	session.addMember("#a", "alice", nil)
	session.addMember("#b", "alice", nil)
	session.addMember("#a", "bob", nil)

	channels := session.removeNickEverywhere("ALICE")
	if !reflect.DeepEqual(channels, []string{"#a", "#b"}) {
		t.Errorf("got channels %v", channels)
	}
	if members := session.MembersOf("#a"); !reflect.DeepEqual(members, []string{"bob"}) {
		t.Errorf("got members %v", members)
	}
}

func TestSessionRenameNick(t *testing.T) {
	session := NewSession(false)
	session.setNick("tester")
	session.addChannel("#go")
	session.addMember("#go", "tester", nil)
	session.addMember("#go", "alice", modes.Modes{modes.Mode('o')})

	if isSelf := session.renameNick("alice", "alicia"); isSelf {
		t.Errorf("someone else's rename was attributed to us")
	}
	if ms := session.ModesOf("#go", "alicia"); len(ms) != 1 {
		t.Errorf("membership modes lost in rename: %v", ms)
	}

	if isSelf := session.renameNick("TESTER", "tester2"); !isSelf {
		t.Errorf("own rename not detected")
	}
	if nick := session.CurrentNick(); nick != "tester2" {
		t.Errorf("own nick not updated: %q", nick)
	}
}

func TestSessionModeChanges(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#go")
	session.addMember("#go", "alice", nil)

	changes, unknown := modes.ParseChanges(session.chanModeTypes(), session.prefixTable(),
		"+no", "alice")
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown modes: %v", unknown)
	}
	session.applyModeChanges("#go", changes)

	if ms := session.ChannelModes("#go"); len(ms) != 1 || ms[0] != modes.Mode('n') {
		t.Errorf("channel modes: %v", ms)
	}
	if ms := session.ModesOf("#go", "alice"); len(ms) != 1 || ms[0] != modes.Mode('o') {
		t.Errorf("membership modes: %v", ms)
	}

	changes, _ = modes.ParseChanges(session.chanModeTypes(), session.prefixTable(), "-o", "alice")
	session.applyModeChanges("#go", changes)
	if ms := session.ModesOf("#go", "alice"); len(ms) != 0 {
		t.Errorf("mode removal failed: %v", ms)
	}
}

func TestSessionTopic(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#go")
	session.setTopic("#go", "welcome", "alice", time.Unix(1596308133, 0))

	topic, ok := session.Topic("#GO")
	if !ok || topic != "welcome" {
		t.Errorf("got topic %q, %v", topic, ok)
	}
	if _, ok := session.Topic("#elsewhere"); ok {
		t.Errorf("found a topic for a channel we are not on")
	}
}

func TestSessionClearChannels(t *testing.T) {
	session := NewSession(false)
	session.addChannel("#a")
	session.accumulateNames("#a", []string{"alice"})
	session.clearChannels()
	if len(session.Channels()) != 0 {
		t.Errorf("channels survived clearChannels")
	}
	if session.endNames("#a") {
		t.Errorf("pending names survived clearChannels")
	}
}

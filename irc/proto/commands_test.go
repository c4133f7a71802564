// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardirc/boardirc/irc/modes"
)

func parseOK(t *testing.T, line string) Command {
	t.Helper()
	msg, err := ParseMessage(line)
	require.NoError(t, err, line)
	return msg.Command()
}

func TestJoinTrailing(t *testing.T) {
	join := parseOK(t, "JOIN #a,,#b :extra").(Join)
	assert.Equal(t, []string{"#a", "#b"}, join.Channels)
	assert.Equal(t, []string{}, join.Keys)
	require.NotNil(t, join.Trailing)
	assert.Equal(t, "extra", *join.Trailing)
}

func TestPartAndList(t *testing.T) {
	part := parseOK(t, "PART #a,#b :bye now").(Part)
	assert.Equal(t, []string{"#a", "#b"}, part.Channels)
	require.NotNil(t, part.Comment)
	assert.Equal(t, "bye now", *part.Comment)

	part = parseOK(t, "PART").(Part)
	assert.Empty(t, part.Channels)
	assert.Nil(t, part.Comment)

	list := parseOK(t, "LIST").(List)
	assert.Equal(t, []string{}, list.Channels)
	assert.Nil(t, list.Target)

	names := parseOK(t, "NAMES #x,#y").(Names)
	assert.Equal(t, []string{"#x", "#y"}, names.Channels)
}

func TestUserRealnameFromTrailing(t *testing.T) {
	user := parseOK(t, "USER alice localhost 127.0.0.1 :Alice Liddell").(User)
	assert.Equal(t, User{Username: "alice", Hostname: "localhost", Server: "127.0.0.1", Realname: "Alice Liddell"}, user)

	user = parseOK(t, "USER bob host srv bob").(User)
	assert.Equal(t, "bob", user.Realname)
}

func TestQuitAndPong(t *testing.T) {
	quit := parseOK(t, "QUIT").(Quit)
	assert.Nil(t, quit.Comment)

	quit = parseOK(t, "QUIT :gone fishing").(Quit)
	require.NotNil(t, quit.Comment)
	assert.Equal(t, "gone fishing", *quit.Comment)

	pong := parseOK(t, "PONG 127.0.0.1:6667 :12345").(Pong)
	assert.Equal(t, "127.0.0.1:6667", pong.Server)
	require.NotNil(t, pong.Server2)
	assert.Equal(t, "12345", *pong.Server2)
}

func TestModeSplit(t *testing.T) {
	cmode := parseOK(t, "MODE #chan +lk-t 10 sekrit").(ChannelMode)
	assert.Equal(t, "#chan", cmode.Channel)
	assert.Equal(t, []modes.ChannelModeChange{
		{Mode: modes.UserLimit, Op: modes.Add, Arg: "10"},
		{Mode: modes.Key, Op: modes.Add, Arg: "sekrit"},
		{Mode: modes.OpOnlyTopic, Op: modes.Remove},
	}, cmode.Changes)
	assert.Nil(t, cmode.Unknown)

	umode := parseOK(t, "MODE alice +iZ").(UserMode)
	assert.Equal(t, "alice", umode.Nickname)
	assert.Equal(t, []modes.UserModeChange{{Mode: modes.Invisible, Op: modes.Add}}, umode.Changes)
	assert.True(t, umode.Unknown['Z'])

	// a channel without a prefix looks like a nick until the registry says otherwise
	cmode = parseOK(t, "MODE Welcome +l 5").(UserMode).ChannelMode()
	assert.Equal(t, "Welcome", cmode.Channel)
	assert.Equal(t, []modes.ChannelModeChange{{Mode: modes.UserLimit, Op: modes.Add, Arg: "5"}}, cmode.Changes)
}

func TestWhoisForms(t *testing.T) {
	whois := parseOK(t, "WHOIS alice,bob").(Whois)
	assert.Nil(t, whois.Target)
	assert.Equal(t, []string{"alice", "bob"}, whois.Masks)

	whois = parseOK(t, "WHOIS srv alice").(Whois)
	require.NotNil(t, whois.Target)
	assert.Equal(t, "srv", *whois.Target)
	assert.Equal(t, []string{"alice"}, whois.Masks)

	who := parseOK(t, "WHO *.example o").(Who)
	assert.True(t, who.OperOnly)
}

func TestRestAndEmptyVerbs(t *testing.T) {
	ison := parseOK(t, "ISON alice bob :carol").(Ison)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ison.Nicknames)

	assert.Equal(t, Rehash{}, parseOK(t, "REHASH"))
	assert.Equal(t, "DIE", parseOK(t, "DIE").Verb())

	_, err := ParseMessage("USERHOST")
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestNumericReply(t *testing.T) {
	reply := parseOK(t, ":srv 001 alice :Welcome to the network").(Reply)
	assert.Equal(t, uint16(1), reply.Code)
	assert.Equal(t, "001", reply.Verb())
	assert.Equal(t, []string{"alice", "Welcome to the network"}, reply.Params)

	// four digits is not a numeric
	_, ok := parseOK(t, "1234 x").(Raw)
	assert.True(t, ok)
}

func TestParseCommandSection(t *testing.T) {
	cmd, err := ParseCommand("JOIN #a,#b k1")
	require.NoError(t, err)
	assert.Equal(t, Join{Channels: []string{"#a", "#b"}, Keys: []string{"k1"}}, cmd)

	cmd, err = ParseCommand("some words")
	require.NoError(t, err)
	assert.Equal(t, Raw{Text: "some words"}, cmd)

	_, err = ParseCommand("")
	assert.ErrorIs(t, err, ErrEmptyString)
	_, err = ParseCommand("  ")
	assert.ErrorIs(t, err, ErrNoCommandFound)
	_, err = ParseCommand("KICK #a")
	assert.ErrorIs(t, err, ErrMissingArgument)
}

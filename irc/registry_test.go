// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardirc/boardirc/irc/kv"
	"github.com/boardirc/boardirc/irc/modes"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := kv.BuntdbOpen(kv.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewRegistry(store)
}

func TestConcurrentJoinCreatesOnce(t *testing.T) {
	reg := newTestRegistry(t)
	const sessions = 64

	var created atomic.Int32
	var wg sync.WaitGroup
	ids := make([]UserID, sessions)
	for i := range ids {
		ids[i] = UserID(fmt.Sprintf("user-%02d", i))
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id UserID) {
			defer wg.Done()
			// repeated joins are idempotent
			for j := 0; j < 3; j++ {
				if reg.JoinChannel("#race", id) {
					created.Add(1)
				}
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	members, err := reg.Members("#race")
	require.NoError(t, err)
	assert.Equal(t, ids, members)
}

func TestLeaveChannelNoop(t *testing.T) {
	reg := newTestRegistry(t)
	reg.JoinChannel("#a", "alice")

	reg.LeaveChannel("#a", "mallory")
	reg.LeaveChannel("#nonexistent", "alice")

	members, err := reg.Members("#a")
	require.NoError(t, err)
	assert.Equal(t, []UserID{"alice"}, members)

	reg.LeaveChannel("#a", "alice")
	members, _ = reg.Members("#a")
	assert.Empty(t, members)
	// the channel itself outlives its members
	assert.Equal(t, []string{"#a"}, reg.ListChannels())
}

func TestBoardOrder(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.EnsureBoard("#a"))
	for _, line := range []string{"L1", "L2", "L3"} {
		require.NoError(t, reg.PostMessage("#a", line))
	}
	// idempotent
	require.NoError(t, reg.EnsureBoard("#a"))

	lines, err := reg.ReadBoard("#a")
	require.NoError(t, err)
	assert.Equal(t, []string{boardMarker("#a"), "L1", "L2", "L3"}, lines)
	assert.Equal(t, "NOTICE #a :*** beginning of channel #a", lines[0])

	length, err := reg.BoardLen("#a")
	require.NoError(t, err)
	assert.Equal(t, 4, length)
}

func TestBoardsDontBleed(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.EnsureBoard("#a"))
	require.NoError(t, reg.EnsureBoard("#ab"))
	require.NoError(t, reg.PostMessage("#ab", "in ab"))
	for i := 0; i < 12; i++ {
		require.NoError(t, reg.PostMessage("#a", fmt.Sprintf("line %d", i)))
	}

	lines, err := reg.ReadBoard("#a")
	require.NoError(t, err)
	require.Len(t, lines, 13)
	assert.Equal(t, "line 9", lines[10])
	assert.Equal(t, "line 11", lines[12])

	lines, err = reg.ReadBoard("#ab")
	require.NoError(t, err)
	assert.Equal(t, []string{boardMarker("#ab"), "in ab"}, lines)
}

func TestPostToUnknownBoard(t *testing.T) {
	reg := newTestRegistry(t)
	assert.ErrorIs(t, reg.PostMessage("#nope", "hi"), ErrUnknownChannel)
	_, err := reg.ReadBoard("#nope")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestUserIdentityIsStable(t *testing.T) {
	reg := newTestRegistry(t)
	first := reg.RegisterUser(User{Username: "alice", Hostname: "localhost", Realname: "Alice", Server: "127.0.0.1"})
	second := reg.RegisterUser(User{Username: "alice", Hostname: "localhost", Realname: "Alice", Server: "127.0.0.1"})
	assert.NotEqual(t, first, second, "identical registrations must get distinct ids")

	require.NoError(t, reg.SetNick(first, "wonderland"))
	user, ok := reg.User(first)
	require.True(t, ok)
	assert.Equal(t, "wonderland", user.Nick)
	assert.Equal(t, "wonderland!alice@localhost", user.Sig())

	assert.Equal(t, []string{"alice", "wonderland"}, reg.ListUsers())
	assert.ErrorIs(t, reg.SetNick("nobody", "x"), ErrUnknownUser)

	channels, users := reg.Counts()
	assert.Equal(t, 0, channels)
	assert.Equal(t, 2, users)
}

func TestTopicsAndModes(t *testing.T) {
	reg := newTestRegistry(t)
	reg.JoinChannel("#a", "alice")
	reg.JoinChannel("#b", "alice")
	require.NoError(t, reg.SetTopic("#b", "all about b"))
	assert.ErrorIs(t, reg.SetTopic("#c", "x"), ErrUnknownChannel)

	assert.Equal(t, []string{"#a", "all about b"}, reg.ListTopics([]string{"#a", "#missing", "#b"}))

	changes, _ := modes.ParseChannelModeChanges("+ntl+o-m", "25", "bob")
	applied, err := reg.ApplyChannelModes("#a", changes)
	require.NoError(t, err)
	assert.Equal(t, []modes.ChannelModeChange{
		{Mode: modes.NoOutside, Op: modes.Add},
		{Mode: modes.OpOnlyTopic, Op: modes.Add},
		{Mode: modes.UserLimit, Op: modes.Add, Arg: "25"},
	}, applied)

	info, err := reg.Channel("#a")
	require.NoError(t, err)
	assert.Equal(t, "+lnt", info.Modes)
	require.NotNil(t, info.Limit)
	assert.Equal(t, 25, *info.Limit)
	assert.Nil(t, info.Topic)

	changes, _ = modes.ParseChannelModeChanges("-l")
	applied, err = reg.ApplyChannelModes("#a", changes)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	info, _ = reg.Channel("#a")
	assert.Nil(t, info.Limit)

	_, err = reg.ApplyChannelModes("#zzz", changes)
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

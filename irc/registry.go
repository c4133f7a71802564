// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/boardirc/boardirc/irc/kv"
	"github.com/boardirc/boardirc/irc/modes"
)

const (
	// "board.len <name>" -> number of lines on the board
	keyBoardLen = "board.len %s"
	// "board.line <name> <index>" -> one posted line; the index is zero-padded
	// so lines sort in append order
	keyBoardLine       = "board.line %s %020d"
	keyBoardLinePrefix = "board.line %s "
)

// Registry owns the server's channels, message boards and users. Each of the
// three collections has its own lock. An operation takes at most one of them at
// a time; when one logical step touches two collections it does so as separate
// steps in the order channels, boards, users. No lock is ever held across
// network I/O; every read returns a copy.
type Registry struct {
	channelsMutex sync.RWMutex // tier 1
	channels      map[string]*ChannelMeta

	boardsMutex sync.RWMutex // tier 2
	boards      kv.Store

	usersMutex sync.RWMutex // tier 3
	users      map[UserID]*User
}

// NewRegistry returns an empty registry whose boards live in store.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{
		channels: make(map[string]*ChannelMeta),
		boards:   store,
		users:    make(map[UserID]*User),
	}
}

// JoinChannel adds id to the channel's members, creating the channel if
// necessary. It reports whether this call created the channel; the caller must
// then make sure the channel's board exists (see EnsureBoard).
func (reg *Registry) JoinChannel(name string, id UserID) (created bool) {
	reg.channelsMutex.Lock()
	defer reg.channelsMutex.Unlock()

	channel, exists := reg.channels[name]
	if exists {
		channel.members.Add(id)
		return false
	}
	reg.channels[name] = newChannelMeta(name, id)
	return true
}

// LeaveChannel removes id from the channel's members. It is a no-op if the
// channel doesn't exist or id isn't a member. The board is unaffected.
func (reg *Registry) LeaveChannel(name string, id UserID) {
	reg.channelsMutex.Lock()
	defer reg.channelsMutex.Unlock()

	if channel, exists := reg.channels[name]; exists {
		channel.members.Remove(id)
	}
}

// EnsureBoard creates the board for name, seeded with a marker line, unless it
// already exists.
func (reg *Registry) EnsureBoard(name string) error {
	reg.boardsMutex.Lock()
	defer reg.boardsMutex.Unlock()

	return reg.boards.Update(func(tx kv.Tx) error {
		_, err := tx.Get(fmt.Sprintf(keyBoardLen, name))
		if err == nil {
			return nil
		} else if !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		return appendLine(tx, name, 0, boardMarker(name))
	})
}

// PostMessage appends line to the board for name. It fails with
// ErrUnknownChannel if that board doesn't exist yet.
func (reg *Registry) PostMessage(name, line string) error {
	reg.boardsMutex.Lock()
	defer reg.boardsMutex.Unlock()

	return reg.boards.Update(func(tx kv.Tx) error {
		length, err := boardLen(tx, name)
		if err != nil {
			return err
		}
		return appendLine(tx, name, length, line)
	})
}

// ReadBoard returns a copy of the board for name, in append order.
func (reg *Registry) ReadBoard(name string) (lines []string, err error) {
	reg.boardsMutex.RLock()
	defer reg.boardsMutex.RUnlock()

	err = reg.boards.View(func(tx kv.Tx) error {
		length, err := boardLen(tx, name)
		if err != nil {
			return err
		}
		lines = make([]string, 0, length)
		prefix := fmt.Sprintf(keyBoardLinePrefix, name)
		return tx.AscendGreaterOrEqual(prefix, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			lines = append(lines, value)
			return true
		})
	})
	return
}

// BoardLen returns the number of lines on the board for name.
func (reg *Registry) BoardLen(name string) (length int, err error) {
	reg.boardsMutex.RLock()
	defer reg.boardsMutex.RUnlock()

	err = reg.boards.View(func(tx kv.Tx) (err error) {
		length, err = boardLen(tx, name)
		return
	})
	return
}

func boardMarker(name string) string {
	return fmt.Sprintf("NOTICE %s :*** beginning of channel %s", name, name)
}

func boardLen(tx kv.Tx, name string) (length int, err error) {
	lenString, err := tx.Get(fmt.Sprintf(keyBoardLen, name))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, ErrUnknownChannel
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(lenString)
}

func appendLine(tx kv.Tx, name string, index int, line string) (err error) {
	if _, _, err = tx.Set(fmt.Sprintf(keyBoardLine, name, index), line); err != nil {
		return
	}
	_, _, err = tx.Set(fmt.Sprintf(keyBoardLen, name), strconv.Itoa(index+1))
	return
}

// RegisterUser stores user under a freshly generated identifier.
func (reg *Registry) RegisterUser(user User) UserID {
	id := UserID(uuid.NewString())

	reg.usersMutex.Lock()
	defer reg.usersMutex.Unlock()

	reg.users[id] = &user
	return id
}

// User returns a copy of the user registered under id.
func (reg *Registry) User(id UserID) (user User, ok bool) {
	reg.usersMutex.RLock()
	defer reg.usersMutex.RUnlock()

	if stored, exists := reg.users[id]; exists {
		return *stored, true
	}
	return
}

// SetNick changes a user's nickname. The user's identifier is unaffected.
func (reg *Registry) SetNick(id UserID, nick string) error {
	reg.usersMutex.Lock()
	defer reg.usersMutex.Unlock()

	user, exists := reg.users[id]
	if !exists {
		return ErrUnknownUser
	}
	user.Nick = nick
	return nil
}

// ListChannels returns the names of all channels, sorted.
func (reg *Registry) ListChannels() (names []string) {
	reg.channelsMutex.RLock()
	defer reg.channelsMutex.RUnlock()

	names = make([]string, 0, len(reg.channels))
	for name := range reg.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// ListTopics returns, for each named channel that exists, its topic, or its
// name if it has none. Unknown names are skipped.
func (reg *Registry) ListTopics(names []string) (topics []string) {
	reg.channelsMutex.RLock()
	defer reg.channelsMutex.RUnlock()

	topics = make([]string, 0, len(names))
	for _, name := range names {
		channel, exists := reg.channels[name]
		if !exists {
			continue
		}
		if channel.hasTopic {
			topics = append(topics, channel.topic)
		} else {
			topics = append(topics, channel.name)
		}
	}
	return
}

// ListUsers returns the display name of every registered user, sorted.
func (reg *Registry) ListUsers() (names []string) {
	reg.usersMutex.RLock()
	defer reg.usersMutex.RUnlock()

	names = make([]string, 0, len(reg.users))
	for _, user := range reg.users {
		names = append(names, user.DisplayName())
	}
	sort.Strings(names)
	return
}

// Channel returns a copy of the named channel's state.
func (reg *Registry) Channel(name string) (info ChannelInfo, err error) {
	reg.channelsMutex.RLock()
	defer reg.channelsMutex.RUnlock()

	channel, exists := reg.channels[name]
	if !exists {
		return info, ErrUnknownChannel
	}
	return channel.snapshot(), nil
}

// Channels returns a copy of every channel's state, sorted by name.
func (reg *Registry) Channels() (result []ChannelInfo) {
	reg.channelsMutex.RLock()
	defer reg.channelsMutex.RUnlock()

	result = make([]ChannelInfo, 0, len(reg.channels))
	for _, channel := range reg.channels {
		result = append(result, channel.snapshot())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return
}

// Members returns the identifiers of the channel's members, sorted.
func (reg *Registry) Members(name string) (members []UserID, err error) {
	reg.channelsMutex.RLock()
	defer reg.channelsMutex.RUnlock()

	channel, exists := reg.channels[name]
	if !exists {
		return nil, ErrUnknownChannel
	}
	return channel.memberList(), nil
}

// SetTopic sets the channel's topic.
func (reg *Registry) SetTopic(name, topic string) error {
	reg.channelsMutex.Lock()
	defer reg.channelsMutex.Unlock()

	channel, exists := reg.channels[name]
	if !exists {
		return ErrUnknownChannel
	}
	channel.topic, channel.hasTopic = topic, true
	return nil
}

// ApplyChannelModes applies changes to the channel and returns the ones that
// had an effect, in order.
func (reg *Registry) ApplyChannelModes(name string, changes []modes.ChannelModeChange) (applied []modes.ChannelModeChange, err error) {
	reg.channelsMutex.Lock()
	defer reg.channelsMutex.Unlock()

	channel, exists := reg.channels[name]
	if !exists {
		return nil, ErrUnknownChannel
	}
	for _, change := range changes {
		if channel.applyModeChange(change) {
			if change.Op == modes.Remove {
				change.Arg = ""
			}
			applied = append(applied, change)
		}
	}
	return
}

// Counts returns the number of channels and registered users.
func (reg *Registry) Counts() (channels, users int) {
	reg.channelsMutex.RLock()
	channels = len(reg.channels)
	reg.channelsMutex.RUnlock()

	reg.usersMutex.RLock()
	users = len(reg.users)
	reg.usersMutex.RUnlock()
	return
}

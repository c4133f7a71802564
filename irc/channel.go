// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"strconv"

	"github.com/boardirc/boardirc/irc/modes"
	"github.com/boardirc/boardirc/irc/utils"
)

// ChannelMeta is the registry's record of a channel. It is only accessed
// while holding the registry's channels lock.
type ChannelMeta struct {
	name     string
	flags    modes.ChannelModeSet
	members  utils.HashSet[UserID]
	topic    string
	hasTopic bool
	limit    int
	key      string
}

func newChannelMeta(name string, founder UserID) *ChannelMeta {
	channel := &ChannelMeta{
		name:    name,
		members: make(utils.HashSet[UserID]),
	}
	channel.members.Add(founder)
	return channel
}

// ChannelInfo is a point-in-time copy of a ChannelMeta.
type ChannelInfo struct {
	Name    string   `json:"name"`
	Modes   string   `json:"modes"`
	Members []UserID `json:"members"`
	Topic   *string  `json:"topic,omitempty"`
	Limit   *int     `json:"limit,omitempty"`
}

func (channel *ChannelMeta) snapshot() (info ChannelInfo) {
	info.Name = channel.name
	info.Modes = channel.flags.String()
	info.Members = channel.memberList()
	if channel.hasTopic {
		topic := channel.topic
		info.Topic = &topic
	}
	if channel.flags.Has(modes.UserLimit) {
		limit := channel.limit
		info.Limit = &limit
	}
	return
}

func (channel *ChannelMeta) memberList() []UserID {
	return utils.SortedKeys(channel.members)
}

// applyModeChange applies a single change, returning whether it did anything.
// Membership-list modes (o, v, b) aren't tracked; the key and limit are stored
// but not enforced on JOIN.
func (channel *ChannelMeta) applyModeChange(change modes.ChannelModeChange) (applied bool) {
	on := change.Op == modes.Add
	switch change.Mode {
	case modes.ChannelOperator, modes.Voice, modes.BanMask:
		return false
	case modes.UserLimit:
		if on {
			limit, err := strconv.Atoi(change.Arg)
			if err != nil || limit <= 0 {
				return false
			}
			channel.limit = limit
			channel.flags.SetMode(modes.UserLimit, true)
			return true
		}
		channel.limit = 0
		return channel.flags.SetMode(modes.UserLimit, false)
	case modes.Key:
		if on {
			channel.key = change.Arg
			channel.flags.SetMode(modes.Key, true)
			return true
		}
		channel.key = ""
		return channel.flags.SetMode(modes.Key, false)
	default:
		return channel.flags.SetMode(change.Mode, on)
	}
}

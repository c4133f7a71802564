// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/boardirc/boardirc/irc/modes"
	"github.com/boardirc/boardirc/irc/proto"
	"github.com/boardirc/boardirc/irc/utils"
)

const (
	// leaves room for the prefix and the other 353 parameters
	maxNamesLineLen = 400
)

// dispatch runs the handler for one parsed message. quit reports that the
// client asked to leave; err is fatal to the session.
func (session *Session) dispatch(msg proto.Message) (quit bool, err error) {
	switch cmd := msg.Command().(type) {
	case proto.Raw:
		err = rawHandler(session, msg)
	case proto.Join:
		err = joinHandler(session, cmd)
	case proto.Part:
		err = partHandler(session, cmd)
	case proto.List:
		err = listHandler(session, cmd)
	case proto.Names:
		err = namesHandler(session, cmd)
	case proto.Quit:
		return true, nil
	case proto.Nick:
		err = nickHandler(session, cmd)
	case proto.Topic:
		err = topicHandler(session, cmd)
	case proto.ChannelMode:
		err = modeHandler(session, cmd)
	case proto.UserMode:
		err = userModeHandler(session, cmd)
	case proto.Privmsg:
		err = messageHandler(session, RPL_PRIVMSG, cmd.Target, cmd.Text)
	case proto.Notice:
		err = messageHandler(session, RPL_NOTICE, cmd.Target, cmd.Text)
	case proto.Ping:
		err = pingHandler(session, cmd)
	default:
		// accepted, no effect
	}
	return false, err
}

// free text goes to the current channel
func rawHandler(session *Session, msg proto.Message) error {
	text := msg.Raw()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return session.post(RPL_PRIVMSG, session.current, text)
}

// JOIN <channels> [<keys>] [:<trailing>]
func joinHandler(session *Session, cmd proto.Join) error {
	return session.joinAndReplay(cmd.Channels)
}

// PART <channels> [:<comment>]
func partHandler(session *Session, cmd proto.Part) error {
	for _, name := range cmd.Channels {
		session.server.registry.LeaveChannel(name, session.userID)
	}
	return nil
}

// LIST [<channels>]
func listHandler(session *Session, cmd proto.List) error {
	registry := session.server.registry
	var entries []string
	if len(cmd.Channels) == 0 {
		entries = registry.ListChannels()
	} else {
		entries = registry.ListTopics(cmd.Channels)
	}

	nick := session.nick()
	messages := make([]ircmsg.Message, 0, len(entries)+1)
	for _, entry := range entries {
		messages = append(messages, session.numeric(RPL_LIST, nick, entry))
	}
	messages = append(messages, session.numeric(RPL_LISTEND, nick, "End of LIST"))
	return session.send(messages...)
}

// NAMES [<channels>]
// only the bare form has output; it lists every registered user
func namesHandler(session *Session, cmd proto.Names) error {
	if len(cmd.Channels) != 0 {
		return nil
	}
	names := session.server.registry.ListUsers()
	nick := session.nick()
	var messages []ircmsg.Message
	for _, line := range utils.BuildTokenLines(maxNamesLineLen, names, " ") {
		messages = append(messages, session.numeric(RPL_NAMREPLY, nick, "=", "*", line))
	}
	messages = append(messages, session.numeric(RPL_ENDOFNAMES, nick, "*", "End of NAMES list"))
	return session.send(messages...)
}

// NICK <nickname>
func nickHandler(session *Session, cmd proto.Nick) error {
	if err := validateNick(cmd.Nickname); err != nil {
		return session.send(session.numeric(ERR_ERRONEUSNICKNAME, session.nick(), utils.SafeErrorParam(cmd.Nickname), "Erroneous nickname"))
	}
	oldSig := session.sig()
	if err := session.server.registry.SetNick(session.userID, cmd.Nickname); err != nil {
		return err
	}
	session.details.Nick = cmd.Nickname
	session.server.logger.Debug("session", session.conn.RemoteAddr(), "changed nick to", cmd.Nickname)
	return session.send(ircmsg.MakeMessage(nil, oldSig, RPL_NICK, cmd.Nickname))
}

// TOPIC <channel> [:<topic>]
func topicHandler(session *Session, cmd proto.Topic) error {
	registry := session.server.registry
	nick := session.nick()
	if cmd.Topic != nil {
		err := registry.SetTopic(cmd.Channel, *cmd.Topic)
		if errors.Is(err, ErrUnknownChannel) {
			return session.send(session.numeric(ERR_NOSUCHCHANNEL, nick, cmd.Channel, "No such channel"))
		} else if err != nil {
			return err
		}
	}

	info, err := registry.Channel(cmd.Channel)
	if err != nil {
		return session.send(session.numeric(ERR_NOSUCHCHANNEL, nick, cmd.Channel, "No such channel"))
	}
	if info.Topic == nil {
		return session.send(session.numeric(RPL_NOTOPIC, nick, cmd.Channel, "No topic is set"))
	}
	return session.send(session.numeric(RPL_TOPIC, nick, cmd.Channel, *info.Topic))
}

// MODE <channel> [<modestring> [<mode arguments>...]]
func modeHandler(session *Session, cmd proto.ChannelMode) error {
	registry := session.server.registry
	nick := session.nick()

	var applied []modes.ChannelModeChange
	var err error
	if len(cmd.Changes) != 0 {
		applied, err = registry.ApplyChannelModes(cmd.Channel, cmd.Changes)
	}
	info, infoErr := registry.Channel(cmd.Channel)
	if errors.Is(err, ErrUnknownChannel) || infoErr != nil {
		return session.send(session.numeric(ERR_NOSUCHCHANNEL, nick, cmd.Channel, "No such channel"))
	} else if err != nil {
		return err
	}

	if len(cmd.Changes) == 0 {
		params := []string{nick, cmd.Channel, info.Modes}
		if info.Limit != nil {
			params = append(params, strconv.Itoa(*info.Limit))
		}
		return session.reply(RPL_CHANNELMODEIS, params...)
	}
	if len(applied) == 0 {
		return nil
	}
	modestring, args := modes.FormatChannelModeChanges(applied)
	params := append([]string{cmd.Channel, modestring}, args...)
	return session.send(ircmsg.MakeMessage(nil, session.sig(), RPL_MODE, params...))
}

// MODE <nickname> [<modestring>]
// user modes have no effect, but a channel may be named like a nick
func userModeHandler(session *Session, cmd proto.UserMode) error {
	if _, err := session.server.registry.Channel(cmd.Nickname); err != nil {
		return nil
	}
	return modeHandler(session, cmd.ChannelMode())
}

// PRIVMSG <target> :<text>
// NOTICE <target> :<text>
// any target with a board is stored; unknown targets that aren't channel
// names (nicks) are dropped
func messageHandler(session *Session, command, target, text string) error {
	err := session.post(command, target, text)
	if errors.Is(err, ErrUnknownChannel) {
		if command == RPL_NOTICE || !proto.IsChannelName(target) {
			return nil
		}
		return session.send(session.numeric(ERR_NOSUCHCHANNEL, session.nick(), target, "No such channel"))
	}
	return err
}

// PING <server> [<server2>]
func pingHandler(session *Session, cmd proto.Ping) error {
	pong := ircmsg.MakeMessage(nil, session.config.Server.Name, RPL_PONG, session.config.Server.Name, cmd.Server)
	pong.ForceTrailing()
	return session.send(pong)
}

// post appends a message from this session's user to the board of target.
// Nobody is notified: other sessions see it when they next join target.
func (session *Session) post(command, target, text string) error {
	msg := ircmsg.MakeMessage(nil, session.sig(), command, target, text)
	msg.ForceTrailing()
	line, err := msg.LineBytesStrict(false, proto.MaxLineLen+2)
	if err != nil && err != ircmsg.ErrorBodyTooLong {
		// unserializable text (e.g. an embedded NUL) is dropped like any other bad line
		session.server.logger.Debug("session", session.conn.RemoteAddr(), "dropped unserializable message", err.Error())
		return nil
	}
	err = session.server.registry.PostMessage(target, strings.TrimSuffix(string(line), "\r\n"))
	if err == nil {
		session.server.metrics.boardPosts.Inc()
	}
	return err
}

// numeric builds a numeric reply from the server.
func (session *Session) numeric(code string, params ...string) ircmsg.Message {
	return ircmsg.MakeMessage(nil, session.config.Server.Name, code, params...)
}

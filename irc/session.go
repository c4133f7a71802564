// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/boardirc/boardirc/irc/proto"
)

type sessionState uint8

const (
	stateAwaitingUser sessionState = iota
	stateAwaitingPong
	stateActive
	stateClosed
)

func (state sessionState) String() string {
	switch state {
	case stateAwaitingUser:
		return "awaiting-user"
	case stateAwaitingPong:
		return "awaiting-pong"
	case stateActive:
		return "active"
	default:
		return "closed"
	}
}

// Session is the server side of one client connection, from the handshake
// until disconnect. It is only ever touched by its own goroutine.
type Session struct {
	server *Server
	config *Config
	conn   IRCConn
	state  sessionState

	userID UserID
	// copy of this session's registry entry; only this session modifies it
	details User
	// current is the channel free text gets posted to
	current string
}

func newSession(server *Server, conn IRCConn) *Session {
	return &Session{
		server: server,
		config: server.Config(),
		conn:   conn,
		state:  stateAwaitingUser,
	}
}

// run drives the session to completion and closes the connection. A nil
// return means the client left cleanly (QUIT or end of stream).
func (session *Session) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			session.server.logger.Error("internal",
				fmt.Sprintf("Session caused panic: %v\n%s", r, debug.Stack()))
			if !session.config.Debug.recoverFromErrors {
				panic(r)
			}
			err = errSessionPanic
		}
		session.state = stateClosed
		session.conn.Close()
	}()

	if err = session.handshake(); err != nil {
		session.server.metrics.handshakeFailed(err)
		return err
	}
	return session.loop()
}

func (session *Session) handshake() (err error) {
	session.conn.SetReadDeadline(time.Now().Add(session.config.HandshakeTimeout()))

	msg, err := session.readMessage()
	if err != nil && !errors.Is(err, ErrCommandParse) {
		return err
	}
	userCmd, ok := msg.Command().(proto.User)
	if err != nil || !ok {
		session.writeString(rejectMissingUser)
		return ErrMissingUser
	}
	session.details = User{
		Username: userCmd.Username,
		Hostname: userCmd.Hostname,
		Realname: userCmd.Realname,
		Server:   userCmd.Server,
	}
	session.userID = session.server.registry.RegisterUser(session.details)
	session.server.logger.Debug("session", session.conn.RemoteAddr(), "registered user", userCmd.Username, string(session.userID))

	ping := ircmsg.MakeMessage(nil, "", RPL_PING, session.config.Server.Name, pingToken)
	ping.ForceTrailing()
	if err = session.send(ping); err != nil {
		return err
	}
	session.state = stateAwaitingPong

	msg, err = session.readMessage()
	if err != nil && !errors.Is(err, ErrCommandParse) {
		return err
	}
	if _, ok := msg.Command().(proto.Pong); err != nil || !ok {
		session.writeString(rejectMissingPong)
		return ErrDoSWarning
	}

	session.state = stateActive
	session.conn.SetReadDeadline(time.Time{})
	return session.joinAndReplay([]string{session.config.Server.DefaultChannel})
}

func (session *Session) loop() error {
	for {
		msg, err := session.readMessage()
		if errors.Is(err, ErrCommandParse) {
			session.server.logger.Debug("session", session.conn.RemoteAddr(), "dropped line", err.Error())
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		quit, err := session.dispatch(msg)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// readMessage reads and parses the next line. An error wrapping
// ErrCommandParse means only that line was bad; anything else is fatal.
func (session *Session) readMessage() (msg proto.Message, err error) {
	line, err := session.conn.ReadLine()
	if err == nil {
		if session.server.logger.IsLoggingRawIO() {
			session.server.logger.Debug("userinput", session.conn.RemoteAddr(), line)
		}
		msg, err = proto.ParseMessage(line)
	}

	switch {
	case err == nil:
		return msg, nil
	case proto.IsFatal(err):
		return msg, fmt.Errorf("%w: %w", ErrClientDisconnect, err)
	default:
		session.server.metrics.parseFailed(err)
		return msg, fmt.Errorf("%w: %w", ErrCommandParse, err)
	}
}

// send serializes messages and writes them in one call.
func (session *Session) send(messages ...ircmsg.Message) error {
	buffers := make([][]byte, 0, len(messages))
	for i := range messages {
		line, err := messages[i].LineBytesStrict(false, proto.MaxLineLen+2)
		if err != nil && err != ircmsg.ErrorBodyTooLong {
			session.server.logger.Error("internal", "couldn't serialize outgoing message", messages[i].Command, err.Error())
			continue
		}
		buffers = append(buffers, line)
	}
	return session.write(buffers)
}

// reply sends a message from the server to this session.
func (session *Session) reply(command string, params ...string) error {
	return session.send(ircmsg.MakeMessage(nil, session.config.Server.Name, command, params...))
}

func (session *Session) writeString(line string) error {
	return session.write([][]byte{[]byte(line)})
}

func (session *Session) write(buffers [][]byte) error {
	if len(buffers) == 0 {
		return nil
	}
	if session.server.logger.IsLoggingRawIO() {
		for _, buf := range buffers {
			session.server.logger.Debug("useroutput", session.conn.RemoteAddr(), string(buf))
		}
	}
	if err := session.conn.WriteBuffers(buffers); err != nil {
		return fmt.Errorf("%w: %w", ErrServerDisconnect, err)
	}
	return nil
}

// nick is the name numerics are addressed to.
func (session *Session) nick() string {
	return session.details.DisplayName()
}

// sig is read from the session's own copy so that posting to a board never
// takes the users lock.
func (session *Session) sig() string {
	return session.details.Sig()
}

// joinAndReplay joins each channel, makes the first one current and
// replays its board.
func (session *Session) joinAndReplay(channels []string) error {
	registry := session.server.registry
	for _, name := range channels {
		if registry.JoinChannel(name, session.userID) {
			session.server.logger.Debug("registry", "created channel", name)
		}
		// idempotent; a joiner that lost the creation race may get here
		// before the creator has made the board
		if err := registry.EnsureBoard(name); err != nil {
			return err
		}
	}
	if len(channels) == 0 {
		return nil
	}
	session.current = channels[0]
	return session.replay(session.current)
}

// replay writes the whole board, oldest line first, in batches of at most
// replay-batch bytes.
func (session *Session) replay(name string) error {
	lines, err := session.server.registry.ReadBoard(name)
	if err != nil {
		return err
	}
	limit := session.config.ReplayBatch()
	var batch [][]byte
	var batchLen int
	for _, line := range lines {
		buf := make([]byte, 0, len(line)+2)
		buf = append(append(buf, line...), crlf...)
		if len(batch) != 0 && batchLen+len(buf) > limit {
			if err := session.write(batch); err != nil {
				return err
			}
			batch, batchLen = nil, 0
		}
		batch = append(batch, buf)
		batchLen += len(buf)
	}
	return session.write(batch)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardirc/boardirc/irc/logger"
)

const (
	testServerName = "boardirc.test"
	welcomeMarker  = "NOTICE Welcome :*** beginning of channel Welcome\r\n"
)

func newTestConfig(t *testing.T, mutate func(*Config)) *Config {
	t.Helper()
	config := new(Config)
	config.Server.Name = testServerName
	config.Server.Listeners = map[string]ListenerConfig{"127.0.0.1:0": {}}
	if mutate != nil {
		mutate(config)
	}
	require.NoError(t, config.prepare())
	return config
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	logManager, err := logger.NewManager(nil)
	require.NoError(t, err)
	server, err := NewServer(newTestConfig(t, mutate), logManager)
	require.NoError(t, err)
	t.Cleanup(server.Shutdown)
	return server
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	done   chan struct{}
}

// connect runs a session on one end of a pipe and returns the other end.
func connect(t *testing.T, server *Server) *testClient {
	serverSide, clientSide := net.Pipe()
	client := &testClient{
		t:      t,
		conn:   clientSide,
		reader: bufio.NewReader(clientSide),
		done:   make(chan struct{}),
	}
	go func() {
		server.RunSession(NewIRCStreamConn(serverSide))
		close(client.done)
	}()
	t.Cleanup(func() { clientSide.Close() })
	return client
}

func (c *testClient) send(line string) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

func (c *testClient) sendBytes(buf []byte) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write(buf)
	require.NoError(c.t, err)
}

func (c *testClient) readLine() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	return line
}

// expectSilence asserts that nothing arrives for a short while.
func (c *testClient) expectSilence() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	line, err := c.reader.ReadString('\n')
	assert.Equal(c.t, "", line)
	assert.True(c.t, errors.Is(err, os.ErrDeadlineExceeded), "unexpected read result: %v", err)
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.reader.ReadString('\n')
	assert.ErrorIs(c.t, err, io.EOF)
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.t.Fatal("session did not end")
	}
}

// sync waits until the session has handled everything sent before it.
func (c *testClient) sync() {
	c.t.Helper()
	c.send("PING sync")
	assert.Equal(c.t, ":boardirc.test PONG boardirc.test :sync\r\n", c.readLine())
}

// register performs the handshake and consumes the default channel's
// replay, which is checked to start with the marker line.
func (c *testClient) register(username string) {
	c.t.Helper()
	c.send("USER " + username + " host.example " + testServerName + " :Real Name")
	require.Equal(c.t, "PING boardirc.test :12345\r\n", c.readLine())
	c.send("PONG " + testServerName + " :12345")
	require.Equal(c.t, welcomeMarker, c.readLine())
}

func TestRejectMissingUser(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)

	client.send("NICK alice")
	assert.Equal(t, "392 the first command should be USER \r\n", client.readLine())
	client.expectClosed()

	_, users := server.registry.Counts()
	assert.Equal(t, 0, users)
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.handshakeFailures.WithLabelValues("missing_user")))
}

func TestRejectUnparseableFirstLine(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)

	// USER with too few arguments counts as no USER at all
	client.send("USER alice")
	assert.Equal(t, rejectMissingUser, client.readLine())
	client.expectClosed()

	_, users := server.registry.Counts()
	assert.Equal(t, 0, users)
}

func TestRejectMissingPong(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)

	client.send("USER alice host.example boardirc.test :Alice")
	assert.Equal(t, "PING boardirc.test :12345\r\n", client.readLine())
	client.send("JOIN #early")
	assert.Equal(t, "392 the second command should be PONG \r\n", client.readLine())
	client.expectClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.handshakeFailures.WithLabelValues("missing_pong")))
	_, err := server.registry.Channel("#early")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestHandshakeJoinsWelcome(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)

	client.register("alice")
	// the marker is the only thing on a fresh board
	client.expectSilence()

	members, err := server.registry.Members(DefaultChannel)
	require.NoError(t, err)
	require.Len(t, members, 1)
	user, ok := server.registry.User(members[0])
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "host.example", user.Hostname)
	assert.Equal(t, "Real Name", user.Realname)
}

func TestHandshakeTimeout(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.Server.HandshakeTimeoutString = "50ms"
	})
	client := connect(t, server)

	client.expectClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.handshakeFailures.WithLabelValues("timeout")))
}

func TestCustomDefaultChannel(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.Server.DefaultChannel = "#lobby"
	})
	client := connect(t, server)

	client.send("USER alice host.example boardirc.test :Alice")
	client.readLine()
	client.send("PONG boardirc.test :12345")
	assert.Equal(t, "NOTICE #lobby :*** beginning of channel #lobby\r\n", client.readLine())
}

func TestFreeTextAndJoinReplay(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("hello there: everyone")
	client.send("JOIN #go,#rust")
	assert.Equal(t, "NOTICE #go :*** beginning of channel #go\r\n", client.readLine())
	client.send("gophers unite")
	client.sync()

	client.send("JOIN Welcome")
	assert.Equal(t, welcomeMarker, client.readLine())
	assert.Equal(t, ":alice!alice@host.example PRIVMSG Welcome :hello there: everyone\r\n", client.readLine())
	client.sync()

	lines, err := server.registry.ReadBoard("#go")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NOTICE #go :*** beginning of channel #go",
		":alice!alice@host.example PRIVMSG #go :gophers unite",
	}, lines)

	// #rust was created by the same JOIN, with only its marker
	lines, err = server.registry.ReadBoard("#rust")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestPullDelivery(t *testing.T) {
	server := newTestServer(t, nil)
	alice := connect(t, server)
	alice.register("alice")
	bob := connect(t, server)
	bob.register("bob")

	alice.send("anyone here?")
	alice.sync()

	// bob is a member of Welcome, but nothing is pushed to him
	bob.expectSilence()

	bob.send("JOIN Welcome")
	assert.Equal(t, welcomeMarker, bob.readLine())
	assert.Equal(t, ":alice!alice@host.example PRIVMSG Welcome :anyone here?\r\n", bob.readLine())
}

func TestReplayBatching(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.Server.ReplayBatchString = "1K"
	})
	for i := 0; i < 50; i++ {
		require.NoError(t, server.registry.EnsureBoard(DefaultChannel))
		require.NoError(t, server.registry.PostMessage(DefaultChannel, strings.Repeat("x", 100)))
	}

	client := connect(t, server)
	client.register("alice")
	for i := 0; i < 50; i++ {
		assert.Equal(t, strings.Repeat("x", 100)+"\r\n", client.readLine())
	}
	client.expectSilence()
}

func TestPartKeepsBoard(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("JOIN #go")
	client.readLine()
	client.send("PART #go,#nonexistent :bye")
	client.sync()

	members, err := server.registry.Members("#go")
	require.NoError(t, err)
	assert.Empty(t, members)
	length, err := server.registry.BoardLen("#go")
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	// PART doesn't change where free text goes
	client.send("still talking")
	client.sync()
	length, err = server.registry.BoardLen("#go")
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestListAndNames(t *testing.T) {
	server := newTestServer(t, nil)
	bob := connect(t, server)
	bob.register("bob")
	alice := connect(t, server)
	alice.register("alice")

	alice.send("JOIN #go")
	alice.readLine()
	alice.send("TOPIC #go :all things go")
	assert.Equal(t, ":boardirc.test 332 alice #go :all things go\r\n", alice.readLine())

	alice.send("LIST")
	assert.Equal(t, ":boardirc.test 322 alice #go\r\n", alice.readLine())
	assert.Equal(t, ":boardirc.test 322 alice Welcome\r\n", alice.readLine())
	assert.Equal(t, ":boardirc.test 323 alice :End of LIST\r\n", alice.readLine())

	alice.send("LIST #go,Welcome,#missing")
	assert.Equal(t, ":boardirc.test 322 alice :all things go\r\n", alice.readLine())
	assert.Equal(t, ":boardirc.test 322 alice Welcome\r\n", alice.readLine())
	assert.Equal(t, ":boardirc.test 323 alice :End of LIST\r\n", alice.readLine())

	alice.send("NAMES")
	assert.Equal(t, ":boardirc.test 353 alice = * :alice bob\r\n", alice.readLine())
	assert.Equal(t, ":boardirc.test 366 alice * :End of NAMES list\r\n", alice.readLine())

	// the filtered form has no output
	alice.send("NAMES #go")
	alice.sync()
}

func TestNickChange(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	members, err := server.registry.Members(DefaultChannel)
	require.NoError(t, err)
	id := members[0]

	client.send("NICK Wonderland")
	assert.Equal(t, ":alice!alice@host.example NICK Wonderland\r\n", client.readLine())
	client.send("NICK #bad")
	assert.Equal(t, ":boardirc.test 432 Wonderland #bad :Erroneous nickname\r\n", client.readLine())

	// the identifier survives the nick change
	user, ok := server.registry.User(id)
	require.True(t, ok)
	assert.Equal(t, "Wonderland", user.Nick)

	client.send("NAMES")
	assert.Equal(t, ":boardirc.test 353 Wonderland = * Wonderland\r\n", client.readLine())
	client.readLine()

	// later posts carry the new nick
	client.send("down the rabbit hole")
	client.sync()
	lines, err := server.registry.ReadBoard(DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, ":Wonderland!alice@host.example PRIVMSG Welcome :down the rabbit hole", lines[len(lines)-1])
}

func TestTopicAndModes(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("TOPIC Welcome")
	assert.Equal(t, ":boardirc.test 331 alice Welcome :No topic is set\r\n", client.readLine())
	client.send("TOPIC #missing :hello")
	assert.Equal(t, ":boardirc.test 403 alice #missing :No such channel\r\n", client.readLine())

	client.send("JOIN #go")
	client.readLine()
	client.send("MODE #go +tl 10")
	assert.Equal(t, ":alice!alice@host.example MODE #go +tl 10\r\n", client.readLine())
	client.send("MODE #go")
	assert.Equal(t, ":boardirc.test 324 alice #go +lt 10\r\n", client.readLine())
	client.send("MODE #go -l")
	assert.Equal(t, ":alice!alice@host.example MODE #go -l\r\n", client.readLine())

	info, err := server.registry.Channel("#go")
	require.NoError(t, err)
	assert.Nil(t, info.Limit)
	assert.Equal(t, "+t", info.Modes)

	// a channel without a prefix takes channel modes too
	client.send("MODE Welcome +t")
	assert.Equal(t, ":alice!alice@host.example MODE Welcome +t\r\n", client.readLine())
	client.send("MODE Welcome")
	assert.Equal(t, ":boardirc.test 324 alice Welcome +t\r\n", client.readLine())
	// user modes are accepted without effect
	client.send("MODE alice +i")
	client.sync()

	info, err = server.registry.Channel(DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, "+t", info.Modes)
}

func TestPrivmsgToChannel(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("JOIN #go")
	client.readLine()
	client.send("JOIN plain")
	assert.Equal(t, "NOTICE plain :*** beginning of channel plain\r\n", client.readLine())

	// channels are recognized by existing, not by their name prefix
	client.send("PRIVMSG Welcome :hello welcome")
	client.send("NOTICE plain :hello plain")
	client.send("PRIVMSG #go :hi :)")
	client.send("PRIVMSG bob :nicks have no board, dropped")
	client.send("NOTICE #nowhere :ignored")
	client.send("PRIVMSG #nowhere :hello?")
	assert.Equal(t, ":boardirc.test 403 alice #nowhere :No such channel\r\n", client.readLine())

	lines, err := server.registry.ReadBoard(DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NOTICE Welcome :*** beginning of channel Welcome",
		":alice!alice@host.example PRIVMSG Welcome :hello welcome",
	}, lines)
	lines, err = server.registry.ReadBoard("plain")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NOTICE plain :*** beginning of channel plain",
		":alice!alice@host.example NOTICE plain :hello plain",
	}, lines)
	lines, err = server.registry.ReadBoard("#go")
	require.NoError(t, err)
	assert.Equal(t, ":alice!alice@host.example PRIVMSG #go :hi :)", lines[1])
	assert.Equal(t, 3.0, testutil.ToFloat64(server.metrics.boardPosts))
}

func TestFreeTextKeepsWhitespace(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("  indented:  text  ")
	client.send("   ")
	client.sync()

	lines, err := server.registry.ReadBoard(DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NOTICE Welcome :*** beginning of channel Welcome",
		":alice!alice@host.example PRIVMSG Welcome :  indented:  text  ",
	}, lines)
}

func TestParseErrorsAreTolerated(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send(":prefix.only")
	client.send("JOIN")
	client.sendBytes([]byte("\xff\xfe bad utf-8\r\n"))
	client.send("WHOIS someone")
	client.sync()

	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.parseErrors.WithLabelValues("prefix_only")))
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.parseErrors.WithLabelValues("missing_argument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.parseErrors.WithLabelValues("encoding")))
}

func TestLineTooLongIsFatal(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	go client.conn.Write([]byte(strings.Repeat("a", 2048)))
	client.expectClosed()
}

func TestQuit(t *testing.T) {
	server := newTestServer(t, nil)
	client := connect(t, server)
	client.register("alice")

	client.send("QUIT :bye")
	client.expectClosed()

	// identity and membership outlive the session
	_, users := server.registry.Counts()
	assert.Equal(t, 1, users)
	members, err := server.registry.Members(DefaultChannel)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMaxConnections(t *testing.T) {
	server := newTestServer(t, func(config *Config) {
		config.Server.MaxConnections = 1
	})
	first := connect(t, server)
	first.register("alice")

	second := connect(t, server)
	assert.Equal(t, "ERROR :Too many connections\r\n", second.readLine())
	second.expectClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.rejected))

	first.send("QUIT")
	first.expectClosed()
	third := connect(t, server)
	third.register("carol")
}

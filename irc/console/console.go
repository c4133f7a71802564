// Copyright (c) 2026 boardirc contributors
// released under the MIT license

// Package console is a minimal interactive client: it performs the
// handshake, then relays normalized input lines to the server and server
// lines to the terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/boardirc/boardirc/irc/proto"
)

var (
	ErrRejected        = errors.New("server rejected the handshake")
	ErrUnexpectedReply = errors.New("unexpected reply during handshake")
)

// Identity is what the client registers as.
type Identity struct {
	Username string
	Hostname string
	Realname string
	// Nick is sent after the handshake if non-empty.
	Nick string
}

// NormalizeInput turns a line typed by the user into a protocol line.
// "/join #go" becomes "JOIN #go": the command is uppercased up to the first
// space and the rest is kept verbatim. Anything else is free text.
func NormalizeInput(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "/") {
		return line
	}
	verb, rest, found := strings.Cut(strings.TrimSpace(line[1:]), " ")
	verb = strings.ToUpper(verb)
	if !found {
		return verb
	}
	return verb + " " + rest
}

// Client is one connection to a boardirc server.
type Client struct {
	conn       net.Conn
	framer     *proto.Framer
	serverName string
	identity   Identity
}

// Dial connects to addr. serverName is sent in USER; it is usually addr's host.
func Dial(ctx context.Context, addr, serverName string, identity Identity) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, serverName, identity), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, serverName string, identity Identity) *Client {
	return &Client{
		conn:       conn,
		framer:     proto.NewFramer(conn),
		serverName: serverName,
		identity:   identity,
	}
}

func (client *Client) send(msg ircmsg.Message) error {
	line, err := msg.LineBytesStrict(true, proto.MaxLineLen+2)
	if err != nil && err != ircmsg.ErrorBodyTooLong {
		return err
	}
	_, err = client.conn.Write(line)
	return err
}

func (client *Client) sendLine(line string) error {
	_, err := client.conn.Write([]byte(line + "\r\n"))
	return err
}

// Handshake registers with the server: USER, then answering its PING, then
// NICK if one is configured. A timeout of zero waits forever.
func (client *Client) Handshake(timeout time.Duration) (err error) {
	if timeout != 0 {
		client.conn.SetReadDeadline(time.Now().Add(timeout))
		defer client.conn.SetReadDeadline(time.Time{})
	}

	user := ircmsg.MakeMessage(nil, "", "USER", client.identity.Username, client.identity.Hostname, client.serverName, client.identity.Realname)
	user.ForceTrailing()
	if err = client.send(user); err != nil {
		return err
	}

	line, err := client.framer.ReadLine()
	if err != nil {
		return err
	}
	msg, err := proto.ParseMessage(line)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, line)
	}
	ping, ok := msg.Command().(proto.Ping)
	if !ok {
		if _, isReply := msg.Command().(proto.Reply); isReply {
			return fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(line))
		}
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, line)
	}

	params := []string{ping.Server}
	if ping.Server2 != nil {
		params = append(params, *ping.Server2)
	}
	pong := ircmsg.MakeMessage(nil, "", "PONG", params...)
	pong.ForceTrailing()
	if err = client.send(pong); err != nil {
		return err
	}

	if client.identity.Nick != "" {
		return client.send(ircmsg.MakeMessage(nil, "", "NICK", client.identity.Nick))
	}
	return nil
}

// Run copies server lines to out and normalized lines from in to the server
// until in is exhausted, the user sends QUIT, or the server goes away.
func (client *Client) Run(in io.Reader, out io.Writer) error {
	serverDone := make(chan error, 1)
	go func() {
		for {
			line, err := client.framer.ReadLine()
			if errors.Is(err, proto.ErrEncoding) {
				continue
			} else if err != nil {
				serverDone <- err
				return
			}
			fmt.Fprintln(out, line)
		}
	}()

	inputDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := NormalizeInput(scanner.Text())
			if line == "" {
				continue
			}
			if err := client.sendLine(line); err != nil {
				inputDone <- err
				return
			}
			if verb, _, _ := strings.Cut(line, " "); verb == "QUIT" {
				break
			}
		}
		inputDone <- scanner.Err()
	}()

	var err error
	select {
	case err = <-inputDone:
		// give the server a moment to act on a final QUIT
		client.conn.SetReadDeadline(time.Now().Add(time.Second))
		<-serverDone
	case err = <-serverDone:
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	client.conn.Close()
	return err
}

// Close closes the connection.
func (client *Client) Close() error {
	return client.conn.Close()
}

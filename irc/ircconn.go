// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"bytes"
	"io"
	"net"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/boardirc/boardirc/irc/proto"
)

var (
	crlf = []byte{'\r', '\n'}
)

const (
	// a full line including its terminator
	maxLineBytes = proto.MaxLineLen + 2
)

// IRCConn abstracts away the distinction between a regular stream connection
// and a websocket. It doesn't expose Read and Write because websockets are
// message-oriented, not stream-oriented.
type IRCConn interface {
	// ReadLine returns the next line without its terminator. The errors are
	// those of proto.Framer.
	ReadLine() (line string, err error)
	Write([]byte) error
	WriteBuffers([][]byte) error
	SetReadDeadline(time.Time) error
	RemoteAddr() string

	Close() error
}

// IRCStreamConn is an IRCConn over a regular stream connection.
type IRCStreamConn struct {
	conn   net.Conn
	framer *proto.Framer
}

func NewIRCStreamConn(conn net.Conn) *IRCStreamConn {
	return &IRCStreamConn{
		conn:   conn,
		framer: proto.NewFramer(conn),
	}
}

func (cc *IRCStreamConn) ReadLine() (line string, err error) {
	return cc.framer.ReadLine()
}

func (cc *IRCStreamConn) Write(buf []byte) (err error) {
	_, err = cc.conn.Write(buf)
	return
}

func (cc *IRCStreamConn) WriteBuffers(buffers [][]byte) (err error) {
	// on Linux, with a plaintext TCP or Unix domain socket,
	// the Go runtime will optimize this into a single writev(2) call:
	_, err = (*net.Buffers)(&buffers).WriteTo(cc.conn)
	return
}

func (cc *IRCStreamConn) SetReadDeadline(deadline time.Time) error {
	return cc.conn.SetReadDeadline(deadline)
}

func (cc *IRCStreamConn) RemoteAddr() string {
	return cc.conn.RemoteAddr().String()
}

func (cc *IRCStreamConn) Close() (err error) {
	return cc.conn.Close()
}

// IRCWSConn is an IRCConn over a websocket; each text message is one line.
type IRCWSConn struct {
	conn *websocket.Conn
}

func NewIRCWSConn(conn *websocket.Conn) IRCWSConn {
	return IRCWSConn{conn: conn}
}

func (wc IRCWSConn) Write(buf []byte) (err error) {
	buf = bytes.TrimSuffix(buf, crlf)
	// there's not much we can do about this;
	// silently drop the message
	if !utf8.Valid(buf) {
		return nil
	}
	return wc.conn.WriteMessage(websocket.TextMessage, buf)
}

func (wc IRCWSConn) WriteBuffers(buffers [][]byte) (err error) {
	for _, buf := range buffers {
		// a buffer may hold several lines
		for len(buf) != 0 {
			var line []byte
			if idx := bytes.Index(buf, crlf); idx != -1 {
				line, buf = buf[:idx], buf[idx+2:]
			} else {
				line, buf = buf, nil
			}
			if err = wc.Write(line); err != nil {
				return
			}
		}
	}
	return
}

func (wc IRCWSConn) ReadLine() (line string, err error) {
	for {
		messageType, message, err := wc.conn.ReadMessage()
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return "", io.EOF
		} else if err != nil {
			return "", err
		}
		// on empty message or non-text message, try again, block if necessary
		if messageType != websocket.TextMessage || len(message) == 0 {
			continue
		}
		message = bytes.TrimSuffix(bytes.TrimSuffix(message, []byte{'\n'}), []byte{'\r'})
		if len(message) > proto.MaxLineLen {
			return "", proto.ErrLineTooLong
		}
		if !utf8.Valid(message) {
			return "", proto.ErrEncoding
		}
		return string(message), nil
	}
}

func (wc IRCWSConn) SetReadDeadline(deadline time.Time) error {
	return wc.conn.SetReadDeadline(deadline)
}

func (wc IRCWSConn) RemoteAddr() string {
	return wc.conn.RemoteAddr().String()
}

func (wc IRCWSConn) Close() (err error) {
	return wc.conn.Close()
}

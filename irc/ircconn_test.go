// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"io"
	"math/rand"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardirc/boardirc/irc/proto"
)

// mockConn is a fake net.Conn / io.Reader that yields len(counts) lines,
// each consisting of counts[i] 'a' characters and a terminating '\n'
type mockConn struct {
	counts []int
}

func (c *mockConn) Read(b []byte) (n int, err error) {
	for len(b) > 0 {
		if len(c.counts) == 0 {
			return n, io.EOF
		}
		if c.counts[0] == 0 {
			b[0] = '\n'
			c.counts = c.counts[1:]
			b = b[1:]
			n += 1
			continue
		}
		size := min(c.counts[0], len(b))
		for i := 0; i < size; i++ {
			b[i] = 'a'
		}
		c.counts[0] -= size
		b = b[size:]
		n += size
	}
	return n, nil
}

func (c *mockConn) Write(b []byte) (n int, err error) {
	return len(b), nil
}

func (c *mockConn) Close() error {
	c.counts = nil
	return nil
}

func (c *mockConn) LocalAddr() net.Addr {
	return nil
}

func (c *mockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6667}
}

func (c *mockConn) SetDeadline(t time.Time) error {
	return nil
}

func (c *mockConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (c *mockConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func newMockConn(counts []int) *mockConn {
	cpCounts := make([]int, len(counts))
	copy(cpCounts, counts)
	return &mockConn{
		counts: cpCounts,
	}
}

// construct a mock reader with some number of \n-terminated lines,
// verify that IRCStreamConn can read and split them as expected
func doLineReaderTest(counts []int, t *testing.T) {
	c := newMockConn(counts)
	r := NewIRCStreamConn(c)
	var readCounts []int
	for {
		line, err := r.ReadLine()
		if err == nil {
			readCounts = append(readCounts, len(line))
		} else if err == io.EOF {
			break
		} else {
			t.Fatalf("unexpected error %v reading %#v", err, counts)
		}
	}

	if !reflect.DeepEqual(counts, readCounts) {
		t.Errorf("expected %#v, got %#v", counts, readCounts)
	}
}

const (
	maxMockReaderLen     = 100
	maxMockReaderLineLen = proto.MaxLineLen + 1
)

func TestLineReader(t *testing.T) {
	counts := []int{44, 428, 3, 0, 200, 512, 0, 511, 33, 3, 2, 1, 0, 1, 2, 3, 48, 501}
	doLineReaderTest(counts, t)

	// fuzz
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 1000; i++ {
		countsLen := r.Intn(maxMockReaderLen) + 1
		counts := make([]int, countsLen)
		for i := 0; i < countsLen; i++ {
			counts[i] = r.Intn(maxMockReaderLineLen)
		}
		doLineReaderTest(counts, t)
	}
}

func TestLineReaderTooLong(t *testing.T) {
	r := NewIRCStreamConn(newMockConn([]int{10, proto.MaxLineLen + 1, 10}))
	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, 10)
	_, err = r.ReadLine()
	assert.ErrorIs(t, err, proto.ErrLineTooLong)
}

func TestStreamConnWriteBuffers(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	conn := NewIRCStreamConn(serverSide)
	defer conn.Close()

	go conn.WriteBuffers([][]byte{[]byte("PING a\r\n"), []byte("PING b\r\n")})
	buf := make([]byte, 16)
	_, err := io.ReadFull(clientSide, buf)
	require.NoError(t, err)
	assert.Equal(t, "PING a\r\nPING b\r\n", string(buf))
	assert.Equal(t, "pipe", conn.RemoteAddr())
}

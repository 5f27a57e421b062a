package main

import (
	"net"
	"time"

	"github.com/minnowircd/minnow/irc"
	"github.com/pkg/errors"
)

// How much we ask the kernel for per read.
const readSize = 4096

// Conn is a connection to a client.
type Conn struct {
	conn   net.Conn
	ioWait time.Duration
	IP     net.IP
}

// NewConn initializes a Conn struct
func NewConn(conn net.Conn, ioWait time.Duration) Conn {
	var ip net.IP
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ip = tcpAddr.IP
	}

	return Conn{
		conn:   conn,
		ioWait: ioWait,
		IP:     ip,
	}
}

// Close closes the underlying connection
func (c Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote network address.
func (c Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Read reads a chunk of bytes from the connection. Framing is the caller's
// job. A connection silent for the full wait period times out, which we
// treat like any other read error.
func (c Conn) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ioWait)); err != nil {
		return nil, errors.Wrap(err, "error setting read deadline")
	}

	buf := make([]byte, readSize)

	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, errors.Wrap(err, "error reading")
	}

	return buf[:n], nil
}

// WriteLine writes one protocol message to the connection, appending the
// terminating CRLF. Lines are capped at 512 bytes on the wire, CRLF
// included.
func (c Conn) WriteLine(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ioWait)); err != nil {
		return errors.Wrap(err, "error setting write deadline")
	}

	if len(line) > irc.MaxLineLength-2 {
		line = line[:irc.MaxLineLength-2]
	}

	sz, err := c.conn.Write([]byte(line + "\r\n"))
	if err != nil {
		return errors.Wrap(err, "error writing")
	}

	if sz != len(line)+2 {
		return errors.New("short write")
	}

	return nil
}

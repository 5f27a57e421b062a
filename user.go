package main

import (
	"fmt"
	"net"
	"time"

	"github.com/minnowircd/minnow/irc"
)

// UserID identifies one connection for the life of the process. IDs are
// issued serially at accept and never reused.
type UserID uint64

// User holds state about one client connection, registered or not.
type User struct {
	// Conn is the TCP connection to the client.
	Conn Conn

	// Locally unique identifier.
	ID UserID

	// WriteChan is the channel to send to to write to the client. Lines on
	// it are wire ready except for the trailing CRLF.
	WriteChan chan string

	// Track if we overflow our send queue. If we do, we'll kill the client.
	SendQueueExceeded bool

	Server *Server

	// Nick is blank until NICK succeeds. Username and RealName are blank
	// until USER succeeds.
	Nick     string
	Username string
	RealName string

	// Their IP as a string, captured at accept.
	Hostname string

	// Registration state. PasswordOK records a successful PASS.
	PasswordOK bool
	Registered bool

	// Channels the user is in, keyed by channel name.
	Channels map[string]*Channel

	ConnectionStartTime time.Time

	// Last time we heard anything from the client, and the last time we
	// pinged it.
	LastActivityTime time.Time
	LastPingTime     time.Time
}

// NewUser creates a User for a new connection.
func NewUser(s *Server, id UserID, conn net.Conn) *User {
	c := NewConn(conn, s.Config.DeadTime)
	now := time.Now()

	return &User{
		Conn: c,
		ID:   id,

		// Buffered channel. We don't want to block sending to the client from
		// the server. The client may be stuck. Make the buffer large enough
		// that it should only max out in case of connection issues.
		WriteChan: make(chan string, 32768),

		Server:              s,
		Hostname:            c.IP.String(),
		Channels:            make(map[string]*Channel),
		ConnectionStartTime: now,
		LastActivityTime:    now,
		LastPingTime:        now,
	}
}

func (u *User) String() string {
	if u.Nick != "" {
		return fmt.Sprintf("%d %s", u.ID, u.prefix())
	}
	return fmt.Sprintf("%d %s", u.ID, u.Hostname)
}

// prefix is the source string the user's messages are relayed with:
// nick!user@host. Before NICK succeeds the hostname stands in.
func (u *User) prefix() string {
	if u.Nick == "" {
		return u.Hostname
	}
	return fmt.Sprintf("%s!%s@%s", u.Nick, u.Username, u.Hostname)
}

func (u *User) onChannel(name string) bool {
	_, exists := u.Channels[name]
	return exists
}

// Send a line to the client. We send it to its write channel, which in turn
// leads to writing it to its TCP socket.
//
// This function won't block. If the client's queue is full, we flag it as
// having a full send queue, and the next maintenance tick drops the client.
//
// Not blocking is important because the server sends clients messages this
// way, and if we blocked on a problem client, everything would grind to a
// halt.
func (u *User) maybeQueueMessage(line string) {
	if u.SendQueueExceeded {
		return
	}

	select {
	case u.WriteChan <- line:
	default:
		u.SendQueueExceeded = true
	}
}

// readLoop endlessly reads from the client's TCP connection. It frames and
// parses each IRC protocol message and passes it to the server through the
// server's channel.
func (u *User) readLoop() {
	var buf irc.LineBuffer

	for {
		if u.Server.isShuttingDown() {
			break
		}

		data, err := u.Conn.Read()
		if err != nil {
			u.Server.log.Debugf("Client %s: %s", u, err)
			u.Server.newEvent(Event{Type: DeadClientEvent, User: u, Err: err})
			break
		}

		lines, err := buf.Append(data)

		// Lines framed before any flood overflow still count.
		for _, line := range lines {
			m, perr := irc.ParseMessage(line)
			if perr != nil {
				// A line of only spaces parses to nothing. Ignore it.
				continue
			}

			u.Server.newEvent(Event{
				Type:    MessageFromClientEvent,
				User:    u,
				Message: m,
			})
		}

		if err != nil {
			u.Server.log.Warnf("Client %s: %s", u, err)
			u.Server.newEvent(Event{Type: DeadClientEvent, User: u, Err: err})
			break
		}
	}

	u.Server.log.Debugf("Client %s: Reader shutting down.", u)
}

// writeLoop endlessly reads from the client's channel and writes each line
// to the client's TCP connection.
//
// When the channel is closed, or if we have a write error, close the TCP
// connection. This way we try to deliver messages to the client before
// closing its socket and giving up.
//
// Every write channel eventually closes: the server closes it when the user
// quits or the server shuts down, and the accepter closes it when shutdown
// races the accept and the server never learns of the connection. So
// blocking here until the channel drains is safe, and the ERROR queued
// during shutdown reaches the client before its socket closes.
func (u *User) writeLoop() {
	for line := range u.WriteChan {
		if err := u.Conn.WriteLine(line); err != nil {
			u.Server.log.Debugf("Client %s: %s", u, err)
			u.Server.newEvent(Event{Type: DeadClientEvent, User: u, Err: err})
			break
		}
	}

	if err := u.Conn.Close(); err != nil {
		u.Server.log.Debugf("Client %s: Problem closing connection: %s", u, err)
	}

	u.Server.log.Debugf("Client %s: Writer shutting down.", u)
}

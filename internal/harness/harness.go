// Package harness provides a small IRC client for exercising a server over
// a real TCP connection in tests.
package harness

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/horgh/irc"
)

// Client represents a client connection.
type Client struct {
	nick     string
	password string
	addr     string

	writeTimeout time.Duration
	readTimeout  time.Duration

	conn net.Conn
	rw   *bufio.ReadWriter

	recvChan chan irc.Message
	sendChan chan irc.Message
	errChan  chan error
	doneChan chan struct{}
	wg       *sync.WaitGroup
}

// NewClient creates a Client. addr is the server's host:port. password may
// be blank if the server wants no PASS.
func NewClient(nick, password, addr string) *Client {
	return &Client{
		nick:     nick,
		password: password,
		addr:     addr,

		writeTimeout: 30 * time.Second,
		readTimeout:  100 * time.Millisecond,
	}
}

// Start starts a client's connection and registers, sending PASS, NICK, and
// USER.
//
// The client responds to PING commands.
//
// All messages received from the server will be sent on the receive
// channel.
//
// Messages you send to the send channel will be sent to the server.
//
// If an error occurs, we send a message on the error channel. If you
// receive a message on that channel, you must stop the client.
//
// The caller must call Stop() to clean up the client.
func (c *Client) Start() (
	<-chan irc.Message,
	chan<- irc.Message,
	<-chan error,
	error,
) {
	if err := c.connect(); err != nil {
		return nil, nil, nil, fmt.Errorf("error connecting: %s", err)
	}

	registration := []irc.Message{
		{Command: "NICK", Params: []string{c.nick}},
		{Command: "USER", Params: []string{c.nick, "0", "*", c.nick}},
	}
	if c.password != "" {
		registration = append([]irc.Message{
			{Command: "PASS", Params: []string{c.password}},
		}, registration...)
	}

	for _, m := range registration {
		if err := c.writeMessage(m); err != nil {
			_ = c.conn.Close()
			return nil, nil, nil, err
		}
	}

	c.recvChan = make(chan irc.Message, 512)
	c.sendChan = make(chan irc.Message, 512)
	c.errChan = make(chan error, 512)
	c.doneChan = make(chan struct{})

	c.wg = &sync.WaitGroup{}

	c.wg.Add(1)
	go c.reader(c.recvChan)

	c.wg.Add(1)
	go c.writer(c.sendChan)

	return c.recvChan, c.sendChan, c.errChan, nil
}

// connect opens a new connection to the server.
func (c *Client) connect() error {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("error dialing: %s", err)
	}

	c.conn = conn
	c.rw = bufio.NewReadWriter(bufio.NewReader(c.conn), bufio.NewWriter(c.conn))
	return nil
}

func (c Client) reader(recvChan chan<- irc.Message) {
	defer c.wg.Done()

	for {
		select {
		case <-c.doneChan:
			close(recvChan)
			return
		default:
		}

		m, err := c.readMessage()
		if err != nil {
			// If we time out waiting for a read to succeed, just ignore it
			// and try again. We want a short timeout on that so we frequently
			// check whether we should end.
			//
			// There's no accessible error variable to compare with.
			if strings.Contains(err.Error(), "i/o timeout") {
				continue
			}

			c.errChan <- fmt.Errorf("error reading message: %s", err)
			close(recvChan)
			return
		}

		if m.Command == "PING" {
			if err := c.writeMessage(irc.Message{
				Command: "PONG",
				Params:  []string{m.Params[0]},
			}); err != nil {
				c.errChan <- fmt.Errorf("error sending pong: %s", err)
				close(recvChan)
				return
			}
		}

		recvChan <- m
	}
}

func (c Client) writer(sendChan <-chan irc.Message) {
	defer c.wg.Done()

LOOP:
	for {
		select {
		case <-c.doneChan:
			break LOOP
		case m, ok := <-sendChan:
			if !ok {
				break LOOP
			}
			if err := c.writeMessage(m); err != nil {
				c.errChan <- fmt.Errorf("error writing message: %s", err)
				break LOOP
			}
		}
	}

	for range sendChan {
	}
}

// writeMessage writes an IRC message to the connection.
func (c Client) writeMessage(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return fmt.Errorf("unable to encode message: %s", err)
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(
		c.writeTimeout)); err != nil {
		return fmt.Errorf("unable to set deadline: %s", err)
	}

	sz, err := c.rw.WriteString(buf)
	if err != nil {
		return err
	}

	if sz != len(buf) {
		return fmt.Errorf("short write")
	}

	if err := c.rw.Flush(); err != nil {
		return fmt.Errorf("flush error: %s", err)
	}

	return nil
}

// readMessage reads a line from the connection and parses it as an IRC
// message.
func (c Client) readMessage() (irc.Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(
		c.readTimeout)); err != nil {
		return irc.Message{}, fmt.Errorf("unable to set deadline: %s", err)
	}

	line, err := c.rw.ReadString('\n')
	if err != nil {
		return irc.Message{}, err
	}

	m, err := irc.ParseMessage(line)
	if err != nil && err != irc.ErrTruncated {
		return irc.Message{}, fmt.Errorf("unable to parse message: %s: %s",
			line, err)
	}

	return m, nil
}

// Stop shuts down the client and cleans up.
//
// You must not send any messages on the send channel after calling this
// function.
func (c *Client) Stop() {
	// Tell reader and writer to end.
	close(c.doneChan)

	// We won't be sending anything further to writer. Let it clean up.
	close(c.sendChan)

	// Wait for reader and writer to end.
	c.wg.Wait()

	// We know the reader and writer won't be sending on the error channel
	// any more.
	close(c.errChan)

	_ = c.conn.Close()

	for range c.recvChan {
	}
	for range c.errChan {
	}
}

// GetNick retrieves the client's nick.
func (c Client) GetNick() string { return c.nick }

// SourceNick extracts the nick from a message's source prefix. A prefix
// with no ! is returned whole.
func SourceNick(m irc.Message) string {
	if idx := strings.IndexByte(m.Prefix, '!'); idx != -1 {
		return m.Prefix[:idx]
	}
	return m.Prefix
}

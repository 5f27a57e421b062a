package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/minnowircd/minnow/irc"
)

// Server holds the state for a server.
// Everything global to a server lives on an instance of this struct rather
// than in global variables.
type Server struct {
	Config Config

	// Client id to User. Users may be registered or not.
	Users map[UserID]*User

	// Canonicalized nickname to client id.
	Nicks map[string]UserID

	// Channel name to Channel. Names are not canonicalized.
	Channels map[string]*Channel

	// When we close this channel, this indicates that we're shutting down.
	// Other goroutines can check if this channel is closed.
	ShutdownChan chan struct{}

	// Tell the server something on this channel.
	ToServerChan chan Event

	// TCP listener.
	Listener net.Listener

	// WaitGroup to ensure all goroutines clean up before we end.
	WG conc.WaitGroup

	log *logrus.Logger

	// When the server started. The welcome burst and STATS report it.
	StartTime time.Time

	// Connections accepted over the life of the process, full-server
	// rejections included.
	TotalConnections uint64
}

// Event holds a message containing something to tell the server.
type Event struct {
	Type EventType

	User *User

	Message irc.Message

	// The error that killed the client, for DeadClientEvent.
	Err error
}

// EventType is a type of event we can tell the server about.
type EventType int

const (
	// NullEvent is a default event. This means the event was not populated.
	NullEvent EventType = iota

	// NewClientEvent means a new client connected.
	NewClientEvent

	// DeadClientEvent means the client died for some reason. Clean it up.
	DeadClientEvent

	// MessageFromClientEvent means a client sent a message.
	MessageFromClientEvent

	// WakeUpEvent means the server should wake up and do bookkeeping.
	WakeUpEvent

	// ShutdownEvent means the server should begin a clean shutdown.
	ShutdownEvent
)

func main() {
	args, err := getArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := newLogger()

	server, err := newServer(args, log)
	if err != nil {
		log.Fatalf("Configuration problem: %s", err)
	}

	if err := server.start(); err != nil {
		log.Fatalf("%s", err)
	}

	log.Info("Server shutdown cleanly.")
}

// newLogger builds the console logger everything reports through.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		TimestampFormat: time.RFC3339,
	})
	return log
}

func newServer(args Args, log *logrus.Logger) (*Server, error) {
	cfg, err := checkAndParseConfig(args)
	if err != nil {
		return nil, err
	}

	return &Server{
		Config: cfg,

		Users:    make(map[UserID]*User),
		Nicks:    make(map[string]UserID),
		Channels: make(map[string]*Channel),

		// shutdown() closes this channel.
		ShutdownChan: make(chan struct{}),

		// We never manually close this channel.
		ToServerChan: make(chan Event),

		log:       log,
		StartTime: time.Now(),
	}, nil
}

// start opens the TCP port and runs the server until shutdown completes.
func (s *Server) start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Config.ListenHost,
		s.Config.ListenPort))
	if err != nil {
		return errors.Wrap(err, "unable to listen")
	}

	s.serve(ln)

	return nil
}

// serve runs the server on an open listener: the accept goroutine, the
// alarm goroutine, signal delivery, and the event loop. It returns after
// shutdown, once every goroutine is joined.
func (s *Server) serve(ln net.Listener) {
	s.Listener = ln
	s.log.Infof("Listening on %s", ln.Addr())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	// acceptConnections accepts connections on the TCP listener.
	s.WG.Go(s.acceptConnections)

	// Alarm is a goroutine to wake up this one periodically so we can do
	// things like ping clients.
	s.WG.Go(s.alarm)

	s.eventLoop(signalChan)

	// We don't need to drain any channels. None close that will have any
	// goroutines blocked on them.

	s.WG.Wait()
}

// eventLoop processes events on the server's channel.
//
// It continues until the shutdown channel closes, indicating shutdown.
func (s *Server) eventLoop(signalChan <-chan os.Signal) {
	for {
		select {
		case evt := <-s.ToServerChan:
			s.handleEvent(evt)

		case sig := <-signalChan:
			s.log.Infof("Received signal: %s", sig)
			s.shutdown()

		case <-s.ShutdownChan:
			return
		}
	}
}

// handleEvent is the one place server state changes.
func (s *Server) handleEvent(evt Event) {
	switch evt.Type {
	case NewClientEvent:
		s.introduceUser(evt.User)

	case DeadClientEvent:
		// The user may be gone already. Killed for flooding, say, with the
		// reader noticing afterwards.
		if _, exists := s.Users[evt.User.ID]; !exists {
			return
		}

		reason, errorText := errorToQuitMessage(evt.Err, s.Config.DeadTime)
		s.quitUser(evt.User, reason, errorText)

	case MessageFromClientEvent:
		if _, exists := s.Users[evt.User.ID]; !exists {
			return
		}

		evt.User.LastActivityTime = time.Now()
		s.handleMessage(evt.User, evt.Message)

	case WakeUpEvent:
		s.maintenance()

	case ShutdownEvent:
		s.shutdown()

	default:
		s.log.Fatalf("Unexpected event: %d", evt.Type)
	}
}

// introduceUser takes a new connection into the registry, or turns it away
// when the server is full. Only after this may other events about the
// connection do anything.
func (s *Server) introduceUser(u *User) {
	s.TotalConnections++

	if len(s.Users) >= s.Config.MaxClients {
		u.maybeQueueMessage("ERROR :Server is full")
		close(u.WriteChan)
		s.log.Warnf("Client %s: Server is full, rejecting", u)
		return
	}

	s.Users[u.ID] = u
	s.log.Infof("New client connection: %s", u)
}

// errorToQuitMessage maps the error that killed a connection to the QUIT
// reason the user's channels hear and, when there is one, the ERROR text
// the dying client is sent.
func errorToQuitMessage(err error, deadTime time.Duration) (string, string) {
	cause := errors.Cause(err)

	if cause == irc.ErrExcessFlood {
		return "Excess flood", "Closing link: Excess flood"
	}

	if cause == io.EOF {
		return "Client disconnected", ""
	}

	if netErr, ok := cause.(net.Error); ok && netErr.Timeout() {
		return fmt.Sprintf("Ping timeout: %d seconds",
			int(deadTime.Seconds())), ""
	}

	return "Connection error", ""
}

// shutdown starts server shutdown.
func (s *Server) shutdown() {
	if s.isShuttingDown() {
		return
	}

	s.log.Info("Server shutdown initiated.")

	// Closing ShutdownChan indicates to other goroutines that we're shutting
	// down.
	close(s.ShutdownChan)

	if s.Listener != nil {
		if err := s.Listener.Close(); err != nil {
			s.log.Warnf("Problem closing TCP listener: %s", err)
		}
	}

	// All clients need to be told. This also closes their write channels.
	users := make([]*User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, u)
	}
	for _, u := range users {
		s.quitUser(u, "Server shutting down", "Server shutting down")
	}
}

// acceptConnections accepts TCP connections and tells the main server loop
// through a channel. It sets up separate goroutines for reading/writing to
// and from the client.
func (s *Server) acceptConnections() {
	id := UserID(0)

	for {
		if s.isShuttingDown() {
			break
		}

		conn, err := s.Listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				break
			}
			s.log.Warnf("Failed to accept connection: %s", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := tcpConn.SetKeepAlive(true); err != nil {
				s.log.Warnf("Failed to enable keepalive: %s", err)
			}
		}

		u := NewUser(s, id, conn)

		// Handle rollover of uint64. Unlikely to happen (outside abuse) but.
		if id+1 == 0 {
			s.log.Fatalf("Unique ids rolled over!")
		}
		id++

		// ToServerChan is synchronous. We want to make sure the server knows
		// about the client before it starts hearing about it from the
		// client's own goroutines. If shutdown races the accept, the server
		// never hears about the connection and so never closes its write
		// channel. Close it here and the writer cleans up the socket.
		if !s.newEvent(Event{Type: NewClientEvent, User: u}) {
			close(u.WriteChan)
		}

		s.WG.Go(u.readLoop)
		s.WG.Go(u.writeLoop)
	}

	s.log.Debug("Connection accepter shutting down.")
}

// Return true if the server is shutting down.
func (s *Server) isShuttingDown() bool {
	// No messages get sent to this channel, so if we receive a message on
	// it, then we know the channel was closed.
	select {
	case <-s.ShutdownChan:
		return true
	default:
		return false
	}
}

// alarm sends a message to the server goroutine to wake it up.
// It sleeps and then repeats.
func (s *Server) alarm() {
	for {
		if s.isShuttingDown() {
			break
		}

		time.Sleep(s.Config.WakeupTime)

		s.newEvent(Event{Type: WakeUpEvent})
	}

	s.log.Debug("Alarm shutting down.")
}

// maintenance runs the housekeeping that client input does not drive.
func (s *Server) maintenance() {
	s.checkAndPingClients()
	s.reapEmptyChannels()
}

// checkAndPingClients looks at each connected client.
//
// Clients whose send queue overflowed get dropped. Registered clients idle
// past the ping time get a PING; past the dead time, dropped. Unregistered
// connections are left to the read deadline.
func (s *Server) checkAndPingClients() {
	now := time.Now()

	users := make([]*User, 0, len(s.Users))
	for _, u := range s.Users {
		users = append(users, u)
	}

	for _, u := range users {
		if u.SendQueueExceeded {
			s.quitUser(u, "SendQ exceeded", "Closing link: SendQ exceeded")
			continue
		}

		if !u.Registered {
			continue
		}

		timeIdle := now.Sub(u.LastActivityTime)

		// Was it active recently enough that we don't need to do anything?
		if timeIdle < s.Config.PingTime {
			continue
		}

		// Has it been idle long enough that we consider it dead?
		if timeIdle > s.Config.DeadTime {
			s.quitUser(u, fmt.Sprintf("Ping timeout: %d seconds",
				int(timeIdle.Seconds())), "")
			continue
		}

		// Should we ping it? We might have pinged it recently.
		if now.Sub(u.LastPingTime) < s.Config.PingTime {
			continue
		}

		s.sendLine(u, fmt.Sprintf(":%s PING :%s", s.Config.ServerName,
			s.Config.ServerName))
		u.LastPingTime = now
	}
}

// newEvent tells the server something happened.
//
// Any goroutine can call this function.
//
// It sends the server a message on its ToServerChan.
//
// It will not block on shutdown as we select on the shutdown channel, which
// we close when shutting down the server. This means receive on the
// shutdown channel will proceed at that point. The return value says
// whether the server heard the event.
func (s *Server) newEvent(evt Event) bool {
	select {
	case s.ToServerChan <- evt:
		return true
	case <-s.ShutdownChan:
		return false
	}
}

package main

import (
	"fmt"
	"time"
)

// The registry: the Server's index maps and the mutations that keep
// user/channel membership symmetric. Only the server goroutine touches any
// of this.

// lookupNick finds a user by nick. Lookup is case-insensitive, with {}|^
// equal to []\~.
func (s *Server) lookupNick(nick string) (*User, bool) {
	id, exists := s.Nicks[canonicalizeNick(nick)]
	if !exists {
		return nil, false
	}

	u, exists := s.Users[id]
	return u, exists
}

// addToChannel adds the user to the channel and the channel to the user.
// The first member of a channel gets ops.
func (s *Server) addToChannel(u *User, ch *Channel) {
	if len(ch.Members) == 0 {
		ch.grantOps(u.ID)
	}

	ch.Members[u.ID] = time.Now()
	u.Channels[ch.Name] = ch
}

// removeFromChannel takes the user out of the channel, both sides at once.
// An emptied channel leaves the registry immediately. A channel left with
// members but no operators promotes one.
func (s *Server) removeFromChannel(u *User, ch *Channel) {
	ch.removeUser(u)

	if len(ch.Members) == 0 {
		delete(s.Channels, ch.Name)
		return
	}

	s.ensureOperators(ch)
}

// ensureOperators promotes the longest-standing member when a channel has
// members but no operators. The promotion goes out as a server-sourced MODE
// so everyone learns who is in charge now.
func (s *Server) ensureOperators(ch *Channel) {
	if len(ch.Members) == 0 || len(ch.Ops) > 0 {
		return
	}

	var oldest *User
	var oldestAt time.Time
	for id, joinedAt := range ch.Members {
		member, exists := s.Users[id]
		if !exists {
			continue
		}

		if oldest == nil || joinedAt.Before(oldestAt) ||
			joinedAt.Equal(oldestAt) && member.ID < oldest.ID {
			oldest = member
			oldestAt = joinedAt
		}
	}

	if oldest == nil {
		return
	}

	ch.grantOps(oldest.ID)
	s.sendToChannel(ch, fmt.Sprintf(":%s MODE %s +o %s", s.Config.ServerName,
		ch.Name, oldest.Nick), nil)

	s.log.Debugf("Client %s: Now operator of %s", oldest, ch.Name)
}

// reapEmptyChannels sweeps memberless channels out of the registry. They
// normally leave with their last member; the maintenance tick sweeps
// whatever remains.
func (s *Server) reapEmptyChannels() {
	for name, ch := range s.Channels {
		if len(ch.Members) == 0 {
			delete(s.Channels, name)
			s.log.Debugf("Reaped empty channel %s", name)
		}
	}
}

// quitUser disconnects a user. Every user sharing a channel hears the QUIT
// once, the user leaves all channels and both indices, and the write channel
// closes so the writer delivers what is queued and closes the socket.
// errorText, when non-blank, goes to the dying client as an ERROR frame.
//
// Safe to call twice; a client can die in the reader and the writer both.
func (s *Server) quitUser(u *User, reason string, errorText string) {
	// May already be cleaning up.
	if _, exists := s.Users[u.ID]; !exists {
		return
	}

	s.sendToSharers(u, fmt.Sprintf(":%s QUIT :%s", u.prefix(), reason), false)

	channels := make([]*Channel, 0, len(u.Channels))
	for _, ch := range u.Channels {
		channels = append(channels, ch)
	}
	for _, ch := range channels {
		s.removeFromChannel(u, ch)
	}

	if errorText != "" {
		u.maybeQueueMessage("ERROR :" + errorText)
	}

	if u.Nick != "" {
		delete(s.Nicks, canonicalizeNick(u.Nick))
	}
	delete(s.Users, u.ID)

	close(u.WriteChan)

	s.log.Infof("Client %s: Quit: %s", u, reason)
}

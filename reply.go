package main

import "fmt"

// Outbound line builders. Handlers format the payload (everything after the
// nick field, trailing colon included) and these put the server prefix and
// routing around it.

// sendNumeric sends a numeric reply to the user. The nick field is * until
// registration completes, the ratbox convention.
func (s *Server) sendNumeric(u *User, code, payload string) {
	nick := "*"
	if u.Registered {
		nick = u.Nick
	}

	u.maybeQueueMessage(fmt.Sprintf(":%s %s %s %s", s.Config.ServerName, code,
		nick, payload))
}

// sendLine queues a raw line for one user.
func (s *Server) sendLine(u *User, line string) {
	u.maybeQueueMessage(line)
}

// sendToChannel queues a line for every member of the channel, in arrival
// order, optionally skipping one member.
func (s *Server) sendToChannel(ch *Channel, line string, exclude *User) {
	for _, id := range ch.memberIDs() {
		if exclude != nil && id == exclude.ID {
			continue
		}

		member, exists := s.Users[id]
		if !exists {
			continue
		}

		member.maybeQueueMessage(line)
	}
}

// sendToSharers queues a line for every user sharing at least one channel
// with u, each at most once however many channels they share. includeSelf
// controls whether u hears it too: NICK changes do, QUITs do not.
func (s *Server) sendToSharers(u *User, line string, includeSelf bool) {
	told := make(map[UserID]struct{})
	if !includeSelf {
		told[u.ID] = struct{}{}
	}

	for _, ch := range u.Channels {
		for id := range ch.Members {
			if _, ok := told[id]; ok {
				continue
			}
			told[id] = struct{}{}

			if member, exists := s.Users[id]; exists {
				member.maybeQueueMessage(line)
			}
		}
	}

	// A user in no channels still hears its own change.
	if includeSelf {
		if _, ok := told[u.ID]; !ok {
			u.maybeQueueMessage(line)
		}
	}
}

package main

import (
	"fmt"
	"sort"
	"time"
)

// 20 channels per user, from the original limits.
const maxChannelsPerUser = 20

// Something low enough a topic won't hit the message limit.
const maxTopicLength = 307

const maxKeyLength = 23

const maxUserLimit = 999

// Channel holds everything to do with a channel.
type Channel struct {
	// Name as first given. Lookup is by exact name.
	Name string

	// Members in the channel, with the time each joined.
	// If we have zero members, we should not exist.
	Members map[UserID]time.Time

	// Ops tracks users who have operator status in the channel.
	Ops map[UserID]struct{}

	// Users invited with INVITE. They need not be members yet.
	Invites map[UserID]struct{}

	// Ban masks, nick!user@host with wildcards, in canonical form.
	Bans map[string]struct{}

	// Modes set on the channel. One of i t m n s p per key.
	Modes map[byte]struct{}

	// Current topic. May be blank.
	Topic string

	// The person who set the topic. nick!user@host
	TopicSetter string

	// Topic TS. Changes on TOPIC command.
	TopicTS int64

	// Channel key, with a flag since an empty key is not a key.
	Key    string
	HasKey bool

	// User limit. 0 means no limit.
	Limit int

	// Channel TS. Set at creation.
	TS int64
}

// newChannel creates a channel. Topic restriction and no-external-messages
// are on from the start.
func newChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		Members: make(map[UserID]time.Time),
		Ops:     make(map[UserID]struct{}),
		Invites: make(map[UserID]struct{}),
		Bans:    make(map[string]struct{}),
		Modes:   map[byte]struct{}{'t': {}, 'n': {}},
		TS:      time.Now().Unix(),
	}
}

func (c *Channel) hasMember(id UserID) bool {
	_, exists := c.Members[id]
	return exists
}

// Check if a user has operator status in the channel.
func (c *Channel) userHasOps(id UserID) bool {
	_, exists := c.Ops[id]
	return exists
}

// Grant a user ops.
func (c *Channel) grantOps(id UserID) {
	c.Ops[id] = struct{}{}
}

// Remove ops from a user.
func (c *Channel) removeOps(id UserID) {
	delete(c.Ops, id)
}

// Remove a user from the channel. Both sides of the membership relation
// change together.
func (c *Channel) removeUser(u *User) {
	delete(c.Members, u.ID)
	delete(c.Ops, u.ID)
	delete(u.Channels, c.Name)
}

func (c *Channel) isInvited(id UserID) bool {
	_, exists := c.Invites[id]
	return exists
}

func (c *Channel) addInvite(id UserID) {
	c.Invites[id] = struct{}{}
}

func (c *Channel) removeInvite(id UserID) {
	delete(c.Invites, id)
}

func (c *Channel) hasMode(mode byte) bool {
	_, exists := c.Modes[mode]
	return exists
}

// setKey installs a channel key. Keys containing space, comma, or BEL are
// refused. Over-long keys are truncated, not refused.
func (c *Channel) setKey(key string) bool {
	if !isValidKey(key) {
		return false
	}

	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}

	c.Key = key
	c.HasKey = true
	return true
}

func (c *Channel) clearKey() {
	c.Key = ""
	c.HasKey = false
}

// addBan records a ban mask. No mode letter manages the ban set; it is
// honored on JOIN and when routing channel messages.
func (c *Channel) addBan(mask string) {
	c.Bans[canonicalizeNick(mask)] = struct{}{}
}

// isBanned checks the user's nick!user@host against the ban masks.
func (c *Channel) isBanned(u *User) bool {
	uhost := canonicalizeNick(u.prefix())
	for mask := range c.Bans {
		if maskMatch(mask, uhost) {
			return true
		}
	}
	return false
}

// memberIDs returns the member ids ordered by arrival on the server.
func (c *Channel) memberIDs() []UserID {
	ids := make([]UserID, 0, len(c.Members))
	for id := range c.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// modeString renders the modes the way MODE queries report them: flag
// letters in itmnsp order, then k and l with their parameters.
func (c *Channel) modeString() string {
	modes := "+"
	params := ""

	for _, mode := range []byte("itmnsp") {
		if c.hasMode(mode) {
			modes += string(mode)
		}
	}

	if c.HasKey {
		modes += "k"
		params += " " + c.Key
	}

	if c.Limit > 0 {
		modes += "l"
		params += fmt.Sprintf(" %d", c.Limit)
	}

	return modes + params
}

// statusSymbol is the channel symbol shown in NAMES replies: @ for secret
// channels, * for private, = otherwise.
func (c *Channel) statusSymbol() string {
	if c.hasMode('s') {
		return "@"
	}
	if c.hasMode('p') {
		return "*"
	}
	return "="
}

// visibleTo says whether the channel shows up in LIST, NAMES, and WHOIS
// output for this user. Secret and private channels show to members only.
func (c *Channel) visibleTo(u *User) bool {
	if !c.hasMode('s') && !c.hasMode('p') {
		return true
	}
	return c.hasMember(u.ID)
}

// namesReply builds the NAMES membership list: nicks in arrival order, ops
// prefixed with @.
func (c *Channel) namesReply(s *Server) string {
	names := ""
	for _, id := range c.memberIDs() {
		member, exists := s.Users[id]
		if !exists {
			continue
		}

		if len(names) > 0 {
			names += " "
		}
		if c.userHasOps(id) {
			names += "@"
		}
		names += member.Nick
	}
	return names
}

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/minnowircd/minnow/irc"
)

// Longest QUIT reason we relay.
const maxQuitReasonLength = 255

// commandHandler describes one verb: the function that runs it, how many
// parameters it needs before it runs, and whether it may run before
// registration completes.
type commandHandler struct {
	fn        func(s *Server, u *User, m irc.Message)
	minParams int
	preReg    bool
}

// commands maps verbs to handlers. Verbs arrive upper-cased from the
// parser. Verbs whose parameter errors are more specific than 461 declare
// no minimum and check inside.
var commands = map[string]commandHandler{
	"PASS":    {fn: passCommand, preReg: true},
	"NICK":    {fn: nickCommand, preReg: true},
	"USER":    {fn: userCommand, preReg: true},
	"CAP":     {fn: capCommand, preReg: true},
	"PING":    {fn: pingCommand, preReg: true},
	"QUIT":    {fn: quitCommand, preReg: true},
	"PONG":    {fn: pongCommand},
	"JOIN":    {fn: joinCommand, minParams: 1},
	"PART":    {fn: partCommand, minParams: 1},
	"PRIVMSG": {fn: privmsgCommand},
	"NOTICE":  {fn: noticeCommand},
	"KICK":    {fn: kickCommand, minParams: 2},
	"INVITE":  {fn: inviteCommand, minParams: 2},
	"TOPIC":   {fn: topicCommand, minParams: 1},
	"MODE":    {fn: modeCommand, minParams: 1},
	"WHO":     {fn: whoCommand, minParams: 1},
	"WHOIS":   {fn: whoisCommand, minParams: 1},
	"LIST":    {fn: listCommand},
	"NAMES":   {fn: namesCommand},
	"MOTD":    {fn: motdCommand},
	"VERSION": {fn: versionCommand},
	"TIME":    {fn: timeCommand},
	"INFO":    {fn: infoCommand},
	"ADMIN":   {fn: adminCommand},
	"STATS":   {fn: statsCommand},
}

// handleMessage takes action based on a client's IRC message.
func (s *Server) handleMessage(u *User, m irc.Message) {
	s.log.Debugf("Client %s: Message: %s %v", u, m.Command, m.Params)

	handler, exists := commands[m.Command]

	// Before registration only the handshake verbs work. Unknown verbs get
	// the same answer, so probing tells you nothing.
	if !u.Registered && (!exists || !handler.preReg) {
		// 451 ERR_NOTREGISTERED
		s.sendNumeric(u, "451", ":You have not registered")
		return
	}

	if !exists {
		// 421 ERR_UNKNOWNCOMMAND
		s.sendNumeric(u, "421", fmt.Sprintf("%s :Unknown command", m.Command))
		return
	}

	if len(m.Params) < handler.minParams {
		// 461 ERR_NEEDMOREPARAMS
		s.sendNumeric(u, "461", fmt.Sprintf("%s :Not enough parameters",
			m.Command))
		return
	}

	handler.fn(s, u, m)
}

// checkRegistration completes registration once the password, nick, and
// user details are all in, and sends the welcome burst.
func (s *Server) checkRegistration(u *User) {
	if u.Registered {
		return
	}

	if s.Config.Password != "" && !u.PasswordOK {
		return
	}

	if u.Nick == "" || u.Username == "" {
		return
	}

	u.Registered = true

	s.log.Infof("Client %s: Registered.", u)

	// 001 RPL_WELCOME
	s.sendNumeric(u, "001", fmt.Sprintf(
		":Welcome to the Internet Relay Network %s", u.prefix()))

	// 002 RPL_YOURHOST
	s.sendNumeric(u, "002", fmt.Sprintf(":Your host is %s, running version %s",
		s.Config.ServerName, s.Config.Version))

	// 003 RPL_CREATED
	s.sendNumeric(u, "003", fmt.Sprintf(":This server was created %s",
		s.StartTime.Format(time.ANSIC)))

	// 004 RPL_MYINFO
	s.sendNumeric(u, "004", fmt.Sprintf("%s %s o itmnspkl",
		s.Config.ServerName, s.Config.Version))

	s.sendMOTD(u)
}

func passCommand(s *Server, u *User, m irc.Message) {
	if u.Registered {
		// 462 ERR_ALREADYREGISTRED
		s.sendNumeric(u, "462", ":Unauthorized command (already registered)")
		return
	}

	if len(m.Params) == 0 {
		// 461 ERR_NEEDMOREPARAMS
		s.sendNumeric(u, "461", "PASS :Not enough parameters")
		return
	}

	if m.Params[0] != s.Config.Password {
		// 464 ERR_PASSWDMISMATCH
		s.sendNumeric(u, "464", ":Password incorrect")
		s.log.Warnf("Client %s: Failed password attempt", u)
		return
	}

	u.PasswordOK = true

	s.checkRegistration(u)
}

func nickCommand(s *Server, u *User, m irc.Message) {
	if len(m.Params) == 0 {
		// 431 ERR_NONICKNAMEGIVEN
		s.sendNumeric(u, "431", ":No nickname given")
		return
	}

	nick := m.Params[0]

	if !isValidNick(nick) || isReservedNick(nick) {
		// 432 ERR_ERRONEUSNICKNAME
		s.sendNumeric(u, "432", fmt.Sprintf("%s :Erroneous nickname", nick))
		return
	}

	// Taken by someone else? Re-casing your own nick is allowed.
	if id, exists := s.Nicks[canonicalizeNick(nick)]; exists && id != u.ID {
		// 433 ERR_NICKNAMEINUSE
		s.sendNumeric(u, "433", fmt.Sprintf("%s :Nickname is already in use",
			nick))
		return
	}

	if u.Nick != "" {
		delete(s.Nicks, canonicalizeNick(u.Nick))
	}

	if u.Registered {
		// Everyone sharing a channel hears the change once, the user itself
		// included. The old nick is the source.
		s.sendToSharers(u, fmt.Sprintf(":%s NICK :%s", u.prefix(), nick), true)
	}

	u.Nick = nick
	s.Nicks[canonicalizeNick(nick)] = u.ID

	s.checkRegistration(u)
}

func userCommand(s *Server, u *User, m irc.Message) {
	if u.Registered {
		// 462 ERR_ALREADYREGISTRED
		s.sendNumeric(u, "462", ":Unauthorized command (already registered)")
		return
	}

	if len(m.Params) < 4 {
		// 461 ERR_NEEDMOREPARAMS
		s.sendNumeric(u, "461", "USER :Not enough parameters")
		return
	}

	u.Username = m.Params[0]
	u.RealName = m.Params[3]

	s.checkRegistration(u)
}

// capCommand answers capability negotiation. We have no capabilities, so
// every CAP line gets the empty LS reply and is otherwise inert.
func capCommand(s *Server, u *User, m irc.Message) {
	s.sendLine(u, "CAP * LS :")
}

func pingCommand(s *Server, u *User, m irc.Message) {
	if len(m.Params) == 0 {
		// 409 ERR_NOORIGIN
		s.sendNumeric(u, "409", ":No origin specified")
		return
	}

	s.sendLine(u, fmt.Sprintf(":%s PONG %s :%s", s.Config.ServerName,
		s.Config.ServerName, m.Params[0]))
}

// pongCommand accepts a PONG. Activity time refreshed when the message
// arrived, which is all a PONG is for.
func pongCommand(s *Server, u *User, m irc.Message) {
}

func quitCommand(s *Server, u *User, m irc.Message) {
	reason := "Client quit"
	if len(m.Params) > 0 && len(m.Params[0]) > 0 {
		reason = m.Params[0]
		if len(reason) > maxQuitReasonLength {
			reason = reason[:maxQuitReasonLength]
		}
	}

	s.quitUser(u, reason, "")
}

func joinCommand(s *Server, u *User, m irc.Message) {
	// JOIN takes comma separated lists of channels and keys. The nth key is
	// for the nth channel.
	targets := strings.Split(m.Params[0], ",")

	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range targets {
		if name == "" {
			continue
		}

		key := ""
		if i < len(keys) {
			key = keys[i]
		}

		s.join(u, name, key)
	}
}

// join takes the user through the admission checks for one channel and, if
// they all pass, into the channel.
func (s *Server) join(u *User, name, key string) {
	// A bare name is a # channel.
	if name[0] != '#' && name[0] != '&' {
		name = "#" + name
	}

	ch, exists := s.Channels[name]

	if exists && u.onChannel(ch.Name) {
		return
	}

	if len(u.Channels) >= maxChannelsPerUser {
		// 405 ERR_TOOMANYCHANNELS
		s.sendNumeric(u, "405", fmt.Sprintf(
			"%s :You have joined too many channels", name))
		return
	}

	if !isValidChannel(name) {
		// 403 ERR_NOSUCHCHANNEL
		s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", name))
		return
	}

	if exists {
		if ch.isBanned(u) {
			// 474 ERR_BANNEDFROMCHAN
			s.sendNumeric(u, "474", fmt.Sprintf("%s :Cannot join channel (+b)",
				name))
			return
		}

		if ch.Limit > 0 && len(ch.Members) >= ch.Limit {
			// 471 ERR_CHANNELISFULL
			s.sendNumeric(u, "471", fmt.Sprintf("%s :Cannot join channel (+l)",
				name))
			return
		}

		if ch.hasMode('i') && !ch.isInvited(u.ID) {
			// 473 ERR_INVITEONLYCHAN
			s.sendNumeric(u, "473", fmt.Sprintf("%s :Cannot join channel (+i)",
				name))
			return
		}

		if ch.HasKey && ch.Key != key {
			// 475 ERR_BADCHANNELKEY
			s.sendNumeric(u, "475", fmt.Sprintf("%s :Cannot join channel (+k)",
				name))
			return
		}
	} else {
		ch = newChannel(name)
		s.Channels[name] = ch
	}

	s.addToChannel(u, ch)
	ch.removeInvite(u.ID)

	// Everyone hears the join, the joiner included.
	s.sendToChannel(ch, fmt.Sprintf(":%s JOIN :%s", u.prefix(), ch.Name), nil)

	if ch.Topic != "" {
		// 332 RPL_TOPIC
		s.sendNumeric(u, "332", fmt.Sprintf("%s :%s", ch.Name, ch.Topic))
	} else {
		// 331 RPL_NOTOPIC
		s.sendNumeric(u, "331", fmt.Sprintf("%s :No topic is set", ch.Name))
	}

	s.sendNames(u, ch)

	s.log.Debugf("Client %s: Joined %s", u, ch.Name)
}

func partCommand(s *Server, u *User, m irc.Message) {
	reason := "Leaving"
	if len(m.Params) > 1 && len(m.Params[1]) > 0 {
		reason = m.Params[1]
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		if name == "" {
			continue
		}
		s.part(u, name, reason)
	}
}

// part removes the user from one channel.
func (s *Server) part(u *User, name, reason string) {
	ch, exists := s.Channels[name]
	if !exists || !u.onChannel(name) {
		// 442 ERR_NOTONCHANNEL
		s.sendNumeric(u, "442", fmt.Sprintf("%s :You're not on that channel",
			name))
		return
	}

	// Everyone hears it, the leaver included.
	s.sendToChannel(ch, fmt.Sprintf(":%s PART %s :%s", u.prefix(), ch.Name,
		reason), nil)

	s.removeFromChannel(u, ch)

	s.log.Debugf("Client %s: Parted %s", u, name)
}

func privmsgCommand(s *Server, u *User, m irc.Message) {
	s.message(u, m, "PRIVMSG")
}

func noticeCommand(s *Server, u *User, m irc.Message) {
	s.message(u, m, "NOTICE")
}

// message routes a PRIVMSG or NOTICE. The two differ in exactly one way:
// NOTICE never generates a numeric reply, not even for missing parameters.
func (s *Server) message(u *User, m irc.Message, verb string) {
	notice := verb == "NOTICE"

	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		if !notice {
			// 411 ERR_NORECIPIENT
			s.sendNumeric(u, "411", fmt.Sprintf(":No recipient given (%s)",
				verb))
		}
		return
	}

	if len(m.Params) < 2 || len(m.Params[1]) == 0 {
		if !notice {
			// 412 ERR_NOTEXTTOSEND
			s.sendNumeric(u, "412", ":No text to send")
		}
		return
	}

	text := m.Params[1]

	for _, target := range strings.Split(m.Params[0], ",") {
		if target == "" {
			continue
		}
		s.messageTarget(u, target, text, verb, notice)
	}
}

// messageTarget relays message text to one channel or one nick.
func (s *Server) messageTarget(u *User, target, text, verb string,
	notice bool) {
	if target[0] == '#' || target[0] == '&' {
		ch, exists := s.Channels[target]
		if !exists {
			if !notice {
				// 403 ERR_NOSUCHCHANNEL
				s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel",
					target))
			}
			return
		}

		// Members only. Moderated channels need ops, and a ban mutes a
		// member it didn't keep out.
		if !ch.hasMember(u.ID) || ch.hasMode('m') && !ch.userHasOps(u.ID) ||
			ch.isBanned(u) {
			if !notice {
				// 404 ERR_CANNOTSENDTOCHAN
				s.sendNumeric(u, "404", fmt.Sprintf(
					"%s :Cannot send to channel", target))
			}
			return
		}

		s.sendToChannel(ch, fmt.Sprintf(":%s %s %s :%s", u.prefix(), verb,
			ch.Name, text), u)
		return
	}

	t, exists := s.lookupNick(target)
	if !exists {
		if !notice {
			// 401 ERR_NOSUCHNICK
			s.sendNumeric(u, "401", fmt.Sprintf("%s :No such nick/channel",
				target))
		}
		return
	}

	s.sendLine(t, fmt.Sprintf(":%s %s %s :%s", u.prefix(), verb, t.Nick,
		text))
}

func kickCommand(s *Server, u *User, m irc.Message) {
	name := m.Params[0]

	ch, exists := s.Channels[name]
	if !exists {
		// 403 ERR_NOSUCHCHANNEL
		s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", name))
		return
	}

	if !ch.hasMember(u.ID) {
		// 442 ERR_NOTONCHANNEL
		s.sendNumeric(u, "442", fmt.Sprintf("%s :You're not on that channel",
			name))
		return
	}

	if !ch.userHasOps(u.ID) {
		// 482 ERR_CHANOPRIVSNEEDED
		s.sendNumeric(u, "482", fmt.Sprintf("%s :You're not channel operator",
			name))
		return
	}

	reason := u.Nick
	if len(m.Params) > 2 && len(m.Params[2]) > 0 {
		reason = m.Params[2]
	}

	for _, victim := range strings.Split(m.Params[1], ",") {
		if victim == "" {
			continue
		}
		s.kick(u, ch, victim, reason)
	}
}

// kick throws one user out of the channel.
func (s *Server) kick(u *User, ch *Channel, nick, reason string) {
	victim, exists := s.lookupNick(nick)
	if !exists {
		// 401 ERR_NOSUCHNICK
		s.sendNumeric(u, "401", fmt.Sprintf("%s :No such nick", nick))
		return
	}

	if !ch.hasMember(victim.ID) {
		// 441 ERR_USERNOTINCHANNEL
		s.sendNumeric(u, "441", fmt.Sprintf(
			"%s %s :They aren't on that channel", victim.Nick, ch.Name))
		return
	}

	// The victim hears the kick too.
	s.sendToChannel(ch, fmt.Sprintf(":%s KICK %s %s :%s", u.prefix(),
		ch.Name, victim.Nick, reason), nil)

	s.removeFromChannel(victim, ch)

	s.log.Debugf("Client %s: Kicked from %s by %s", victim, ch.Name, u)
}

func inviteCommand(s *Server, u *User, m irc.Message) {
	nick := m.Params[0]
	name := m.Params[1]

	ch, exists := s.Channels[name]
	if !exists {
		// 403 ERR_NOSUCHCHANNEL
		s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", name))
		return
	}

	if !ch.hasMember(u.ID) {
		// 442 ERR_NOTONCHANNEL
		s.sendNumeric(u, "442", fmt.Sprintf("%s :You're not on that channel",
			name))
		return
	}

	// Anyone may invite to an open channel. Invite-only channels are the
	// operators' door to hold.
	if ch.hasMode('i') && !ch.userHasOps(u.ID) {
		// 482 ERR_CHANOPRIVSNEEDED
		s.sendNumeric(u, "482", fmt.Sprintf("%s :You're not channel operator",
			name))
		return
	}

	target, exists := s.lookupNick(nick)
	if !exists {
		// 401 ERR_NOSUCHNICK
		s.sendNumeric(u, "401", fmt.Sprintf("%s :No such nick", nick))
		return
	}

	if ch.hasMember(target.ID) {
		// 443 ERR_USERONCHANNEL
		s.sendNumeric(u, "443", fmt.Sprintf("%s %s :is already on channel",
			target.Nick, ch.Name))
		return
	}

	ch.addInvite(target.ID)

	// 341 RPL_INVITING
	s.sendNumeric(u, "341", fmt.Sprintf("%s %s", target.Nick, ch.Name))

	s.sendLine(target, fmt.Sprintf(":%s INVITE %s :%s", u.prefix(),
		target.Nick, ch.Name))
}

func topicCommand(s *Server, u *User, m irc.Message) {
	name := m.Params[0]

	ch, exists := s.Channels[name]
	if !exists {
		// 403 ERR_NOSUCHCHANNEL
		s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", name))
		return
	}

	if !ch.hasMember(u.ID) {
		// 442 ERR_NOTONCHANNEL
		s.sendNumeric(u, "442", fmt.Sprintf("%s :You're not on that channel",
			name))
		return
	}

	// One parameter reads the topic.
	if len(m.Params) < 2 {
		if ch.Topic == "" {
			// 331 RPL_NOTOPIC
			s.sendNumeric(u, "331", fmt.Sprintf("%s :No topic is set",
				ch.Name))
			return
		}

		// 332 RPL_TOPIC
		s.sendNumeric(u, "332", fmt.Sprintf("%s :%s", ch.Name, ch.Topic))
		return
	}

	if ch.hasMode('t') && !ch.userHasOps(u.ID) {
		// 482 ERR_CHANOPRIVSNEEDED
		s.sendNumeric(u, "482", fmt.Sprintf("%s :You're not channel operator",
			name))
		return
	}

	topic := m.Params[1]
	if len(topic) > maxTopicLength {
		topic = topic[:maxTopicLength]
	}

	ch.Topic = topic
	ch.TopicSetter = u.prefix()
	ch.TopicTS = time.Now().Unix()

	s.sendToChannel(ch, fmt.Sprintf(":%s TOPIC %s :%s", u.prefix(), ch.Name,
		ch.Topic), nil)
}

func modeCommand(s *Server, u *User, m irc.Message) {
	target := m.Params[0]

	if len(target) > 0 && (target[0] == '#' || target[0] == '&') {
		ch, exists := s.Channels[target]
		if !exists {
			// 403 ERR_NOSUCHCHANNEL
			s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", target))
			return
		}

		if !ch.hasMember(u.ID) {
			// 442 ERR_NOTONCHANNEL
			s.sendNumeric(u, "442", fmt.Sprintf(
				"%s :You're not on that channel", target))
			return
		}

		// A bare MODE asks for the current modes.
		if len(m.Params) < 2 {
			// 324 RPL_CHANNELMODEIS
			s.sendNumeric(u, "324", fmt.Sprintf("%s %s", ch.Name,
				ch.modeString()))
			return
		}

		if !ch.userHasOps(u.ID) {
			// 482 ERR_CHANOPRIVSNEEDED
			s.sendNumeric(u, "482", fmt.Sprintf(
				"%s :You're not channel operator", target))
			return
		}

		s.applyChannelModes(u, ch, m.Params[1], m.Params[2:])
		return
	}

	// User modes. We accept them on yourself and store none of them.
	// Anyone else's modes are not yours to touch.
	t, exists := s.lookupNick(target)
	if !exists || t.ID != u.ID {
		// 502 ERR_USERSDONTMATCH
		s.sendNumeric(u, "502", ":Cannot change mode for other users")
		return
	}
}

// applyChannelModes walks a MODE change left to right and applies what it
// can. Letters that took effect are broadcast to the channel, re-signed,
// with their parameters in order; everything else drops out of the
// broadcast. Unknown letters get a 472 and processing continues.
func (s *Server) applyChannelModes(u *User, ch *Channel, modes string,
	params []string) {
	applied := ""
	var appliedParams []string

	sign := byte('+')
	lastSign := byte(0)

	appendMode := func(letter byte) {
		if lastSign != sign {
			applied += string(sign)
			lastSign = sign
		}
		applied += string(letter)
	}

	nextParam := func() (string, bool) {
		if len(params) == 0 {
			return "", false
		}
		p := params[0]
		params = params[1:]
		return p, true
	}

	for i := 0; i < len(modes); i++ {
		letter := modes[i]

		switch letter {
		case '+', '-':
			sign = letter

		case 'i', 't', 'm', 'n', 's', 'p':
			if sign == '+' {
				if !ch.hasMode(letter) {
					ch.Modes[letter] = struct{}{}
					appendMode(letter)
				}
			} else {
				if ch.hasMode(letter) {
					delete(ch.Modes, letter)
					appendMode(letter)
				}
			}

		case 'k':
			if sign == '+' {
				key, ok := nextParam()
				if !ok {
					break
				}
				if !ch.setKey(key) {
					break
				}
				appendMode('k')
				// setKey may have truncated. Relay what was kept.
				appliedParams = append(appliedParams, ch.Key)
			} else {
				if !ch.HasKey {
					break
				}
				ch.clearKey()
				appendMode('k')
			}

		case 'l':
			if sign == '+' {
				arg, ok := nextParam()
				if !ok {
					break
				}
				limit, err := strconv.Atoi(arg)
				if err != nil || limit < 1 {
					break
				}
				if limit > maxUserLimit {
					limit = maxUserLimit
				}
				ch.Limit = limit
				appendMode('l')
				appliedParams = append(appliedParams, strconv.Itoa(limit))
			} else {
				if ch.Limit == 0 {
					break
				}
				ch.Limit = 0
				appendMode('l')
			}

		case 'o':
			nick, ok := nextParam()
			if !ok {
				break
			}

			target, exists := s.lookupNick(nick)
			if !exists || !ch.hasMember(target.ID) {
				break
			}

			if sign == '+' {
				if ch.userHasOps(target.ID) {
					break
				}
				ch.grantOps(target.ID)
			} else {
				if !ch.userHasOps(target.ID) {
					break
				}
				ch.removeOps(target.ID)
			}

			appendMode('o')
			appliedParams = append(appliedParams, target.Nick)

		default:
			// 472 ERR_UNKNOWNMODE
			s.sendNumeric(u, "472", fmt.Sprintf(
				"%c :is unknown mode char to me", letter))
		}
	}

	if applied == "" {
		return
	}

	line := fmt.Sprintf(":%s MODE %s %s", u.prefix(), ch.Name, applied)
	if len(appliedParams) > 0 {
		line += " " + strings.Join(appliedParams, " ")
	}
	s.sendToChannel(ch, line, nil)

	// -o may have taken the last operator while members remain.
	s.ensureOperators(ch)
}

func whoCommand(s *Server, u *User, m irc.Message) {
	mask := m.Params[0]

	if len(mask) > 0 && (mask[0] == '#' || mask[0] == '&') {
		ch, exists := s.Channels[mask]
		if !exists {
			// 403 ERR_NOSUCHCHANNEL
			s.sendNumeric(u, "403", fmt.Sprintf("%s :No such channel", mask))
			return
		}

		if !ch.hasMember(u.ID) {
			// 442 ERR_NOTONCHANNEL
			s.sendNumeric(u, "442", fmt.Sprintf(
				"%s :You're not on that channel", mask))
			return
		}

		for _, id := range ch.memberIDs() {
			member, exists := s.Users[id]
			if !exists {
				continue
			}

			flags := "H"
			if ch.userHasOps(id) {
				flags += "@"
			}

			// 352 RPL_WHOREPLY
			s.sendNumeric(u, "352", fmt.Sprintf("%s %s %s %s %s %s :0 %s",
				ch.Name, member.Username, member.Hostname,
				s.Config.ServerName, member.Nick, flags, member.RealName))
		}
	}

	// 315 RPL_ENDOFWHO
	s.sendNumeric(u, "315", fmt.Sprintf("%s :End of /WHO list", mask))
}

func whoisCommand(s *Server, u *User, m irc.Message) {
	nick := m.Params[0]

	target, exists := s.lookupNick(nick)
	if !exists {
		// 401 ERR_NOSUCHNICK
		s.sendNumeric(u, "401", fmt.Sprintf("%s :No such nick", nick))
		return
	}

	// 311 RPL_WHOISUSER
	s.sendNumeric(u, "311", fmt.Sprintf("%s %s %s * :%s", target.Nick,
		target.Username, target.Hostname, target.RealName))

	// 312 RPL_WHOISSERVER
	s.sendNumeric(u, "312", fmt.Sprintf("%s %s :%s", target.Nick,
		s.Config.ServerName, s.Config.ServerInfo))

	channels := ""
	for _, name := range sortedChannelNames(target.Channels) {
		ch := target.Channels[name]
		if !ch.visibleTo(u) {
			continue
		}

		if len(channels) > 0 {
			channels += " "
		}
		if ch.userHasOps(target.ID) {
			channels += "@"
		}
		channels += ch.Name
	}
	if channels != "" {
		// 319 RPL_WHOISCHANNELS
		s.sendNumeric(u, "319", fmt.Sprintf("%s :%s", target.Nick, channels))
	}

	idle := int(time.Since(target.LastActivityTime).Seconds())

	// 317 RPL_WHOISIDLE
	s.sendNumeric(u, "317", fmt.Sprintf("%s %d %d :seconds idle, signon time",
		target.Nick, idle, target.ConnectionStartTime.Unix()))

	// 318 RPL_ENDOFWHOIS
	s.sendNumeric(u, "318", fmt.Sprintf("%s :End of /WHOIS list", target.Nick))
}

func listCommand(s *Server, u *User, m irc.Message) {
	// 321 RPL_LISTSTART
	s.sendNumeric(u, "321", "Channel :Users  Name")

	if len(m.Params) > 0 && len(m.Params[0]) > 0 {
		for _, name := range strings.Split(m.Params[0], ",") {
			ch, exists := s.Channels[name]
			if !exists || !ch.visibleTo(u) {
				continue
			}
			s.sendListReply(u, ch)
		}
	} else {
		for _, name := range sortedChannelNames(s.Channels) {
			ch := s.Channels[name]
			if !ch.visibleTo(u) {
				continue
			}
			s.sendListReply(u, ch)
		}
	}

	// 323 RPL_LISTEND
	s.sendNumeric(u, "323", ":End of /LIST")
}

func (s *Server) sendListReply(u *User, ch *Channel) {
	// 322 RPL_LIST
	s.sendNumeric(u, "322", fmt.Sprintf("%s %d :%s", ch.Name,
		len(ch.Members), ch.Topic))
}

func namesCommand(s *Server, u *User, m irc.Message) {
	if len(m.Params) > 0 && len(m.Params[0]) > 0 {
		for _, name := range strings.Split(m.Params[0], ",") {
			ch, exists := s.Channels[name]
			if !exists || !ch.visibleTo(u) {
				continue
			}
			s.sendNames(u, ch)
		}
		return
	}

	for _, name := range sortedChannelNames(s.Channels) {
		ch := s.Channels[name]
		if !ch.visibleTo(u) {
			continue
		}
		s.sendNames(u, ch)
	}
}

// sendNames sends the channel's membership list, 353 then 366.
func (s *Server) sendNames(u *User, ch *Channel) {
	// 353 RPL_NAMREPLY
	s.sendNumeric(u, "353", fmt.Sprintf("%s %s :%s", ch.statusSymbol(),
		ch.Name, ch.namesReply(s)))

	// 366 RPL_ENDOFNAMES
	s.sendNumeric(u, "366", fmt.Sprintf("%s :End of /NAMES list", ch.Name))
}

func motdCommand(s *Server, u *User, m irc.Message) {
	s.sendMOTD(u)
}

// sendMOTD sends the MOTD block: 375, one 372 per line, 376. With no MOTD
// configured the whole block is a 422.
func (s *Server) sendMOTD(u *User) {
	if s.Config.MOTD == "" {
		// 422 ERR_NOMOTD
		s.sendNumeric(u, "422", ":MOTD File is missing")
		return
	}

	// 375 RPL_MOTDSTART
	s.sendNumeric(u, "375", fmt.Sprintf(":- %s Message of the day - ",
		s.Config.ServerName))

	for _, line := range strings.Split(s.Config.MOTD, "\n") {
		// 372 RPL_MOTD
		s.sendNumeric(u, "372", fmt.Sprintf(":- %s", line))
	}

	// 376 RPL_ENDOFMOTD
	s.sendNumeric(u, "376", ":End of /MOTD command")
}

func versionCommand(s *Server, u *User, m irc.Message) {
	// 351 RPL_VERSION
	s.sendNumeric(u, "351", fmt.Sprintf("%s.%s :%s", s.Config.Version,
		s.Config.ServerName, s.Config.ServerInfo))
}

func timeCommand(s *Server, u *User, m irc.Message) {
	// 391 RPL_TIME
	s.sendNumeric(u, "391", fmt.Sprintf("%s :%s", s.Config.ServerName,
		time.Now().Format(time.ANSIC)))
}

func infoCommand(s *Server, u *User, m irc.Message) {
	// 371 RPL_INFO
	s.sendNumeric(u, "371", fmt.Sprintf(":%s (%s)", s.Config.ServerInfo,
		s.Config.Version))
	s.sendNumeric(u, "371", fmt.Sprintf(":Running since %s",
		s.StartTime.Format(time.ANSIC)))

	// 374 RPL_ENDOFINFO
	s.sendNumeric(u, "374", ":End of /INFO list")
}

func adminCommand(s *Server, u *User, m irc.Message) {
	// 256 RPL_ADMINME
	s.sendNumeric(u, "256", fmt.Sprintf(":Administrative info about %s",
		s.Config.ServerName))

	// 257 RPL_ADMINLOC1
	s.sendNumeric(u, "257", ":"+s.Config.AdminLocation)

	// 258 RPL_ADMINLOC2
	s.sendNumeric(u, "258", ":"+s.Config.ServerInfo)

	// 259 RPL_ADMINEMAIL
	s.sendNumeric(u, "259", ":"+s.Config.AdminEmail)
}

func statsCommand(s *Server, u *User, m irc.Message) {
	// 242 RPL_STATSUPTIME
	s.sendNumeric(u, "242", fmt.Sprintf(":Server Up %s",
		formatUptime(time.Since(s.StartTime))))

	s.sendNumeric(u, "243", fmt.Sprintf(":Total connections: %d",
		s.TotalConnections))
	s.sendNumeric(u, "244", fmt.Sprintf(":Current connections: %d",
		len(s.Users)))
	s.sendNumeric(u, "245", fmt.Sprintf(":Maximum connections: %d",
		s.Config.MaxClients))
	s.sendNumeric(u, "246", fmt.Sprintf(":Active channels: %d",
		len(s.Channels)))

	// 219 RPL_ENDOFSTATS
	s.sendNumeric(u, "219", "u :End of /STATS report")
}

// sortedChannelNames returns the names of the given channels sorted, for
// output whose order should be stable.
func sortedChannelNames(channels map[string]*Channel) []string {
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

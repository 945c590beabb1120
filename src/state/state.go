// Package state holds the in-memory entity cache built from the gateway
// event stream. The gateway session is the only writer; reads are safe
// from any goroutine.
package state

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/hendrywilliam/halcyon/src/structs"
)

// DefaultMessageCacheLimit caps how many messages are retained per channel.
const DefaultMessageCacheLimit = 200

type State struct {
	rwlock sync.RWMutex

	guilds   map[snowflake.ID]*structs.Guild
	users    map[snowflake.ID]*structs.User
	channels map[snowflake.ID]*structs.Channel
	messages map[snowflake.ID][]*structs.Message

	MessageCacheLimit int
}

func NewState() *State {
	return &State{
		guilds:            make(map[snowflake.ID]*structs.Guild),
		users:             make(map[snowflake.ID]*structs.User),
		channels:          make(map[snowflake.ID]*structs.Channel),
		messages:          make(map[snowflake.ID][]*structs.Message),
		MessageCacheLimit: DefaultMessageCacheLimit,
	}
}

// Reset discards every cached entity. Used when a fresh identify replaces
// a dead session, the old graph is never merged into the new one.
func (s *State) Reset() {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	s.guilds = make(map[snowflake.ID]*structs.Guild)
	s.users = make(map[snowflake.ID]*structs.User)
	s.channels = make(map[snowflake.ID]*structs.Channel)
	s.messages = make(map[snowflake.ID][]*structs.Message)
}

func (s *State) Guild(id snowflake.ID) *structs.Guild {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.guilds[id]
}

// Guilds returns a snapshot slice of every cached guild.
func (s *State) Guilds() []*structs.Guild {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	guilds := make([]*structs.Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		guilds = append(guilds, g)
	}
	return guilds
}

func (s *State) GuildCount() int {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return len(s.guilds)
}

func (s *State) Channel(id snowflake.ID) *structs.Channel {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.channels[id]
}

func (s *State) User(id snowflake.ID) *structs.User {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.users[id]
}

func (s *State) Member(guildID, userID snowflake.ID) *structs.Member {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	if guild, ok := s.guilds[guildID]; ok {
		return guild.Members[userID]
	}
	return nil
}

func (s *State) Role(guildID, roleID snowflake.ID) *structs.Role {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	if guild, ok := s.guilds[guildID]; ok {
		return guild.Roles[roleID]
	}
	return nil
}

func (s *State) Presence(guildID, userID snowflake.ID) *structs.Presence {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	if guild, ok := s.guilds[guildID]; ok {
		return guild.Presences[userID]
	}
	return nil
}

func (s *State) Message(channelID, messageID snowflake.ID) *structs.Message {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	for _, m := range s.messages[channelID] {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

// PutGuild stores a guild and indexes its channels in the global channel
// map. Storing a guild that already exists replaces it wholesale.
func (s *State) PutGuild(guild *structs.Guild) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if old, ok := s.guilds[guild.ID]; ok {
		for id := range old.Channels {
			delete(s.channels, id)
		}
	}
	s.guilds[guild.ID] = guild
	for id, ch := range guild.Channels {
		s.channels[id] = ch
	}
	for _, m := range guild.Members {
		if m.User != nil {
			s.users[m.User.ID] = m.User
		}
	}
}

// DeleteGuild removes the guild and cascades over everything it owns.
func (s *State) DeleteGuild(id snowflake.ID) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	guild, ok := s.guilds[id]
	if !ok {
		return
	}
	for chID := range guild.Channels {
		delete(s.channels, chID)
		delete(s.messages, chID)
	}
	delete(s.guilds, id)
}

func (s *State) PutChannel(channel *structs.Channel) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	s.channels[channel.ID] = channel
	if guild, ok := s.guilds[channel.GuildID]; ok {
		guild.Channels[channel.ID] = channel
	}
}

func (s *State) DeleteChannel(channel *structs.Channel) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	delete(s.channels, channel.ID)
	delete(s.messages, channel.ID)
	if guild, ok := s.guilds[channel.GuildID]; ok {
		delete(guild.Channels, channel.ID)
	}
}

// PutUser stores the user, or refreshes the cached instance in place so
// every entity sharing the pointer observes the update.
func (s *State) PutUser(user *structs.User) *structs.User {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if cached, ok := s.users[user.ID]; ok && cached != user {
		*cached = *user
		return cached
	}
	s.users[user.ID] = user
	return user
}

func (s *State) PutMember(member *structs.Member) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if member.User != nil {
		if cached, ok := s.users[member.User.ID]; ok && cached != member.User {
			*cached = *member.User
			member.User = cached
		} else {
			s.users[member.User.ID] = member.User
		}
	}
	if member.User == nil {
		return
	}
	if guild, ok := s.guilds[member.GuildID]; ok {
		guild.Members[member.User.ID] = member
		guild.MemberCount = len(guild.Members)
	}
}

func (s *State) DeleteMember(guildID, userID snowflake.ID) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if guild, ok := s.guilds[guildID]; ok {
		delete(guild.Members, userID)
		delete(guild.Presences, userID)
		guild.MemberCount = len(guild.Members)
	}
}

func (s *State) PutRole(role *structs.Role) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if guild, ok := s.guilds[role.GuildID]; ok {
		guild.Roles[role.ID] = role
	}
}

func (s *State) DeleteRole(guildID, roleID snowflake.ID) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	guild, ok := s.guilds[guildID]
	if !ok {
		return
	}
	delete(guild.Roles, roleID)
	// Members lose the role reference too, deletion is explicit and
	// never leaves a dangling id behind.
	for _, member := range guild.Members {
		for i, id := range member.Roles {
			if id == roleID {
				member.Roles = append(member.Roles[:i], member.Roles[i+1:]...)
				break
			}
		}
	}
}

func (s *State) PutPresence(presence *structs.Presence) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if guild, ok := s.guilds[presence.GuildID]; ok {
		guild.Presences[presence.UserID] = presence
	}
}

func (s *State) DeletePresence(guildID, userID snowflake.ID) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	if guild, ok := s.guilds[guildID]; ok {
		delete(guild.Presences, userID)
	}
}

// PutMessage appends to the channel's message window, evicting the oldest
// entry past MessageCacheLimit. Re-receiving an id replaces in place.
func (s *State) PutMessage(message *structs.Message) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	msgs := s.messages[message.ChannelID]
	for i, m := range msgs {
		if m.ID == message.ID {
			msgs[i] = message
			return
		}
	}
	msgs = append(msgs, message)
	if limit := s.MessageCacheLimit; limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	s.messages[message.ChannelID] = msgs
	if ch, ok := s.channels[message.ChannelID]; ok {
		ch.LastMessageID = message.ID
	}
}

func (s *State) DeleteMessage(channelID, messageID snowflake.ID) *structs.Message {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	msgs := s.messages[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			s.messages[channelID] = append(msgs[:i], msgs[i+1:]...)
			return m
		}
	}
	return nil
}

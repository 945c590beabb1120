package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/hendrywilliam/halcyon/src/state"
	"github.com/hendrywilliam/halcyon/src/structs"
)

// Observer event names. These mirror the dispatch set with the synthetic
// "ready" fired once the guild snapshot burst completes.
const (
	ObserverError                 = "error"
	ObserverReady                 = "ready"
	ObserverMessage               = "message"
	ObserverMessageUpdate         = "messageUpdate"
	ObserverMessageDelete         = "messageDelete"
	ObserverMessageReactionAdd    = "messageReactionAdd"
	ObserverMessageReactionRemove = "messageReactionRemove"
	ObserverGuildCreate           = "guildCreate"
	ObserverGuildUpdate           = "guildUpdate"
	ObserverGuildDelete           = "guildDelete"
	ObserverChannelCreate         = "channelCreate"
	ObserverChannelUpdate         = "channelUpdate"
	ObserverChannelDelete         = "channelDelete"
	ObserverGuildMemberAdd        = "guildMemberAdd"
	ObserverGuildMemberUpdate     = "guildMemberUpdate"
	ObserverGuildMemberRemove     = "guildMemberRemove"
	ObserverGuildRoleCreate       = "guildRoleCreate"
	ObserverGuildRoleUpdate       = "guildRoleUpdate"
	ObserverGuildRoleDelete       = "guildRoleDelete"
	ObserverPresenceUpdate        = "presenceUpdate"
	ObserverTypingStart           = "typingStart"
	ObserverUserUpdate            = "userUpdate"
)

func (g *Gateway) dispatchTable() map[structs.EventName]func(*structs.RawEvent) error {
	return map[structs.EventName]func(*structs.RawEvent) error{
		structs.EventNameReady:              g.handleReady,
		structs.EventNameResumed:            g.handleResumed,
		structs.EventNameGuildCreate:        g.handleGuildCreate,
		structs.EventNameGuildUpdate:        g.handleGuildUpdate,
		structs.EventNameGuildDelete:        g.handleGuildDelete,
		structs.EventNameChannelCreate:      g.handleChannelCreate,
		structs.EventNameChannelUpdate:      g.handleChannelUpdate,
		structs.EventNameChannelDelete:      g.handleChannelDelete,
		structs.EventNameGuildMemberAdd:     g.handleGuildMemberAdd,
		structs.EventNameGuildMemberUpdate:  g.handleGuildMemberUpdate,
		structs.EventNameGuildMemberRemove:  g.handleGuildMemberRemove,
		structs.EventNameGuildRoleCreate:    g.handleGuildRoleCreate,
		structs.EventNameGuildRoleUpdate:    g.handleGuildRoleUpdate,
		structs.EventNameGuildRoleDelete:    g.handleGuildRoleDelete,
		structs.EventNameMessageCreate:      g.handleMessageCreate,
		structs.EventNameMessageUpdate:      g.handleMessageUpdate,
		structs.EventNameMessageDelete:      g.handleMessageDelete,
		structs.EventNameMessageReactionAdd: g.handleMessageReactionAdd,
		structs.EventNameMessageReactionRem: g.handleMessageReactionRemove,
		structs.EventNamePresenceUpdate:     g.handlePresenceUpdate,
		structs.EventNameTypingStart:        g.handleTypingStart,
		structs.EventNameUserUpdate:         g.handleUserUpdate,
	}
}

// handleReady starts the sync phase. The protocol READY is not surfaced to
// observers directly, the guild graph is unusable until the snapshot burst
// finishes.
func (g *Gateway) handleReady(e *structs.RawEvent) error {
	ready := new(structs.ReadyEvent)
	if err := json.Unmarshal(e.D, ready); err != nil {
		return fmt.Errorf("failed to decode ready payload: %w", err)
	}
	g.session.Establish(ready.SessionID, ready.ResumeGatewayURL)
	if ready.User != nil {
		g.selfID = ready.User.ID
		g.state.PutUser(ready.User)
	}
	g.expectedGuilds = len(ready.Guilds)
	g.syncedGuilds = 0
	g.readyEmitted = false
	g.setStatus(StatusSyncing)
	g.log.Info("gateway handshake complete", "ready_event", ready)
	if g.expectedGuilds == 0 {
		g.finishSync()
	}
	return nil
}

// handleResumed ends a resume handshake. The store survived the drop, no
// sync burst follows and no synthetic ready fires again.
func (g *Gateway) handleResumed(e *structs.RawEvent) error {
	g.setStatus(StatusReady)
	g.log.Info("session resumed", "sequence", g.session.Sequence())
	return nil
}

func (g *Gateway) finishSync() {
	g.setStatus(StatusReady)
	if !g.readyEmitted {
		g.readyEmitted = true
		g.log.Info("gateway is ready", "guilds", g.state.GuildCount())
		g.notify(ObserverReady, g.state.Guilds())
	}
}

func (g *Gateway) handleGuildCreate(e *structs.RawEvent) error {
	guild, err := state.BuildGuild(e.D)
	if err != nil {
		return err
	}
	g.state.PutGuild(guild)
	if g.Status() == StatusSyncing {
		g.syncedGuilds++
		if g.syncedGuilds >= g.expectedGuilds {
			g.finishSync()
		}
		return nil
	}
	// Past the sync burst this is a genuine guild join.
	g.notify(ObserverGuildCreate, guild)
	return nil
}

// handleGuildUpdate replaces the guild's own fields while carrying the
// owned collections over, update payloads do not repeat them.
func (g *Gateway) handleGuildUpdate(e *structs.RawEvent) error {
	guild, err := state.BuildGuild(e.D)
	if err != nil {
		return err
	}
	if old := g.state.Guild(guild.ID); old != nil {
		if len(guild.Channels) == 0 {
			guild.Channels = old.Channels
		}
		if len(guild.Roles) == 0 {
			guild.Roles = old.Roles
		}
		if len(guild.Members) == 0 {
			guild.Members = old.Members
		}
		if len(guild.Presences) == 0 {
			guild.Presences = old.Presences
		}
		if len(guild.Emojis) == 0 {
			guild.Emojis = old.Emojis
		}
	}
	g.state.PutGuild(guild)
	g.notify(ObserverGuildUpdate, guild)
	return nil
}

func (g *Gateway) handleGuildDelete(e *structs.RawEvent) error {
	payload := new(structs.GuildDeleteEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode guild delete payload: %w", err)
	}
	guild := g.state.Guild(payload.ID)
	g.state.DeleteGuild(payload.ID)
	if guild != nil {
		g.notify(ObserverGuildDelete, guild)
	}
	return nil
}

func (g *Gateway) handleChannelCreate(e *structs.RawEvent) error {
	channel, err := state.BuildChannel(e.D, 0)
	if err != nil {
		return err
	}
	g.state.PutChannel(channel)
	g.notify(ObserverChannelCreate, channel)
	return nil
}

func (g *Gateway) handleChannelUpdate(e *structs.RawEvent) error {
	channel, err := state.BuildChannel(e.D, 0)
	if err != nil {
		return err
	}
	g.state.PutChannel(channel)
	g.notify(ObserverChannelUpdate, channel)
	return nil
}

func (g *Gateway) handleChannelDelete(e *structs.RawEvent) error {
	channel, err := state.BuildChannel(e.D, 0)
	if err != nil {
		return err
	}
	g.state.DeleteChannel(channel)
	g.notify(ObserverChannelDelete, channel)
	return nil
}

func (g *Gateway) handleGuildMemberAdd(e *structs.RawEvent) error {
	member, err := state.BuildMember(e.D, 0)
	if err != nil {
		return err
	}
	g.state.PutMember(member)
	g.notify(ObserverGuildMemberAdd, member)
	return nil
}

func (g *Gateway) handleGuildMemberUpdate(e *structs.RawEvent) error {
	member, err := state.BuildMember(e.D, 0)
	if err != nil {
		return err
	}
	g.state.PutMember(member)
	g.notify(ObserverGuildMemberUpdate, member)
	return nil
}

func (g *Gateway) handleGuildMemberRemove(e *structs.RawEvent) error {
	payload := new(structs.GuildMemberRemoveEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode member remove payload: %w", err)
	}
	if payload.User == nil {
		return nil
	}
	member := g.state.Member(payload.GuildID, payload.User.ID)
	g.state.DeleteMember(payload.GuildID, payload.User.ID)
	if member == nil {
		member = &structs.Member{GuildID: payload.GuildID, User: payload.User}
	}
	g.notify(ObserverGuildMemberRemove, member)
	return nil
}

func (g *Gateway) handleGuildRoleCreate(e *structs.RawEvent) error {
	return g.handleGuildRole(e, ObserverGuildRoleCreate)
}

func (g *Gateway) handleGuildRoleUpdate(e *structs.RawEvent) error {
	return g.handleGuildRole(e, ObserverGuildRoleUpdate)
}

func (g *Gateway) handleGuildRole(e *structs.RawEvent, observer string) error {
	payload := new(structs.GuildRoleEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode role payload: %w", err)
	}
	role, err := state.BuildRole(payload.Role, payload.GuildID)
	if err != nil {
		return err
	}
	g.state.PutRole(role)
	g.notify(observer, role)
	return nil
}

func (g *Gateway) handleGuildRoleDelete(e *structs.RawEvent) error {
	payload := new(structs.GuildRoleDeleteEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode role delete payload: %w", err)
	}
	role := g.state.Role(payload.GuildID, payload.RoleID)
	g.state.DeleteRole(payload.GuildID, payload.RoleID)
	if role != nil {
		g.notify(ObserverGuildRoleDelete, role)
	}
	return nil
}

func (g *Gateway) handleMessageCreate(e *structs.RawEvent) error {
	message, err := state.BuildMessage(e.D, g.state)
	if err != nil {
		return err
	}
	g.reconcileAuthor(message)
	g.state.PutMessage(message)
	g.notify(ObserverMessage, message)
	return nil
}

// reconcileAuthor swaps the payload author for the cached user so every
// message by the same author shares one pointer.
func (g *Gateway) reconcileAuthor(message *structs.Message) {
	if message.Author == nil {
		return
	}
	message.Author = g.state.PutUser(message.Author)
	if message.Member != nil {
		message.Member.User = message.Author
	}
}

// handleMessageUpdate merges the partial payload onto the cached message.
// An uncached message is built from what the payload carries.
func (g *Gateway) handleMessageUpdate(e *structs.RawEvent) error {
	patch := new(structs.MessagePatch)
	if err := json.Unmarshal(e.D, patch); err != nil {
		return fmt.Errorf("failed to decode message update payload: %w", err)
	}
	message := g.state.Message(patch.ChannelID, patch.ID)
	if message == nil {
		built, err := state.BuildMessage(e.D, g.state)
		if err != nil {
			return err
		}
		g.reconcileAuthor(built)
		g.state.PutMessage(built)
		g.notify(ObserverMessageUpdate, built)
		return nil
	}
	state.ApplyMessagePatch(message, patch)
	g.notify(ObserverMessageUpdate, message)
	return nil
}

func (g *Gateway) handleMessageDelete(e *structs.RawEvent) error {
	payload := new(structs.MessageDeleteEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode message delete payload: %w", err)
	}
	message := g.state.DeleteMessage(payload.ChannelID, payload.ID)
	if message == nil {
		message = &structs.Message{
			ID:        payload.ID,
			ChannelID: payload.ChannelID,
			Channel:   g.state.Channel(payload.ChannelID),
		}
	}
	g.notify(ObserverMessageDelete, message)
	return nil
}

func (g *Gateway) handleMessageReactionAdd(e *structs.RawEvent) error {
	return g.handleMessageReaction(e, true, ObserverMessageReactionAdd)
}

func (g *Gateway) handleMessageReactionRemove(e *structs.RawEvent) error {
	return g.handleMessageReaction(e, false, ObserverMessageReactionRemove)
}

func (g *Gateway) handleMessageReaction(e *structs.RawEvent, add bool, observer string) error {
	payload := new(structs.MessageReactionEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode reaction payload: %w", err)
	}
	message := g.state.Message(payload.ChannelID, payload.MessageID)
	if message != nil {
		applyReaction(message, payload, add, payload.UserID == g.selfID)
	}
	g.notify(observer, payload)
	return nil
}

func applyReaction(message *structs.Message, payload *structs.MessageReactionEvent, add bool, self bool) {
	key := payload.Emoji.Key()
	for i := range message.Reactions {
		r := &message.Reactions[i]
		if r.Emoji.Key() != key {
			continue
		}
		if add {
			r.Count++
			if self {
				r.Me = true
			}
		} else {
			r.Count--
			if self {
				r.Me = false
			}
			if r.Count <= 0 {
				message.Reactions = append(message.Reactions[:i], message.Reactions[i+1:]...)
			}
		}
		return
	}
	if add {
		message.Reactions = append(message.Reactions, structs.Reaction{
			Count: 1,
			Me:    self,
			Emoji: payload.Emoji,
		})
	}
}

func (g *Gateway) handlePresenceUpdate(e *structs.RawEvent) error {
	presence, err := state.BuildPresence(e.D, 0)
	if err != nil {
		return err
	}
	g.state.PutPresence(presence)
	g.notify(ObserverPresenceUpdate, presence)
	return nil
}

func (g *Gateway) handleTypingStart(e *structs.RawEvent) error {
	payload := new(structs.TypingStartEvent)
	if err := json.Unmarshal(e.D, payload); err != nil {
		return fmt.Errorf("failed to decode typing payload: %w", err)
	}
	g.notify(ObserverTypingStart, payload)
	return nil
}

func (g *Gateway) handleUserUpdate(e *structs.RawEvent) error {
	user, err := state.BuildUser(e.D)
	if err != nil {
		return err
	}
	user = g.state.PutUser(user)
	g.notify(ObserverUserUpdate, user)
	return nil
}

package state

import (
	"encoding/json"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/hendrywilliam/halcyon/src/structs"
)

// Resolver is the read path builders use to link entities already in the
// cache. *State satisfies it; tests may substitute their own.
type Resolver interface {
	Guild(id snowflake.ID) *structs.Guild
	Channel(id snowflake.ID) *structs.Channel
}

// BuildGuild decodes a GUILD_CREATE payload into a fully linked guild.
// Nested channels, roles, members and presences get the guild id stamped
// so the guild stays the single owner of everything guild-scoped.
func BuildGuild(raw json.RawMessage) (*structs.Guild, error) {
	var payload struct {
		structs.Guild
		Channels  []*structs.Channel `json:"channels"`
		Roles     []*structs.Role    `json:"roles"`
		Members   []json.RawMessage  `json:"members"`
		Presences []json.RawMessage  `json:"presences"`
		Emojis    []*structs.Emoji   `json:"emojis"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode guild payload: %w", err)
	}
	guild := payload.Guild
	guild.Channels = make(map[snowflake.ID]*structs.Channel, len(payload.Channels))
	guild.Roles = make(map[snowflake.ID]*structs.Role, len(payload.Roles))
	guild.Members = make(map[snowflake.ID]*structs.Member, len(payload.Members))
	guild.Presences = make(map[snowflake.ID]*structs.Presence, len(payload.Presences))
	guild.Emojis = make(map[snowflake.ID]*structs.Emoji, len(payload.Emojis))

	for _, role := range payload.Roles {
		role.GuildID = guild.ID
		guild.Roles[role.ID] = role
	}
	for _, ch := range payload.Channels {
		ch.GuildID = guild.ID
		guild.Channels[ch.ID] = ch
	}
	for _, rawMember := range payload.Members {
		member, err := BuildMember(rawMember, guild.ID)
		if err != nil || member.User == nil {
			// A single malformed member never fails the guild.
			continue
		}
		guild.Members[member.User.ID] = member
	}
	for _, rawPresence := range payload.Presences {
		presence, err := BuildPresence(rawPresence, guild.ID)
		if err != nil {
			continue
		}
		guild.Presences[presence.UserID] = presence
	}
	for _, emoji := range payload.Emojis {
		guild.Emojis[emoji.ID] = emoji
	}
	return &guild, nil
}

// BuildChannel decodes a channel payload. guildID overrides the payload's
// guild id when the event supplies it out of band; zero leaves it alone.
func BuildChannel(raw json.RawMessage, guildID snowflake.ID) (*structs.Channel, error) {
	channel := new(structs.Channel)
	if err := json.Unmarshal(raw, channel); err != nil {
		return nil, fmt.Errorf("failed to decode channel payload: %w", err)
	}
	if guildID != 0 {
		channel.GuildID = guildID
	}
	return channel, nil
}

// BuildMember decodes a member payload. Unknown role ids are kept as-is:
// roles resolve by id at read time and self-heal once the role arrives.
func BuildMember(raw json.RawMessage, guildID snowflake.ID) (*structs.Member, error) {
	member := new(structs.Member)
	if err := json.Unmarshal(raw, member); err != nil {
		return nil, fmt.Errorf("failed to decode member payload: %w", err)
	}
	if guildID != 0 {
		member.GuildID = guildID
	}
	return member, nil
}

func BuildRole(raw json.RawMessage, guildID snowflake.ID) (*structs.Role, error) {
	role := new(structs.Role)
	if err := json.Unmarshal(raw, role); err != nil {
		return nil, fmt.Errorf("failed to decode role payload: %w", err)
	}
	role.GuildID = guildID
	return role, nil
}

// BuildMessage decodes a message payload and links it against the cache.
// A channel that has not been observed yet leaves Channel nil, the link
// self-heals on the next lookup after the channel arrives.
func BuildMessage(raw json.RawMessage, resolver Resolver) (*structs.Message, error) {
	var payload struct {
		structs.Message
		GuildID snowflake.ID    `json:"guild_id,omitempty"`
		Member  json.RawMessage `json:"member,omitempty"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode message payload: %w", err)
	}
	message := payload.Message
	message.Member = nil
	message.Channel = resolver.Channel(message.ChannelID)

	// The author stays the payload's own value. Reconciling it with the
	// cached user happens at store time, under the write lock.

	// The member is only attached when the author belongs to the
	// channel's guild.
	guildID := payload.GuildID
	if guildID == 0 && message.Channel != nil {
		guildID = message.Channel.GuildID
	}
	if guildID != 0 && message.Author != nil {
		if guild := resolver.Guild(guildID); guild != nil {
			if member, ok := guild.Members[message.Author.ID]; ok {
				message.Member = member
			} else if len(payload.Member) > 0 {
				member, err := BuildMember(payload.Member, guildID)
				if err == nil {
					member.User = message.Author
					message.Member = member
				}
			}
		}
	}
	return &message, nil
}

// ApplyMessagePatch copies the present fields of a MESSAGE_UPDATE onto a
// cached message. Partial updates merge, they never replace.
func ApplyMessagePatch(message *structs.Message, patch *structs.MessagePatch) {
	if patch.Content != nil {
		message.Content = *patch.Content
	}
	if patch.EditedTimestamp != nil {
		message.EditedTimestamp = patch.EditedTimestamp
	}
	if patch.Mentions != nil {
		message.Mentions = patch.Mentions
	}
	if patch.MentionRoles != nil {
		message.MentionRoles = patch.MentionRoles
	}
	if patch.MentionEveryone != nil {
		message.MentionEveryone = *patch.MentionEveryone
	}
}

// BuildPresence decodes a PRESENCE_UPDATE payload. The activity block is
// loosely shaped on the wire, so it is decoded weakly and dropped when
// malformed rather than failing the whole presence.
func BuildPresence(raw json.RawMessage, guildID snowflake.ID) (*structs.Presence, error) {
	var payload struct {
		User struct {
			ID snowflake.ID `json:"id"`
		} `json:"user"`
		GuildID    snowflake.ID     `json:"guild_id,omitempty"`
		Status     string           `json:"status"`
		Activities []map[string]any `json:"activities,omitempty"`
		Game       map[string]any   `json:"game,omitempty"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode presence payload: %w", err)
	}
	presence := &structs.Presence{
		UserID:  payload.User.ID,
		GuildID: payload.GuildID,
		Status:  payload.Status,
	}
	if guildID != 0 {
		presence.GuildID = guildID
	}
	if presence.Status == "" {
		presence.Status = structs.PresenceStatusOffline
	}
	rawActivity := payload.Game
	if len(payload.Activities) > 0 {
		rawActivity = payload.Activities[0]
	}
	if rawActivity != nil {
		activity := new(structs.Activity)
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           activity,
			WeaklyTypedInput: true,
		})
		if err == nil && decoder.Decode(rawActivity) == nil {
			presence.Activity = activity
		}
	}
	return presence, nil
}

// BuildUser decodes a bare user payload.
func BuildUser(raw json.RawMessage) (*structs.User, error) {
	user := new(structs.User)
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, fmt.Errorf("failed to decode user payload: %w", err)
	}
	return user, nil
}

package structs

import "github.com/disgoorg/snowflake/v2"

// https://discord.com/developers/docs/resources/emoji
type Emoji struct {
	ID       snowflake.ID   `json:"id,omitempty"`
	Name     string         `json:"name"`
	Roles    []snowflake.ID `json:"roles,omitempty"`
	Managed  bool           `json:"managed,omitempty"`
	Animated bool           `json:"animated,omitempty"`
}

// Key identifies an emoji within a reaction set. Custom emoji are keyed by
// id, unicode emoji by name.
func (e *Emoji) Key() string {
	if e.ID != 0 {
		return e.ID.String()
	}
	return e.Name
}

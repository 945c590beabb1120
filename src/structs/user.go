package structs

import "github.com/disgoorg/snowflake/v2"

// https://discord.com/developers/docs/resources/user
type User struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator"`
	GlobalName    string       `json:"global_name,omitempty"`
	Avatar        string       `json:"avatar,omitempty"`
	Bot           bool         `json:"bot,omitempty"`
	PublicFlags   uint         `json:"public_flags,omitempty"`
}

// Tag is the classic username#discriminator form.
func (u *User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

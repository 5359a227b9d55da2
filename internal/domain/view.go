package domain

import "encoding/json"

// ChannelForm holds the values typed into the validation form.
type ChannelForm struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// ViewErrors are the inline error messages of the settings view.
type ViewErrors struct {
	APIError    string `json:"apiError"`
	ShopError   string `json:"shopError,omitempty"`
	ToggleError string `json:"toggleError,omitempty"`
}

// SettingsView is everything the validation/settings view renders. It is also the
// unit saved by session snapshot stores.
type SettingsView struct {
	SessionID      string          `json:"session_id"`
	ShopDomain     string          `json:"shop_domain"`
	Shop           *ShopProfile    `json:"shop,omitempty"`
	Form           ChannelForm     `json:"form"`
	SyncSettings   SyncSettings    `json:"syncSettings"`
	Errors         ViewErrors      `json:"errors"`
	ChannelDetails json.RawMessage `json:"channelDetails,omitempty"`
	Modal          *Modal          `json:"modal,omitempty"`
}

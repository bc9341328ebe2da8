package model

// Tile is a presentation-layer unit: either one entry (real or optimistic)
// or a synthetic "waiting" placeholder. Tiles are rebuilt from round data on
// demand and carry no authority of their own.
type Tile struct {
	Key         string  `json:"key"`
	Account     string  `json:"account,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	Waiting     bool    `json:"waiting,omitempty"`
	Optimistic  bool    `json:"optimistic,omitempty"`
	Winner      bool    `json:"winner,omitempty"`
}

// Profile is display identity for an account, fetched from the profile
// service and cached.
type Profile struct {
	Account     string `json:"account"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

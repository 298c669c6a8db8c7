package main

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "colorCell"
	Key      string `json:"key,omitempty"`      // cell key, "x,y"
	Color    string `json:"color,omitempty"`    // requested color
	Username string `json:"username,omitempty"` // claimant identity
}

// wellFormed reports whether a colorCell message carries every required
// field. Anything else is dropped without a reply.
func (m ClientMessage) wellFormed() bool {
	return m.Type == "colorCell" && m.Key != "" && m.Color != "" && m.Username != ""
}

// InitMessage seeds a newly connected client with the full board.
type InitMessage struct {
	Type string          `json:"type"` // "init"
	Grid map[string]Cell `json:"grid"`
}

// CellUpdateMessage is broadcast to every connected client, including the
// sender, whenever a claim is accepted.
type CellUpdateMessage struct {
	Type     string `json:"type"` // "cellUpdate"
	Key      string `json:"key"`
	Color    string `json:"color"`
	Username string `json:"username"`
}

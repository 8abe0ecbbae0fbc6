package ipc

// Message types exchanged with the host game.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeGameState = "game_state"
	TypeError     = "error"
)

type HelloMessage struct {
	Player string `json:"player"`
	Tribe  string `json:"tribe"`
	// Showcase, when set, starts a set-piece session with this layout.
	Showcase *ShowcaseData `json:"showcase,omitempty"`
}

// ShowcaseData describes the staging area of a set-piece.
type ShowcaseData struct {
	MinX   int      `json:"minX"`
	MinY   int      `json:"minY"`
	MaxX   int      `json:"maxX"`
	MaxY   int      `json:"maxY"`
	Layout []string `json:"layout,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
	Tick   int    `json:"tick,omitempty"`
	Moved  int    `json:"moved,omitempty"`
}

// ErrorMessage is sent before the sidecar drops a session it cannot
// continue, e.g. when a creature is left without a legal move.
type ErrorMessage struct {
	Reason string `json:"reason"`
}

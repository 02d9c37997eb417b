package models

type Reaction struct {
	MessageID uint64 `json:"message_id"`
	Reactor   string `json:"reactor"`
	Emoji     string `json:"emoji"`
}

// ReactionGroup is one emoji of an aggregate with everyone who used it.
type ReactionGroup struct {
	Emoji    string   `json:"emoji"`
	Reactors []string `json:"reactors"`
	Count    int      `json:"count"`
	Mine     bool     `json:"mine,omitempty"`
}

// DefaultPalette is the reaction set offered when none is configured.
var DefaultPalette = []string{"❤️", "😂", "😮", "😢", "😡", "👍", "👎", "🔥", "💯", "🎉", "👏", "🤔", "😍", "🥰", "😘"}

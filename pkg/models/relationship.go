package models

import (
	"strings"
)

type ConnectionState string

const (
	StateNotConnected ConnectionState = "NOT_CONNECTED"
	StatePending      ConnectionState = "PENDING"
	StateConnected    ConnectionState = "CONNECTED"
)

type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// ParseDecision accepts ACCEPT/ACCEPTED and REJECT/REJECTED in any case.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACCEPT", "ACCEPTED":
		return DecisionAccept, true
	case "REJECT", "REJECTED":
		return DecisionReject, true
	}
	return "", false
}

// Relationship is stored once per unordered pair; UserA sorts before UserB.
type Relationship struct {
	UserA     string          `json:"user_a"`
	UserB     string          `json:"user_b"`
	State     ConnectionState `json:"state"`
	Initiator string          `json:"initiator"`
	CreatedTS int64           `json:"created_ts"`
	UpdatedTS int64           `json:"updated_ts"`
}

// ConnectionStatus is a relationship as seen by one of its participants.
type ConnectionStatus struct {
	State       ConnectionState `json:"state"`
	Initiator   string          `json:"initiator,omitempty"`
	IsInitiator bool            `json:"is_initiator"`
}

// ConnectionRequest is a pending request listed for either side.
type ConnectionRequest struct {
	Initiator string `json:"initiator"`
	Responder string `json:"responder"`
	CreatedTS int64  `json:"created_ts"`
}

// SortedPair orders two usernames so both directions map to the same conversation.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

package keys

import (
	"fmt"
	"strconv"
	"strings"
)

type MessageKeyParts struct {
	Pair   string
	SentAt int64
	ID     uint64
}

func parsePaddedInt(s string, width int) (int64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("length invalid: %s", s)
	}
	return strconv.ParseInt(s, 10, 64)
}

func parsePaddedUint(s string, width int) (uint64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("length invalid: %s", s)
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseMessageKey splits c:<pair>:m:<sentAt>:<id>.
func ParseMessageKey(key string) (MessageKeyParts, error) {
	var parts MessageKeyParts
	segs := strings.Split(key, ":")
	if len(segs) != 5 || segs[0] != "c" || segs[2] != "m" {
		return parts, fmt.Errorf("invalid message key: %s", key)
	}
	ts, err := parsePaddedInt(segs[3], TSPadWidth)
	if err != nil {
		return parts, fmt.Errorf("invalid message key timestamp: %w", err)
	}
	id, err := parsePaddedUint(segs[4], SeqPadWidth)
	if err != nil {
		return parts, fmt.Errorf("invalid message key id: %w", err)
	}
	parts.Pair = segs[1]
	parts.SentAt = ts
	parts.ID = id
	return parts, nil
}

// ParseMessageIDKey returns the id of a mid:<id> key.
func ParseMessageIDKey(key string) (uint64, error) {
	if !strings.HasPrefix(key, MessageIDPrefix) {
		return 0, fmt.Errorf("invalid message id key: %s", key)
	}
	return parsePaddedUint(strings.TrimPrefix(key, MessageIDPrefix), SeqPadWidth)
}

// ParsePair splits a conversation identity into its two users.
func ParsePair(pair string) (string, string, error) {
	a, b, ok := strings.Cut(pair, PairSeparator)
	if !ok || a == "" || b == "" {
		return "", "", fmt.Errorf("invalid pair: %s", pair)
	}
	return a, b, nil
}

// ParseConversationMetaKey returns the pair of a c:<pair>:meta key.
func ParseConversationMetaKey(key string) (string, error) {
	if !IsConversationMeta(key) {
		return "", fmt.Errorf("invalid conversation meta key: %s", key)
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, ConversationMetaScan), ConversationMetaSuffix), nil
}

// LastSegment returns the text after the final ":".
func LastSegment(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

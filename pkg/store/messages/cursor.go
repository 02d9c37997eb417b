package messages

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
)

// EncodeCursor returns the opaque form of c handed to clients.
func EncodeCursor(c models.MessageCursor) string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeCursor parses a cursor and checks it belongs to conversation pair.
func DecodeCursor(cursor, pair string) (models.MessageCursor, error) {
	var c models.MessageCursor
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return c, fmt.Errorf("decode base64: %w", chaterr.ErrInvalidCursor)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode cursor JSON: %w", chaterr.ErrInvalidCursor)
	}
	if c.Conversation != pair {
		return c, fmt.Errorf("cursor is for another conversation: %w", chaterr.ErrInvalidCursor)
	}
	return c, nil
}

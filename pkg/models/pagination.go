package models

type PaginationRequest struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

type PaginationResponse struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	Count      int    `json:"count"`
	Total      int    `json:"total,omitempty"`
}

// MessageCursor points at the last message of a page; the next page starts strictly after it.
type MessageCursor struct {
	Conversation string `json:"conversation"`
	SentAt       int64  `json:"sent_at"`
	ID           uint64 `json:"id"`
}

package models

// UnreadCounter counts messages from Sender to Receiver newer than LastReadAt.
type UnreadCounter struct {
	Receiver   string `json:"receiver"`
	Sender     string `json:"sender"`
	Count      int64  `json:"count"`
	LastReadAt int64  `json:"last_read_at"`
}

type UnreadSummary struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"alumnichat/pkg/models"
)

// printOut writes v in the selected output format.
func printOut(w io.Writer, v any) error {
	var (
		data []byte
		err  error
	)
	if flagOutput == "json" {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("cannot format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// formatMessage renders one history entry as a single line.
func formatMessage(m models.MessageView) string {
	var b strings.Builder
	ts := time.Unix(0, m.SentAt).Format("15:04:05")
	fmt.Fprintf(&b, "[%s] #%d %s: ", ts, m.ID, m.Sender)
	switch {
	case m.Body != nil:
		b.WriteString(*m.Body)
	case m.Attachment != nil:
		name := m.Attachment.Name
		if name == "" {
			name = "file"
		}
		fmt.Fprintf(&b, "<%s %s> %s", name, m.Attachment.MimeType, m.Attachment.URL)
	}
	for _, g := range m.Groups {
		fmt.Fprintf(&b, " [%s %d]", g.Emoji, g.Count)
	}
	return b.String()
}

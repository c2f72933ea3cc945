package client

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mzheng/parley/internal/models"
)

// Reconcile merges a point-in-time history fetch with the messages
// received live, producing one duplicate-free view sorted ascending by
// timestamp. It is a pure function of its inputs and is recomputed in
// full whenever either changes.
//
// Canonical messages (server-assigned id) dedup on id. Optimistic local
// echoes (id 0) dedup on a content/author/minute pseudo-key and vanish
// once a canonical message with the same content and author arrives.
// Blank content never renders; messages without a timestamp sort first.
func Reconcile(history, live []models.Message) []models.Message {
	merged := make(map[string]models.Message, len(history)+len(live))
	confirmed := make(map[string]bool)

	add := func(m models.Message) {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return
		}
		if m.ID != 0 {
			merged[fmt.Sprintf("id:%d", m.ID)] = m
			confirmed[echoKey(content, m.Username)] = true
			return
		}
		merged[pseudoKey(content, m)] = m
	}

	for _, m := range history {
		add(m)
	}
	for _, m := range live {
		add(m)
	}

	out := make([]models.Message, 0, len(merged))
	for _, m := range merged {
		if m.ID == 0 && confirmed[echoKey(strings.TrimSpace(m.Content), m.Username)] {
			// The canonical echo arrived; drop the optimistic copy.
			continue
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func echoKey(content, username string) string {
	return content + "\x00" + username
}

func pseudoKey(content string, m models.Message) string {
	return fmt.Sprintf("%s\x00%s\x00%d", content, m.Username, m.CreatedAt.Truncate(time.Minute).Unix())
}

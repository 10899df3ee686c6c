package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// importChats maps the singleton messenger cache: chat metadata is a
// snapshot (latest wins), messages are append-only by (chat, message id).
func importChats(tx *sql.Tx, data []byte) (Stats, error) {
	var cache map[string]ChatThread
	if err := json.Unmarshal(data, &cache); err != nil {
		return Stats{}, fmt.Errorf("%w: messenger cache: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for chatID, thread := range cache {
		meta, err := json.Marshal(thread.Metadata)
		if err != nil {
			return Stats{}, fmt.Errorf("store: encode chat %s metadata: %w", chatID, err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO chats (chat_id, metadata) VALUES (?, ?)`,
			chatID, string(meta)); err != nil {
			return Stats{}, fmt.Errorf("store: replace chat %s: %w", chatID, err)
		}
		stats.Replaced++

		for _, m := range thread.Messages {
			res, err := tx.Exec(`
				INSERT OR IGNORE INTO chat_messages (chat_id, message_id, sender, body, sent_at)
				VALUES (?, ?, ?, ?, ?)`,
				chatID, m.ID, m.Sender, m.Body, m.SentAt)
			if err != nil {
				return Stats{}, fmt.Errorf("store: insert message %s/%s: %w", chatID, m.ID, err)
			}
			stats.count(res)
		}
	}
	return stats, nil
}

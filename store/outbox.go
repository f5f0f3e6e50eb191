package store

// OutboxMessage is a queued outbound message awaiting delivery.
type OutboxMessage struct {
	ID        int64   `json:"id"`
	Topic     string  `json:"topic"`
	Payload   []byte  `json:"payload"`
	MsgType   string  `json:"msg_type"`
	Retries   int     `json:"retries"`
	CreatedAt string  `json:"created_at"`
	SentAt    *string `json:"sent_at"`
}

// EnqueueOutbox stores an outbound message for later delivery. Unlike the
// record collections, the outbox is append-only and written incrementally.
func (s *Store) EnqueueOutbox(topic string, payload []byte, msgType string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO outbox (topic, payload, msg_type) VALUES (?, ?, ?)`, topic, payload, msgType)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPendingOutbox returns unsent messages in enqueue order.
func (s *Store) ListPendingOutbox(limit int) ([]OutboxMessage, error) {
	rows, err := s.db.Query(`SELECT id, topic, payload, msg_type, retries, created_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.Retries, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// AckOutbox marks a message as sent.
func (s *Store) AckOutbox(id int64) error {
	_, err := s.db.Exec(`UPDATE outbox SET sent_at = datetime('now','localtime') WHERE id = ?`, id)
	return err
}

// IncrementOutboxRetries bumps the retry counter after a failed publish.
func (s *Store) IncrementOutboxRetries(id int64) error {
	_, err := s.db.Exec(`UPDATE outbox SET retries = retries + 1 WHERE id = ?`, id)
	return err
}

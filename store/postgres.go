package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS meetings (
	id           BIGSERIAL PRIMARY KEY,
	topic        TEXT NOT NULL,
	language     TEXT NOT NULL DEFAULT '',
	options      JSONB NOT NULL,
	characters   JSONB NOT NULL,
	conversation JSONB NOT NULL DEFAULT '[]',
	meeting_date TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS message_audio (
	message_id TEXT PRIMARY KEY,
	meeting_id BIGINT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
	audio      BYTEA NOT NULL,
	format     TEXT NOT NULL,
	sentences  JSONB NOT NULL DEFAULT '[]',
	speaker    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore implements Store on a pgx connection pool. Meeting ids come
// from the BIGSERIAL sequence, which is the required atomic counter.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) FindMeeting(ctx context.Context, id int64) (*Meeting, error) {
	var (
		m                                 Meeting
		optionsJSON, charsJSON, convoJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic, language, options, characters, conversation, meeting_date, created_at
		 FROM meetings WHERE id = $1`, id,
	).Scan(&m.ID, &m.Topic, &m.Language, &optionsJSON, &charsJSON, &convoJSON, &m.Date, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find meeting %d: %w", id, err)
	}

	if err := json.Unmarshal(optionsJSON, &m.Options); err != nil {
		return nil, fmt.Errorf("store: decode options: %w", err)
	}
	if err := json.Unmarshal(charsJSON, &m.Characters); err != nil {
		return nil, fmt.Errorf("store: decode characters: %w", err)
	}
	if err := json.Unmarshal(convoJSON, &m.Conversation); err != nil {
		return nil, fmt.Errorf("store: decode conversation: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) InsertMeeting(ctx context.Context, m *Meeting) (int64, error) {
	optionsJSON, err := json.Marshal(m.Options)
	if err != nil {
		return 0, fmt.Errorf("store: encode options: %w", err)
	}
	charsJSON, err := json.Marshal(m.Characters)
	if err != nil {
		return 0, fmt.Errorf("store: encode characters: %w", err)
	}
	convoJSON, err := json.Marshal(emptyIfNil(m.Conversation))
	if err != nil {
		return 0, fmt.Errorf("store: encode conversation: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO meetings (topic, language, options, characters, conversation, meeting_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.Topic, m.Language, optionsJSON, charsJSON, convoJSON, m.Date,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert meeting: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateMeetingConversation(ctx context.Context, id int64, conversation []core.ConversationMessage) error {
	convoJSON, err := json.Marshal(emptyIfNil(conversation))
	if err != nil {
		return fmt.Errorf("store: encode conversation: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE meetings SET conversation = $2 WHERE id = $1`, id, convoJSON)
	if err != nil {
		return fmt.Errorf("store: update conversation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateMeetingDate(ctx context.Context, id int64, date string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE meetings SET meeting_date = $2 WHERE id = $1`, id, date)
	if err != nil {
		return fmt.Errorf("store: update meeting date %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindAudio(ctx context.Context, messageID string) (*AudioRecord, error) {
	var (
		rec           AudioRecord
		sentencesJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT message_id, meeting_id, audio, format, sentences, speaker, created_at
		 FROM message_audio WHERE message_id = $1`, messageID,
	).Scan(&rec.MessageID, &rec.MeetingID, &rec.Audio, &rec.Format, &sentencesJSON, &rec.Speaker, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find audio %q: %w", messageID, err)
	}
	if err := json.Unmarshal(sentencesJSON, &rec.Sentences); err != nil {
		return nil, fmt.Errorf("store: decode sentences: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) UpsertAudio(ctx context.Context, rec *AudioRecord) error {
	sentencesJSON, err := json.Marshal(emptyIfNilSpans(rec.Sentences))
	if err != nil {
		return fmt.Errorf("store: encode sentences: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO message_audio (message_id, meeting_id, audio, format, sentences, speaker)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (message_id) DO UPDATE
		 SET audio = EXCLUDED.audio, format = EXCLUDED.format,
		     sentences = EXCLUDED.sentences, speaker = EXCLUDED.speaker`,
		rec.MessageID, rec.MeetingID, rec.Audio, rec.Format, sentencesJSON, rec.Speaker)
	if err != nil {
		return fmt.Errorf("store: upsert audio %q: %w", rec.MessageID, err)
	}
	return nil
}

func emptyIfNil(msgs []core.ConversationMessage) []core.ConversationMessage {
	if msgs == nil {
		return []core.ConversationMessage{}
	}
	return msgs
}

func emptyIfNilSpans(spans []core.SentenceSpan) []core.SentenceSpan {
	if spans == nil {
		return []core.SentenceSpan{}
	}
	return spans
}

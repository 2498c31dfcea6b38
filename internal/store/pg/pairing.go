package pg

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nextlevelbuilder/pairgate/internal/store"
)

const (
	codeAlphabet         = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength           = 8
	codeTTL              = 60 * time.Minute
	maxPendingPerChannel = 3
)

// Schema for the pairing_requests table.
const Schema = `
CREATE TABLE IF NOT EXISTS pairing_requests (
	id         UUID PRIMARY KEY,
	channel    TEXT NOT NULL,
	code       TEXT NOT NULL,
	sender_id  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	UNIQUE (channel, code)
);
CREATE TABLE IF NOT EXISTS pairing_resolutions (
	id          UUID PRIMARY KEY,
	channel     TEXT NOT NULL,
	sender_id   TEXT NOT NULL DEFAULT '',
	decision    TEXT NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL
);
`

type pairingRow struct {
	ID        uuid.UUID `db:"id"`
	Channel   string    `db:"channel"`
	Code      string    `db:"code"`
	SenderID  string    `db:"sender_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r pairingRow) data() store.PairingRequestData {
	return store.PairingRequestData{
		ID:        r.ID.String(),
		Channel:   r.Channel,
		Code:      r.Code,
		SenderID:  r.SenderID,
		CreatedAt: r.CreatedAt.UnixMilli(),
		ExpiresAt: r.ExpiresAt.UnixMilli(),
	}
}

// PGPairingStore implements store.PairingStore backed by Postgres.
type PGPairingStore struct {
	db *sqlx.DB
}

func NewPGPairingStore(db *sqlx.DB) *PGPairingStore {
	return &PGPairingStore{db: db}
}

// Migrate creates the pairing tables if they do not exist.
func (s *PGPairingStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *PGPairingStore) CreatePairingRequest(ctx context.Context, channel, senderID string) (*store.PairingRequestData, error) {
	s.db.ExecContext(ctx, "DELETE FROM pairing_requests WHERE expires_at < $1", time.Now())

	// Reuse an existing pending code for the same sender.
	if senderID != "" {
		var row pairingRow
		err := s.db.GetContext(ctx, &row,
			"SELECT * FROM pairing_requests WHERE channel = $1 AND sender_id = $2", channel, senderID)
		if err == nil {
			data := row.data()
			return &data, nil
		}
	}

	var count int64
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM pairing_requests WHERE channel = $1", channel); err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	if count >= maxPendingPerChannel {
		return nil, fmt.Errorf("max pending pairing requests (%d) exceeded for channel %s", maxPendingPerChannel, channel)
	}

	now := time.Now()
	row := pairingRow{
		ID:        uuid.Must(uuid.NewV7()),
		Channel:   channel,
		Code:      generateCode(),
		SenderID:  senderID,
		CreatedAt: now,
		ExpiresAt: now.Add(codeTTL),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO pairing_requests (id, channel, code, sender_id, created_at, expires_at)
		 VALUES (:id, :channel, :code, :sender_id, :created_at, :expires_at)`, row)
	if err != nil {
		return nil, fmt.Errorf("create pairing request: %w", err)
	}
	data := row.data()
	return &data, nil
}

func (s *PGPairingStore) ListPairingRequests(ctx context.Context, channel string) ([]store.PairingRequestData, error) {
	s.db.ExecContext(ctx, "DELETE FROM pairing_requests WHERE expires_at < $1", time.Now())

	var rows []pairingRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM pairing_requests WHERE channel = $1 ORDER BY created_at ASC", channel)
	if err != nil {
		return nil, fmt.Errorf("list pairing requests: %w", err)
	}
	result := make([]store.PairingRequestData, len(rows))
	for i, row := range rows {
		result[i] = row.data()
	}
	return result, nil
}

func (s *PGPairingStore) ApprovePairingCode(ctx context.Context, channel, code string) (*store.PairingRequestData, error) {
	var row pairingRow
	// The DELETE both consumes the pending entry and guards against a
	// concurrent approve of the same code: only one caller gets the row back.
	err := s.db.GetContext(ctx, &row,
		`DELETE FROM pairing_requests
		 WHERE channel = $1 AND code = $2 AND expires_at > $3
		 RETURNING *`, channel, code, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("approve pairing code: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pairing_resolutions (id, channel, sender_id, decision, resolved_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		row.ID, row.Channel, row.SenderID, "approved", time.Now())
	if err != nil {
		return nil, fmt.Errorf("record pairing resolution: %w", err)
	}

	data := row.data()
	return &data, nil
}

func generateCode() string {
	b := make([]byte, codeLength)
	rand.Read(b)
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(code)
}

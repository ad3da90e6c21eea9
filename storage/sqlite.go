package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/perr"
	"github.com/arata-notify/webpush/primitive"
	"github.com/arata-notify/webpush/subscription"
)

// SQLiteStore implements Store using modernc.org/sqlite. auth is never
// written in the clear, only its AES-128-GCM sealing (auth_encr, tag)
// under key, with a fresh salt per row.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteStore opens (creating if needed) the database at dsn and
// seals every auth secret under key, which must be exactly 16 bytes.
func NewSQLiteStore(dsn string, key []byte) (*SQLiteStore, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, perr.Wrap(perr.Config, "opening database", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS subscription (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint        TEXT NOT NULL UNIQUE,
			name            TEXT NULL,
			expiration_time INTEGER NULL,
			auth_encr       BLOB NOT NULL,
			tag             BLOB NOT NULL,
			salt            BLOB NOT NULL,
			p256dh          BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, perr.Wrap(perr.Config, "creating subscription table", err)
	}
	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, sub *subscription.Subscription) (int64, error) {
	salt, err := primitive.GenSalt(saltLen)
	if err != nil {
		return 0, perr.Wrap(perr.CryptoFailure, "generating storage salt", err)
	}
	ciphertext, tag, err := primitive.AESGCMSeal(sub.Auth[:], s.key, salt)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription (endpoint, name, expiration_time, auth_encr, tag, salt, p256dh)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sub.Endpoint, sub.Name, sub.ExpirationTime, ciphertext, tag, salt, sub.P256DH.ToBytes(),
	)
	if err != nil {
		return 0, perr.Wrap(perr.InvalidSubscription, "endpoint already subscribed", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, perr.Wrap(perr.CorruptStorage, "reading inserted row id", err)
	}
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, endpoint string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id FROM subscription WHERE endpoint = ?`, endpoint)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, perr.New(perr.NotFound, "no subscription for endpoint")
		}
		return 0, perr.Wrap(perr.CorruptStorage, "looking up subscription", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM subscription WHERE id = ?`, id); err != nil {
		return 0, perr.Wrap(perr.CorruptStorage, "deleting subscription", err)
	}
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*subscription.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint, name, expiration_time, auth_encr, tag, salt, p256dh
		FROM subscription ORDER BY id
	`)
	if err != nil {
		return nil, perr.Wrap(perr.CorruptStorage, "querying subscriptions", err)
	}
	defer rows.Close()

	var out []*subscription.Subscription
	for rows.Next() {
		var (
			endpoint                        string
			name                            string
			expirationTime                  sql.NullInt64
			authEncr, tag, salt, p256dhBytes []byte
		)
		if err := rows.Scan(&endpoint, &name, &expirationTime, &authEncr, &tag, &salt, &p256dhBytes); err != nil {
			return nil, perr.Wrap(perr.CorruptStorage, "scanning subscription row", err)
		}

		authBytes, err := primitive.AESGCMOpen(authEncr, tag, s.key, salt)
		if err != nil {
			return nil, perr.Wrap(perr.CorruptStorage, "opening sealed auth secret", err)
		}
		if len(authBytes) != 16 {
			return nil, perr.New(perr.CorruptStorage, "decrypted auth secret is not 16 bytes")
		}
		var auth [16]byte
		copy(auth[:], authBytes)

		pub, err := es256.FromBytes(p256dhBytes)
		if err != nil {
			return nil, perr.Wrap(perr.CorruptStorage, "parsing stored p256dh", err)
		}

		var expPtr *uint32
		if expirationTime.Valid {
			exp := uint32(expirationTime.Int64)
			expPtr = &exp
		}

		out = append(out, &subscription.Subscription{
			Endpoint:       endpoint,
			Name:           name,
			ExpirationTime: expPtr,
			Auth:           auth,
			P256DH:         pub,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(perr.CorruptStorage, "iterating subscription rows", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

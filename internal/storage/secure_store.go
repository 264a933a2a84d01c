// Package storage provides the durable credential store backing the session.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	_ "modernc.org/sqlite"

	"finsync/internal/log"
	"finsync/internal/session"
)

const nonceSize = 24

// ErrCorrupt is returned when a stored value cannot be opened with the key.
var ErrCorrupt = errors.New("stored value cannot be decrypted")

// SecureStore keeps key/value credentials in SQLite, each value sealed with
// NaCl secretbox under a process-provided key.
type SecureStore struct {
	db     *sql.DB
	key    [32]byte
	logger *log.Logger
}

var _ session.SecureStore = (*SecureStore)(nil)

func NewSecureStore(dbPath string, key [32]byte, logger *log.Logger) (*SecureStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SecureStore{
		db:     db,
		key:    key,
		logger: logger,
	}, nil
}

func (s *SecureStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SecureStore) SetItem(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO secure_items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, sealed)
	if err != nil {
		return fmt.Errorf("store item %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "Item stored", "key", key)
	return nil
}

func (s *SecureStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secure_items WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read item %s: %w", key, err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", false, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		s.logger.WarnContext(ctx, "Stored item failed to decrypt", "key", key)
		return "", false, ErrCorrupt
	}
	return string(plain), true, nil
}

func (s *SecureStore) DeleteItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secure_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete item %s: %w", key, err)
	}
	return nil
}

// Copyright 2026 The OpenConvo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-backed Store.
//
// By default it uses a shared in-memory database that is lost when the
// process ends. For durable storage, provide a file path.
type SQLiteStore struct {
	dbDSN string
	table string
	db    *sql.DB
	mu    sync.Mutex
}

type SQLiteStoreParams struct {
	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared".
	DBDataSourceName string

	// Optional name of the table holding message state.
	// Defaults to "message_states".
	Table string
}

// NewSQLiteStore opens the database and creates the state table if it
// does not exist yet.
func NewSQLiteStore(ctx context.Context, params SQLiteStoreParams) (_ *SQLiteStore, err error) {
	s := &SQLiteStore{
		dbDSN: cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
		table: cmp.Or(params.Table, "message_states"),
	}

	defer func() {
		if err != nil {
			if e := s.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()

	s.db, err = sql.Open("sqlite3", s.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			chat_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			state_data TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chat_id, message_id)
		)
	`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, chatID, messageID string, state *MessageState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal message state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO "%s" (chat_id, message_id, state_data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (chat_id, message_id)
		DO UPDATE SET state_data = excluded.state_data, updated_at = CURRENT_TIMESTAMP
	`, s.table), chatID, messageID, string(data))
	if err != nil {
		return fmt.Errorf("error upserting message state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, chatID, messageID string) (*MessageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT state_data FROM "%s"
		WHERE chat_id = ? AND message_id = ?
	`, s.table), chatID, messageID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading message state: %w", err)
	}

	state := new(MessageState)
	if err = json.Unmarshal([]byte(data), state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message state: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite3 database: %w", err)
	}
	return nil
}

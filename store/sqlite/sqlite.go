/*
Package sqlite provides the durable key/value medium for wallet state.

PURPOSE:
  One SQLite table holds every wallet's keys, namespaced by user. Each
  engine gets a per-user view satisfying wallet.KV, so the engine never
  sees other users' rows and the whole persistence contract stays at
  string-in/string-out.

SCHEMA:
  wallet_kv(namespace, key, value, updated_at) with PK (namespace, key).
  Upserts via ON CONFLICT keep writes single-statement.

CONCURRENCY:
  WAL mode plus a busy timeout. database/sql pools connections; the
  engine additionally serializes each user's mutations, so contention
  here is cross-user only.
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solace/token-engine/wallet"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallet_kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// Store is a SQLite-backed multi-user key/value store.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and ensures the
// schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns a wallet.KV view scoped to one user's rows.
func (s *Store) Namespace(userID string) wallet.KV {
	return &namespacedKV{db: s.db, ns: userID}
}

// ListNamespaces returns every user namespace with at least one row.
// The renewal sweep iterates this to visit all wallets.
func (s *Store) ListNamespaces() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT namespace FROM wallet_kv ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// =============================================================================
// PER-USER VIEW
// =============================================================================

type namespacedKV struct {
	db *sql.DB
	ns string
}

func (n *namespacedKV) Get(key string) (string, bool, error) {
	var value string
	err := n.db.QueryRow(
		`SELECT value FROM wallet_kv WHERE namespace = ? AND key = ?`,
		n.ns, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (n *namespacedKV) Set(key, value string) error {
	_, err := n.db.Exec(
		`INSERT INTO wallet_kv (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		n.ns, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (n *namespacedKV) Delete(key string) error {
	_, err := n.db.Exec(
		`DELETE FROM wallet_kv WHERE namespace = ? AND key = ?`,
		n.ns, key,
	)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

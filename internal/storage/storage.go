// Package storage persists raid entries and nickname profiles in an
// embedded sqlite database. Records are flat: one row per raid keyed by
// captain name and departure time, members encoded as a JSON list in
// join order.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/raid"
)

const schema = `
CREATE TABLE IF NOT EXISTS raids (
	id               TEXT NOT NULL,
	captain_name     TEXT NOT NULL,
	captain_identity TEXT NOT NULL,
	game_server      TEXT NOT NULL,
	departure_time   TEXT NOT NULL,
	registration_open_time TEXT NOT NULL DEFAULT '',
	reserved_slots   INTEGER NOT NULL,
	members          TEXT NOT NULL,
	creation_time    TEXT NOT NULL,
	PRIMARY KEY (captain_name, departure_time)
);
CREATE TABLE IF NOT EXISTS profiles (
	identity TEXT PRIMARY KEY,
	nickname TEXT NOT NULL
);
`

// Store wraps the sqlite handle. Safe for concurrent use; database/sql
// serializes access to the single sqlite connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at the given DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRaid inserts or replaces the flat record for one raid.
func (s *Store) SaveRaid(ctx context.Context, entry raid.Entry) error {
	members, err := json.Marshal(entry.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	registrationOpen := ""
	if !entry.RegistrationOpenTime.IsZero() {
		registrationOpen = entry.RegistrationOpenTime.UTC().Format(time.RFC3339)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO raids
		(id, captain_name, captain_identity, game_server, departure_time,
		 registration_open_time, reserved_slots, members, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.CaptainName,
		entry.CaptainIdentity,
		entry.GameServer,
		entry.DepartureTime.UTC().Format(time.RFC3339),
		registrationOpen,
		entry.ReservedSlots,
		string(members),
		entry.CreationTime.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save raid %s: %w", entry.Key(), err)
	}
	return nil
}

// DeleteRaid removes the record for the given key. Reports whether a
// record was actually there.
func (s *Store) DeleteRaid(ctx context.Context, captainName string, departureTime time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM raids WHERE captain_name = ? AND departure_time = ?`,
		captainName, departureTime.UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("delete raid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete raid: %w", err)
	}
	return affected > 0, nil
}

// LoadRaids returns every stored raid entry, used at process start to
// repopulate the registry.
func (s *Store) LoadRaids(ctx context.Context) ([]raid.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, captain_name, captain_identity, game_server, departure_time,
		       registration_open_time, reserved_slots, members, creation_time
		FROM raids ORDER BY departure_time`)
	if err != nil {
		return nil, fmt.Errorf("load raids: %w", err)
	}
	defer rows.Close()

	var entries []raid.Entry
	for rows.Next() {
		var entry raid.Entry
		var id, departure, regOpen, membersRaw, creation string
		if err := rows.Scan(&id, &entry.CaptainName, &entry.CaptainIdentity, &entry.GameServer,
			&departure, &regOpen, &entry.ReservedSlots, &membersRaw, &creation); err != nil {
			return nil, fmt.Errorf("scan raid row: %w", err)
		}
		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse raid id %q: %w", id, err)
		}
		if entry.DepartureTime, err = time.Parse(time.RFC3339, departure); err != nil {
			return nil, fmt.Errorf("parse departure time %q: %w", departure, err)
		}
		if regOpen != "" {
			if entry.RegistrationOpenTime, err = time.Parse(time.RFC3339, regOpen); err != nil {
				return nil, fmt.Errorf("parse registration open time %q: %w", regOpen, err)
			}
		}
		if entry.CreationTime, err = time.Parse(time.RFC3339, creation); err != nil {
			return nil, fmt.Errorf("parse creation time %q: %w", creation, err)
		}
		if err := json.Unmarshal([]byte(membersRaw), &entry.Members); err != nil {
			return nil, fmt.Errorf("decode members of raid %s: %w", entry.Key(), err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveProfile records the game nickname for a Discord identity.
func (s *Store) SaveProfile(ctx context.Context, identity, nickname string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profiles (identity, nickname) VALUES (?, ?)`,
		identity, nickname)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Nickname looks up the registered game nickname for an identity.
// The boolean reports whether the identity is registered at all.
func (s *Store) Nickname(ctx context.Context, identity string) (string, bool, error) {
	var nickname string
	err := s.db.QueryRowContext(ctx,
		`SELECT nickname FROM profiles WHERE identity = ?`, identity).Scan(&nickname)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load profile: %w", err)
	}
	return nickname, true, nil
}

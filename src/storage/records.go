package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// dialect carries what differs between the SQL backends.
type dialect struct {
	name        string
	table       func(name string) string
	placeholder func(n int) string
	idColumn    string
}

// -----------------------------------------------------------------------------
// recordStore implements the record history and symbol membership tables on
// top of any database/sql driver.
// -----------------------------------------------------------------------------

type recordStore struct {
	DB      *sql.DB
	Logger  *logger.Logger
	dialect dialect
}

func (s *recordStore) recordsTable() string { return s.dialect.table("symbol_records") }
func (s *recordStore) membersTable() string { return s.dialect.table("symbol_members") }

// bind rewrites a query written with '?' into the dialect's placeholders.
func (s *recordStore) bind(query string) string {
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, s.dialect.placeholder(n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// -----------------------------------------------------------------------------

func (s *recordStore) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s,
			received_at BIGINT NOT NULL,
			ric TEXT NOT NULL,
			service TEXT NOT NULL,
			mtype TEXT NOT NULL,
			action TEXT,
			entry_key TEXT,
			payload TEXT NOT NULL
		);
	`, s.recordsTable(), s.dialect.idColumn)
	if _, err := s.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create symbol_records: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ric TEXT NOT NULL,
			service TEXT NOT NULL,
			entry_key TEXT NOT NULL,
			added_at BIGINT NOT NULL,
			PRIMARY KEY (ric, service, entry_key)
		);
	`, s.membersTable())
	if _, err := s.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create symbol_members: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SaveRecords appends every record to the history and mirrors its effect on
// membership: a REFRESH marker empties the list, ADD inserts the key and
// DELETE removes it. All records are written in one transaction.
func (s *recordStore) SaveRecords(records []models.DecodedRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s.DB == nil {
		return helpers.NewDatabaseError("save records", fmt.Errorf("%s not initialised", s.dialect.name))
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	insert, err := tx.Prepare(s.bind(fmt.Sprintf(`
		INSERT INTO %s (received_at, ric, service, mtype, action, entry_key, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.recordsTable())))
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer insert.Close()

	now := time.Now().UTC().UnixNano()
	for i, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return helpers.NewDatabaseError("encode record", err)
		}
		ric := r.GetString(models.KeyRIC)
		service := r.GetString(models.KeyService)
		mtype := r.GetString(models.KeyMType)
		action := r.GetString(models.KeyAction)
		key := r.GetString(models.KeyKey)

		if _, err := insert.Exec(now, ric, service, mtype, action, key, string(payload)); err != nil {
			return helpers.NewDatabaseError("insert record", err)
		}
		if err := s.applyMembership(tx, ric, service, mtype, action, key, now+int64(i)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewDatabaseError("commit", err)
	}
	return nil
}

func (s *recordStore) applyMembership(tx *sql.Tx, ric, service, mtype, action, key string, at int64) error {
	var err error
	switch {
	case mtype == models.MTypeRefresh:
		_, err = tx.Exec(s.bind(fmt.Sprintf(`DELETE FROM %s WHERE ric = ? AND service = ?`, s.membersTable())), ric, service)
	case action == models.ActionAdd:
		_, err = tx.Exec(s.bind(fmt.Sprintf(`
			INSERT INTO %s (ric, service, entry_key, added_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (ric, service, entry_key) DO NOTHING
		`, s.membersTable())), ric, service, key, at)
	case action == models.ActionDelete:
		_, err = tx.Exec(s.bind(fmt.Sprintf(`DELETE FROM %s WHERE ric = ? AND service = ? AND entry_key = ?`, s.membersTable())), ric, service, key)
	}
	if err != nil {
		return helpers.NewDatabaseError("update membership", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// LoadSymbolList returns the stored members of one list in the order they
// were added.
func (s *recordStore) LoadSymbolList(identity models.ItemIdentity) ([]string, error) {
	if s.DB == nil {
		return nil, helpers.NewDatabaseError("load symbol list", fmt.Errorf("%s not initialised", s.dialect.name))
	}

	rows, err := s.DB.Query(s.bind(fmt.Sprintf(`
		SELECT entry_key FROM %s WHERE ric = ? AND service = ? ORDER BY added_at, entry_key
	`, s.membersTable())), identity.Name, identity.ServiceName)
	if err != nil {
		return nil, helpers.NewDatabaseError("query members", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, helpers.NewDatabaseError("scan member", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// CountRecords returns the number of stored history rows for one item.
func (s *recordStore) CountRecords(identity models.ItemIdentity) (int, error) {
	var n int
	err := s.DB.QueryRow(s.bind(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE ric = ? AND service = ?`, s.recordsTable())),
		identity.Name, identity.ServiceName).Scan(&n)
	return n, err
}

// -----------------------------------------------------------------------------

// CleanupOldData removes history rows older than retentionDays.
func (s *recordStore) CleanupOldData(retentionDays int) error {
	if retentionDays <= 0 || s.DB == nil {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixNano()

	res, err := s.DB.Exec(s.bind(fmt.Sprintf(`DELETE FROM %s WHERE received_at < ?`, s.recordsTable())), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.Logger.Info("Removed %d record(s) older than %d day(s)", n, retentionDays)
	}
	return nil
}

func (s *recordStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

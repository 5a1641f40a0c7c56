package journal

import (
	"database/sql"

	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS campaign_events (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       recorded_at  INTEGER NOT NULL CHECK (typeof(recorded_at) = 'integer'),
	       campaign_id  INTEGER NOT NULL CHECK (campaign_id >= 0),
	       kind         TEXT NOT NULL CHECK (kind IN ('created', 'deleted', 'collected')),
	       devices      INTEGER NOT NULL CHECK (devices >= 0)
	   );
	   CREATE INDEX IF NOT EXISTS campaign_events_campaign ON campaign_events (campaign_id);`

	insertEventSQL = `
    INSERT INTO campaign_events (recorded_at, campaign_id, kind, devices)
    VALUES (?, ?, ?, ?)`

	selectEventsSQL = `
    SELECT recorded_at, campaign_id, kind, devices
    FROM campaign_events
    WHERE campaign_id = ?
    ORDER BY id`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating journal database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err).WithData(struct {
			Phase string
		}{
			Phase: "create_tables",
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err).WithData(struct {
			Phase string
		}{
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Journal schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err).WithData(struct {
			Phase string
		}{
			Phase: "get_version",
		})
	}

	return version, nil
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().Wrap(ErrSchemaValidationFailed, err).WithData(struct {
			Phase string
			Table string
		}{
			Phase: "check_table_exists",
			Table: tableName,
		})
	}

	return exists, nil
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// TargetSchemaVersion is the highest schema version this version of the code supports for the localstore component.
	TargetSchemaVersion int64 = 1
	// LocalStoreComponent is the name of the local fallback storage component.
	LocalStoreComponent = "localstore"
)

// GetComponentSchemaVersion retrieves the schema version for a given component.
// Returns 0 if the component is not found or the versions table doesn't exist.
func GetComponentSchemaVersion(db *sql.DB, componentName string) (int64, error) {
	query := `SELECT version FROM wayfarer_versions WHERE component = ?;`
	row := db.QueryRow(query, componentName)

	var version int64
	err := row.Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		if strings.Contains(err.Error(), "no such table") && strings.Contains(err.Error(), "wayfarer_versions") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan version for component '%s': %w", componentName, err)
	}
	return version, nil
}

// InitializeSchema creates the local schema and records schemaVersionToSet
// for the localstore component.
func InitializeSchema(db *sql.DB, schemaVersionToSet int64) error {
	if _, err := db.Exec(SchemaV1); err != nil {
		return fmt.Errorf("failed to execute schema v1 SQL: %w", err)
	}

	insertVersionSQL := `
INSERT INTO wayfarer_versions (component, version) VALUES (?, ?)
ON CONFLICT(component) DO UPDATE SET version = excluded.version, created_at = unixepoch();`

	if _, err := db.Exec(insertVersionSQL, LocalStoreComponent, schemaVersionToSet); err != nil {
		return fmt.Errorf("failed to insert/update version for component %s to %d: %w", LocalStoreComponent, schemaVersionToSet, err)
	}
	return nil
}

// UpgradeDB brings the localstore component of db to appTargetSchemaVersion.
// dbIdentifierForLog is used for logging purposes only.
func UpgradeDB(db *sql.DB, dbIdentifierForLog string, appTargetSchemaVersion int64, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", LocalStoreComponent), zap.String("db", dbIdentifierForLog))

	currentDBVersion, err := GetComponentSchemaVersion(db, LocalStoreComponent)
	if err != nil {
		return err
	}

	switch {
	case currentDBVersion == 0:
		log.Info("initializing local schema", zap.Int64("version", appTargetSchemaVersion))
		if err := InitializeSchema(db, appTargetSchemaVersion); err != nil {
			return fmt.Errorf("failed to initialize component %s in database '%s': %w", LocalStoreComponent, dbIdentifierForLog, err)
		}
		return nil
	case currentDBVersion == appTargetSchemaVersion:
		log.Debug("local schema up to date", zap.Int64("version", currentDBVersion))
		return nil
	case currentDBVersion < appTargetSchemaVersion:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is older than application's target schema version %d. Automatic migration from this older version is not yet supported", LocalStoreComponent, dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion)
	default:
		return fmt.Errorf("component %s in database '%s' has schema version %d, which is newer than application's target schema version %d. Please upgrade the application", LocalStoreComponent, dbIdentifierForLog, currentDBVersion, appTargetSchemaVersion)
	}
}

// Open opens (creating if needed) the local database at path, applies the
// schema and the storage quota.
func Open(path string, enableWAL bool, syncPragma string, quotaBytes int64, logger *zap.Logger) (*sql.DB, error) {
	conn, err := OpenDBConnection(path, enableWAL, syncPragma)
	if err != nil {
		return nil, err
	}
	if err := UpgradeDB(conn, path, TargetSchemaVersion, logger); err != nil {
		conn.Close()
		return nil, err
	}
	if err := SetQuota(conn, quotaBytes); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

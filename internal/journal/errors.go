package journal

import "codeberg.org/mutker/mongeu/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidPath   = errors.ErrorCode("journal_invalid_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("journal_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("journal_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("journal_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("journal_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("journal_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Recording Errors
	ErrInvalidEvent = errors.ErrorCode("journal_invalid_event")
	ErrClosed       = errors.ErrorCode("journal_closed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrInvalidPath:            "Journal path is empty",
		ErrSchemaInitFailed:       "Failed to create journal schema",
		ErrSchemaValidationFailed: "Failed to validate journal schema",
		ErrSchemaMigrationFailed:  "Failed to migrate journal schema",
		ErrTransactionFailed:      "Journal transaction failed",
		ErrStorageAccess:          "Failed to access journal",
		ErrInvalidEvent:           "Invalid journal event",
		ErrClosed:                 "Journal is closed",
	})
}

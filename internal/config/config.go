package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Dataset  DatasetConfig  `mapstructure:"dataset" validate:"required"`
	Job      JobConfig      `mapstructure:"job" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	// PublicURL is the externally visible base URL, embedded in exported datasets.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// AuthConfig contains the settings used to validate bearer tokens issued by
// the platform's identity layer.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// ClockSkewSeconds is the leeway applied to exp/nbf claims.
	ClockSkewSeconds int `mapstructure:"clock_skew_seconds" validate:"gte=0"`
}

// DatasetConfig contains dataset export/import settings.
type DatasetConfig struct {
	// ExportDir receives files written by export jobs.
	ExportDir string `mapstructure:"export_dir" validate:"required"`
	// ImportDir receives uploaded dataset files until their import job has run.
	ImportDir string `mapstructure:"import_dir" validate:"required"`
	// MaxUploadMB limits the size of uploaded dataset files.
	MaxUploadMB int `mapstructure:"max_upload_mb" validate:"gt=0"`
	// MaxEntryMB limits the decompressed size of each entry of an imported archive.
	MaxEntryMB int `mapstructure:"max_entry_mb" validate:"gt=0"`
	// BulkInsertBatchSize caps the number of rows per INSERT during imports.
	BulkInsertBatchSize int `mapstructure:"bulk_insert_batch_size" validate:"gt=0,lte=5000"`
}

// JobConfig contains the background dataset job runner settings.
type JobConfig struct {
	QueueSize          int `mapstructure:"queue_size" validate:"gt=0"`
	WorkerCount        int `mapstructure:"worker_count" validate:"gt=0"`
	StuckJobAgeMinutes int `mapstructure:"stuck_job_age_minutes" validate:"gt=0"`
}

// Package config resolves firestore-import options from command-line flags
// and the environment, and validates them before any work starts.
package config

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HerbHall/firestore-import/internal/importer"
)

// Environment variables consulted when the matching flag is absent.
const (
	EnvAccountCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvDatabase           = "FIRESTORE_DATABASE"
)

// Option keys. They double as the long flag names.
const (
	KeyAccountCredentials = "accountCredentials"
	KeyBackupFile         = "backupFile"
	KeyNodePath           = "nodePath"
	KeyYes                = "yes"
	KeyDatabase           = "database"
	KeyMerge              = "merge"
	KeyBatchSize          = "batchSize"
	KeyConcurrency        = "concurrency"
	KeyRate               = "rate"
	KeyMetricsFile        = "metricsFile"
	KeyVerbose            = "verbose"
)

// Flag descriptions, also used in validation messages.
var (
	AccountCredentialsDescription = "path to Google Cloud account credentials JSON file. If missing, will look " +
		"at the " + EnvAccountCredentials + " environment variable for the path."
	BackupFileDescription = "Filename of the backup to restore (e.g. backups/full-backup.json)."
	NodePathDescription   = "Path to database node where import will start (e.g. collectionA/docB/collectionC)." +
		" Imports at root level if missing."
	YesDescription = `Unattended import without confirmation (like hitting "y" from the command line).`
)

// Options is the resolved command-line state.
type Options struct {
	AccountCredentialsPath string
	BackupFile             string
	NodePath               string
	Yes                    bool
	Database               string
	Merge                  bool
	BatchSize              int
	Concurrency            int
	Rate                   float64
	MetricsFile            string
	Verbose                bool
}

// RegisterFlags adds every option to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(KeyAccountCredentials, "a", "", AccountCredentialsDescription)
	fs.StringP(KeyBackupFile, "b", "", BackupFileDescription)
	fs.StringP(KeyNodePath, "n", "", NodePathDescription)
	fs.BoolP(KeyYes, "y", false, YesDescription)
	fs.StringP(KeyDatabase, "d", "", "Firestore database id. Uses the "+EnvDatabase+" environment variable or the default database if missing.")
	fs.Bool(KeyMerge, true, "merge into existing documents instead of replacing them")
	fs.Int(KeyBatchSize, importer.DefaultBatchSize, fmt.Sprintf("documents per write batch (1-%d)", importer.MaxBatchSize))
	fs.Int(KeyConcurrency, importer.DefaultConcurrency, "collections written in parallel across the whole tree")
	fs.Float64(KeyRate, 0, "maximum document writes per second (0 = unlimited)")
	fs.String(KeyMetricsFile, "", "write Prometheus textfile metrics to this path after the import")
	fs.BoolP(KeyVerbose, "v", false, "enable debug logging on stderr")
}

// Bind wires fs and the environment into v. Flags given on the command line
// take precedence over environment variables.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	if err := v.BindEnv(KeyAccountCredentials, EnvAccountCredentials); err != nil {
		return errors.Wrap(err, "binding env")
	}
	if err := v.BindEnv(KeyDatabase, EnvDatabase); err != nil {
		return errors.Wrap(err, "binding env")
	}
	return nil
}

// Load reads Options out of v.
func Load(v *viper.Viper) Options {
	return Options{
		AccountCredentialsPath: v.GetString(KeyAccountCredentials),
		BackupFile:             v.GetString(KeyBackupFile),
		NodePath:               v.GetString(KeyNodePath),
		Yes:                    v.GetBool(KeyYes),
		Database:               v.GetString(KeyDatabase),
		Merge:                  v.GetBool(KeyMerge),
		BatchSize:              v.GetInt(KeyBatchSize),
		Concurrency:            v.GetInt(KeyConcurrency),
		Rate:                   v.GetFloat64(KeyRate),
		MetricsFile:            v.GetString(KeyMetricsFile),
		Verbose:                v.GetBool(KeyVerbose),
	}
}

// Reason classifies a ValidationError.
type Reason int

const (
	// ReasonMissing means a required option was not supplied.
	ReasonMissing Reason = iota
	// ReasonNotExist means a file option points at nothing.
	ReasonNotExist
	// ReasonInvalid means a value is out of range.
	ReasonInvalid
)

// ValidationError describes the first option that failed validation.
type ValidationError struct {
	Reason      Reason
	Key         string
	Label       string // human name of the file, e.g. "Backup file"
	Path        string
	Description string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return "missing " + e.Key
	case ReasonNotExist:
		return e.Label + " does not exist: " + e.Path
	default:
		return "invalid " + e.Key + ": " + e.Description
	}
}

// Validate checks, in order: credentials path present, credentials file
// exists, backup path present, backup file exists, numeric ranges.
func (o Options) Validate() error {
	if o.AccountCredentialsPath == "" {
		return &ValidationError{Reason: ReasonMissing, Key: KeyAccountCredentials, Description: AccountCredentialsDescription}
	}
	if !exists(o.AccountCredentialsPath) {
		return &ValidationError{Reason: ReasonNotExist, Key: KeyAccountCredentials, Label: "Account credentials file", Path: o.AccountCredentialsPath}
	}
	if o.BackupFile == "" {
		return &ValidationError{Reason: ReasonMissing, Key: KeyBackupFile, Description: BackupFileDescription}
	}
	if !exists(o.BackupFile) {
		return &ValidationError{Reason: ReasonNotExist, Key: KeyBackupFile, Label: "Backup file", Path: o.BackupFile}
	}
	if o.BatchSize < 1 || o.BatchSize > importer.MaxBatchSize {
		return &ValidationError{Reason: ReasonInvalid, Key: KeyBatchSize, Description: fmt.Sprintf("must be between 1 and %d, got %d", importer.MaxBatchSize, o.BatchSize)}
	}
	if o.Concurrency < 1 {
		return &ValidationError{Reason: ReasonInvalid, Key: KeyConcurrency, Description: fmt.Sprintf("must be at least 1, got %d", o.Concurrency)}
	}
	if o.Rate < 0 {
		return &ValidationError{Reason: ReasonInvalid, Key: KeyRate, Description: fmt.Sprintf("must not be negative, got %v", o.Rate)}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

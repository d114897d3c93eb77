package health

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sqlitedrop/sqlitedrop/pkg/dropin"
	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// Engine identities.
const (
	EngineSQLite = "sqlite"
	EngineMySQL  = "mysql"
)

// Report field keys.
const (
	FieldDatabaseTypeConstant = "DATABASE_TYPE"
	FieldDatabaseType         = "database_type"
	FieldDatabaseVersion      = "database_version"
	FieldDatabaseFile         = "database_file"
	FieldDatabaseSize         = "database_size"
)

// removedFields are the server-engine fields that mean nothing for SQLite.
var removedFields = []string{
	"extension",
	"server_version",
	"client_version",
	"database_host",
	"database_user",
	"database_name",
	"database_charset",
	"database_collate",
	"max_allowed_packet",
	"max_connections",
}

// Flag is the process-wide database type setting. Defined is false when the
// operator never set it.
type Flag struct {
	Value   string
	Defined bool
}

// ActiveEngine is "sqlite" only when the flag is set to exactly that value.
func (f Flag) ActiveEngine() string {
	if f.Defined && f.Value == EngineSQLite {
		return EngineSQLite
	}
	return EngineMySQL
}

// VersionSource reports the engine library version.
type VersionSource interface {
	Version(ctx context.Context) (string, error)
}

// DebugDataOptions configure a DebugData filter.
type DebugDataOptions struct {
	// Flag is the configured database type.
	Flag Flag

	// DatabaseFile is the absolute path of the SQLite database.
	DatabaseFile string

	// Prerequisite gates the version query.
	Prerequisite dropin.Prerequisite

	// Versions answers the version query.
	Versions VersionSource

	// Inspector sizes the database file.
	Inspector filesystem.Inspector

	// OnFieldFailure, when set, is called for every field that degraded to nil.
	OnFieldFailure func(field string, err error)

	Logger zerolog.Logger
}

// DebugData augments the diagnostics report.
type DebugData struct {
	opts   DebugDataOptions
	logger zerolog.Logger
}

// NewDebugData creates a debug data filter.
func NewDebugData(opts DebugDataOptions) (*DebugData, error) {
	if opts.Prerequisite == nil || opts.Versions == nil || opts.Inspector == nil {
		return nil, fmt.Errorf("prerequisite, version source and inspector are required")
	}
	return &DebugData{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "debug-data").Logger(),
	}, nil
}

// Augment rewrites the database sections of info when SQLite is active.
// Otherwise info is returned as is. It never fails: fields that cannot be
// determined are set to nil.
func (d *DebugData) Augment(ctx context.Context, info Info) Info {
	if d.opts.Flag.ActiveEngine() != EngineSQLite {
		return info
	}
	if info == nil {
		info = make(Info)
	}

	constant := Field{Label: FieldDatabaseTypeConstant, Value: "Undefined", Debug: "undefined"}
	if d.opts.Flag.Defined {
		constant.Value = d.opts.Flag.Value
		constant.Debug = d.opts.Flag.Value
	}
	info.section(SectionConstants).Fields[FieldDatabaseTypeConstant] = constant

	db := info.section(SectionDatabase)
	db.Fields[FieldDatabaseType] = Field{Label: "Database type", Value: "SQLite"}
	db.Fields[FieldDatabaseVersion] = Field{Label: "SQLite version", Value: d.version(ctx)}
	db.Fields[FieldDatabaseFile] = Field{Label: "Database file", Value: d.opts.DatabaseFile, Private: true}
	db.Fields[FieldDatabaseSize] = Field{Label: "Database size", Value: d.size(ctx)}

	for _, name := range removedFields {
		delete(db.Fields, name)
	}

	return info
}

func (d *DebugData) version(ctx context.Context) any {
	if !d.opts.Prerequisite.Available(ctx) {
		return nil
	}
	v, err := d.opts.Versions.Version(ctx)
	if err != nil {
		d.fieldFailed(FieldDatabaseVersion, err)
		return nil
	}
	return v
}

func (d *DebugData) size(ctx context.Context) any {
	if d.opts.DatabaseFile == "" {
		d.fieldFailed(FieldDatabaseSize, fmt.Errorf("database file is not configured"))
		return nil
	}
	n, err := d.opts.Inspector.Size(ctx, d.opts.DatabaseFile)
	if err != nil {
		d.fieldFailed(FieldDatabaseSize, err)
		return nil
	}
	return FormatSize(n)
}

func (d *DebugData) fieldFailed(field string, err error) {
	d.logger.Debug().Err(err).Str("field", field).Msg("report field unavailable")
	if d.opts.OnFieldFailure != nil {
		d.opts.OnFieldFailure(field, err)
	}
}

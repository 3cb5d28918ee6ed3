package types

import "time"

// DataSourceConfig is the immutable per-engine-instance descriptor created
// once by the caller and held read-only for the engine's lifetime (spec.md
// §3 "Data-source config"). Zero value DateStart/DateEnd mean "no bound".
type DataSourceConfig struct {
	Bucket string
	Prefix string

	ExportType ExportType
	TableName  string

	DateStart string // inclusive, "" means unbounded
	DateEnd   string // inclusive, "" means unbounded

	LocalRoot   string // "" disables the local cache entirely
	PreferLocal bool

	Credentials CredentialBundle
	Region      string

	MaxRows      int
	MaxQueryLen  int

	QueryLibraryRoot string // root under which stored-SQL files must resolve

	Deadline time.Duration
}

// LocalCacheEnabled reports whether this config has a local cache at all.
// Per spec.md's invariant, PreferLocal is meaningless when LocalRoot is
// empty — callers must consult this, not PreferLocal alone.
func (c DataSourceConfig) LocalCacheEnabled() bool {
	return c.LocalRoot != ""
}

// EffectivePreferLocal applies the invariant that an absent LocalRoot makes
// PreferLocal meaningless.
func (c DataSourceConfig) EffectivePreferLocal() bool {
	return c.LocalCacheEnabled() && c.PreferLocal
}

// TableNameOrDefault returns TableName, falling back to the export type's
// default logical table name.
func (c DataSourceConfig) TableNameOrDefault() string {
	if c.TableName != "" {
		return c.TableName
	}
	return c.ExportType.DefaultTableName()
}

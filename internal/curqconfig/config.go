// Package curqconfig loads a data-source configuration from a YAML file,
// with environment-variable overrides applied on top, and converts it into
// the types.DataSourceConfig every other component consumes.
//
// The direct-YAML-read-with-env-override shape (bypassing any singleton, so
// it works the same whether or not a CLI has initialized global config yet)
// is grounded on the teacher's _teacher_ref/config/local_config.go
// LoadLocalConfig/LoadLocalConfigWithEnv pair.
package curqconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/curq/internal/types"
)

// FileConfig is the on-disk shape of a data-source config file (and, when
// present, the engine/materializer settings that accompany it).
type FileConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	ExportType string `yaml:"export_type"`
	TableName  string `yaml:"table_name"`

	DateStart string `yaml:"date_start"`
	DateEnd   string `yaml:"date_end"`

	LocalRoot   string `yaml:"local_root"`
	PreferLocal bool   `yaml:"prefer_local"`

	Region  string `yaml:"region"`
	RoleARN string `yaml:"role_arn"`
	Profile string `yaml:"profile"`

	MaxRows     int `yaml:"max_rows"`
	MaxQueryLen int `yaml:"max_query_len"`

	QueryLibraryRoot string `yaml:"query_library_root"`
	ManifestRoot     string `yaml:"manifest_root"`
	OutputRoot       string `yaml:"output_root"`

	DeadlineSeconds int    `yaml:"deadline_seconds"`
	Engine          string `yaml:"engine"`
	LogLevel        string `yaml:"log_level"`
}

// defaults mirror spec.md §3's stated defaults for an unset MaxRows/
// MaxQueryLen/Engine.
const (
	defaultMaxRows      = 10_000
	defaultMaxQueryLen  = 32_768
	defaultEngine       = "gms"
)

// Load reads and parses path. A missing file is not an error: it returns an
// empty FileConfig so callers relying entirely on environment variables and
// flags still work (mirrors LoadLocalConfig's "return empty, not nil, on
// absence" contract).
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path supplied explicitly by the operator via --config
	if err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// LoadWithEnv loads path and applies CURQ_*-prefixed environment variable
// overrides, which take precedence over file values (same precedence order
// as the teacher's BEADS_SYNC_BRANCH override).
func LoadWithEnv(path string) (*FileConfig, error) {
	fc, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CURQ_BUCKET"); v != "" {
		fc.Bucket = v
	}
	if v := os.Getenv("CURQ_PREFIX"); v != "" {
		fc.Prefix = v
	}
	if v := os.Getenv("CURQ_REGION"); v != "" {
		fc.Region = v
	}
	if v := os.Getenv("CURQ_LOCAL_ROOT"); v != "" {
		fc.LocalRoot = v
	}
	if v := os.Getenv("CURQ_PREFER_LOCAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			fc.PreferLocal = b
		}
	}
	if v := os.Getenv("CURQ_ROLE_ARN"); v != "" {
		fc.RoleARN = v
	}
	if v := os.Getenv("CURQ_PROFILE"); v != "" {
		fc.Profile = v
	}
	if v := os.Getenv("CURQ_ENGINE"); v != "" {
		fc.Engine = v
	}
	return fc, nil
}

// ToDataSourceConfig converts the file representation into
// types.DataSourceConfig, applying defaults for unset numeric fields
// (spec.md §3).
func (fc *FileConfig) ToDataSourceConfig() (types.DataSourceConfig, error) {
	et, err := types.ParseExportType(fc.ExportType)
	if err != nil {
		return types.DataSourceConfig{}, err
	}

	maxRows := fc.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	maxQueryLen := fc.MaxQueryLen
	if maxQueryLen <= 0 {
		maxQueryLen = defaultMaxQueryLen
	}

	var deadline time.Duration
	if fc.DeadlineSeconds > 0 {
		deadline = time.Duration(fc.DeadlineSeconds) * time.Second
	}

	return types.DataSourceConfig{
		Bucket:     fc.Bucket,
		Prefix:     fc.Prefix,
		ExportType: et,
		TableName:  fc.TableName,

		DateStart: fc.DateStart,
		DateEnd:   fc.DateEnd,

		LocalRoot:   fc.LocalRoot,
		PreferLocal: fc.PreferLocal,

		Credentials: types.CredentialBundle{
			Mode:    credentialModeFor(fc),
			Profile: fc.Profile,
			RoleARN: fc.RoleARN,
			Region:  fc.Region,
		},
		Region: fc.Region,

		MaxRows:     maxRows,
		MaxQueryLen: maxQueryLen,

		QueryLibraryRoot: fc.QueryLibraryRoot,
		Deadline:         deadline,
	}, nil
}

// EngineName returns the configured engine adapter name, defaulting to the
// primary in-process engine.
func (fc *FileConfig) EngineName() string {
	if fc.Engine == "" {
		return defaultEngine
	}
	return fc.Engine
}

func credentialModeFor(fc *FileConfig) types.CredentialMode {
	switch {
	case fc.RoleARN != "":
		return types.CredentialModeRole
	case fc.Profile != "":
		return types.CredentialModeProfile
	default:
		return types.CredentialModeAuto
	}
}

// Package resolver implements C6: classifying a query target string and
// choosing the physical backing (local cache vs remote) for SQL-based
// sources.
//
// The classification cascade and the force_remote -> prefer_local-and-usable
// -> remote decision cascade both follow the same "ordered fallback, first
// match wins" shape as the teacher's
// _teacher_ref/storage_factory/factory.go GetBackendFromConfig.
package resolver

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/steveyegge/curq/internal/cache"
	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/types"
)

// SourceKind is the tagged-variant classification of a query target
// (spec.md §9: "the taxonomy of queries becomes a tagged variant with four
// cases"). Three cases are SourceKind values; a target matching none of
// them is returned by Resolve as an InvalidQuery error.
type SourceKind int

const (
	SourceKindSQLString SourceKind = iota
	SourceKindStoredSQL
	SourceKindDirectFile
)

// Backing is where a SQL-based source's files should be read from.
type Backing int

const (
	BackingRemote Backing = iota
	BackingLocal
)

func (b Backing) String() string {
	if b == BackingLocal {
		return "local"
	}
	return "remote"
}

// Resolution is the outcome of resolving a query target.
type Resolution struct {
	Kind SourceKind
	// SQL is the literal SQL text for SourceKindSQLString and
	// SourceKindStoredSQL (loaded from disk for the latter).
	SQL string
	// DirectFilePath is set only for SourceKindDirectFile.
	DirectFilePath string
	// Backing is meaningful only for SourceKindSQLString/SourceKindStoredSQL.
	Backing Backing
}

const directFileExt = ".parquet"
const storedSQLExt = ".sql"

// sqlKeywordRE is the "conservative whitespace/keyword check" spec.md
// §4.6 calls for: a leading SQL verb followed by whitespace.
var sqlKeywordRE = regexp.MustCompile(`(?i)^\s*\(?\s*(select|with|show|explain|describe)\b`)

// Resolve classifies target and, for SQL-based sources, decides the
// physical backing per spec.md §4.6. forceRemote is the query request's
// force_remote option (spec.md §6), which always wins over prefer_local.
func Resolve(target string, cfg types.DataSourceConfig, forceRemote bool) (*Resolution, error) {
	if strings.HasSuffix(target, directFileExt) {
		if info, err := os.Stat(target); err == nil && !info.IsDir() {
			return &Resolution{Kind: SourceKindDirectFile, DirectFilePath: target}, nil
		}
	}

	if strings.HasSuffix(target, storedSQLExt) {
		resolved := target
		if cfg.QueryLibraryRoot != "" && !filepath.IsAbs(target) {
			resolved = filepath.Join(cfg.QueryLibraryRoot, target)
		}
		if withinRoot(cfg.QueryLibraryRoot, resolved) {
			if info, err := os.Stat(resolved); err == nil && !info.IsDir() {
				text, err := os.ReadFile(resolved) // #nosec G304 - path validated against configured query library root
				if err != nil {
					return nil, qerrors.Wrap(qerrors.KindNotFound, "stored query file could not be read", err)
				}
				return &Resolution{Kind: SourceKindStoredSQL, SQL: string(text), Backing: decideBacking(cfg, forceRemote)}, nil
			}
		}
	}

	if sqlKeywordRE.MatchString(target) {
		return &Resolution{Kind: SourceKindSQLString, SQL: target, Backing: decideBacking(cfg, forceRemote)}, nil
	}

	return nil, qerrors.New(qerrors.KindInvalidQuery, "query target is neither an existing file nor recognizable SQL",
		"target must be a direct columnar file, a stored .sql file under the query library root, or a SQL string")
}

// decideBacking applies spec.md §4.6's cascade: force_remote always wins;
// otherwise prefer local only when it is usable; otherwise remote.
func decideBacking(cfg types.DataSourceConfig, forceRemote bool) Backing {
	if forceRemote {
		return BackingRemote
	}
	if cfg.EffectivePreferLocal() && cache.IsUsable(cfg) {
		return BackingLocal
	}
	return BackingRemote
}

// withinRoot reports whether resolved lies within root (or root is unset,
// in which case any path is accepted as-is).
func withinRoot(root, resolved string) bool {
	if root == "" {
		return true
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absResolved)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

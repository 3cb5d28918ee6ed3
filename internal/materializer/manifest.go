package materializer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/types"
)

// Manifest is the materializer's input: a flat set of view definitions plus
// the base table name they may all implicitly depend on (spec.md §4.9,
// §6's "view manifest" representation (a)).
type Manifest struct {
	BaseTable string
	Views     []types.ViewDefinition
}

// LoadManifestDir discovers a manifest from a directory whose children are
// level-numbered subdirectories ("0", "1", "2", ...) containing one SQL file
// per view (spec.md §6 representation (b)). A view's declared dependencies
// are the union of every view name declared in strictly lower-numbered
// levels, plus baseTable.
func LoadManifestDir(root string, baseTable string) (*Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory %s: %w", root, err)
	}

	type levelDir struct {
		num  int
		path string
	}
	var levels []levelDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue // non-numeric subdirectory is not part of the layout convention
		}
		levels = append(levels, levelDir{num: n, path: filepath.Join(root, e.Name())})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].num < levels[j].num })

	var seenSoFar []string
	var views []types.ViewDefinition
	for _, lvl := range levels {
		files, err := os.ReadDir(lvl.path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest level %d: %w", lvl.num, err)
		}
		var namesThisLevel []string
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
				continue
			}
			name := strings.TrimSuffix(f.Name(), ".sql")
			sqlBytes, err := os.ReadFile(filepath.Join(lvl.path, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("reading view file %s: %w", f.Name(), err)
			}
			deps := append([]string{baseTable}, seenSoFar...)
			views = append(views, types.ViewDefinition{Name: name, SQL: string(sqlBytes), DependsOn: deps})
			namesThisLevel = append(namesThisLevel, name)
		}
		seenSoFar = append(seenSoFar, namesThisLevel...)
	}

	return &Manifest{BaseTable: baseTable, Views: views}, nil
}

// orderedLevels computes a topological order over the view DAG rooted at
// manifest.BaseTable, grouping independent views into levels (spec.md §4.9
// steps 1-3). A cycle fails the run with an InvalidQuery-kind error whose
// message starts "invalid view manifest" and names every view that could
// not be placed; there is no separate manifest error kind.
func orderedLevels(m *Manifest) ([][]types.ViewDefinition, error) {
	byName := make(map[string]types.ViewDefinition, len(m.Views))
	for _, v := range m.Views {
		if _, dup := byName[v.Name]; dup {
			return nil, qerrors.New(qerrors.KindInvalidQuery, fmt.Sprintf("invalid view manifest: duplicate view name %q", v.Name))
		}
		byName[v.Name] = v
	}

	// indegree counts only edges between views (the base table is an
	// implicit root every view may depend on without entering the graph).
	indegree := make(map[string]int, len(m.Views))
	dependents := make(map[string][]string)
	for _, v := range m.Views {
		indegree[v.Name] = 0
	}
	for _, v := range m.Views {
		for _, dep := range v.DependsOn {
			if dep == m.BaseTable {
				continue
			}
			if _, ok := byName[dep]; !ok {
				return nil, qerrors.New(qerrors.KindInvalidQuery, fmt.Sprintf("invalid view manifest: %q depends on unknown view %q", v.Name, dep))
			}
			indegree[v.Name]++
			dependents[dep] = append(dependents[dep], v.Name)
		}
	}

	var levels [][]types.ViewDefinition
	remaining := len(m.Views)
	placed := make(map[string]bool, len(m.Views))

	for remaining > 0 {
		var frontier []string
		for name, deg := range indegree {
			if deg == 0 && !placed[name] {
				frontier = append(frontier, name)
			}
		}
		if len(frontier) == 0 {
			var stuck []string
			for name := range indegree {
				if !placed[name] {
					stuck = append(stuck, name)
				}
			}
			sort.Strings(stuck)
			return nil, qerrors.New(qerrors.KindInvalidQuery, fmt.Sprintf("invalid view manifest: cycle detected among views %s", strings.Join(stuck, ", ")))
		}
		sort.Strings(frontier)

		level := make([]types.ViewDefinition, 0, len(frontier))
		for _, name := range frontier {
			def := byName[name]
			def.Level = len(levels)
			level = append(level, def)
			placed[name] = true
			remaining--
		}
		for _, name := range frontier {
			for _, dependent := range dependents[name] {
				indegree[dependent]--
			}
		}
		levels = append(levels, level)
	}

	return levels, nil
}

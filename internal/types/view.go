package types

// ViewDefinition is a named SQL artifact plus its declared dependency set
// (other view names, and implicitly the base table when DependsOn is empty
// or omits it). The set of all view definitions forms a DAG rooted at the
// base table; cycles are invalid input (spec.md §3, §4.9).
type ViewDefinition struct {
	Name      string
	SQL       string
	DependsOn []string

	// Level is the height of this view in the dependency DAG, computed by
	// the materializer (C9), not supplied by the caller. Views that depend
	// on no other view (only on the base table) are level 0; every other
	// view is one level above its highest dependency.
	Level int
}

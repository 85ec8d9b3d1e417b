// Package transform defines the declarative transform configuration: the
// join plan, filter tree, computed-column specs, and output shaping that the
// pipeline executes. A Config is produced and edited externally; the engine
// only reads it. Given the same Config and the same underlying tables, the
// engine's output is byte-for-byte identical.
package transform

import "fmt"

// DatasetRef is a logical dataset name, resolved externally to a table.
type DatasetRef string

// JoinType selects the join semantics of a step.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
)

// KeyPair is one component of a composite join key.
type KeyPair struct {
	Left  string `yaml:"left" json:"left"`
	Right string `yaml:"right" json:"right"`
}

// JoinStep is one binary join in the plan. Steps execute strictly in
// declared order; each step's left side is the cumulative result of the
// prior steps.
type JoinStep struct {
	Left        DatasetRef `yaml:"left" json:"left"`
	Right       DatasetRef `yaml:"right" json:"right"`
	Keys        []KeyPair  `yaml:"keys" json:"keys"`
	Type        JoinType   `yaml:"type" json:"type"`
	RightPrefix string     `yaml:"right_prefix" json:"right_prefix"`

	// CaseInsensitiveKeys opts in to case-folded key matching. The default
	// is exact, case-sensitive comparison after whitespace trimming.
	CaseInsensitiveKeys bool `yaml:"case_insensitive_keys,omitempty" json:"case_insensitive_keys,omitempty"`
}

// GroupOp is the boolean connective of a filter group.
type GroupOp string

const (
	GroupAnd GroupOp = "and"
	GroupOr  GroupOp = "or"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpRegex       = "regex"
	OpIn          = "in"
	OpNotIn       = "not_in"
	OpGt          = "gt"
	OpGte         = "gte"
	OpLt          = "lt"
	OpLte         = "lte"
	OpBetween     = "between"
	OpIsNull      = "is_null"
	OpIsNotNull   = "is_not_null"
	OpDateBefore  = "date_before"
	OpDateAfter   = "date_after"
	OpDateBetween = "date_between"
)

var knownOperators = map[string]bool{
	OpEquals: true, OpNotEquals: true,
	OpContains: true, OpNotContains: true,
	OpStartsWith: true, OpEndsWith: true,
	OpRegex: true,
	OpIn:    true, OpNotIn: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpBetween: true,
	OpIsNull: true, OpIsNotNull: true,
	OpDateBefore: true, OpDateAfter: true, OpDateBetween: true,
}

// KnownOperator reports whether op is a supported condition operator.
func KnownOperator(op string) bool { return knownOperators[op] }

// FilterNode is one node of the boolean filter tree: either a group (Op set,
// Children evaluated under it) or a condition (Column/Operator/Value set).
// An empty AND group evaluates true; an empty OR group evaluates false.
type FilterNode struct {
	// Group fields.
	Op       GroupOp      `yaml:"op,omitempty" json:"op,omitempty"`
	Children []FilterNode `yaml:"children,omitempty" json:"children,omitempty"`

	// Condition fields.
	Column   string `yaml:"column,omitempty" json:"column,omitempty"`
	Operator string `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    any    `yaml:"value,omitempty" json:"value,omitempty"`

	// CaseSensitive controls string matching for this condition.
	// Unset means case-sensitive.
	CaseSensitive *bool `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// IsGroup reports whether the node is a group rather than a condition.
func (n *FilterNode) IsGroup() bool { return n.Op != "" }

// IsCaseSensitive returns the effective case rule (default true).
func (n *FilterNode) IsCaseSensitive() bool {
	return n.CaseSensitive == nil || *n.CaseSensitive
}

// Computed-column functions.
const (
	FuncConcat     = "concat"
	FuncCoalesce   = "coalesce"
	FuncDateFormat = "date_format"
	FuncBucket     = "bucket"
)

// ComputedColumn derives a new column from existing ones. Specs apply in
// declared order; a later spec may read the output of an earlier one.
type ComputedColumn struct {
	OutputName string         `yaml:"output_name" json:"output_name"`
	Function   string         `yaml:"function" json:"function"`
	Args       map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// OutputColumn selects (and orders) one column of the final result.
type OutputColumn struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// SortSpec orders the result on a single column before pagination.
type SortSpec struct {
	Column    string `yaml:"column" json:"column"`
	Direction string `yaml:"direction" json:"direction"` // asc | desc
}

// Config is the full transform plan and the unit of persistence and
// reproducibility.
type Config struct {
	Name     string           `yaml:"name,omitempty" json:"name,omitempty"`
	Datasets []DatasetRef     `yaml:"datasets" json:"datasets"`
	Joins    []JoinStep       `yaml:"joins,omitempty" json:"joins,omitempty"`
	Filter   *FilterNode      `yaml:"filter,omitempty" json:"filter,omitempty"`
	Computed []ComputedColumn `yaml:"computed,omitempty" json:"computed,omitempty"`
	Columns  []OutputColumn   `yaml:"columns,omitempty" json:"columns,omitempty"`
	Sort     *SortSpec        `yaml:"sort,omitempty" json:"sort,omitempty"`

	// PageSize is the default page size when a request does not carry an
	// explicit limit.
	PageSize int `yaml:"page_size,omitempty" json:"page_size,omitempty"`
}

// Primary returns the base dataset of the plan (the first declared ref).
func (c *Config) Primary() DatasetRef {
	if len(c.Datasets) == 0 {
		return ""
	}
	return c.Datasets[0]
}

// Validate checks the structural invariants of the configuration. It only
// inspects the config itself; checks that need dataset schemas happen later
// in the pipeline.
func (c *Config) Validate() error {
	if len(c.Datasets) == 0 {
		return &ValidationError{Field: "datasets", Message: "at least one dataset is required"}
	}
	seen := make(map[DatasetRef]bool, len(c.Datasets))
	for _, ref := range c.Datasets {
		if ref == "" {
			return &ValidationError{Field: "datasets", Message: "dataset name must not be empty"}
		}
		if seen[ref] {
			return &ValidationError{Field: "datasets", Message: fmt.Sprintf("duplicate dataset %q", ref)}
		}
		seen[ref] = true
	}

	prefixes := make(map[string]bool, len(c.Joins))
	for i, step := range c.Joins {
		field := fmt.Sprintf("joins[%d]", i)
		if step.Right == "" {
			return &ValidationError{Field: field + ".right", Message: "right dataset is required"}
		}
		if !seen[step.Right] {
			return &ValidationError{Field: field + ".right", Message: fmt.Sprintf("dataset %q is not declared", step.Right)}
		}
		if len(step.Keys) == 0 {
			return &ValidationError{Field: field + ".keys", Message: "at least one key pair is required"}
		}
		for j, k := range step.Keys {
			if k.Left == "" || k.Right == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("%s.keys[%d]", field, j),
					Message: "both sides of a key pair are required",
				}
			}
		}
		if step.Type != JoinInner && step.Type != JoinLeft {
			return &ValidationError{Field: field + ".type", Message: fmt.Sprintf("join type must be %q or %q", JoinInner, JoinLeft)}
		}
		if step.RightPrefix == "" {
			return &ValidationError{Field: field + ".right_prefix", Message: "right_prefix is required"}
		}
		if prefixes[step.RightPrefix] {
			return &ValidationError{Field: field + ".right_prefix", Message: fmt.Sprintf("prefix %q is used by more than one join step", step.RightPrefix)}
		}
		prefixes[step.RightPrefix] = true
	}

	if c.Filter != nil {
		if err := validateFilterNode(c.Filter, "filter"); err != nil {
			return err
		}
	}

	for i, cc := range c.Computed {
		field := fmt.Sprintf("computed[%d]", i)
		if cc.OutputName == "" {
			return &ValidationError{Field: field + ".output_name", Message: "output_name is required"}
		}
		switch cc.Function {
		case FuncConcat, FuncCoalesce, FuncDateFormat, FuncBucket:
		default:
			return &ValidationError{Field: field + ".function", Message: fmt.Sprintf("unsupported function %q", cc.Function)}
		}
	}

	if c.Sort != nil {
		if c.Sort.Column == "" {
			return &ValidationError{Field: "sort.column", Message: "sort column is required"}
		}
		if c.Sort.Direction != "asc" && c.Sort.Direction != "desc" {
			return &ValidationError{Field: "sort.direction", Message: "direction must be asc or desc"}
		}
	}

	if c.PageSize < 0 {
		return &ValidationError{Field: "page_size", Message: "page_size must not be negative"}
	}

	return nil
}

func validateFilterNode(n *FilterNode, field string) error {
	if n.IsGroup() {
		if n.Op != GroupAnd && n.Op != GroupOr {
			return &ValidationError{Field: field + ".op", Message: fmt.Sprintf("group operator must be %q or %q", GroupAnd, GroupOr)}
		}
		for i := range n.Children {
			if err := validateFilterNode(&n.Children[i], fmt.Sprintf("%s.children[%d]", field, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if n.Column == "" {
		return &ValidationError{Field: field + ".column", Message: "condition column is required"}
	}
	if !KnownOperator(n.Operator) {
		return &ValidationError{Field: field + ".operator", Message: fmt.Sprintf("unsupported operator %q", n.Operator)}
	}
	return nil
}

// FilterColumns returns the sorted, de-duplicated set of columns referenced
// by the filter tree.
func (c *Config) FilterColumns() []string {
	set := make(map[string]bool)
	var walk func(n *FilterNode)
	walk = func(n *FilterNode) {
		if n == nil {
			return
		}
		if n.IsGroup() {
			for i := range n.Children {
				walk(&n.Children[i])
			}
			return
		}
		if n.Column != "" {
			set[n.Column] = true
		}
	}
	walk(c.Filter)
	return sortedKeys(set)
}

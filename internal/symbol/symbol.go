// Package symbol implements the SymbolClassifier: it
// partitions every callee name seen while parsing a translation unit
// into User (defined in this translation unit) or External (declared,
// provided by the C runtime), using an externally supplied symbol
// table as the source of truth for "provided by the runtime".
package symbol

// Class identifies which side of the User/External partition a Symbol
// falls on.
type Class int

const (
	// Unknown means the name was referenced but never resolved to
	// either a function definition in this translation unit or an
	// entry in the external symbol table; callers should ignore it.
	Unknown Class = iota
	User
	External
)

func (c Class) String() string {
	switch c {
	case User:
		return "user"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Symbol is a C identifier tagged with its Class. Identity is by Name.
type Symbol struct {
	Name  string
	Class Class
}

// Table is an external symbol table collaborator: the set of names the
// C runtime provides. internal/symtab supplies a concrete
// implementation backed by `nm -D`.
type Table interface {
	Has(name string) bool
}

// StaticTable is a Table backed by a fixed set of names, useful for
// tests and for the bundled fallback list in internal/symtab.
type StaticTable map[string]struct{}

func NewStaticTable(names ...string) StaticTable {
	t := make(StaticTable, len(names))
	for _, n := range names {
		t[n] = struct{}{}
	}
	return t
}

func (t StaticTable) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// Classifier partitions every callee name encountered during parsing.
// A name with a recorded function body is always User, regardless of
// whether it also happens to appear in the external table (a
// translation unit may define a function whose name shadows a libc
// symbol — the definition always wins).
type Classifier struct {
	table   Table
	defined map[string]struct{}
	classes map[string]Class
}

// NewClassifier creates a classifier against the given external symbol
// table.
func NewClassifier(table Table) *Classifier {
	return &Classifier{
		table:   table,
		defined: make(map[string]struct{}),
		classes: make(map[string]Class),
	}
}

// MarkDefined records that name has a function body in this
// translation unit, i.e. is a User function. Call this for every
// FunctionDecl with a body before calling Classify.
func (c *Classifier) MarkDefined(name string) {
	c.defined[name] = struct{}{}
	c.classes[name] = User
}

// Classify resolves name to its Class, consulting the external table
// only if the name wasn't already recorded as User via MarkDefined.
// The result is memoized.
func (c *Classifier) Classify(name string) Class {
	if cl, ok := c.classes[name]; ok {
		return cl
	}
	if _, ok := c.defined[name]; ok {
		c.classes[name] = User
		return User
	}
	if c.table != nil && c.table.Has(name) {
		c.classes[name] = External
		return External
	}
	c.classes[name] = Unknown
	return Unknown
}

// Users returns every name classified as User.
func (c *Classifier) Users() []string {
	var out []string
	for name, cl := range c.classes {
		if cl == User {
			out = append(out, name)
		}
	}
	return out
}

// Externals returns every name classified as External.
func (c *Classifier) Externals() []string {
	var out []string
	for name, cl := range c.classes {
		if cl == External {
			out = append(out, name)
		}
	}
	return out
}

// Symbol returns the classified Symbol for name.
func (c *Classifier) Symbol(name string) Symbol {
	return Symbol{Name: name, Class: c.Classify(name)}
}

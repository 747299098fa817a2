package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/logger"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// Attribute pairs a declared attribute name with its descriptor.
type Attribute struct {
	Name  string
	Field *Field
}

// Attr is shorthand for building an Attribute.
func Attr(name string, f *Field) Attribute {
	return Attribute{Name: name, Field: f}
}

// Definition is the declaration of a record type: its name, an optional
// explicit table name and its attributes in declaration order.
type Definition struct {
	Name       string
	Table      string
	Attributes []Attribute
}

// Schema is the compiled, immutable form of a Definition. It is safe for
// concurrent use; nothing in it changes after Compile returns.
type Schema struct {
	name             string
	table            string
	primaryKey       string
	primaryKeyColumn string
	fields           []string
	attributes       []string
	mappings         map[string]Field
	columns          map[string]string
	attrByColumn     map[string]string

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

// QuoteIdent backtick-quotes an identifier, doubling embedded backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Compile validates def and builds its Schema.
func Compile(def Definition) (*Schema, error) {
	if def.Name == "" {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "record type name is required")
	}

	s := &Schema{
		name:         def.Name,
		table:        def.Table,
		mappings:     make(map[string]Field, len(def.Attributes)),
		columns:      make(map[string]string, len(def.Attributes)),
		attrByColumn: make(map[string]string, len(def.Attributes)),
	}
	if s.table == "" {
		s.table = def.Name
	}

	for _, a := range def.Attributes {
		if a.Name == "" || a.Field == nil {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "attribute needs a name and a field").
				WithDetail("model", def.Name)
		}
		if _, dup := s.mappings[a.Name]; dup {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "duplicate attribute").
				WithDetail("model", def.Name).
				WithDetail("attribute", a.Name)
		}

		column := a.Field.Name
		if column == "" {
			column = a.Name
		}
		if other, dup := s.attrByColumn[column]; dup {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "duplicate column").
				WithDetail("model", def.Name).
				WithDetail("column", column).
				WithDetail("attributes", []string{other, a.Name})
		}

		if a.Field.PrimaryKey {
			if s.primaryKey != "" {
				return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "duplicate primary key").
					WithDetail("model", def.Name).
					WithDetail("attribute", a.Name)
			}
			s.primaryKey = a.Name
			s.primaryKeyColumn = column
		} else {
			s.fields = append(s.fields, a.Name)
		}

		s.mappings[a.Name] = *a.Field
		s.columns[a.Name] = column
		s.attrByColumn[column] = a.Name
		s.attributes = append(s.attributes, a.Name)
	}

	if s.primaryKey == "" {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "missing primary key").
			WithDetail("model", def.Name)
	}

	s.buildTemplates()
	return s, nil
}

func (s *Schema) buildTemplates() {
	table := QuoteIdent(s.table)
	pk := QuoteIdent(s.primaryKeyColumn)

	escaped := make([]string, len(s.fields))
	assignments := make([]string, len(s.fields))
	for i, attr := range s.fields {
		escaped[i] = QuoteIdent(s.columns[attr])
		assignments[i] = escaped[i] + "=?"
	}

	if len(escaped) == 0 {
		s.selectSQL = fmt.Sprintf("select %s from %s", pk, table)
	} else {
		s.selectSQL = fmt.Sprintf("select %s, %s from %s", pk, strings.Join(escaped, ","), table)
	}

	insertCols := append(append([]string{}, escaped...), pk)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(insertCols)), ",")
	s.insertSQL = fmt.Sprintf("insert into %s (%s) values(%s)", table, strings.Join(insertCols, ","), placeholders)

	// A key-only table has nothing to set.
	if len(assignments) > 0 {
		s.updateSQL = fmt.Sprintf("update %s set %s where %s=?", table, strings.Join(assignments, ","), pk)
	}
	s.deleteSQL = fmt.Sprintf("delete from %s where %s=?", table, pk)
}

// Name returns the record type name.
func (s *Schema) Name() string { return s.name }

// Table returns the unquoted table name.
func (s *Schema) Table() string { return s.table }

// PrimaryKey returns the primary key attribute name.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// PrimaryKeyColumn returns the unquoted primary key column name.
func (s *Schema) PrimaryKeyColumn() string { return s.primaryKeyColumn }

// Fields returns the non-key attribute names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Attributes returns every declared attribute name in declaration order.
func (s *Schema) Attributes() []string {
	return append([]string(nil), s.attributes...)
}

// Field returns a copy of the descriptor of attr.
func (s *Schema) Field(attr string) (Field, bool) {
	f, ok := s.mappings[attr]
	return f, ok
}

// HasAttribute reports whether attr is declared.
func (s *Schema) HasAttribute(attr string) bool {
	_, ok := s.mappings[attr]
	return ok
}

// Column returns the unquoted column name of attr.
func (s *Schema) Column(attr string) (string, bool) {
	c, ok := s.columns[attr]
	return c, ok
}

// AttributeForColumn maps a result-set column back to its attribute.
func (s *Schema) AttributeForColumn(column string) (string, bool) {
	a, ok := s.attrByColumn[column]
	return a, ok
}

// SelectSQL returns the select template.
func (s *Schema) SelectSQL() string { return s.selectSQL }

// InsertSQL returns the insert template; its placeholder count is len(Fields())+1.
func (s *Schema) InsertSQL() string { return s.insertSQL }

// UpdateSQL returns the update template, empty for key-only record types.
func (s *Schema) UpdateSQL() string { return s.updateSQL }

// DeleteSQL returns the delete template.
func (s *Schema) DeleteSQL() string { return s.deleteSQL }

// CreateTableSQL renders MySQL DDL for the table. It is informational; the
// ORM never executes DDL.
func (s *Schema) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "create table %s (\n", QuoteIdent(s.table))
	for _, attr := range s.attributes {
		f := s.mappings[attr]
		fmt.Fprintf(&b, "  %s %s", QuoteIdent(s.columns[attr]), f.DDL)
		if f.PrimaryKey {
			b.WriteString(" not null")
		}
		b.WriteString(",\n")
	}
	fmt.Fprintf(&b, "  primary key (%s)\n) engine=innodb default charset=utf8;", QuoteIdent(s.primaryKeyColumn))
	return b.String()
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s (table: %s, primary key: %s)", s.name, s.table, s.primaryKey)
}

// Registry holds compiled schemas keyed by record type name. A name can be
// registered once.
type Registry struct {
	schemas map[string]*Schema
	mu      sync.RWMutex
	logger  *zap.Logger
}

var defaultRegistry = NewRegistry(nil)

// NewRegistry creates an empty registry. A nil logger means the global one.
func NewRegistry(l *zap.Logger) *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
		logger:  l,
	}
}

func (r *Registry) log() *zap.Logger {
	return logger.OrDefault(r.logger).With(zap.String("component", "schema_registry"))
}

// Register compiles def and publishes the result.
func (r *Registry) Register(def Definition) (*Schema, error) {
	s, err := Compile(def)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.name]; exists {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "record type already registered").
			WithDetail("model", s.name)
	}
	r.schemas[s.name] = s

	l := r.log()
	l.Info("found model", zap.String("model", s.name), zap.String("table", s.table))
	for _, attr := range s.attributes {
		f := s.mappings[attr]
		l.Debug("found mapping", zap.String("attribute", attr), zap.Stringer("field", &f))
	}
	return s, nil
}

// MustRegister is Register for package-level declarations; it panics on error.
func (r *Registry) MustRegister(def Definition) *Schema {
	s, err := r.Register(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the registered record type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers def in the process-wide registry.
func Register(def Definition) (*Schema, error) { return defaultRegistry.Register(def) }

// MustRegister registers def in the process-wide registry and panics on error.
func MustRegister(def Definition) *Schema { return defaultRegistry.MustRegister(def) }

// Lookup finds a schema in the process-wide registry.
func Lookup(name string) (*Schema, bool) { return defaultRegistry.Lookup(name) }

// Names lists the process-wide registry.
func Names() []string { return defaultRegistry.Names() }

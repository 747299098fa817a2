// Package schema describes persisted record types. A Field describes one
// column; a Definition lists the attributes of a record type; Compile turns a
// Definition into an immutable Schema holding the column lists and the four
// canonical statement templates shared by every instance of the type.
package schema

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// ColumnKind is the storage kind of a column. It selects the DDL type and the
// Go type values are coerced to when a row is loaded.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

func (k ColumnKind) className() string {
	switch k {
	case KindString:
		return "StringField"
	case KindBoolean:
		return "BooleanField"
	case KindInteger:
		return "IntegerField"
	case KindFloat:
		return "FloatField"
	case KindText:
		return "TextField"
	default:
		return "Field"
	}
}

// DefaultFunc produces a default value lazily. It is invoked with no context
// and must not depend on the record it fills.
type DefaultFunc func() any

// Field describes one persisted attribute.
type Field struct {
	// Name is the column name; empty means the attribute name is used.
	Name string
	// Kind is the storage kind.
	Kind ColumnKind
	// DDL is the column type used in CREATE TABLE text.
	DDL string
	// PrimaryKey marks the single key column of a record type.
	PrimaryKey bool
	// Default is nil, a literal value, or a DefaultFunc.
	Default any
}

// FieldOption configures a Field at construction.
type FieldOption func(*Field)

// WithName sets an explicit column name.
func WithName(name string) FieldOption {
	return func(f *Field) { f.Name = name }
}

// PrimaryKey marks the field as the record type's primary key.
func PrimaryKey() FieldOption {
	return func(f *Field) { f.PrimaryKey = true }
}

// WithDefault sets a literal default value.
func WithDefault(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// WithDefaultFunc sets a generator evaluated the first time a default is needed.
func WithDefaultFunc(fn DefaultFunc) FieldOption {
	return func(f *Field) { f.Default = fn }
}

// WithoutDefault clears the kind's built-in default.
func WithoutDefault() FieldOption {
	return func(f *Field) { f.Default = nil }
}

// WithDDL overrides the column type text.
func WithDDL(ddl string) FieldOption {
	return func(f *Field) { f.DDL = ddl }
}

// WithLength sets the varchar length of a string field.
func WithLength(n int) FieldOption {
	return func(f *Field) { f.DDL = "varchar(" + strconv.Itoa(n) + ")" }
}

func newField(kind ColumnKind, ddl string, def any, opts []FieldOption) *Field {
	f := &Field{Kind: kind, DDL: ddl, Default: def}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StringField declares a varchar column, varchar(100) unless overridden.
func StringField(opts ...FieldOption) *Field {
	return newField(KindString, "varchar(100)", nil, opts)
}

// BooleanField declares a boolean column.
func BooleanField(opts ...FieldOption) *Field {
	return newField(KindBoolean, "boolean", nil, opts)
}

// IntegerField declares a bigint column defaulting to 0.
func IntegerField(opts ...FieldOption) *Field {
	return newField(KindInteger, "bigint", int64(0), opts)
}

// FloatField declares a real column defaulting to 0.0.
func FloatField(opts ...FieldOption) *Field {
	return newField(KindFloat, "real", 0.0, opts)
}

// TextField declares a text column.
func TextField(opts ...FieldOption) *Field {
	return newField(KindText, "text", nil, opts)
}

// String renders the descriptor for registration logs, e.g.
// <StringField, varchar(50):email>.
func (f *Field) String() string {
	return fmt.Sprintf("<%s, %s:%s>", f.Kind.className(), f.DDL, f.Name)
}

// HasDefault reports whether the field carries a default.
func (f *Field) HasDefault() bool {
	return f.Default != nil
}

// ResolveDefault computes the default value, invoking it when it is a
// generator. ok is false when the field has no default.
func (f *Field) ResolveDefault() (value any, ok bool) {
	switch d := f.Default.(type) {
	case nil:
		return nil, false
	case DefaultFunc:
		return d(), true
	case func() any:
		return d(), true
	default:
		return d, true
	}
}

// Coerce converts a value read from the database to the Go type of the
// field's kind: string, bool, int64 or float64. nil passes through.
func (f *Field) Coerce(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch f.Kind {
	case KindString, KindText:
		out, err = cast.ToStringE(v)
	case KindInteger:
		out, err = cast.ToInt64E(v)
	case KindFloat:
		out, err = cast.ToFloat64E(v)
	case KindBoolean:
		out, err = toBool(v)
	default:
		out = v
	}
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeQuery, "cannot decode column value").
			WithDetail("column", f.Name).
			WithDetail("kind", f.Kind.String())
	}
	return out, nil
}

func toBool(v any) (bool, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := cast.ToInt64E(v)
		return n != 0, err
	default:
		return cast.ToBoolE(v)
	}
}

// NextID returns a 50 character, roughly time-ordered identifier: a 15 digit
// millisecond timestamp, 32 hex digits of a random UUID and a 000 suffix.
func NextID() string {
	u := uuid.New()
	return fmt.Sprintf("%015d%s000", time.Now().UnixMilli(), hex.EncodeToString(u[:]))
}

// NewID is NextID in DefaultFunc form, for primary key defaults.
func NewID() any {
	return NextID()
}

// NowUnix returns the current time as fractional unix seconds. It is the
// usual default generator for created_at columns.
func NowUnix() any {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

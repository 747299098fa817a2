package models

import (
	"context"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/pkg/json"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-orm/pkg/schema"
)

// Record is one instance of a record type: a mapping from declared attribute
// names to current values. An attribute that is absent or nil is unset.
// A Record is not safe for concurrent use.
type Record struct {
	table  *Table
	values map[string]any
}

// Table returns the table the record belongs to.
func (r *Record) Table() *Table { return r.table }

// Schema returns the record's compiled schema.
func (r *Record) Schema() *schema.Schema { return r.table.schema }

// Set assigns attr. Undeclared attributes are rejected.
func (r *Record) Set(attr string, v any) error {
	if !r.table.schema.HasAttribute(attr) {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeArgument, "%s has no attribute %q", r.table.schema.Name(), attr).
			WithDetail("attribute", attr)
	}
	r.values[attr] = v
	return nil
}

// Unset clears attr.
func (r *Record) Unset(attr string) {
	delete(r.values, attr)
}

// IsSet reports whether attr holds a non-nil value.
func (r *Record) IsSet(attr string) bool {
	return r.values[attr] != nil
}

// Get returns the current value of attr and whether it is set.
func (r *Record) Get(attr string) (any, bool) {
	v := r.values[attr]
	return v, v != nil
}

// GetValue returns the current value of attr, nil when unset. It never
// applies defaults.
func (r *Record) GetValue(attr string) any {
	return r.values[attr]
}

// GetValueOrDefault returns the current value of attr. When attr is unset
// and its field has a default, the default is computed once, stored on the
// record and returned; later calls see the stored value.
func (r *Record) GetValueOrDefault(attr string) any {
	if v := r.values[attr]; v != nil {
		return v
	}
	f, ok := r.table.schema.Field(attr)
	if !ok {
		return nil
	}
	v, ok := f.ResolveDefault()
	if !ok || v == nil {
		return nil
	}
	r.table.logger.Debug("using default value",
		zap.String("attribute", attr),
		zap.Any("value", v))
	r.values[attr] = v
	return v
}

// GetString returns attr converted to a string.
func (r *Record) GetString(attr string) (string, error) {
	return cast.ToStringE(r.values[attr])
}

// GetInt64 returns attr converted to an int64.
func (r *Record) GetInt64(attr string) (int64, error) {
	return cast.ToInt64E(r.values[attr])
}

// GetFloat64 returns attr converted to a float64.
func (r *Record) GetFloat64(attr string) (float64, error) {
	return cast.ToFloat64E(r.values[attr])
}

// GetBool returns attr converted to a bool.
func (r *Record) GetBool(attr string) (bool, error) {
	return cast.ToBoolE(r.values[attr])
}

// Values returns a copy of the set attributes.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the set attributes as a JSON object.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.MarshalNoEscape(r.Values())
}

// Save inserts the record. Unset non-key attributes and an unset primary key
// take their defaults, which are stored on the record. An affected row count
// other than 1 is logged, not returned as an error.
func (r *Record) Save(ctx context.Context) (int64, error) {
	s := r.table.schema
	fields := s.Fields()
	args := make([]any, 0, len(fields)+1)
	for _, attr := range fields {
		args = append(args, r.GetValueOrDefault(attr))
	}
	args = append(args, r.GetValueOrDefault(s.PrimaryKey()))

	n, err := r.table.exec.RunCommand(r.table.ctx(ctx, "save"), s.InsertSQL(), args, r.table.autocommit)
	if err != nil {
		return 0, err
	}
	r.table.checkAffected("insert", n)
	return n, nil
}

// Update writes the current values of every non-key attribute, keyed by the
// primary key. Defaults are not applied: an unset attribute is written as
// NULL.
func (r *Record) Update(ctx context.Context) (int64, error) {
	s := r.table.schema
	if s.UpdateSQL() == "" {
		return 0, nebulaerrors.New(nebulaerrors.ErrorTypeValidation, "record type has no non-key attributes to update").
			WithDetail("model", s.Name())
	}

	fields := s.Fields()
	args := make([]any, 0, len(fields)+1)
	for _, attr := range fields {
		args = append(args, r.GetValue(attr))
	}
	args = append(args, r.GetValue(s.PrimaryKey()))

	n, err := r.table.exec.RunCommand(r.table.ctx(ctx, "update"), s.UpdateSQL(), args, r.table.autocommit)
	if err != nil {
		return 0, err
	}
	r.table.checkAffected("update", n)
	return n, nil
}

// Remove deletes the row with the record's primary key.
func (r *Record) Remove(ctx context.Context) (int64, error) {
	s := r.table.schema
	args := []any{r.GetValue(s.PrimaryKey())}

	n, err := r.table.exec.RunCommand(r.table.ctx(ctx, "remove"), s.DeleteSQL(), args, r.table.autocommit)
	if err != nil {
		return 0, err
	}
	r.table.checkAffected("remove", n)
	return n, nil
}

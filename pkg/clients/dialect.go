package clients

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-orm/pkg/config"
	"github.com/ajitpratap0/nebula-orm/pkg/nebulaerrors"
)

// Dialect selects the database driver and its native parameter syntax.
// Statement templates always use ? placeholders and backtick identifiers;
// Rebind rewrites them for the dialect.
type Dialect string

const (
	// DialectMySQL keeps ? placeholders (go-sql-driver/mysql)
	DialectMySQL Dialect = config.DialectMySQL
	// DialectPostgres uses $n placeholders and double-quoted identifiers (pgx)
	DialectPostgres Dialect = config.DialectPostgres
)

// ParseDialect validates a configured dialect name. Empty means MySQL.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", config.DialectMySQL:
		return DialectMySQL, nil
	case config.DialectPostgres:
		return DialectPostgres, nil
	default:
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported dialect").
			WithDetail("key", "dialect").
			WithDetail("value", name)
	}
}

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "mysql"
}

func (d Dialect) String() string { return string(d) }

// CountPlaceholders counts ? markers outside quoted literals and identifiers.
func (d Dialect) CountPlaceholders(query string) int {
	n := 0
	scan(query, d.backslashEscapes(), func(i int, inQuote byte) {
		if inQuote == 0 && query[i] == '?' {
			n++
		}
	})
	return n
}

// Rebind checks that argc matches the placeholder count of query and
// translates it to the dialect's native syntax.
func (d Dialect) Rebind(query string, argc int) (string, error) {
	if n := d.CountPlaceholders(query); n != argc {
		return "", nebulaerrors.Newf(nebulaerrors.ErrorTypeArgument,
			"statement has %d placeholders but %d arguments were given", n, argc).
			WithDetail("sql", query)
	}
	if d != DialectPostgres {
		return query, nil
	}

	var b strings.Builder
	b.Grow(len(query) + argc)
	pos := 0
	scan(query, false, func(i int, inQuote byte) {
		c := query[i]
		switch {
		case c == '?' && inQuote == 0:
			pos++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(pos))
		case c == '`' && inQuote == 0:
			b.WriteByte('"')
		default:
			b.WriteByte(c)
		}
	})
	return b.String(), nil
}

// backslashEscapes reports whether a backslash escapes the next byte inside
// string literals. PostgreSQL follows standard_conforming_strings.
func (d Dialect) backslashEscapes() bool { return d != DialectPostgres }

// scan walks query byte by byte, reporting for each byte the quote it sits
// in (0 when outside quotes). Opening and closing quote characters are
// reported as outside. With backslash set, a backslash inside a string
// literal escapes the next byte; doubled quotes close and reopen the literal.
func scan(query string, backslash bool, fn func(i int, inQuote byte)) {
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"' || c == '`'):
			fn(i, 0)
			quote = c
		case quote != 0 && c == quote:
			quote = 0
			fn(i, 0)
		case backslash && quote != 0 && quote != '`' && c == '\\' && i+1 < len(query):
			fn(i, quote)
			i++
			fn(i, quote)
		default:
			fn(i, quote)
		}
	}
}

// Operation returns the lower-cased leading keyword of a statement (select,
// insert, update, delete) or "other". It labels logs, metrics and spans.
func Operation(query string) string {
	q := strings.TrimLeft(query, " \t\r\n(")
	end := strings.IndexAny(q, " \t\r\n(")
	if end < 0 {
		end = len(q)
	}
	switch kw := strings.ToLower(q[:end]); kw {
	case "select", "insert", "update", "delete":
		return kw
	default:
		return "other"
	}
}

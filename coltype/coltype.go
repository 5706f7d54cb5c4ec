// Package coltype defines the storage column types that type resolution maps
// field declarations onto, and renders them as SQL column types per dialect.
package coltype

import (
	"fmt"
)

// Dialect selects the SQL rendering target
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// String returns the string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Type is a concrete storage column type. Types are immutable once handed to
// a finalized schema.
type Type interface {
	// Name returns the dialect-independent type name, used for identity
	// comparisons during union resolution.
	Name() string
	// SQL returns the column type rendered for the given dialect.
	SQL(d Dialect) string
}

// Integer

type Integer struct{}

func (Integer) Name() string { return "integer" }

func (Integer) SQL(d Dialect) string { return "INTEGER" }

// BigInt

type BigInt struct{}

func (BigInt) Name() string { return "bigint" }

func (BigInt) SQL(d Dialect) string {
	if d == SQLite {
		return "INTEGER"
	}
	return "BIGINT"
}

// Float

type Float struct{}

func (Float) Name() string { return "float" }

func (Float) SQL(d Dialect) string {
	if d == SQLite {
		return "REAL"
	}
	return "DOUBLE PRECISION"
}

// Boolean

type Boolean struct{}

func (Boolean) Name() string { return "boolean" }

func (Boolean) SQL(d Dialect) string { return "BOOLEAN" }

// String is a length-limited text type. Zero Length means unlimited.
type String struct {
	Length int
}

func (String) Name() string { return "string" }

func (s String) SQL(d Dialect) string {
	if s.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", s.Length)
	}
	if d == SQLite {
		return "TEXT"
	}
	return "VARCHAR"
}

// Text

type Text struct{}

func (Text) Name() string { return "text" }

func (Text) SQL(d Dialect) string { return "TEXT" }

// Numeric is an exact decimal type. Nil Precision/Scale render bare NUMERIC.
type Numeric struct {
	Precision *int
	Scale     *int
}

func (Numeric) Name() string { return "numeric" }

func (n Numeric) SQL(d Dialect) string {
	if n.Precision != nil && n.Scale != nil {
		return fmt.Sprintf("NUMERIC(%d,%d)", *n.Precision, *n.Scale)
	}
	if n.Precision != nil {
		return fmt.Sprintf("NUMERIC(%d)", *n.Precision)
	}
	return "NUMERIC"
}

// UUID

type UUID struct{}

func (UUID) Name() string { return "uuid" }

func (UUID) SQL(d Dialect) string {
	if d == SQLite {
		return "CHAR(36)"
	}
	return "UUID"
}

// Date

type Date struct{}

func (Date) Name() string { return "date" }

func (Date) SQL(d Dialect) string { return "DATE" }

// DateTime

type DateTime struct{}

func (DateTime) Name() string { return "datetime" }

func (DateTime) SQL(d Dialect) string {
	if d == SQLite {
		return "TIMESTAMP"
	}
	return "TIMESTAMP WITH TIME ZONE"
}

// Time of day

type Time struct{}

func (Time) Name() string { return "time" }

func (Time) SQL(d Dialect) string { return "TIME" }

// Interval

type Interval struct{}

func (Interval) Name() string { return "interval" }

func (Interval) SQL(d Dialect) string {
	if d == SQLite {
		return "BIGINT"
	}
	return "INTERVAL"
}

// LargeBinary

type LargeBinary struct{}

func (LargeBinary) Name() string { return "large_binary" }

func (LargeBinary) SQL(d Dialect) string {
	if d == SQLite {
		return "BLOB"
	}
	return "BYTEA"
}

// Inet stores a single host address.
type Inet struct{}

func (Inet) Name() string { return "inet" }

func (Inet) SQL(d Dialect) string {
	if d == SQLite {
		return "VARCHAR(45)"
	}
	return "INET"
}

// Cidr stores a network prefix.
type Cidr struct{}

func (Cidr) Name() string { return "cidr" }

func (Cidr) SQL(d Dialect) string {
	if d == SQLite {
		return "VARCHAR(49)"
	}
	return "CIDR"
}

// JSON is a plain JSON document column.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) SQL(d Dialect) string {
	if d == SQLite {
		return "TEXT"
	}
	return "JSONB"
}

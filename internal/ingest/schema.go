package ingest

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// ColumnType is the inferred storage class of a column.
// The zero value is TypeInteger, the narrowest class.
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeReal
	TypeText
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeText:
		return "text"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// SQLType returns the PostgreSQL type used in CREATE TABLE.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger:
		return "BIGINT"
	case TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ParseColumnType accepts the names used by --column overrides.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "bigint":
		return TypeInteger, nil
	case "real", "float", "double":
		return TypeReal, nil
	case "text", "string":
		return TypeText, nil
	}
	return TypeText, fmt.Errorf("unknown column type %q (want integer, real or text): %w", s, pgingest.ErrInvalidSchema)
}

// Column is one positional field of a TableSchema.
type Column struct {
	Name string
	Type ColumnType
}

// TableSchema lists columns in header order.
type TableSchema []Column

// Names returns the column names in order.
func (s TableSchema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// String renders the schema as "name type, ...".
func (s TableSchema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.Name + " " + c.Type.String()
	}
	return strings.Join(parts, ", ")
}

// ParseColumnOverrides turns "name:type" pairs into a name -> type map.
func ParseColumnOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		idx := strings.LastIndex(p, ":")
		if idx <= 0 || idx == len(p)-1 {
			return nil, fmt.Errorf("column override %q must look like name:type: %w", p, pgingest.ErrInvalidConfig)
		}
		out[p[:idx]] = p[idx+1:]
	}
	return out, nil
}

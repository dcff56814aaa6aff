package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// InferType classifies a single value: integer if it parses as a base-10
// int64, else real if it parses as a float, else text. Surrounding
// whitespace is ignored. The null sentinel is text.
func InferType(value, nullSentinel string) ColumnType {
	if value == nullSentinel {
		return TypeText
	}
	v := strings.TrimSpace(value)
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return TypeInteger
	}
	if _, err := parseReal(v, 64); err == nil {
		return TypeReal
	}
	return TypeText
}

// parseReal is strconv.ParseFloat restricted to decimal notation.
func parseReal(v string, bitSize int) (float64, error) {
	if isSpecialFloat(v) {
		return 0, fmt.Errorf("%q is not a decimal number", v)
	}
	return strconv.ParseFloat(v, bitSize)
}

// isSpecialFloat rejects forms ParseFloat accepts but nobody means as
// numbers: inf, nan and hexadecimal floats such as 0x1p4.
func isSpecialFloat(v string) bool {
	unsigned := strings.ToLower(strings.TrimLeft(v, "+-"))
	switch unsigned {
	case "inf", "infinity", "nan":
		return true
	}
	return strings.HasPrefix(unsigned, "0x")
}

// InferSchema derives a TableSchema from the header and data rows.
//
// InferFirstRow types each column from the first data row. InferConsensus
// scans every row and widens integer to real to text; null-sentinel values
// do not vote and a column with no votes is text. Overrides replace the
// inferred type by column name.
func InferSchema(header []string, rows [][]string, mode pgingest.InferenceMode, nullSentinel string, overrides map[string]string) (TableSchema, error) {
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pgingest.ErrEmptySource
	}

	var types []ColumnType
	switch mode {
	case pgingest.InferFirstRow:
		types = inferFirstRow(len(header), rows[0], nullSentinel)
	case pgingest.InferConsensus, "":
		types = inferConsensus(len(header), rows, nullSentinel)
	default:
		return nil, fmt.Errorf("unknown inference mode %q: %w", mode, pgingest.ErrInvalidConfig)
	}

	schema := make(TableSchema, len(header))
	for i, name := range header {
		schema[i] = Column{Name: name, Type: types[i]}
	}
	if err := applyOverrides(schema, overrides); err != nil {
		return nil, err
	}
	return schema, nil
}

func inferFirstRow(width int, row []string, nullSentinel string) []ColumnType {
	types := make([]ColumnType, width)
	for i := range types {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		types[i] = InferType(value, nullSentinel)
	}
	return types
}

func inferConsensus(width int, rows [][]string, nullSentinel string) []ColumnType {
	types := make([]ColumnType, width)
	voted := make([]bool, width)
	for _, row := range rows {
		for i := 0; i < width && i < len(row); i++ {
			if row[i] == nullSentinel || types[i] == TypeText {
				continue
			}
			voted[i] = true
			if t := InferType(row[i], nullSentinel); t > types[i] {
				types[i] = t
			}
		}
	}
	for i := range types {
		if !voted[i] {
			types[i] = TypeText
		}
	}
	return types
}

func validateHeader(header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("header row is empty: %w", pgingest.ErrInvalidSchema)
	}
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("header column %d has no name: %w", i+1, pgingest.ErrInvalidSchema)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("header column %q appears at positions %d and %d: %w", name, prev+1, i+1, pgingest.ErrInvalidSchema)
		}
		seen[name] = i
	}
	return nil
}

func applyOverrides(schema TableSchema, overrides map[string]string) error {
	for name, typeName := range overrides {
		t, err := ParseColumnType(typeName)
		if err != nil {
			return err
		}
		found := false
		for i := range schema {
			if schema[i].Name == name {
				schema[i].Type = t
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("column override %q matches no header column: %w", name, pgingest.ErrInvalidSchema)
		}
	}
	return nil
}

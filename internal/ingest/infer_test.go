package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		value string
		null  string
		want  ColumnType
	}{
		{"42", "", TypeInteger},
		{"-7", "", TypeInteger},
		{" 13 ", "", TypeInteger},
		{"4.2", "", TypeReal},
		{"1e3", "", TypeReal},
		{"99999999999999999999", "", TypeReal},
		{"abc", "", TypeText},
		{"NaN", "", TypeText},
		{"inf", "", TypeText},
		{"", "", TypeText},
		{"NA", "NA", TypeText},
		{"", "NA", TypeText},
		{"12-34", "", TypeText},
		{"0x1p4", "", TypeText},
		{"-0X1P-2", "", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.value+"/"+tt.null, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.value, tt.null))
		})
	}
}

func TestInferSchema_FirstRow(t *testing.T) {
	header := []string{"id", "score", "name"}
	rows := [][]string{
		{"1", "4.5", "alice"},
		{"two", "x", "bob"},
	}

	schema, err := InferSchema(header, rows, pgingest.InferFirstRow, "", nil)
	require.NoError(t, err)
	assert.Equal(t, TableSchema{
		{Name: "id", Type: TypeInteger},
		{Name: "score", Type: TypeReal},
		{Name: "name", Type: TypeText},
	}, schema)
}

func TestInferSchema_FirstRowNullIsText(t *testing.T) {
	schema, err := InferSchema([]string{"zip"}, [][]string{{""}, {"27101"}}, pgingest.InferFirstRow, "", nil)
	require.NoError(t, err)
	assert.Equal(t, TypeText, schema[0].Type)
}

func TestInferSchema_Consensus(t *testing.T) {
	header := []string{"id", "amount", "zip", "note", "empty"}
	rows := [][]string{
		{"1", "10", "27101", "ok", ""},
		{"2", "10.5", "", "fine", ""},
		{"3", "", "2710A", "", ""},
	}

	schema, err := InferSchema(header, rows, pgingest.InferConsensus, "", nil)
	require.NoError(t, err)
	assert.Equal(t, TableSchema{
		{Name: "id", Type: TypeInteger},
		{Name: "amount", Type: TypeReal},
		{Name: "zip", Type: TypeText},
		{Name: "note", Type: TypeText},
		{Name: "empty", Type: TypeText},
	}, schema)
}

func TestInferSchema_ConsensusIgnoresNullSentinel(t *testing.T) {
	rows := [][]string{{"NA"}, {"5"}, {"NA"}}
	schema, err := InferSchema([]string{"n"}, rows, pgingest.InferConsensus, "NA", nil)
	require.NoError(t, err)
	assert.Equal(t, TypeInteger, schema[0].Type)
}

func TestInferSchema_DefaultModeIsConsensus(t *testing.T) {
	rows := [][]string{{"1"}, {"1.5"}}
	schema, err := InferSchema([]string{"n"}, rows, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, TypeReal, schema[0].Type)
}

func TestInferSchema_Overrides(t *testing.T) {
	rows := [][]string{{"27101", "3"}}
	schema, err := InferSchema([]string{"zip", "qty"}, rows, pgingest.InferConsensus, "", map[string]string{"zip": "text", "qty": "real"})
	require.NoError(t, err)
	assert.Equal(t, TypeText, schema[0].Type)
	assert.Equal(t, TypeReal, schema[1].Type)
}

func TestInferSchema_Errors(t *testing.T) {
	tests := []struct {
		name      string
		header    []string
		rows      [][]string
		mode      pgingest.InferenceMode
		overrides map[string]string
		want      error
	}{
		{"no rows", []string{"a"}, nil, pgingest.InferConsensus, nil, pgingest.ErrEmptySource},
		{"empty header", nil, [][]string{{"1"}}, pgingest.InferConsensus, nil, pgingest.ErrInvalidSchema},
		{"blank column name", []string{"a", " "}, [][]string{{"1", "2"}}, pgingest.InferConsensus, nil, pgingest.ErrInvalidSchema},
		{"duplicate column", []string{"a", "a"}, [][]string{{"1", "2"}}, pgingest.InferConsensus, nil, pgingest.ErrInvalidSchema},
		{"unknown override column", []string{"a"}, [][]string{{"1"}}, pgingest.InferConsensus, map[string]string{"b": "text"}, pgingest.ErrInvalidSchema},
		{"unknown override type", []string{"a"}, [][]string{{"1"}}, pgingest.InferConsensus, map[string]string{"a": "blob"}, pgingest.ErrInvalidSchema},
		{"unknown mode", []string{"a"}, [][]string{{"1"}}, "majority", nil, pgingest.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InferSchema(tt.header, tt.rows, tt.mode, "", tt.overrides)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseColumnOverrides(t *testing.T) {
	got, err := ParseColumnOverrides([]string{"zip:text", "ratio:real", "a:b:integer"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"zip": "text", "ratio": "real", "a:b": "integer"}, got)

	for _, bad := range []string{"zip", ":text", "zip:"} {
		_, err := ParseColumnOverrides([]string{bad})
		assert.ErrorIs(t, err, pgingest.ErrInvalidConfig, bad)
	}

	got, err = ParseColumnOverrides(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestColumnType_Names(t *testing.T) {
	assert.Equal(t, "BIGINT", TypeInteger.SQLType())
	assert.Equal(t, "REAL", TypeReal.SQLType())
	assert.Equal(t, "TEXT", TypeText.SQLType())
	assert.Equal(t, "integer", TypeInteger.String())

	for _, name := range []string{"int", "BIGINT", "float", "string"} {
		_, err := ParseColumnType(name)
		assert.NoError(t, err, name)
	}
}

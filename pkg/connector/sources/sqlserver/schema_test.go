package sqlserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeCodeOf(t *testing.T) {
	tests := map[string]TypeCode{
		"varbinary":        TypeVarBinary,
		"BINARY":           TypeBinary,
		"image":            TypeLongVarBinary,
		"bytea":            TypeLongVarBinary,
		"BLOB":             TypeBlob,
		"nvarchar":         TypeNVarchar,
		"INT":              TypeInteger,
		"DATETIME2":        TypeTimestamp,
		"UNIQUEIDENTIFIER": TypeChar,
		"GEOGRAPHY":        TypeOther,
		"":                 TypeOther,
	}
	for name, want := range tests {
		assert.Equal(t, want, TypeCodeOf(name), name)
	}
}

func TestIsBinaryColumn(t *testing.T) {
	tests := []struct {
		code     TypeCode
		typeName string
		want     bool
	}{
		{TypeBlob, "BLOB", true},
		{TypeBinary, "BINARY", true},
		{TypeVarBinary, "VARBINARY", true},
		{TypeLongVarBinary, "IMAGE", true},
		{TypeOther, "MEDIUMBLOB", true},
		{TypeOther, "TINYBLOB", true},
		{TypeVarchar, "VARCHAR", false},
		{TypeInteger, "INT", false},
		{TypeClob, "CLOB", false},
		{TypeOther, "GEOGRAPHY", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBinaryColumn(tt.code, tt.typeName), tt.typeName)
	}
}

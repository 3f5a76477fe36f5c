package sqlserver

import (
	"database/sql"
	"strings"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// TypeCode is a vendor-neutral column type code. Values match the JDBC
// java.sql.Types constants so codes read the same across agent plugins.
type TypeCode int

const (
	TypeBit           TypeCode = -7
	TypeTinyInt       TypeCode = -6
	TypeSmallInt      TypeCode = 5
	TypeInteger       TypeCode = 4
	TypeBigInt        TypeCode = -5
	TypeReal          TypeCode = 7
	TypeDouble        TypeCode = 8
	TypeNumeric       TypeCode = 2
	TypeDecimal       TypeCode = 3
	TypeChar          TypeCode = 1
	TypeVarchar       TypeCode = 12
	TypeLongVarchar   TypeCode = -1
	TypeNChar         TypeCode = -15
	TypeNVarchar      TypeCode = -9
	TypeLongNVarchar  TypeCode = -16
	TypeDate          TypeCode = 91
	TypeTime          TypeCode = 92
	TypeTimestamp     TypeCode = 93
	TypeTimestampTZ   TypeCode = 2014
	TypeBinary        TypeCode = -2
	TypeVarBinary     TypeCode = -3
	TypeLongVarBinary TypeCode = -4
	TypeBlob          TypeCode = 2004
	TypeClob          TypeCode = 2005
	TypeOther         TypeCode = 1111
)

// typeCodes maps upper-cased driver type names to codes. Names not listed
// are TypeOther.
var typeCodes = map[string]TypeCode{
	"BIT":              TypeBit,
	"BOOL":             TypeBit,
	"BOOLEAN":          TypeBit,
	"TINYINT":          TypeTinyInt,
	"SMALLINT":         TypeSmallInt,
	"INT2":             TypeSmallInt,
	"INT":              TypeInteger,
	"INT4":             TypeInteger,
	"INTEGER":          TypeInteger,
	"MEDIUMINT":        TypeInteger,
	"BIGINT":           TypeBigInt,
	"INT8":             TypeBigInt,
	"REAL":             TypeReal,
	"FLOAT4":           TypeReal,
	"FLOAT":            TypeDouble,
	"FLOAT8":           TypeDouble,
	"DOUBLE":           TypeDouble,
	"MONEY":            TypeDecimal,
	"SMALLMONEY":       TypeDecimal,
	"DECIMAL":          TypeDecimal,
	"NUMERIC":          TypeNumeric,
	"CHAR":             TypeChar,
	"BPCHAR":           TypeChar,
	"VARCHAR":          TypeVarchar,
	"TEXT":             TypeLongVarchar,
	"NCHAR":            TypeNChar,
	"NVARCHAR":         TypeNVarchar,
	"NTEXT":            TypeLongNVarchar,
	"XML":              TypeLongNVarchar,
	"DATE":             TypeDate,
	"TIME":             TypeTime,
	"DATETIME":         TypeTimestamp,
	"DATETIME2":        TypeTimestamp,
	"SMALLDATETIME":    TypeTimestamp,
	"TIMESTAMP":        TypeTimestamp,
	"DATETIMEOFFSET":   TypeTimestampTZ,
	"TIMESTAMPTZ":      TypeTimestampTZ,
	"BINARY":           TypeBinary,
	"VARBINARY":        TypeVarBinary,
	"IMAGE":            TypeLongVarBinary,
	"LONGVARBINARY":    TypeLongVarBinary,
	"BYTEA":            TypeLongVarBinary,
	"BLOB":             TypeBlob,
	"CLOB":             TypeClob,
	"UNIQUEIDENTIFIER": TypeChar,
}

// TypeCodeOf returns the code for a driver type name.
func TypeCodeOf(typeName string) TypeCode {
	if code, ok := typeCodes[strings.ToUpper(typeName)]; ok {
		return code
	}
	return TypeOther
}

// ColumnMeta describes one result column as seen when the query opened.
type ColumnMeta struct {
	Index    int // 1-based ordinal
	Name     string
	TypeCode TypeCode
	TypeName string // upper-cased driver type name
	Binary   bool
}

// IsBinaryColumn reports whether values of a column are emitted as base64.
func IsBinaryColumn(code TypeCode, typeName string) bool {
	switch code {
	case TypeBlob, TypeBinary, TypeVarBinary, TypeLongVarBinary:
		return true
	}
	return strings.Contains(typeName, "BLOB")
}

// introspect reads the column metadata of an open result once.
func introspect(rows *sql.Rows) ([]ColumnMeta, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSchema, "failed to read column metadata")
	}
	if len(types) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeSchema, "query returned no columns")
	}

	columns := make([]ColumnMeta, len(types))
	for i, ct := range types {
		typeName := strings.ToUpper(ct.DatabaseTypeName())
		code := TypeCodeOf(typeName)
		columns[i] = ColumnMeta{
			Index:    i + 1,
			Name:     ct.Name(),
			TypeCode: code,
			TypeName: typeName,
			Binary:   IsBinaryColumn(code, typeName),
		}
	}
	return columns, nil
}

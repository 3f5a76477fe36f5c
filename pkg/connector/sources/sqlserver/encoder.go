package sqlserver

import (
	"database/sql"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

// stripNewlines deletes every CR and LF character.
func stripNewlines(s string) string {
	return newlineStripper.Replace(s)
}

// encodeBinary renders raw column bytes as standard base64 without line
// breaks. NULL (nil) encodes to the empty string.
func encodeBinary(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// formatGUID renders a UNIQUEIDENTIFIER value in canonical upper-case form.
// go-mssqldb returns the 16 wire bytes; other drivers already return text.
func formatGUID(raw []byte) string {
	if len(raw) != 16 {
		return stripNewlines(string(raw))
	}
	var id mssql.UniqueIdentifier
	if err := id.Scan(raw); err != nil {
		return stripNewlines(string(raw))
	}
	return id.String()
}

// fraction renders the sub-second part of t without trailing zeros. With
// always set, a whole second renders as ".0".
func fraction(t time.Time, always bool) string {
	nanos := t.Nanosecond()
	if nanos == 0 {
		if always {
			return ".0"
		}
		return ""
	}
	digits := strings.TrimRight(strconv.Itoa(1_000_000_000 + nanos)[1:], "0")
	return "." + digits
}

// formatTemporal renders t the way JDBC getString does for the column's type:
// yyyy-MM-dd, HH:mm:ss[.f], yyyy-MM-dd HH:mm:ss.f and, for offset types, a
// trailing +hh:mm.
func formatTemporal(t time.Time, code TypeCode) string {
	switch code {
	case TypeDate:
		return t.Format("2006-01-02")
	case TypeTime:
		return t.Format("15:04:05") + fraction(t, false)
	case TypeTimestampTZ:
		return t.Format("2006-01-02 15:04:05") + fraction(t, true) + t.Format(" -07:00")
	default:
		return t.Format("2006-01-02 15:04:05") + fraction(t, true)
	}
}

// isTemporal reports whether code is a date or time type.
func isTemporal(code TypeCode) bool {
	switch code {
	case TypeDate, TypeTime, TypeTimestamp, TypeTimestampTZ:
		return true
	}
	return false
}

// scanTarget returns the destination a column value is scanned into.
func scanTarget(col ColumnMeta) interface{} {
	switch {
	case col.Binary, col.TypeName == "UNIQUEIDENTIFIER":
		return new([]byte)
	case isTemporal(col.TypeCode):
		return new(interface{})
	default:
		return new(sql.NullString)
	}
}

// renderField converts one scanned value to its field text.
func renderField(col ColumnMeta, dest interface{}) string {
	switch v := dest.(type) {
	case *[]byte:
		if col.Binary {
			return encodeBinary(*v)
		}
		return formatGUID(*v)
	case *interface{}:
		switch raw := (*v).(type) {
		case nil:
			return ""
		case time.Time:
			return formatTemporal(raw, col.TypeCode)
		case []byte:
			// Drivers without time parsing hand dates over as text.
			return stripNewlines(string(raw))
		case string:
			return stripNewlines(raw)
		default:
			var s sql.NullString
			_ = s.Scan(raw)
			return stripNewlines(s.String)
		}
	case *sql.NullString:
		// NULL text is emitted as an empty field.
		return stripNewlines(v.String)
	}
	return ""
}

// encodeRow converts the current row into one string per column, in column
// order.
func encodeRow(rows *sql.Rows, columns []ColumnMeta) ([]string, error) {
	dest := make([]interface{}, len(columns))
	for i, col := range columns {
		dest[i] = scanTarget(col)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeRowRead, "failed to scan row")
	}

	fields := make([]string, len(columns))
	for i, col := range columns {
		fields[i] = renderField(col, dest[i])
	}
	return fields, nil
}

package sqlstore

import (
	"fmt"
	"strings"
)

type dialect struct {
	name        string
	quoteOpen   string
	quoteClose  string
	dollarArgs  bool
	textType    string
	floatType   string
	integerType string
}

var dialects = map[string]dialect{
	"sqlite3": {name: "sqlite3", quoteOpen: `"`, quoteClose: `"`, textType: "TEXT", floatType: "REAL", integerType: "INTEGER"},
	"sqlite":  {name: "sqlite", quoteOpen: `"`, quoteClose: `"`, textType: "TEXT", floatType: "REAL", integerType: "INTEGER"},
	"duckdb":  {name: "duckdb", quoteOpen: `"`, quoteClose: `"`, textType: "VARCHAR", floatType: "DOUBLE", integerType: "BIGINT"},
	"pgx":     {name: "pgx", quoteOpen: `"`, quoteClose: `"`, dollarArgs: true, textType: "TEXT", floatType: "DOUBLE PRECISION", integerType: "BIGINT"},
	"mysql":   {name: "mysql", quoteOpen: "`", quoteClose: "`", textType: "TEXT", floatType: "DOUBLE", integerType: "BIGINT"},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	return d, nil
}

func (d dialect) quote(ident string) string {
	escaped := strings.ReplaceAll(ident, d.quoteClose, d.quoteClose+d.quoteClose)
	return d.quoteOpen + escaped + d.quoteClose
}

func (d dialect) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if d.dollarArgs {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// columnType infers a SQL type from a column's values. Floats win over
// integers, text wins over both, an all-nil column is text.
func (d dialect) columnType(values []any) string {
	var sawFloat, sawInt bool
	for _, v := range values {
		switch v.(type) {
		case nil:
		case float64, float32:
			sawFloat = true
		case int64, int, int32:
			sawInt = true
		default:
			return d.textType
		}
	}
	switch {
	case sawFloat:
		return d.floatType
	case sawInt:
		return d.integerType
	default:
		return d.textType
	}
}

func (d dialect) dropSQL(table string) string {
	return "DROP TABLE IF EXISTS " + d.quote(table)
}

func (d dialect) createSQL(table string, columns []string, colTypes []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.quote(c) + " " + colTypes[i]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(table), strings.Join(defs, ", "))
}

func (d dialect) insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quote(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.quote(table), strings.Join(quoted, ", "), d.placeholders(len(columns)))
}

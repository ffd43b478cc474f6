package store

import (
	"database/sql"
	"time"
)

// sqliteTimeLayout matches datetime('now') output, so bound timestamps
// compare exactly against SQL-side datetime expressions and parse cleanly
// in strftime.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// sqlTime binds a timestamp as UTC text in sqlite's own format. Passing a
// raw time.Time through the driver would store Go's default String
// rendering, which sqlite's date functions cannot read.
func sqlTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: sqlTime(*t), Valid: true}
}

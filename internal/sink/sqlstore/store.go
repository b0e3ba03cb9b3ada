// Package sqlstore loads tables into a relational database, replacing any
// existing table of the same name.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mehmetymw/banketl/internal/types"
)

const defaultBusyTimeout = "5000" // 5 seconds

type Store struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *zap.Logger
}

// Open connects to dsn with the given database/sql driver name and verifies
// the connection. Supported drivers: sqlite3, sqlite, duckdb, pgx, mysql.
func Open(ctx context.Context, driver, dsn, table string, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, types.ErrStore("open", err)
	}

	logger.Info("Opening relational store",
		zap.String("driver", driver),
		zap.String("table", table))

	db, err := sql.Open(driver, buildDSN(driver, dsn))
	if err != nil {
		return nil, types.ErrStore("open "+driver, err)
	}
	if driver == "sqlite3" || driver == "sqlite" || driver == "duckdb" {
		// single-file engines: one writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, types.ErrStore("ping "+driver, err)
	}

	return &Store{db: db, dialect: d, table: table, logger: logger}, nil
}

// buildDSN adds a busy timeout for mattn sqlite files unless the caller
// already set one.
func buildDSN(driver, dsn string) string {
	if driver != "sqlite3" || strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	params := url.Values{}
	params.Set("_busy_timeout", defaultBusyTimeout)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

func (s *Store) Name() string { return s.dialect.name }

// DB exposes the shared handle for the query runner.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Table() string { return s.table }

// Load drops and recreates the store table from t inside one transaction.
// Column types are inferred from the values.
func (s *Store) Load(ctx context.Context, t *types.Table) error {
	return s.LoadAs(ctx, t, s.table)
}

func (s *Store) LoadAs(ctx context.Context, t *types.Table, table string) error {
	if len(t.Columns) == 0 {
		return types.ErrStore("load "+table, fmt.Errorf("table has no columns"))
	}

	colTypes := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		colTypes[i] = s.dialect.columnType(t.Column(c))
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ErrStore("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.dropSQL(table)); err != nil {
		return types.ErrStore("drop "+table, err)
	}
	create := s.dialect.createSQL(table, t.Columns, colTypes)
	s.logger.Debug("Creating table", zap.String("sql", create))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return types.ErrStore("create "+table, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.insertSQL(table, t.Columns))
	if err != nil {
		return types.ErrStore("prepare insert", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j := range args {
			args[j] = nil
			if j < len(row) {
				args[j] = row[j]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return types.ErrStore(fmt.Sprintf("insert row %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.ErrStore("commit", err)
	}

	s.logger.Info("Table loaded to store",
		zap.String("table", table),
		zap.Int("rows", t.Len()),
		zap.Strings("types", colTypes),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing relational store", zap.String("driver", s.dialect.name))
	return s.db.Close()
}

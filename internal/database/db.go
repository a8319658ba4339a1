package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	conn   *sql.DB
	gorm   *gorm.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.Type == "sqlite" {
		// sqlite allows a single writer at a time.
		conn.SetMaxOpenConns(1)
	}

	var dialector gorm.Dialector
	if config.Type == "sqlite" {
		dialector = sqlite.Dialector{Conn: conn}
	} else {
		dialector = postgres.New(postgres.Config{Conn: conn})
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	db := &DB{conn: conn, gorm: gdb, dbType: config.Type}

	// Only create tables for SQLite
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		min_similarity REAL NOT NULL,
		sharpness_floor REAL NOT NULL,
		output_subdir TEXT NOT NULL,
		workers INTEGER NOT NULL DEFAULT 1,
		documents INTEGER NOT NULL DEFAULT 0,
		keyframes INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS document_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		document TEXT NOT NULL,
		dir TEXT NOT NULL,
		output_dir TEXT NOT NULL DEFAULT '',
		scanned INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		keyframes INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS keyframes (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		document TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		filename TEXT NOT NULL,
		sharpness REAL NOT NULL,
		segment_frames INTEGER NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT 0,
		UNIQUE (run_id, document, ordinal)
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

// RunMigrations applies pending SQL migrations. SQLite schemas are created
// directly by NewDB.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) error {
	return NewMigrator(db.conn, db.dbType).Run(ctx, migrationsPath)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.gorm
}

func (db *DB) Type() string {
	return db.dbType
}

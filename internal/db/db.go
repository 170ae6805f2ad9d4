package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// DBManager caches one connection per database path
type DBManager struct {
	connections map[string]*sql.DB
	mu          sync.RWMutex
}

var (
	manager     *DBManager
	managerOnce sync.Once
)

// getManager returns the singleton DBManager instance
func getManager() *DBManager {
	managerOnce.Do(func() {
		manager = &DBManager{
			connections: make(map[string]*sql.DB),
		}
	})
	return manager
}

// GetDBForPath returns a database connection for a specific path. An empty
// path opens an in-memory database that is not cached.
func GetDBForPath(path string) (*sql.DB, error) {
	if path == "" {
		return initDB("")
	}

	m := getManager()

	m.mu.RLock()
	if db, exists := m.connections[path]; exists {
		m.mu.RUnlock()
		return db, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check
	if db, exists := m.connections[path]; exists {
		return db, nil
	}

	// Ensure directory exists
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := initDB(path)
	if err != nil {
		return nil, err
	}

	m.connections[path] = db
	return db, nil
}

// initDB initializes a DuckDB connection at the given path
func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Close closes all database connections
func Close() error {
	m := getManager()
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, db := range m.connections {
		if err := db.Close(); err != nil {
			lastErr = err
		}
		delete(m.connections, name)
	}

	return lastErr
}

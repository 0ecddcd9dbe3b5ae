package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"

	"taskapi/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
// The table is rewritten as a whole on every Save, the same way the JSON file is.
type SQLiteStore struct {
	db   *sql.DB
	path string
	sem  *semaphore.Weighted
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db, dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: dbPath, sem: semaphore.NewWeighted(1)}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load retrieves all tasks in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) (models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, completed
		FROM tasks ORDER BY position ASC
	`)
	if err != nil {
		return nil, &StorageError{Kind: KindRead, Path: s.path, Err: err}
	}
	defer rows.Close()

	tasks := models.Collection{}
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Completed); err != nil {
			return nil, &StorageError{Kind: KindFormat, Path: s.path, Err: fmt.Errorf("failed to scan task: %w", err)}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Kind: KindRead, Path: s.path, Err: err}
	}

	return tasks, nil
}

// Save replaces every row with tasks inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, tasks models.Collection) error {
	if err := tasks.Check(); err != nil {
		return &StorageError{Kind: KindWrite, Path: s.path, Err: err}
	}

	if err := s.replaceAll(ctx, tasks); err != nil {
		return &StorageError{Kind: KindWrite, Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) replaceAll(ctx context.Context, tasks models.Collection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, title, description, completed, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, task := range tasks {
		if _, err := stmt.ExecContext(ctx, task.ID, task.Title, task.Description, task.Completed, i+1); err != nil {
			return fmt.Errorf("failed to insert task %d: %w", task.ID, err)
		}
	}

	return tx.Commit()
}

// Lock serializes writers within this process; SQLite's own file locking
// covers other processes.
func (s *SQLiteStore) Lock(ctx context.Context) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

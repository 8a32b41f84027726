package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// Compile-time check that *DB implements repository.CategoryRepository.
var _ repository.CategoryRepository = (*DB)(nil)

// ListCategories returns all categories in insertion order.
//
// ORDER BY id is insertion order because ids are AUTOINCREMENT; the
// navigation shows categories in the order model.DefaultCategories lists
// them.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategoryByID returns apperror.ErrNotFound for an unknown id. PostService
// calls it before inserting so a bad category_id in the form is reported on
// the category field.
func (db *DB) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return &c, nil
}

// SeedCategories inserts names if the categories table is empty and reports
// whether it did.
//
// TRANSACTION:
// The count and the inserts run in one transaction, so a failure halfway
// leaves the table empty rather than half-seeded. SQLite allows one writer
// per file; a second process seeding at the same moment gets SQLITE_BUSY
// instead of inserting a second copy.
//
// defer tx.Rollback() covers every early return. After Commit succeeds the
// deferred Rollback returns sql.ErrTxDone, which is ignored.
func (db *DB) SeedCategories(ctx context.Context, names []string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning seed transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: counting categories: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name); err != nil {
			return false, fmt.Errorf("sqlite: inserting category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing seed: %w", err)
	}
	return true, nil
}

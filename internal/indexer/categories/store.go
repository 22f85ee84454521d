package categories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ygggate/ygggate/internal/indexer/types"
)

// Store persists the taxonomy in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the stored taxonomy in its original order. An empty store
// yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]types.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []types.Category
	index := make(map[int]int)
	for rows.Next() {
		var cat types.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		index[cat.ID] = len(categories)
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.db.QueryContext(ctx, `SELECT id, category_id, name FROM sub_categories ORDER BY category_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-categories: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			sub    types.SubCategory
			parent int
		)
		if err := subRows.Scan(&sub.ID, &parent, &sub.Name); err != nil {
			return nil, fmt.Errorf("failed to scan sub-category: %w", err)
		}
		if i, ok := index[parent]; ok {
			categories[i].SubCategories = append(categories[i].SubCategories, sub)
		}
	}
	return categories, subRows.Err()
}

// Save replaces the stored taxonomy.
func (s *Store) Save(ctx context.Context, categories []types.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sub_categories`); err != nil {
		return fmt.Errorf("failed to clear sub-categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	for i, cat := range categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, position) VALUES (?, ?, ?)`, cat.ID, cat.Name, i); err != nil {
			return fmt.Errorf("failed to insert category %d: %w", cat.ID, err)
		}
		for j, sub := range cat.SubCategories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sub_categories (id, category_id, name, position) VALUES (?, ?, ?, ?)`,
				sub.ID, cat.ID, sub.Name, j); err != nil {
				return fmt.Errorf("failed to insert sub-category %d: %w", sub.ID, err)
			}
		}
	}

	return tx.Commit()
}

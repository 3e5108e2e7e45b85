package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/database"
)

// catalogDocumentID is the primary key of the single catalog row.
const catalogDocumentID = 1

// CatalogRepo stores the whole content tree as one JSON document with a
// version counter used for optimistic concurrency.
type CatalogRepo struct{ DB *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

// Load returns the stored catalog and its version. A database without a
// catalog row yields an empty catalog at version 0.
func (r *CatalogRepo) Load(ctx context.Context) (*catalog.Catalog, uint64, error) {
	var (
		version uint64
		body    []byte
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT version, body FROM catalog_documents WHERE id=?", catalogDocumentID).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.New(), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	c, err := catalog.Unmarshal(body)
	if err != nil {
		return nil, 0, err
	}
	return c, version, nil
}

// Save writes c when the stored version equals expected and returns the
// new version. catalog.ErrStaleVersion signals a lost race.
func (r *CatalogRepo) Save(ctx context.Context, c *catalog.Catalog, expected uint64) (uint64, error) {
	body, err := catalog.Marshal(c)
	if err != nil {
		return 0, err
	}
	if expected == 0 {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO catalog_documents (id, version, body) VALUES (?, 1, ?)", catalogDocumentID, body)
		if database.IsDuplicateKey(err) {
			return 0, catalog.ErrStaleVersion
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE catalog_documents SET version=version+1, body=? WHERE id=? AND version=?",
		body, catalogDocumentID, expected)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, catalog.ErrStaleVersion
	}
	return expected + 1, nil
}

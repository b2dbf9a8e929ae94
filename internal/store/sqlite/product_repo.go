package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marketchat/internal/domain"
)

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

var _ domain.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, image, seller_id, created_at)
		VALUES (?, ?, ?, ?)
	`, p.Name, p.Image, p.SellerID, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return nil
}

// GetByID returns nil, nil when the product does not exist.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}
	var image sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, image, seller_id, created_at FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &image, &p.SellerID, &p.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if image.Valid {
		p.Image = &image.String
	}
	return p, nil
}

package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, image, seller_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Image, p.SellerID, p.CreatedAt.UTC()).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p := &domain.Product{}
	var image sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, image, seller_id, created_at FROM products WHERE id = $1
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

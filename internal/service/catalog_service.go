package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketchat/internal/domain"
)

// CatalogService keeps the product display metadata conversations are
// anchored to. The full catalog lives elsewhere; sellers register the
// name and image shown in chat here.
type CatalogService struct {
	products domain.ProductRepository
}

func NewCatalogService(products domain.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

type ProductInput struct {
	Name  string
	Image *string
}

func (s *CatalogService) Create(ctx context.Context, seller *domain.User, in ProductInput) (*domain.Product, error) {
	if seller.Role != domain.RoleSeller && seller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only sellers can list products: %w", domain.ErrForbidden)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	p := &domain.Product{Name: name, Image: in.Image, SellerID: seller.ID, CreatedAt: time.Now().UTC()}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketchat/internal/domain"
	"marketchat/internal/service"
)

func TestCatalogCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("seller lists a product", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := service.NewCatalogService(repo)
		repo.On("Create", ctx, mock.MatchedBy(func(p *domain.Product) bool {
			return p.Name == "Lamp" && p.SellerID == 7
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Product).ID = 42
		}).Return(nil)

		p, err := svc.Create(ctx, &domain.User{ID: 7, Role: domain.RoleSeller}, service.ProductInput{Name: "  Lamp "})
		require.NoError(t, err)
		assert.Equal(t, int64(42), p.ID)
		repo.AssertExpectations(t)
	})

	t.Run("buyer is forbidden", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := service.NewCatalogService(repo)
		_, err := svc.Create(ctx, &domain.User{ID: 1, Role: domain.RoleBuyer}, service.ProductInput{Name: "Lamp"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("blank name", func(t *testing.T) {
		svc := service.NewCatalogService(new(MockProductRepo))
		_, err := svc.Create(ctx, &domain.User{ID: 7, Role: domain.RoleSeller}, service.ProductInput{Name: " "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCatalogGetMissing(t *testing.T) {
	repo := new(MockProductRepo)
	repo.On("GetByID", mock.Anything, int64(5)).Return(nil, nil)
	_, err := service.NewCatalogService(repo).Get(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

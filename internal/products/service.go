package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines the product listing operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	Search(ctx context.Context, input SearchInput) (*SearchResult, error)
	Update(ctx context.Context, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, actorID, productID uuid.UUID) error
}

// CreateInput lists a product for sale.
type CreateInput struct {
	UserID    uuid.UUID
	Name      string
	Category  string
	Price     decimal.Decimal
	PriceType enums.PriceType
	Wholesale bool
	ImageURL  string
}

// UpdateInput mutates an existing listing; zero values leave fields unchanged.
type UpdateInput struct {
	ActorID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Category  string
	Price     *decimal.Decimal
	PriceType enums.PriceType
	Wholesale *bool
	ImageURL  *string
}

// SearchInput is offset-paginated; Page starts at 1.
type SearchInput struct {
	Query     string
	Category  string
	Wholesale *bool
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Page      int
	Limit     int
}

// SearchResult carries one page of matches plus the total count.
type SearchResult struct {
	Products []models.Product
	Total    int64
	Page     int
	Limit    int
}

type service struct {
	repo Repository
}

// NewService builds the products service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.PriceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid price type")
	}

	product := &models.Product{
		Name:      strings.TrimSpace(input.Name),
		Category:  strings.TrimSpace(input.Category),
		Price:     input.Price,
		PriceType: input.PriceType,
		Wholesale: input.Wholesale,
		UserID:    input.UserID,
	}
	if v := strings.TrimSpace(input.ImageURL); v != "" {
		product.ImageURL = &v
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.load(ctx, id)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	products, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) Search(ctx context.Context, input SearchInput) (*SearchResult, error) {
	if input.Page < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page must be at least 1")
	}
	if input.Limit < 1 || input.Limit > pagination.MaxLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", pagination.MaxLimit))
	}
	if input.MinPrice != nil && input.MinPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot be negative")
	}
	if input.MinPrice != nil && input.MaxPrice != nil && input.MinPrice.GreaterThan(*input.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}

	page := pagination.PageParams{Page: input.Page, Limit: input.Limit}
	products, total, err := s.repo.Search(ctx, SearchFilter{
		Query:     strings.TrimSpace(input.Query),
		Category:  strings.TrimSpace(input.Category),
		Wholesale: input.Wholesale,
		MinPrice:  input.MinPrice,
		MaxPrice:  input.MaxPrice,
		Offset:    page.Offset(),
		Limit:     page.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}

	return &SearchResult{
		Products: products,
		Total:    total,
		Page:     input.Page,
		Limit:    input.Limit,
	}, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Product, error) {
	product, err := s.load(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.UserID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to user")
	}

	if v := strings.TrimSpace(input.Name); v != "" {
		product.Name = v
	}
	if v := strings.TrimSpace(input.Category); v != "" {
		product.Category = v
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.PriceType != "" {
		if !input.PriceType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid price type")
		}
		product.PriceType = input.PriceType
	}
	if input.Wholesale != nil {
		product.Wholesale = *input.Wholesale
	}
	if input.ImageURL != nil {
		if v := strings.TrimSpace(*input.ImageURL); v != "" {
			product.ImageURL = &v
		} else {
			product.ImageURL = nil
		}
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, actorID, productID uuid.UUID) error {
	product, err := s.load(ctx, productID)
	if err != nil {
		return err
	}
	if product.UserID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to user")
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

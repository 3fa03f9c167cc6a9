package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		price NUMERIC NOT NULL,
		price_type TEXT NOT NULL,
		wholesale BOOLEAN NOT NULL DEFAULT FALSE,
		image_url TEXT,
		user_id TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, pkgerrors.As(err, &typed), "expected domain error, got %v", err)
	return typed.Code()
}

func TestCreateProduct(t *testing.T) {
	svc, db := newTestService(t)
	farmer := uuid.New()

	product, err := svc.Create(context.Background(), CreateInput{
		UserID:    farmer,
		Name:      "  Plantain  ",
		Category:  "fruits",
		Price:     decimal.NewFromInt(500),
		PriceType: enums.PriceTypePerBag,
		ImageURL:  "https://cdn.example.com/plantain.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, "Plantain", product.Name)
	require.NotNil(t, product.ImageURL)

	var stored models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&stored).Error)
	require.Equal(t, farmer, stored.UserID)
	require.Equal(t, enums.PriceTypePerBag, stored.PriceType)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	farmer := uuid.New()

	cases := []CreateInput{
		{UserID: farmer, Name: "", Category: "fruits", Price: decimal.NewFromInt(100), PriceType: enums.PriceTypePerKg},
		{UserID: farmer, Name: "Yam", Category: "", Price: decimal.NewFromInt(100), PriceType: enums.PriceTypePerKg},
		{UserID: farmer, Name: "Yam", Category: "tubers", Price: decimal.Zero, PriceType: enums.PriceTypePerKg},
		{UserID: farmer, Name: "Yam", Category: "tubers", Price: decimal.NewFromInt(100), PriceType: enums.PriceType("per_ton")},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		require.Error(t, err)
		require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	}
}

func TestSearchValidation(t *testing.T) {
	svc, _ := newTestService(t)
	minPrice := decimal.NewFromInt(500)
	maxPrice := decimal.NewFromInt(100)

	cases := []SearchInput{
		{Page: 0, Limit: 20},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: pagination.MaxLimit + 1},
		{Page: 1, Limit: 20, MinPrice: &minPrice, MaxPrice: &maxPrice},
	}
	for _, input := range cases {
		_, err := svc.Search(context.Background(), input)
		require.Error(t, err)
		require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
	}
}

func TestSearchFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	farmer := uuid.New()
	// Unique category keeps this test isolated in the shared database.
	category := "cat-" + uuid.NewString()

	seed := []struct {
		name      string
		price     int64
		wholesale bool
	}{
		{"Red Onions", 300, false},
		{"White Onions", 800, true},
		{"Garlic", 1500, true},
	}
	for _, row := range seed {
		_, err := svc.Create(context.Background(), CreateInput{
			UserID:    farmer,
			Name:      row.name,
			Category:  category,
			Price:     decimal.NewFromInt(row.price),
			PriceType: enums.PriceTypePerKg,
			Wholesale: row.wholesale,
		})
		require.NoError(t, err)
	}

	result, err := svc.Search(context.Background(), SearchInput{Category: category, Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Total)
	require.Len(t, result.Products, 2)

	wholesale := true
	minPrice := decimal.NewFromInt(1000)
	result, err = svc.Search(context.Background(), SearchInput{
		Category:  category,
		Wholesale: &wholesale,
		MinPrice:  &minPrice,
		Page:      1,
		Limit:     20,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	require.Equal(t, "Garlic", result.Products[0].Name)
}

func TestUpdateProductRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	farmer := uuid.New()

	product, err := svc.Create(context.Background(), CreateInput{
		UserID:    farmer,
		Name:      "Maize",
		Category:  "grains",
		Price:     decimal.NewFromInt(200),
		PriceType: enums.PriceTypePerKg,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateInput{
		ActorID:   uuid.New(),
		ProductID: product.ID,
		Name:      "Stolen Maize",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestUpdateProductPartialFields(t *testing.T) {
	svc, db := newTestService(t)
	farmer := uuid.New()

	product, err := svc.Create(context.Background(), CreateInput{
		UserID:    farmer,
		Name:      "Beans",
		Category:  "legumes",
		Price:     decimal.NewFromInt(900),
		PriceType: enums.PriceTypePerKg,
		ImageURL:  "https://cdn.example.com/beans.jpg",
	})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(950)
	emptyImage := ""
	updated, err := svc.Update(context.Background(), UpdateInput{
		ActorID:   farmer,
		ProductID: product.ID,
		Price:     &newPrice,
		ImageURL:  &emptyImage,
	})
	require.NoError(t, err)
	require.Equal(t, "Beans", updated.Name)
	require.True(t, updated.Price.Equal(newPrice))
	require.Nil(t, updated.ImageURL)

	var stored models.Product
	require.NoError(t, db.Where("id = ?", product.ID).First(&stored).Error)
	require.True(t, stored.Price.Equal(newPrice))
	require.Nil(t, stored.ImageURL)
}

func TestDeleteProductRequiresOwner(t *testing.T) {
	svc, db := newTestService(t)
	farmer := uuid.New()

	product, err := svc.Create(context.Background(), CreateInput{
		UserID:    farmer,
		Name:      "Tomatoes",
		Category:  "vegetables",
		Price:     decimal.NewFromInt(400),
		PriceType: enums.PriceTypePerUnit,
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), product.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))

	require.NoError(t, svc.Delete(context.Background(), farmer, product.ID))

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, errCode(t, err))
}

package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

type Fixtures struct {
	t  testing.TB
	db *sql.DB
}

func NewFixtures(t testing.TB, db *sql.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) user(role authz.Role) *models.User {
	f.t.Helper()
	u, err := store.CreateUser(context.Background(), f.db, gofakeit.Email(), gofakeit.Name(), string(role))
	if err != nil {
		f.t.Fatalf("create %s: %v", role, err)
	}
	return u
}

func (f *Fixtures) Buyer() authz.Actor {
	f.t.Helper()
	return authz.Actor{ID: f.user(authz.RoleBuyer).ID, Role: authz.RoleBuyer}
}

func (f *Fixtures) Admin() authz.Actor {
	f.t.Helper()
	return authz.Actor{ID: f.user(authz.RoleAdmin).ID, Role: authz.RoleAdmin}
}

// Seller creates a seller with a bank payout destination.
func (f *Fixtures) Seller() authz.Actor {
	f.t.Helper()
	u := f.user(authz.RoleSeller)

	dest := models.PaymentDestination{
		Method:        "bank",
		AccountHolder: u.Name,
		AccountNumber: gofakeit.Numerify("############"),
		IFSC:          gofakeit.Regex("[A-Z]{4}0[0-9]{6}"),
		BankName:      gofakeit.Company(),
	}
	if _, err := store.CreateSeller(context.Background(), f.db, u.ID, gofakeit.Company(), dest); err != nil {
		f.t.Fatalf("create seller: %v", err)
	}
	return authz.Actor{ID: u.ID, Role: authz.RoleSeller}
}

func (f *Fixtures) Category(rate string) *models.Category {
	f.t.Helper()
	c, err := store.CreateCategory(context.Background(), f.db, gofakeit.UUID(), nil, decimal.RequireFromString(rate))
	if err != nil {
		f.t.Fatalf("create category: %v", err)
	}
	return c
}

func (f *Fixtures) Product(sellerID, categoryID int64, price string, stock int) *models.Product {
	f.t.Helper()
	p, err := store.CreateProduct(context.Background(), f.db, store.NewProduct{
		SKU:               gofakeit.Regex("SKU-[A-Z0-9]{10}"),
		SellerID:          sellerID,
		CategoryID:        categoryID,
		Name:              gofakeit.ProductName(),
		Description:       gofakeit.ProductDescription(),
		Price:             decimal.RequireFromString(price),
		Stock:             stock,
		LowStockThreshold: 2,
	})
	if err != nil {
		f.t.Fatalf("create product: %v", err)
	}
	return p
}

func (f *Fixtures) Address() models.Address {
	addr := gofakeit.Address()
	return models.Address{
		FullName:   gofakeit.Name(),
		Phone:      gofakeit.Phone(),
		Line1:      addr.Street,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.Zip,
		Country:    addr.Country,
	}
}

func (f *Fixtures) Stock(productID int64) int {
	f.t.Helper()
	p, err := store.GetProduct(context.Background(), f.db, productID)
	if err != nil {
		f.t.Fatalf("get product: %v", err)
	}
	return p.Stock.Available
}

func (f *Fixtures) Wallet(sellerID int64) models.SellerWallet {
	f.t.Helper()
	s, err := store.GetSeller(context.Background(), f.db, sellerID)
	if err != nil {
		f.t.Fatalf("get seller: %v", err)
	}
	return s.Wallet
}

func (f *Fixtures) AddToCart(buyerID, productID int64, qty int) error {
	return store.AddCartItem(context.Background(), f.db, models.CartItem{
		UserID:    buyerID,
		ProductID: productID,
		Quantity:  qty,
	})
}

func (f *Fixtures) Cart(buyerID int64) []models.CartItem {
	f.t.Helper()
	items, err := store.ListCartItems(context.Background(), f.db, buyerID)
	if err != nil {
		f.t.Fatalf("list cart: %v", err)
	}
	return items
}

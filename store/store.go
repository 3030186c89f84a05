// Package store persists stock, distributors, sales and users.
//
// Two implementations exist: Mongo for production and Memory for tests and
// local development. Both honour the same contract:
//
//   - List methods return newest-first by creation time.
//   - Missing records surface as models.NotFoundError.
//   - AdjustStock never lets a quantity go below zero; a decrement that
//     would do so fails with models.InsufficientStockError at write time.
//   - WithTx runs fn atomically. Every call made with the ctx passed to fn
//     joins the transaction; if fn returns an error nothing it wrote is kept.
package store

import (
	"context"

	"bvstock/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store interface {
	CreateStock(ctx context.Context, item *models.StockItem) error
	ListStock(ctx context.Context, search string) ([]models.StockItem, error)
	GetStock(ctx context.Context, id primitive.ObjectID) (*models.StockItem, error)
	FindStockByName(ctx context.Context, name string) (*models.StockItem, error)
	UpdateStock(ctx context.Context, id primitive.ObjectID, upd models.StockUpdate) (*models.StockItem, error)
	DeleteStock(ctx context.Context, id primitive.ObjectID) error
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.StockItem, error)
	// RestockByName adds qty to the item whose name matches case-insensitively,
	// creating it when none does.
	RestockByName(ctx context.Context, name string, qty int, bv *float64) (*models.StockItem, bool, error)
	SetStockPhoto(ctx context.Context, id primitive.ObjectID, url, previewURL string) (*models.StockItem, error)
	LowStock(ctx context.Context, threshold int) ([]models.StockItem, error)

	CreateDistributor(ctx context.Context, d *models.Distributor) error
	ListDistributors(ctx context.Context) ([]models.Distributor, error)
	GetDistributor(ctx context.Context, id primitive.ObjectID) (*models.Distributor, error)
	UpdateDistributor(ctx context.Context, id primitive.ObjectID, upd models.DistributorUpdate) (*models.Distributor, error)
	DeleteDistributor(ctx context.Context, id primitive.ObjectID) error

	CreateSale(ctx context.Context, s *models.Sale) error
	GetSale(ctx context.Context, id primitive.ObjectID) (*models.Sale, error)
	ReplaceSale(ctx context.Context, s *models.Sale) error
	DeleteSale(ctx context.Context, id primitive.ObjectID) error
	ListSales(ctx context.Context) ([]models.SaleView, error)

	CreateUser(ctx context.Context, u *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	RecordSession(ctx context.Context, s *models.Session) error

	Summary(ctx context.Context) (*models.Summary, error)

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	EnsureIndexes(ctx context.Context) error
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sale references its product by name; StockID records which stock record
// the name resolved to when the sale was last written.
type Sale struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Distributor primitive.ObjectID `bson:"distributor" json:"distributor"`
	Product     string             `bson:"product" json:"product"`
	StockID     primitive.ObjectID `bson:"stock_id,omitempty" json:"stockId,omitempty"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	BV          float64            `bson:"bv" json:"bv"`
	TotalBV     float64            `bson:"total_bv" json:"totalBV"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// SaleView is a sale with its distributor populated. Distributor is nil when
// the referenced distributor has been deleted.
type SaleView struct {
	ID          primitive.ObjectID `json:"_id"`
	Distributor *DistributorRef    `json:"distributor"`
	Product     string             `json:"product"`
	StockID     primitive.ObjectID `json:"stockId,omitempty"`
	Quantity    int                `json:"quantity"`
	BV          float64            `json:"bv"`
	TotalBV     float64            `json:"totalBV"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func NewSaleView(s Sale, d *DistributorRef) SaleView {
	return SaleView{
		ID:          s.ID,
		Distributor: d,
		Product:     s.Product,
		StockID:     s.StockID,
		Quantity:    s.Quantity,
		BV:          s.BV,
		TotalBV:     s.TotalBV,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

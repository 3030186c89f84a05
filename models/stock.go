package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StockItem struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Name            string              `bson:"name" json:"name"`
	Quantity        int                 `bson:"quantity" json:"quantity"`
	BV              float64             `bson:"bv" json:"bv"`
	AddedBy         *primitive.ObjectID `bson:"added_by,omitempty" json:"addedBy,omitempty"`
	PhotoURL        string              `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	PhotoPreviewURL string              `bson:"photo_preview_url,omitempty" json:"photoPreviewUrl,omitempty"`
	Version         int                 `bson:"version" json:"version"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}

// StockUpdate is a partial update; nil fields are left untouched. When
// Version is set the write only succeeds against that version.
type StockUpdate struct {
	Name     *string  `json:"name"`
	Quantity *int     `json:"quantity"`
	BV       *float64 `json:"bv"`
	Version  *int     `json:"version"`
}

func (u StockUpdate) Empty() bool {
	return u.Name == nil && u.Quantity == nil && u.BV == nil
}

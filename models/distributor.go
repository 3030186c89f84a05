package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Distributor struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name" binding:"required,notblank"`
	DOB         string             `bson:"dob,omitempty" json:"dob,omitempty"`
	DOR         string             `bson:"dor,omitempty" json:"dor,omitempty"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender      string             `bson:"gender,omitempty" json:"gender,omitempty"`
	IDNumber    string             `bson:"id_number,omitempty" json:"idNumber,omitempty"`
	Nationality string             `bson:"nationality,omitempty" json:"nationality,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

type DistributorUpdate struct {
	Name        *string `json:"name"`
	DOB         *string `json:"dob"`
	DOR         *string `json:"dor"`
	Phone       *string `json:"phone"`
	Gender      *string `json:"gender"`
	IDNumber    *string `json:"idNumber"`
	Nationality *string `json:"nationality"`
}

// DistributorRef is the partial distributor view joined onto sale listings.
type DistributorRef struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender      string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Nationality string             `bson:"nationality,omitempty" json:"nationality,omitempty"`
}

func (d Distributor) Ref() *DistributorRef {
	return &DistributorRef{
		ID:          d.ID,
		Name:        d.Name,
		Phone:       d.Phone,
		Gender:      d.Gender,
		Nationality: d.Nationality,
	}
}

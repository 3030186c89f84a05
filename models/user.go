package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Username  string             `bson:"username" json:"username" binding:"required,notblank"`
	FullName  string             `bson:"full_name" json:"fullName"`
	Password  string             `bson:"password" json:"password,omitempty" binding:"required,min=4"`
	Role      string             `bson:"role" json:"role" binding:"required,oneof=admin staff"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Role      string             `bson:"role"`
	IP        string             `bson:"ip"`
	Device    string             `bson:"device"`
	Timestamp time.Time          `bson:"timestamp"`
}

// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a read-only mirror of a profile owned by the external identity
// service. The engine never creates or authenticates users; it only looks
// profiles up to decorate relationship and alert results for display.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Email       string             `bson:"email" json:"email"`
	Role        string             `bson:"role" json:"role"` // ward | guardian

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

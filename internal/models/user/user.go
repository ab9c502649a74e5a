package user

import (
	"time"

	"github.com/google/uuid"
)

// User - учётная запись. Password хранит только bcrypt-хэш и не попадает в JSON.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost - 10 раундов.
const DefaultBcryptCost = bcrypt.DefaultCost

// PasswordHasher выполняет одностороннее преобразование пароля.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создаёт хэшер; стоимость вне допустимого диапазона bcrypt заменяется на DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Package password hashea y verifica secretos (contraseñas y claves de registro) con bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength es el límite de bytes que bcrypt procesa; secretos más largos se rechazan.
const MaxLength = 72

var ErrTooLong = errors.New("password: secreto supera 72 bytes")

// Hasher hashea con un costo bcrypt fijo para todo el proceso.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher construye el hasher. Costos fuera de rango usan bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Cost devuelve el costo configurado.
func (h *Hasher) Cost() int { return h.cost }

// Hash devuelve el hash bcrypt (salt incluido) del secreto.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password: secreto vacío")
	}
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(b), nil
}

// Verify compara en tiempo constante el secreto con el hash.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Burn ejecuta una comparación contra un hash ficticio para igualar el tiempo de respuesta
// cuando la cuenta o la clave no existen.
func (h *Hasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

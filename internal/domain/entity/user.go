package entity

import "time"

// AccountType es el nivel de cuenta (tier) de un usuario. Orden: SIMPLES < COMPOSTA < GERENCIAL.
type AccountType string

const (
	AccountSimples   AccountType = "SIMPLES"
	AccountComposta  AccountType = "COMPOSTA"
	AccountGerencial AccountType = "GERENCIAL"
)

// AccountTypes lista los tiers válidos en orden ascendente.
var AccountTypes = []AccountType{AccountSimples, AccountComposta, AccountGerencial}

// Rank devuelve la posición del tier (1..3); 0 si no es válido.
func (a AccountType) Rank() int {
	switch a {
	case AccountSimples:
		return 1
	case AccountComposta:
		return 2
	case AccountGerencial:
		return 3
	default:
		return 0
	}
}

// Valid informa si el tier es uno de los conocidos.
func (a AccountType) Valid() bool { return a.Rank() > 0 }

func (a AccountType) String() string { return string(a) }

// User representa un usuario del sistema (pertenece a exactamente un Tenant).
type User struct {
	ID                 string
	TenantID           string
	Email              string
	Name               string
	PasswordHash       string // bcrypt hash, nunca plano en dominio después de persistir
	AccountType        AccountType
	IsActive           bool
	MustChangePassword bool
	LastLoginAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

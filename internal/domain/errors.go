package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los mensajes de credenciales, clave y token son deliberadamente genéricos.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrValidation             = errors.New("entrada inválida")
	ErrInvalidCredentials     = errors.New("credenciales inválidas")
	ErrInvalidKey             = errors.New("clave de registro inválida")
	ErrInvalidToken           = errors.New("token inválido o expirado")
	ErrAccountDeactivated     = errors.New("cuenta desactivada")
	ErrUserExists             = errors.New("el email ya está registrado")
	ErrTenantNotFound         = errors.New("tenant no encontrado")
	ErrPermissionDenied       = errors.New("acceso denegado")
	ErrAuthenticationRequired = errors.New("autenticación requerida")
	ErrConflict               = errors.New("conflicto con el estado actual")
)

// KeyFailure identifica la causa concreta por la que una clave de registro fue rechazada.
type KeyFailure string

const (
	KeyNotFound       KeyFailure = "not_found"
	KeyRevoked        KeyFailure = "revoked"
	KeyExpired        KeyFailure = "expired"
	KeyExhausted      KeyFailure = "exhausted"
	KeyTenantMismatch KeyFailure = "tenant_mismatch"
	KeyMissingTenant  KeyFailure = "missing_tenant"
)

var keyFailureMessages = map[KeyFailure]string{
	KeyNotFound:       "clave de registro no encontrada",
	KeyRevoked:        "la clave de registro fue revocada",
	KeyExpired:        "la clave de registro expiró",
	KeyExhausted:      "la clave de registro no tiene usos disponibles",
	KeyTenantMismatch: "la clave de registro no pertenece a este tenant",
	KeyMissingTenant:  "la clave de registro no tiene tenant asociado",
}

// KeyError es el error de validación de una clave de registro. Siempre satisface
// errors.Is(err, ErrInvalidKey).
type KeyError struct {
	Cause KeyFailure
}

// NewKeyError construye un KeyError para la causa indicada.
func NewKeyError(cause KeyFailure) *KeyError {
	return &KeyError{Cause: cause}
}

func (e *KeyError) Error() string {
	if msg, ok := keyFailureMessages[e.Cause]; ok {
		return msg
	}
	return ErrInvalidKey.Error()
}

func (e *KeyError) Unwrap() error { return ErrInvalidKey }

// KeyFailureOf devuelve la causa de un error de clave, o "" si err no es un KeyError.
func KeyFailureOf(err error) KeyFailure {
	var ke *KeyError
	if errors.As(err, &ke) {
		return ke.Cause
	}
	return ""
}

// Validationf construye un error de validación con detalle.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

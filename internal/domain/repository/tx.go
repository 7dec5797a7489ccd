package repository

import "context"

// TxRepos son los repositorios atados a una misma transacción.
type TxRepos struct {
	Users UserRepository
	Keys  RegistrationKeyRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback si no.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

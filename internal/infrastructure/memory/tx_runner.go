package memory

import (
	"context"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
)

// TxRunner emula una transacción: registra una acción de deshacer por cada escritura
// y las aplica en orden inverso si fn devuelve error.
type TxRunner struct{ s *Store }

type txLog struct{ undo []func() }

func (l *txLog) push(f func()) { l.undo = append(l.undo, f) }

func (l *txLog) rollback() {
	for i := len(l.undo) - 1; i >= 0; i-- {
		l.undo[i]()
	}
}

// Run ejecuta fn con repos que registran sus escrituras para poder deshacerlas.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	log := &txLog{}
	repos := repository.TxRepos{
		Users: &txUsers{UserRepo: r.s.Users(), log: log},
		Keys:  &txKeys{KeyRepo: r.s.Keys(), log: log},
	}
	if err := fn(repos); err != nil {
		log.rollback()
		return err
	}
	return nil
}

type txUsers struct {
	*UserRepo
	log *txLog
}

func (t *txUsers) Create(ctx context.Context, u *entity.User) error {
	if err := t.UserRepo.Create(ctx, u); err != nil {
		return err
	}
	id := u.ID
	t.log.push(func() { t.UserRepo.delete(id) })
	return nil
}

type txKeys struct {
	*KeyRepo
	log *txLog
}

func (t *txKeys) Consume(ctx context.Context, id string, usage entity.KeyUsage) (bool, error) {
	ok, err := t.KeyRepo.Consume(ctx, id, usage)
	if err != nil || !ok {
		return ok, err
	}
	t.log.push(func() { t.KeyRepo.unconsume(id) })
	return true, nil
}

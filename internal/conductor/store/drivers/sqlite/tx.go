package sqlite

import (
	"database/sql"

	"github.com/aussiebroadwan/conductor/internal/conductor/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Peers() store.Peers { return &peersRepo{q: t.tx} }

package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/cryptox"
)

const peerColumns = `id, kind, name, address, credential, manager_id, is_initial,
	last_seen_at, disabled_at, deleted_at,
	created_by, updated_by, disabled_by, deleted_by, created_at, updated_at`

type peersRepo struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeer(row rowScanner) (domain.Peer, error) {
	var (
		p                           domain.Peer
		kind                        string
		sealed                      []byte
		managerID                   sql.NullString
		lastSeen, disabled, deleted sql.NullInt64
		createdAt, updatedAt        int64
	)
	err := row.Scan(
		&p.ID, &kind, &p.Name, &p.Address, &sealed, &managerID, &p.IsInitial,
		&lastSeen, &disabled, &deleted,
		&p.CreatedBy, &p.UpdatedBy, &p.DisabledBy, &p.DeletedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Peer{}, err
	}

	// A credential sealed under another master key leaves the record
	// readable without it.
	if len(sealed) > 0 {
		p.Credential, err = cryptox.OpenCredential(sealed)
		if err != nil {
			slog.Warn("stored peer credential is unreadable",
				slog.String("peer_id", p.ID),
				slog.String("peer_kind", kind),
				slog.Any("error", err))
			p.Credential = ""
			p.CredentialUnreadable = true
		}
	}

	p.Kind = domain.PeerKind(kind)
	p.ManagerID = managerID.String
	p.LastSeenAt = mapNullTimePtr(lastSeen)
	p.DisabledAt = mapNullTimePtr(disabled)
	p.DeletedAt = mapNullTimePtr(deleted)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func sealCredential(credential string) ([]byte, error) {
	if credential == "" {
		return nil, nil
	}
	return cryptox.SealCredential(credential)
}

func (r *peersRepo) getOne(ctx context.Context, where string, args ...any) (domain.Peer, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+peerColumns+` FROM peers WHERE deleted_at IS NULL AND `+where, args...)
	p, err := scanPeer(row)
	if err != nil {
		return domain.Peer{}, mapNotFound(err)
	}
	return p, nil
}

func (r *peersRepo) GetPeer(ctx context.Context, kind domain.PeerKind, id string) (domain.Peer, error) {
	return r.getOne(ctx, `kind = ? AND id = ?`, string(kind), id)
}

func (r *peersRepo) GetPeerByAddress(
	ctx context.Context,
	kind domain.PeerKind,
	address string,
) (domain.Peer, error) {
	return r.getOne(ctx, `kind = ? AND address = ?`, string(kind), address)
}

func (r *peersRepo) GetPeerByName(ctx context.Context, kind domain.PeerKind, name string) (domain.Peer, error) {
	return r.getOne(ctx, `kind = ? AND name = ?`, string(kind), name)
}

func (r *peersRepo) ListPeers(
	ctx context.Context,
	kind domain.PeerKind,
	f store.ListFilter,
) ([]domain.Peer, error) {
	where := []string{"deleted_at IS NULL", "kind = ?"}
	args := []any{string(kind)}

	if !f.IncludeDisabled {
		where = append(where, "disabled_at IS NULL")
	}
	if f.ManagerID != "" {
		where = append(where, "manager_id = ?")
		args = append(args, f.ManagerID)
	}
	if f.InitialOnly {
		where = append(where, "is_initial = 1")
	}

	order := "created_at ASC, id ASC"
	if f.NewestFirst {
		order = "created_at DESC, id DESC"
	}

	return r.list(ctx,
		`SELECT `+peerColumns+` FROM peers WHERE `+strings.Join(where, " AND ")+` ORDER BY `+order,
		args...)
}

func (r *peersRepo) ListEligibleManagers(ctx context.Context) ([]domain.Peer, error) {
	return r.list(ctx, `SELECT `+peerColumns+` FROM peers m
		WHERE m.kind = 'manager' AND m.deleted_at IS NULL AND m.disabled_at IS NULL
		AND EXISTS (
			SELECT 1 FROM peers g
			WHERE g.kind = 'gateway' AND g.manager_id = m.id
			AND g.deleted_at IS NULL AND g.disabled_at IS NULL
		)
		ORDER BY m.created_at DESC, m.id DESC`)
}

func (r *peersRepo) list(ctx context.Context, query string, args ...any) ([]domain.Peer, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []domain.Peer
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

func (r *peersRepo) CreatePeer(ctx context.Context, p domain.Peer) error {
	sealed, err := sealCredential(p.Credential)
	if err != nil {
		return err
	}

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.q.ExecContext(ctx, `INSERT INTO peers (`+peerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, '', '', ?, ?)`,
		p.ID, string(p.Kind), p.Name, p.Address, sealed, mapStringNull(p.ManagerID), p.IsInitial,
		mapOptionalTime(p.LastSeenAt), mapOptionalTime(p.DisabledAt),
		p.CreatedBy, p.CreatedBy, toMillis(created), toMillis(created),
	)
	return mapConstraint(err)
}

// update runs a single-row UPDATE against a live peer.
func (r *peersRepo) update(ctx context.Context, set, id string, args ...any) error {
	args = append(args, toMillis(time.Now()), id)
	res, err := r.q.ExecContext(ctx,
		`UPDATE peers SET `+set+`, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, args...)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *peersRepo) UpdatePeerName(ctx context.Context, id, name, by string) error {
	return r.update(ctx, `name = ?, updated_by = ?`, id, name, by)
}

func (r *peersRepo) UpdatePeerAddress(ctx context.Context, id, address, by string) error {
	return r.update(ctx, `address = ?, updated_by = ?`, id, address, by)
}

func (r *peersRepo) UpdatePeerCredential(ctx context.Context, id, credential, by string) error {
	sealed, err := sealCredential(credential)
	if err != nil {
		return err
	}
	return r.update(ctx, `credential = ?, updated_by = ?`, id, sealed, by)
}

func (r *peersRepo) SetPeerDisabled(ctx context.Context, id string, at *time.Time, by string) error {
	return r.update(ctx, `disabled_at = ?, disabled_by = ?, updated_by = ?`,
		id, mapOptionalTime(at), by, by)
}

func (r *peersRepo) TouchPeerLastSeen(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE peers SET last_seen_at = ? WHERE id = ? AND deleted_at IS NULL`, toMillis(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *peersRepo) SoftDeletePeer(ctx context.Context, id, by string, at time.Time) error {
	return r.update(ctx, `deleted_at = ?, deleted_by = ?, updated_by = ?`, id, toMillis(at), by, by)
}

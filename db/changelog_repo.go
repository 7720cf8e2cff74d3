package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.ChangeRepository = (*Repository)(nil)

// dbObjectChange represents a changelog entry as stored in the database.
type dbObjectChange struct {
	ID         uuid.UUID `db:"id"`
	ObjectKind string    `db:"object_kind"`
	ObjectID   uuid.UUID `db:"object_id"`
	Action     string    `db:"action"`
	Actor      string    `db:"actor"`
	Time       time.Time `db:"time"`
	PreChange  Fields    `db:"pre_change"`
	PostChange Fields    `db:"post_change"`
}

func toDomainChange(row *dbObjectChange) *domain.ObjectChange {
	return &domain.ObjectChange{
		ID:         row.ID,
		ObjectKind: domain.ObjectKind(row.ObjectKind),
		ObjectID:   row.ObjectID,
		Action:     domain.ChangeAction(row.Action),
		Actor:      row.Actor,
		Time:       row.Time,
		PreChange:  map[string]any(row.PreChange),
		PostChange: map[string]any(row.PostChange),
	}
}

// InsertChange appends a changelog entry. Entries are never updated.
func (repo *Repository) InsertChange(change *domain.ObjectChange) error {
	row := &dbObjectChange{
		ID:         change.ID,
		ObjectKind: string(change.ObjectKind),
		ObjectID:   change.ObjectID,
		Action:     string(change.Action),
		Actor:      change.Actor,
		Time:       change.Time,
		PreChange:  Fields(change.PreChange),
		PostChange: Fields(change.PostChange),
	}
	query := `INSERT INTO object_change(id, object_kind, object_id, action, actor, time, pre_change, post_change)
			  VALUES(:id, :object_kind, :object_id, :action, :actor, :time, :pre_change, :post_change)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		return fmt.Errorf("inserting change for %s %s : %w", change.ObjectKind, change.ObjectID, err)
	}
	return nil
}

// ListChanges retrieves changelog entries matching the filter, newest first.
func (repo *Repository) ListChanges(filter domain.ChangeFilter) ([]*domain.ObjectChange, error) {
	query := `SELECT * FROM object_change WHERE 1=1`
	var args []any

	if filter.ObjectKind != "" {
		query += ` AND object_kind = ?`
		args = append(args, string(filter.ObjectKind))
	}
	if filter.ObjectID != uuid.Nil {
		query += ` AND object_id = ?`
		args = append(args, filter.ObjectID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(filter.Action))
	}
	if filter.Actor != "" {
		query += ` AND actor = ?`
		args = append(args, filter.Actor)
	}
	if !filter.Since.IsZero() {
		query += ` AND time >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY time DESC, id DESC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbObjectChange
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing changes : %w", err)
	}

	changes := make([]*domain.ObjectChange, len(rows))
	for i, row := range rows {
		changes[i] = toDomainChange(row)
	}
	return changes, nil
}

// PruneChanges deletes changelog entries older than the cutoff.
func (repo *Repository) PruneChanges(cutoff time.Time) (int64, error) {
	result, err := repo.dbConn.Exec(`DELETE FROM object_change WHERE time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning changes before %s : %w", cutoff, err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned changes : %w", err)
	}
	return pruned, nil
}

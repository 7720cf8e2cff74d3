package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.ScriptRepository = (*Repository)(nil)

// dbScript represents a script as stored in the database.
type dbScript struct {
	ID          uuid.UUID  `db:"id"`
	Name        string     `db:"name"`
	Kind        string     `db:"kind"`
	ObjectKinds StringList `db:"object_kinds"`
	Enabled     bool       `db:"enabled"`
	Source      string     `db:"source"`
	Created     time.Time  `db:"created"`
	LastUpdated time.Time  `db:"last_updated"`
}

func fromDomainScript(script *domain.Script) *dbScript {
	kinds := make(StringList, len(script.ObjectKinds))
	for i, kind := range script.ObjectKinds {
		kinds[i] = string(kind)
	}
	return &dbScript{
		ID:          script.ID,
		Name:        script.Name,
		Kind:        string(script.Kind),
		ObjectKinds: kinds,
		Enabled:     script.Enabled,
		Source:      script.Source,
		Created:     script.Created,
		LastUpdated: script.LastUpdated,
	}
}

func toDomainScript(row *dbScript) *domain.Script {
	kinds := make([]domain.ObjectKind, len(row.ObjectKinds))
	for i, kind := range row.ObjectKinds {
		kinds[i] = domain.ObjectKind(kind)
	}
	return &domain.Script{
		ID:          row.ID,
		Name:        row.Name,
		Kind:        domain.ScriptKind(row.Kind),
		ObjectKinds: kinds,
		Enabled:     row.Enabled,
		Source:      row.Source,
		Created:     row.Created,
		LastUpdated: row.LastUpdated,
	}
}

// CreateScript inserts a new script.
func (repo *Repository) CreateScript(script *domain.Script) error {
	row := fromDomainScript(script)
	query := `INSERT INTO script(id, name, kind, object_kinds, enabled, source, created, last_updated)
			  VALUES(:id, :name, :kind, :object_kinds, :enabled, :source, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("script %s: %w", script.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting script %s : %w", script.Name, err)
	}
	return nil
}

// GetScript retrieves a script by ID.
func (repo *Repository) GetScript(id uuid.UUID) (*domain.Script, error) {
	var row dbScript
	err := repo.dbConn.Get(&row, `SELECT * FROM script WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("script %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting script %s : %w", id, err)
	}
	return toDomainScript(&row), nil
}

// ListScripts retrieves all scripts ordered by name.
func (repo *Repository) ListScripts() ([]*domain.Script, error) {
	var rows []*dbScript
	err := repo.dbConn.Select(&rows, `SELECT * FROM script ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing scripts : %w", err)
	}

	scripts := make([]*domain.Script, len(rows))
	for i, row := range rows {
		scripts[i] = toDomainScript(row)
	}
	return scripts, nil
}

// UpdateScript updates an existing script.
func (repo *Repository) UpdateScript(script *domain.Script) error {
	row := fromDomainScript(script)
	query := `UPDATE script SET
				name = :name,
				kind = :kind,
				object_kinds = :object_kinds,
				enabled = :enabled,
				source = :source,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("script %s: %w", script.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating script %s : %w", script.ID, err)
	}
	return checkAffected(result, script.ID)
}

// DeleteScript removes a script.
func (repo *Repository) DeleteScript(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM script WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting script %s : %w", id, err)
	}
	return checkAffected(result, id)
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.WebhookRepository = (*Repository)(nil)

// dbWebhook represents a webhook as stored in the database.
type dbWebhook struct {
	ID          uuid.UUID  `db:"id"`
	Name        string     `db:"name"`
	ObjectKinds StringList `db:"object_kinds"`
	Enabled     bool       `db:"enabled"`
	OnCreate    bool       `db:"on_create"`
	OnUpdate    bool       `db:"on_update"`
	OnDelete    bool       `db:"on_delete"`
	PayloadURL  string     `db:"payload_url"`
	HTTPMethod  string     `db:"http_method"`
	Secret      string     `db:"secret"`
	Headers     HeaderMap  `db:"headers"`
	Created     time.Time  `db:"created"`
	LastUpdated time.Time  `db:"last_updated"`
}

func fromDomainWebhook(hook *domain.Webhook) *dbWebhook {
	kinds := make(StringList, len(hook.ObjectKinds))
	for i, kind := range hook.ObjectKinds {
		kinds[i] = string(kind)
	}
	return &dbWebhook{
		ID:          hook.ID,
		Name:        hook.Name,
		ObjectKinds: kinds,
		Enabled:     hook.Enabled,
		OnCreate:    hook.OnCreate,
		OnUpdate:    hook.OnUpdate,
		OnDelete:    hook.OnDelete,
		PayloadURL:  hook.PayloadURL,
		HTTPMethod:  hook.HTTPMethod,
		Secret:      hook.Secret,
		Headers:     HeaderMap(hook.Headers),
		Created:     hook.Created,
		LastUpdated: hook.LastUpdated,
	}
}

func toDomainWebhook(row *dbWebhook) *domain.Webhook {
	kinds := make([]domain.ObjectKind, len(row.ObjectKinds))
	for i, kind := range row.ObjectKinds {
		kinds[i] = domain.ObjectKind(kind)
	}
	return &domain.Webhook{
		ID:          row.ID,
		Name:        row.Name,
		ObjectKinds: kinds,
		Enabled:     row.Enabled,
		OnCreate:    row.OnCreate,
		OnUpdate:    row.OnUpdate,
		OnDelete:    row.OnDelete,
		PayloadURL:  row.PayloadURL,
		HTTPMethod:  row.HTTPMethod,
		Secret:      row.Secret,
		Headers:     map[string]string(row.Headers),
		Created:     row.Created,
		LastUpdated: row.LastUpdated,
	}
}

// CreateWebhook inserts a new webhook.
func (repo *Repository) CreateWebhook(hook *domain.Webhook) error {
	row := fromDomainWebhook(hook)
	query := `INSERT INTO webhook(id, name, object_kinds, enabled, on_create, on_update, on_delete,
				payload_url, http_method, secret, headers, created, last_updated)
			  VALUES(:id, :name, :object_kinds, :enabled, :on_create, :on_update, :on_delete,
				:payload_url, :http_method, :secret, :headers, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("webhook %s: %w", hook.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting webhook %s : %w", hook.Name, err)
	}
	return nil
}

// GetWebhook retrieves a webhook by ID.
func (repo *Repository) GetWebhook(id uuid.UUID) (*domain.Webhook, error) {
	var row dbWebhook
	err := repo.dbConn.Get(&row, `SELECT * FROM webhook WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting webhook %s : %w", id, err)
	}
	return toDomainWebhook(&row), nil
}

// ListWebhooks retrieves all webhooks ordered by name.
func (repo *Repository) ListWebhooks() ([]*domain.Webhook, error) {
	var rows []*dbWebhook
	err := repo.dbConn.Select(&rows, `SELECT * FROM webhook ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks : %w", err)
	}

	hooks := make([]*domain.Webhook, len(rows))
	for i, row := range rows {
		hooks[i] = toDomainWebhook(row)
	}
	return hooks, nil
}

// UpdateWebhook updates an existing webhook.
func (repo *Repository) UpdateWebhook(hook *domain.Webhook) error {
	row := fromDomainWebhook(hook)
	query := `UPDATE webhook SET
				name = :name,
				object_kinds = :object_kinds,
				enabled = :enabled,
				on_create = :on_create,
				on_update = :on_update,
				on_delete = :on_delete,
				payload_url = :payload_url,
				http_method = :http_method,
				secret = :secret,
				headers = :headers,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("webhook %s: %w", hook.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating webhook %s : %w", hook.ID, err)
	}
	return checkAffected(result, hook.ID)
}

// DeleteWebhook removes a webhook.
func (repo *Repository) DeleteWebhook(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM webhook WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting webhook %s : %w", id, err)
	}
	return checkAffected(result, id)
}

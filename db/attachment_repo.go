package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.AttachmentRepository = (*Repository)(nil)

// dbImageAttachment represents an image attachment as stored in the database.
type dbImageAttachment struct {
	ID          uuid.UUID `db:"id"`
	ObjectKind  string    `db:"object_kind"`
	ObjectID    uuid.UUID `db:"object_id"`
	Name        string    `db:"name"`
	ContentType string    `db:"content_type"`
	Data        []byte    `db:"data"`
	Created     time.Time `db:"created"`
}

func toDomainAttachment(row *dbImageAttachment) *domain.ImageAttachment {
	return &domain.ImageAttachment{
		ID:          row.ID,
		ObjectKind:  domain.ObjectKind(row.ObjectKind),
		ObjectID:    row.ObjectID,
		Name:        row.Name,
		ContentType: row.ContentType,
		Data:        row.Data,
		Created:     row.Created,
	}
}

// CreateAttachment inserts a new image attachment.
func (repo *Repository) CreateAttachment(att *domain.ImageAttachment) error {
	row := &dbImageAttachment{
		ID:          att.ID,
		ObjectKind:  string(att.ObjectKind),
		ObjectID:    att.ObjectID,
		Name:        att.Name,
		ContentType: att.ContentType,
		Data:        att.Data,
		Created:     att.Created,
	}
	query := `INSERT INTO image_attachment(id, object_kind, object_id, name, content_type, data, created)
			  VALUES(:id, :object_kind, :object_id, :name, :content_type, :data, :created)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		return fmt.Errorf("inserting attachment %s : %w", att.Name, err)
	}
	return nil
}

// GetAttachment retrieves an attachment, including its image data.
func (repo *Repository) GetAttachment(id uuid.UUID) (*domain.ImageAttachment, error) {
	var row dbImageAttachment
	err := repo.dbConn.Get(&row, `SELECT * FROM image_attachment WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting attachment %s : %w", id, err)
	}
	return toDomainAttachment(&row), nil
}

// ListAttachments returns the attachments for an object without their image
// data, oldest first.
func (repo *Repository) ListAttachments(kind domain.ObjectKind, objectID uuid.UUID) ([]*domain.ImageAttachment, error) {
	query := `SELECT id, object_kind, object_id, name, content_type, created
			  FROM image_attachment
			  WHERE object_kind = ? AND object_id = ?
			  ORDER BY created ASC`

	var rows []*dbImageAttachment
	if err := repo.dbConn.Select(&rows, query, string(kind), objectID); err != nil {
		return nil, fmt.Errorf("listing attachments for %s %s : %w", kind, objectID, err)
	}

	attachments := make([]*domain.ImageAttachment, len(rows))
	for i, row := range rows {
		attachments[i] = toDomainAttachment(row)
	}
	return attachments, nil
}

// DeleteAttachment removes an attachment.
func (repo *Repository) DeleteAttachment(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM image_attachment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting attachment %s : %w", id, err)
	}
	return checkAffected(result, id)
}

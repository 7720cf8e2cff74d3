package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ImageAttachment stores an uploaded image associated with a tracked object,
// such as a photo of a rack or a device faceplate.
type ImageAttachment struct {
	ID          uuid.UUID  `json:"id"`
	ObjectKind  ObjectKind `json:"object_kind"`
	ObjectID    uuid.UUID  `json:"object_id"`
	Name        string     `json:"name"`
	ContentType string     `json:"content_type"` // Sniffed MIME type, always image/*.
	Data        []byte     `json:"-"`
	Created     time.Time  `json:"created"`
}

// Validate checks attachment fields that do not require repository access.
func (a *ImageAttachment) Validate() error {
	if !a.ObjectKind.Valid() {
		return errors.New("attachment must reference a tracked object kind")
	}
	if a.ObjectID == uuid.Nil {
		return errors.New("attachment must reference an object")
	}
	if len(a.Data) == 0 {
		return errors.New("attachment is empty")
	}
	return nil
}

// AttachmentRepository defines the interface for managing image attachments.
type AttachmentRepository interface {
	CreateAttachment(att *ImageAttachment) error
	GetAttachment(id uuid.UUID) (*ImageAttachment, error)
	// ListAttachments returns attachments for an object without their data.
	ListAttachments(kind ObjectKind, objectID uuid.UUID) ([]*ImageAttachment, error)
	DeleteAttachment(id uuid.UUID) error
}

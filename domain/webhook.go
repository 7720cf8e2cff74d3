package domain

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Webhook describes an HTTP callback fired when tracked objects change.
// The request body is the JSON change payload; when a secret is set the body
// is signed with HMAC-SHA256 and the signature sent in X-Hook-Signature.
type Webhook struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"` // Unique.
	ObjectKinds []ObjectKind      `json:"object_kinds"`
	Enabled     bool              `json:"enabled"`
	OnCreate    bool              `json:"on_create"`
	OnUpdate    bool              `json:"on_update"`
	OnDelete    bool              `json:"on_delete"`
	PayloadURL  string            `json:"payload_url"`
	HTTPMethod  string            `json:"http_method"` // POST or PUT.
	Secret      string            `json:"secret"`
	Headers     map[string]string `json:"headers"` // Additional headers sent with each delivery.
	Created     time.Time         `json:"created"`
	LastUpdated time.Time         `json:"last_updated"`
}

// Validate checks webhook fields that do not require repository access.
func (w *Webhook) Validate() error {
	if w.Name == "" {
		return errors.New("webhook name is required")
	}
	if len(w.ObjectKinds) == 0 {
		return errors.New("webhook must subscribe to at least one object kind")
	}
	for _, kind := range w.ObjectKinds {
		if !kind.Valid() {
			return fmt.Errorf("unknown object kind %q", kind)
		}
	}
	if !w.OnCreate && !w.OnUpdate && !w.OnDelete {
		return errors.New("webhook must fire on at least one action")
	}
	u, err := url.Parse(w.PayloadURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("payload url %q is not a valid http(s) url", w.PayloadURL)
	}
	switch w.HTTPMethod {
	case "POST", "PUT":
	default:
		return fmt.Errorf("webhook method must be POST or PUT, got %q", w.HTTPMethod)
	}
	return nil
}

// Matches reports whether the webhook subscribes to the given kind/action
// combination.
func (w *Webhook) Matches(kind ObjectKind, action ChangeAction) bool {
	if !w.Enabled {
		return false
	}
	switch action {
	case ActionCreate:
		if !w.OnCreate {
			return false
		}
	case ActionUpdate:
		if !w.OnUpdate {
			return false
		}
	case ActionDelete:
		if !w.OnDelete {
			return false
		}
	default:
		return false
	}
	for _, k := range w.ObjectKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// WebhookRepository defines the interface for managing webhooks.
type WebhookRepository interface {
	CreateWebhook(hook *Webhook) error
	GetWebhook(id uuid.UUID) (*Webhook, error)
	ListWebhooks() ([]*Webhook, error)
	UpdateWebhook(hook *Webhook) error
	DeleteWebhook(id uuid.UUID) error
}

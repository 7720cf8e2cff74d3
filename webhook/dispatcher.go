package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/sashashura/netbox/domain"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the request body when
	// the webhook has a secret configured.
	SignatureHeader = "X-Hook-Signature"

	defaultQueueSize  = 256
	defaultMaxRetries = 3
)

// Payload is the JSON body of a webhook delivery.
type Payload struct {
	Event      string         `json:"event"`
	Kind       string         `json:"kind"`
	ObjectID   string         `json:"object_id"`
	Actor      string         `json:"actor"`
	Timestamp  time.Time      `json:"timestamp"`
	PreChange  map[string]any `json:"pre_change,omitempty"`
	PostChange map[string]any `json:"post_change,omitempty"`
}

// delivery is one queued webhook firing: a hook plus the serialized body.
type delivery struct {
	hook *domain.Webhook
	body []byte
}

// Dispatcher delivers change payloads to subscribed webhooks from a single
// background worker. The queue is bounded; when it fills, new deliveries are
// dropped and counted rather than blocking the write path.
type Dispatcher struct {
	client     *http.Client
	logger     zerolog.Logger
	queue      chan delivery
	maxRetries uint64
	dropped    atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient replaces the HTTP client used for deliveries.
func WithClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

// WithQueueSize sets the delivery queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queue = make(chan delivery, n) }
}

// WithMaxRetries sets how many times a failed delivery is retried.
func WithMaxRetries(n uint64) Option {
	return func(d *Dispatcher) { d.maxRetries = n }
}

// NewDispatcher returns a stopped dispatcher. Call Start before enqueueing.
func NewDispatcher(logger zerolog.Logger, options ...Option) *Dispatcher {
	d := &Dispatcher{
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		queue:      make(chan delivery, defaultQueueSize),
		maxRetries: defaultMaxRetries,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Start launches the delivery worker. It runs until Stop is called.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case item := <-d.queue:
				if err := d.deliver(ctx, item); err != nil {
					d.logger.Error().Err(err).
						Str("webhook", item.hook.Name).
						Str("url", item.hook.PayloadURL).
						Msg("webhook delivery failed")
				}
			}
		}
	}()
}

// Stop cancels the worker and waits for the in-flight delivery to finish.
// Queued deliveries that have not started are discarded.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Dropped reports how many deliveries were discarded because the queue was
// full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Enqueue queues one delivery per webhook subscribed to the change. The body
// is serialized once and shared between deliveries.
func (d *Dispatcher) Enqueue(hooks []*domain.Webhook, change *domain.ObjectChange) error {
	var matched []*domain.Webhook
	for _, hook := range hooks {
		if hook.Matches(change.ObjectKind, change.Action) {
			matched = append(matched, hook)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{
		Event:      string(change.Action),
		Kind:       string(change.ObjectKind),
		ObjectID:   change.ObjectID.String(),
		Actor:      change.Actor,
		Timestamp:  change.Time,
		PreChange:  change.PreChange,
		PostChange: change.PostChange,
	})
	if err != nil {
		return fmt.Errorf("serializing webhook payload for %s : %w", change.ObjectID, err)
	}

	for _, hook := range matched {
		select {
		case d.queue <- delivery{hook: hook, body: body}:
		default:
			d.dropped.Add(1)
			d.logger.Warn().
				Str("webhook", hook.Name).
				Msg("webhook queue full, delivery dropped")
		}
	}
	return nil
}

// deliver sends one payload, retrying transient failures with exponential
// backoff. Responses in the 2xx range count as delivered; 4xx responses are
// terminal since retrying will not change them.
func (d *Dispatcher) deliver(ctx context.Context, item delivery) error {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(250*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, item.hook.HTTPMethod, item.hook.PayloadURL, bytes.NewReader(item.body))
		if err != nil {
			return fmt.Errorf("building request for %s : %w", item.hook.Name, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for name, value := range item.hook.Headers {
			req.Header.Set(name, value)
		}
		if item.hook.Secret != "" {
			req.Header.Set(SignatureHeader, Sign(item.hook.Secret, item.body))
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("endpoint returned %d", resp.StatusCode))
		default:
			return fmt.Errorf("endpoint returned %d", resp.StatusCode)
		}
	})
}

// Sign computes the hex HMAC-SHA256 signature of a delivery body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

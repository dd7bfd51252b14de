// Package alert implements best-effort outbound notification of block events.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

const destinationCacheKey = "destination"

// DispatchRecorder observes delivery outcomes. Implemented by the prometheus
// metrics recorder; nil disables recording.
type DispatchRecorder interface {
	RecordAlertDispatch(success bool)
}

// WebhookDispatcher delivers alert events to a configured webhook through a
// bounded background queue. Notify never blocks the decision path: when the
// queue is full the event is dropped with a warning. Delivery failures are
// warnings only and are never retried.
type WebhookDispatcher struct {
	settings    repository.SettingsRepository
	fallbackURL string
	client      *http.Client
	queue       chan models.AlertEvent
	destCache   *gocache.Cache
	recorder    DispatchRecorder
	log         logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewWebhookDispatcher creates a dispatcher; call Start before use and Close
// on shutdown to drain the queue. recorder may be nil.
func NewWebhookDispatcher(cfg config.AlertConfig, settings repository.SettingsRepository, recorder DispatchRecorder, log logger.Logger) *WebhookDispatcher {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = constants.AlertQueueSize
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDispatcher{
		settings:    settings,
		fallbackURL: cfg.FallbackWebhookURL,
		client:      &http.Client{Timeout: timeout},
		queue:       make(chan models.AlertEvent, queueSize),
		destCache:   gocache.New(time.Minute, 5*time.Minute),
		recorder:    recorder,
		log:         log.WithComponent("alert_dispatcher"),
	}
}

// Start launches the delivery workers.
func (d *WebhookDispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	d.startOnce.Do(func() {
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Notify enqueues an alert event without blocking.
func (d *WebhookDispatcher) Notify(ctx context.Context, event models.AlertEvent) {
	select {
	case d.queue <- event:
	default:
		d.log.Warn(ctx, "alert queue full, dropping event",
			logger.String("ip", event.IP),
			logger.String("rule", event.RuleLabel),
		)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *WebhookDispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Pending reports the current queue depth. Used in tests.
func (d *WebhookDispatcher) Pending() int {
	return len(d.queue)
}

func (d *WebhookDispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *WebhookDispatcher) deliver(event models.AlertEvent) {
	ctx := context.Background()

	url := d.destination(ctx)
	if url == "" {
		d.log.Debug(ctx, "no alert webhook configured, discarding event",
			logger.String("ip", event.IP),
		)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Warn(ctx, "alert payload marshal failed", logger.String("ip", event.IP))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		d.log.Warn(ctx, "alert request build failed", logger.String("url", url))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn(ctx, "alert delivery failed",
			logger.String("ip", event.IP),
			logger.String("rule", event.RuleLabel),
			logger.Any("error", err.Error()),
		)
		d.record(false)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.log.Warn(ctx, "alert endpoint returned non-success status",
			logger.Int("status", resp.StatusCode),
			logger.String("ip", event.IP),
		)
		d.record(false)
		return
	}

	d.record(true)
	d.log.Debug(ctx, "alert delivered",
		logger.String("ip", event.IP),
		logger.String("rule", event.RuleLabel),
		logger.Bool("escalated", event.Escalated),
	)
}

// destination resolves the webhook URL: cached config-table value first, then
// the statically configured fallback.
func (d *WebhookDispatcher) destination(ctx context.Context) string {
	if cached, ok := d.destCache.Get(destinationCacheKey); ok {
		return cached.(string)
	}

	url := d.fallbackURL
	if d.settings != nil {
		if configured, err := d.settings.Get(ctx, constants.SettingAlertWebhookURL); err == nil && configured != "" {
			url = configured
		}
	}

	d.destCache.Set(destinationCacheKey, url, gocache.DefaultExpiration)
	return url
}

// InvalidateDestination drops the cached webhook URL so the next delivery
// re-reads the config table. Called when an admin changes the destination.
func (d *WebhookDispatcher) InvalidateDestination() {
	d.destCache.Delete(destinationCacheKey)
}

func (d *WebhookDispatcher) record(success bool) {
	if d.recorder != nil {
		d.recorder.RecordAlertDispatch(success)
	}
}

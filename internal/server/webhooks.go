package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"brdflow/internal/config"
	"brdflow/internal/domain"
	"brdflow/internal/logger"
	"brdflow/internal/repo"
)

const (
	webhookPollInterval = 2 * time.Second
	webhookTimeout      = 5 * time.Second
	webhookBatch        = 100
)

// webhookTarget is one enabled hook and the id of the last event it has seen.
type webhookTarget struct {
	hook   config.Webhook
	types  map[string]bool
	client *http.Client
	cursor int64
}

// wants reports whether the hook subscribed to evtType. No subscription
// means every event.
func (t *webhookTarget) wants(evtType string) bool {
	return len(t.types) == 0 || t.types[evtType]
}

// webhookDispatcher is driven by a single goroutine; targets are not shared.
type webhookDispatcher struct {
	repo    repo.Repo
	targets []*webhookTarget
}

// StartWebhooks polls the event log and posts new events to every enabled
// hook until ctx is done. Events recorded before the call are not delivered.
func StartWebhooks(ctx context.Context, r repo.Repo, hooks []config.Webhook) {
	d := newWebhookDispatcher(ctx, r, hooks)
	if d == nil {
		return
	}
	go d.run(ctx)
}

// newWebhookDispatcher returns nil when no hook is enabled with a URL.
func newWebhookDispatcher(ctx context.Context, r repo.Repo, hooks []config.Webhook) *webhookDispatcher {
	var targets []*webhookTarget
	for _, hook := range hooks {
		if !hook.IsEnabled() || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		timeout := webhookTimeout
		if hook.TimeoutSeconds > 0 {
			timeout = time.Duration(hook.TimeoutSeconds) * time.Second
		}
		t := &webhookTarget{hook: hook, client: &http.Client{Timeout: timeout}}
		for _, evt := range hook.Events {
			if evt = strings.TrimSpace(evt); evt != "" {
				if t.types == nil {
					t.types = map[string]bool{}
				}
				t.types[evt] = true
			}
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil
	}
	start, err := r.LatestEventID(ctx)
	if err != nil {
		logger.Warn("webhook: read event log head: %v", err)
	}
	for _, t := range targets {
		t.cursor = start
	}
	return &webhookDispatcher{repo: r, targets: targets}
}

func (d *webhookDispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(webhookPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *webhookDispatcher) poll(ctx context.Context) {
	for _, t := range d.targets {
		d.deliver(ctx, t)
	}
}

// deliver posts pending events in order and stops at the first failure so
// the same event is retried on the next poll.
func (d *webhookDispatcher) deliver(ctx context.Context, t *webhookTarget) {
	events, err := d.repo.EventsAfter(ctx, webhookBatch, t.cursor)
	if err != nil {
		logger.Warn("webhook: read events: %v", err)
		return
	}
	for _, evt := range events {
		if t.wants(evt.Type) {
			if err := t.post(ctx, evt); err != nil {
				logger.Warn("webhook: deliver event %d to %s: %v", evt.ID, t.hook.URL, err)
				return
			}
			logger.Debug("webhook: delivered event %d to %s", evt.ID, t.hook.URL)
		}
		t.cursor = evt.ID
	}
}

func (t *webhookTarget) post(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(eventResponse(evt))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Brdflow-Event", evt.Type)
	req.Header.Set("X-Brdflow-Delivery", strconv.FormatInt(evt.ID, 10))
	if secret := strings.TrimSpace(t.hook.Secret); secret != "" {
		req.Header.Set("X-Brdflow-Secret", secret)
	}
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

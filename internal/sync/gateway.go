// Package sync moves data between the local store and the remote system of
// record. Pull runs once at startup and overwrites local collections from a
// snapshot; Push is fire-and-forget per mutation. The local store stays
// authoritative for this process's lifetime: the remote mirror is attempted,
// never guaranteed.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rfachrizal/mutabaah/internal/model"
	"github.com/rfachrizal/mutabaah/internal/store"
)

// queueSize bounds the outbound push buffer. A full buffer drops the push,
// which is within the at-most-once delivery contract.
const queueSize = 256

// Push actions understood by the remote endpoint.
const (
	ActionSaveStudent    = "saveStudent"
	ActionDeleteStudent  = "deleteStudent"
	ActionSaveMaterial   = "saveMaterial"
	ActionDeleteMaterial = "deleteMaterial"
	ActionSaveBroadcast  = "saveBroadcast"
	ActionSaveSettings   = "saveSettings"
)

type envelope struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
	ID      string `json:"id"`
}

// Gateway is the one-way-trusted channel to the remote system of record.
type Gateway struct {
	endpoint string
	client   *http.Client
	store    *store.Store
	logger   *slog.Logger
	queue    chan envelope

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a gateway. An empty endpoint means offline mode: Pull seeds
// local data and Push drops everything.
func New(endpoint string, st *store.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		store:    st,
		logger:   logger,
		queue:    make(chan envelope, queueSize),
	}
}

// Configured reports whether a remote endpoint is set.
func (g *Gateway) Configured() bool {
	return g.endpoint != ""
}

// Start launches the push dispatcher.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})
	g.mu.Unlock()

	go func() {
		defer close(g.done)
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-g.queue:
				g.send(ctx, env)
			}
		}
	}()
}

// Stop cancels the dispatcher. Queued pushes that have not been sent are
// abandoned, as is any request in flight.
func (g *Gateway) Stop() {
	g.mu.RLock()
	cancel := g.cancel
	done := g.done
	g.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Push enqueues one mutation for delivery. It never blocks the caller: a full
// queue drops the push with a log line. There is no retry and no feedback
// into the local store.
func (g *Gateway) Push(action, id string, payload any) {
	if !g.Configured() {
		g.logger.Debug("offline, dropping push", "action", action, "id", id)
		return
	}

	select {
	case g.queue <- envelope{Action: action, Payload: payload, ID: id}:
	default:
		g.logger.Warn("push queue full, dropping", "action", action, "id", id)
	}
}

// send delivers one envelope. The response body is discarded: the remote
// endpoint answers through an opaque redirect chain, so delivery cannot be
// confirmed at this level by design. Only transport failures are logged.
func (g *Gateway) send(ctx context.Context, env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		g.logger.Error("marshal push", "action", env.Action, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		g.logger.Error("build push request", "action", env.Action, "error", err)
		return
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("push failed", "action", env.Action, "id", env.ID, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	g.logger.Debug("pushed", "action", env.Action, "id", env.ID)
}

// snapshot mirrors the remote getData response. Raw fields let Pull treat
// each collection independently: absent or malformed fields leave the
// corresponding local collection untouched.
type snapshot struct {
	Students   json.RawMessage `json:"students"`
	Materials  json.RawMessage `json:"materials"`
	Broadcasts json.RawMessage `json:"broadcasts"`
	Settings   json.RawMessage `json:"settings"`
}

// Pull fetches one full snapshot and absorbs it into the local store. On any
// failure the local cache is left untouched and, if the people collection is
// empty, placeholder data is seeded so the app stays usable offline.
func (g *Gateway) Pull(ctx context.Context) error {
	if !g.Configured() {
		g.logger.Info("no sync endpoint configured, running offline")
		g.SeedIfEmpty()
		return nil
	}

	snap, err := g.fetchSnapshot(ctx)
	if err != nil {
		g.logger.Warn("snapshot pull failed, using local cache", "error", err)
		g.SeedIfEmpty()
		return err
	}

	absorb(g, snap.Students, store.CollectionStudents, g.store.ReplaceStudents)
	absorb(g, snap.Materials, store.CollectionMaterials, g.store.ReplaceMaterials)
	absorb(g, snap.Broadcasts, store.CollectionBroadcasts, g.store.ReplaceBroadcasts)
	g.absorbSettings(snap.Settings)

	g.logger.Info("snapshot pulled")
	return nil
}

func (g *Gateway) fetchSnapshot(ctx context.Context) (*snapshot, error) {
	url := fmt.Sprintf("%s?action=getData&_=%d", g.endpoint, time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build pull request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull returned status %d", resp.StatusCode)
	}

	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// absorb overwrites one collection from a raw snapshot field. A missing,
// null, or non-array field is skipped, preserving the local value.
func absorb[T any](g *Gateway, raw json.RawMessage, name string, replace func([]T) error) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		g.logger.Warn("malformed snapshot field, keeping local", "collection", name, "error", err)
		return
	}
	if err := replace(items); err != nil {
		g.logger.Error("absorb snapshot field", "collection", name, "error", err)
	}
}

func (g *Gateway) absorbSettings(raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var settings model.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		g.logger.Warn("malformed snapshot settings, keeping local", "error", err)
		return
	}
	if err := g.store.SaveSettings(settings.Merge(model.DefaultSettings())); err != nil {
		g.logger.Error("absorb snapshot settings", "error", err)
	}
}

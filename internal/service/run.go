package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"bcp-export/internal/clients"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunNoData    RunStatus = "no_data"
)

const (
	runSetKey     = "run_ids"
	defaultRunTTL = 24 * time.Hour
)

type DestinationResult struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// Run is the status record of one flow execution.
type Run struct {
	ID           string              `json:"id"`
	Flow         string              `json:"flow"`
	Env          string              `json:"env,omitempty"`
	Client       string              `json:"client"`
	User         string              `json:"user,omitempty"`
	Status       RunStatus           `json:"status"`
	Stage        Stage               `json:"stage,omitempty"`
	Progress     float64             `json:"progress"`
	Message      string              `json:"message,omitempty"`
	FileURL      *string             `json:"file_url"`
	FileName     string              `json:"file_name,omitempty"`
	Rows         int                 `json:"rows"`
	Destinations []DestinationResult `json:"destinations,omitempty"`
	Created      time.Time           `json:"created_at"`
	Updated      time.Time           `json:"updated_at"`
}

// StatusStore persists run records. RedisClient satisfies it.
type StatusStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Notifier pushes run updates to the user. WebSocketClient satisfies it.
type Notifier interface {
	NotifyRunProgress(ctx context.Context, user, runID string, progress float64, stage string) error
	NotifyRunComplete(ctx context.Context, user, runID, url, filename string) error
	NotifyRunFailed(ctx context.Context, user, runID, errMsg string) error
}

// RunTracker records run state and tells the user about it. Both the store
// and the notifier are optional.
type RunTracker struct {
	store    StatusStore
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

func NewRunTracker(store StatusStore, notifier Notifier, ttl time.Duration) *RunTracker {
	if ttl <= 0 {
		ttl = defaultRunTTL
	}
	return &RunTracker{store: store, notifier: notifier, ttl: ttl, now: time.Now}
}

func (t *RunTracker) Create(ctx context.Context, flow, env, client, user string) *Run {
	now := t.now()
	run := &Run{
		ID:      fmt.Sprintf("runs:%s", uuid.NewString()),
		Flow:    flow,
		Env:     env,
		Client:  client,
		User:    user,
		Status:  RunQueued,
		Created: now,
		Updated: now,
	}
	t.save(ctx, run)
	return run
}

func (t *RunTracker) Progress(ctx context.Context, run *Run, stage Stage, progress float64) {
	run.Status = RunRunning
	run.Stage = stage
	// 100 is reserved for a delivered archive
	if progress >= 100 {
		progress = 99
	}
	if progress > run.Progress {
		run.Progress = progress
	}
	t.save(ctx, run)

	if t.notifier != nil {
		_ = t.notifier.NotifyRunProgress(ctx, run.User, run.ID, run.Progress, string(stage))
	}
}

func (t *RunTracker) Complete(ctx context.Context, run *Run, res *PublishResult) {
	run.Status = RunCompleted
	run.Progress = 100
	run.FileName = res.FileName
	run.Rows = res.Rows
	run.Destinations = res.Destinations
	if res.URL != "" {
		url := res.URL
		run.FileURL = &url
	}
	run.Message = fmt.Sprintf("delivered %s to %d of %d destinations", res.FileName, res.Delivered(), len(res.Destinations))
	t.save(ctx, run)

	if t.notifier != nil {
		_ = t.notifier.NotifyRunProgress(ctx, run.User, run.ID, 100, "ready")
		_ = t.notifier.NotifyRunComplete(ctx, run.User, run.ID, res.URL, res.FileName)
	}
}

func (t *RunTracker) NoData(ctx context.Context, run *Run, msg string) {
	run.Status = RunNoData
	run.Progress = 100
	run.Message = msg
	t.save(ctx, run)

	if t.notifier != nil {
		_ = t.notifier.NotifyRunFailed(ctx, run.User, run.ID, msg)
	}
}

func (t *RunTracker) Fail(ctx context.Context, run *Run, err error) {
	run.Status = RunFailed
	run.Message = err.Error()
	var se *StageError
	if errors.As(err, &se) {
		run.Stage = se.Stage
	}
	t.save(ctx, run)

	if t.notifier != nil {
		_ = t.notifier.NotifyRunFailed(ctx, run.User, run.ID, run.Message)
	}
}

func (t *RunTracker) save(ctx context.Context, run *Run) {
	run.Updated = t.now()
	if t.store == nil {
		return
	}

	data, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, run.ID, string(data), t.ttl); err != nil {
		zap.L().Warn("save run status", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	if err := t.store.SAdd(ctx, runSetKey, run.ID); err != nil {
		zap.L().Warn("index run status", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// List returns the user's runs, newest first. An empty user lists every
// run. Expired records are dropped from the index on the way.
func (t *RunTracker) List(ctx context.Context, user string) ([]Run, error) {
	if t.store == nil {
		return nil, errors.New("run status store not configured")
	}

	keys, err := t.store.SMembers(ctx, runSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get run keys: %w", err)
	}

	var runs []Run
	for _, key := range keys {
		data, err := t.store.Get(ctx, key)
		if errors.Is(err, clients.ErrCacheMiss) {
			_ = t.store.SRem(ctx, runSetKey, key)
			continue
		}
		if err != nil {
			continue
		}

		var run Run
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			continue
		}
		if user == "" || run.User == user {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Created.After(runs[j].Created)
	})
	return runs, nil
}

func (t *RunTracker) Get(ctx context.Context, id, user string) (*Run, error) {
	if t.store == nil {
		return nil, errors.New("run status store not configured")
	}

	data, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, ErrRunNotFound
	}

	var run Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run status: %w", err)
	}
	if user != "" && run.User != user {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

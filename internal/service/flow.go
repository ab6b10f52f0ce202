package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bcp-export/internal/config"
	"bcp-export/internal/domain"
	"bcp-export/internal/export"
	"bcp-export/internal/mapping"
	"bcp-export/internal/pipeline"

	"go.uber.org/zap"
)

// MappingLoader returns the validated field mapping of a client.
// mapping.WorkbookLoader satisfies it.
type MappingLoader interface {
	Load(client string) (*mapping.Mapping, error)
}

type FlowSettings struct {
	Flows                map[string]config.FlowConfig
	IDChunkSize          int
	DispositionChunkSize int
	DispositionDepth     int
}

type FlowDeps struct {
	Catalog        *Catalog
	OpenVolare     VolareOpener
	OpenCallCenter CallCenterOpener
	Mappings       MappingLoader
	Filter         pipeline.NoiseFilter
	Publisher      *Publisher
	Tracker        *RunTracker
}

// FlowService runs the leads, efforts and call-center flows. Every run is
// sequential inside; runs share no mutable state.
type FlowService struct {
	settings     FlowSettings
	deps         FlowDeps
	consolidator *pipeline.Consolidator
	now          func() time.Time
}

func NewFlowService(settings FlowSettings, deps FlowDeps) *FlowService {
	if settings.IDChunkSize <= 0 {
		settings.IDChunkSize = 10000
	}
	if settings.DispositionChunkSize <= 0 {
		settings.DispositionChunkSize = 5000
	}
	return &FlowService{
		settings:     settings,
		deps:         deps,
		consolidator: pipeline.NewConsolidator(deps.Filter),
		now:          time.Now,
	}
}

// ClientRequest selects a client of an environment by id, or by name when
// the id is zero.
type ClientRequest struct {
	Env      string `json:"env"`
	ClientID int64  `json:"client_id"`
	Client   string `json:"client"`
	User     string `json:"-"`
}

type AmeyoRequest struct {
	Database string `json:"database"`
	User     string `json:"-"`
}

type buildFunc func(ctx context.Context, run *Run) (export.Table, error)

// StartLeads validates the request, records a queued run and executes it in
// the background. It returns the run id.
func (s *FlowService) StartLeads(ctx context.Context, req ClientRequest) (string, error) {
	run, build, err := s.prepareClientFlow(ctx, config.FlowLeads, req, s.buildLeads)
	if err != nil {
		return "", err
	}
	go s.execute(context.Background(), run, build)
	return run.ID, nil
}

// RunLeads executes a leads run in the caller's goroutine.
func (s *FlowService) RunLeads(ctx context.Context, req ClientRequest) (*Run, error) {
	run, build, err := s.prepareClientFlow(ctx, config.FlowLeads, req, s.buildLeads)
	if err != nil {
		return nil, err
	}
	return run, s.execute(ctx, run, build)
}

func (s *FlowService) StartEfforts(ctx context.Context, req ClientRequest) (string, error) {
	run, build, err := s.prepareClientFlow(ctx, config.FlowEfforts, req, s.buildEfforts)
	if err != nil {
		return "", err
	}
	go s.execute(context.Background(), run, build)
	return run.ID, nil
}

func (s *FlowService) RunEfforts(ctx context.Context, req ClientRequest) (*Run, error) {
	run, build, err := s.prepareClientFlow(ctx, config.FlowEfforts, req, s.buildEfforts)
	if err != nil {
		return nil, err
	}
	return run, s.execute(ctx, run, build)
}

func (s *FlowService) StartAmeyo(ctx context.Context, req AmeyoRequest) (string, error) {
	run, err := s.prepareAmeyo(ctx, req)
	if err != nil {
		return "", err
	}
	go s.execute(context.Background(), run, s.buildAmeyo)
	return run.ID, nil
}

func (s *FlowService) RunAmeyo(ctx context.Context, req AmeyoRequest) (*Run, error) {
	run, err := s.prepareAmeyo(ctx, req)
	if err != nil {
		return nil, err
	}
	return run, s.execute(ctx, run, s.buildAmeyo)
}

type clientBuild func(ctx context.Context, run *Run, env config.Environment, clientID int64) (export.Table, error)

func (s *FlowService) prepareClientFlow(ctx context.Context, flow string, req ClientRequest, build clientBuild) (*Run, buildFunc, error) {
	if _, ok := s.settings.Flows[flow]; !ok {
		return nil, nil, fmt.Errorf("flow %s is not configured", flow)
	}
	env, err := s.deps.Catalog.Environment(req.Env)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.deps.Catalog.ResolveClient(ctx, env.Name, req.ClientID, req.Client)
	if err != nil {
		return nil, nil, err
	}

	run := s.deps.Tracker.Create(ctx, flow, env.Name, client.Name, req.User)
	return run, func(ctx context.Context, run *Run) (export.Table, error) {
		return build(ctx, run, env, client.ID)
	}, nil
}

func (s *FlowService) prepareAmeyo(ctx context.Context, req AmeyoRequest) (*Run, error) {
	if _, ok := s.settings.Flows[config.FlowAmeyo]; !ok {
		return nil, fmt.Errorf("flow %s is not configured", config.FlowAmeyo)
	}
	if req.Database == "" {
		return nil, fmt.Errorf("%w: database is required", ErrUnknownClient)
	}
	return s.deps.Tracker.Create(ctx, config.FlowAmeyo, "", req.Database, req.User), nil
}

// execute drives a run through fetch, consolidate, bundle and transfer and
// records the outcome. No data ends the run without an error status.
func (s *FlowService) execute(ctx context.Context, run *Run, build buildFunc) error {
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("flow", run.Flow),
		zap.String("env", run.Env),
		zap.String("client", run.Client),
	)
	started := s.now()
	s.deps.Tracker.Progress(ctx, run, StageFetch, 0)

	table, err := build(ctx, run)
	if errors.Is(err, ErrNoData) {
		log.Info("run finished without data", zap.Error(err))
		s.deps.Tracker.NoData(ctx, run, err.Error())
		return err
	}
	if err != nil {
		return s.fail(ctx, log, run, err)
	}

	flow := s.settings.Flows[run.Flow]
	at := s.now()

	s.deps.Tracker.Progress(ctx, run, StageBundle, 80)
	archive, err := export.BuildArchive(table, export.FileBase(run.Client, at), flow.ChunkSize)
	if err != nil {
		return s.fail(ctx, log, run, stageErr(StageBundle, err))
	}

	s.deps.Tracker.Progress(ctx, run, StageTransfer, 90)
	dir := export.RemoteDir(flow.BasePath, at, flow.FolderFor(run.Env), run.Client)
	res, err := s.deps.Publisher.Publish(ctx, run.Flow, dir, archive)
	if err != nil {
		return s.fail(ctx, log, run, stageErr(StageTransfer, err))
	}

	s.deps.Tracker.Complete(ctx, run, res)
	log.Info("run completed",
		zap.String("archive", archive.Name),
		zap.Int("rows", archive.Rows),
		zap.Int("parts", len(archive.Parts)),
		zap.Int("delivered", res.Delivered()),
		zap.Duration("took", s.now().Sub(started)),
	)
	return nil
}

func (s *FlowService) fail(ctx context.Context, log *zap.Logger, run *Run, err error) error {
	log.Error("run failed", zap.Error(err))
	s.deps.Tracker.Fail(ctx, run, err)
	return err
}

func (s *FlowService) reporter(ctx context.Context, run *Run, stage Stage, from, to float64) func(done, total int) {
	return func(done, total int) {
		s.deps.Tracker.Progress(ctx, run, stage, span(from, to, done, total))
	}
}

// optional turns a failed side query into an absent set.
func optional[T any](log *zap.Logger, name string, rows []T, err error) []T {
	if err != nil {
		log.Warn("side query failed, continuing without it", zap.String("set", name), zap.Error(err))
		return nil
	}
	return rows
}

func (s *FlowService) activeIDs(ctx context.Context, src VolareSource, clientID int64) ([]string, error) {
	ids, err := src.ActiveDebtorIDs(ctx, clientID)
	if err != nil {
		return nil, stageErr(StageFetch, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no active debtors", ErrNoData)
	}
	return ids, nil
}

func (s *FlowService) buildLeads(ctx context.Context, run *Run, env config.Environment, clientID int64) (export.Table, error) {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("client", run.Client))

	m, err := s.deps.Mappings.Load(run.Client)
	if err != nil {
		return export.Table{}, stageErr(StageFetch, err)
	}

	src, err := s.deps.OpenVolare(ctx, env)
	if err != nil {
		return export.Table{}, stageErr(StageFetch, err)
	}
	defer src.Close()

	ids, err := s.activeIDs(ctx, src, clientID)
	if err != nil {
		return export.Table{}, err
	}
	log.Info("active debtors", zap.Int("count", len(ids)))

	size := s.settings.IDChunkSize
	records, err := fetchChunks(ctx, ids, size, func(ctx context.Context, chunk []string) ([]domain.DebtorRecord, error) {
		return src.Info(ctx, clientID, m, chunk)
	}, s.reporter(ctx, run, StageFetch, 0, 30))
	if err != nil {
		return export.Table{}, stageErr(StageFetch, fmt.Errorf("info: %w", err))
	}
	if len(records) == 0 {
		return export.Table{}, fmt.Errorf("%w: info query returned no rows", ErrNoData)
	}

	contacts, err := fetchChunks(ctx, ids, size, func(ctx context.Context, chunk []string) ([]domain.ContactEntry, error) {
		return src.Contacts(ctx, clientID, chunk)
	}, s.reporter(ctx, run, StageFetch, 30, 40))
	contacts = optional(log, "contacts", contacts, err)

	addresses, err := fetchChunks(ctx, ids, size, func(ctx context.Context, chunk []string) ([]domain.AddressEntry, error) {
		return src.Addresses(ctx, clientID, chunk)
	}, s.reporter(ctx, run, StageFetch, 40, 50))
	addresses = optional(log, "addresses", addresses, err)

	events, err := fetchChunks(ctx, ids, s.settings.DispositionChunkSize, func(ctx context.Context, chunk []string) ([]domain.DispositionEvent, error) {
		return src.Dispositions(ctx, clientID, chunk, s.settings.DispositionDepth)
	}, s.reporter(ctx, run, StageFetch, 50, 65))
	events = optional(log, "dispositions", events, err)

	s.deps.Tracker.Progress(ctx, run, StageConsolidate, 70)
	res := s.consolidator.Consolidate(pipeline.Input{
		Records:      records,
		Contacts:     contacts,
		Addresses:    addresses,
		Dispositions: events,
		Mapping:      m,
	})
	if len(res.Rows) == 0 {
		return export.Table{}, fmt.Errorf("%w: nothing to consolidate", ErrNoData)
	}
	log.Info("consolidated",
		zap.Int("rows", len(res.Rows)),
		zap.Int("duplicate_ids", res.Stats.DuplicateIDs),
		zap.Int("filtered_events", res.Stats.FilteredEvents),
		zap.Int("discarded_phone_tokens", res.Stats.Phone.DiscardedTokens),
		zap.Int("unparseable_dates", res.Stats.Dates.UnparseableDates),
	)

	table := export.Table{Header: pipeline.ExportColumns, Rows: make([][]string, 0, len(res.Rows))}
	for _, row := range res.Rows {
		table.Rows = append(table.Rows, row.Values())
	}
	return table, nil
}

func (s *FlowService) buildEfforts(ctx context.Context, run *Run, env config.Environment, clientID int64) (export.Table, error) {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("client", run.Client))

	src, err := s.deps.OpenVolare(ctx, env)
	if err != nil {
		return export.Table{}, stageErr(StageFetch, err)
	}
	defer src.Close()

	ids, err := s.activeIDs(ctx, src, clientID)
	if err != nil {
		return export.Table{}, err
	}

	events, err := fetchChunks(ctx, ids, s.settings.DispositionChunkSize, func(ctx context.Context, chunk []string) ([]domain.DispositionEvent, error) {
		return src.Dispositions(ctx, clientID, chunk, s.settings.DispositionDepth)
	}, s.reporter(ctx, run, StageFetch, 0, 60))
	if err != nil {
		return export.Table{}, stageErr(StageFetch, fmt.Errorf("dispositions: %w", err))
	}

	s.deps.Tracker.Progress(ctx, run, StageConsolidate, 70)
	var stats pipeline.DateStats
	rows := pipeline.FlattenEfforts(events, s.deps.Filter, &stats)
	if len(rows) == 0 {
		return export.Table{}, fmt.Errorf("%w: no efforts left after cleaning", ErrNoData)
	}
	log.Info("efforts cleaned",
		zap.Int("events", len(events)),
		zap.Int("kept", len(rows)),
		zap.Int("unparseable_dates", stats.UnparseableDates),
	)

	table := export.Table{Header: pipeline.EffortColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.Values())
	}
	return table, nil
}

func (s *FlowService) buildAmeyo(ctx context.Context, run *Run) (export.Table, error) {
	src, err := s.deps.OpenCallCenter(ctx, run.Client)
	if err != nil {
		return export.Table{}, stageErr(StageFetch, err)
	}
	defer src.Close()

	rows, err := src.CustomerHistory(ctx)
	if err != nil {
		return export.Table{}, stageErr(StageFetch, err)
	}
	if len(rows) == 0 {
		return export.Table{}, fmt.Errorf("%w: customer_history is empty", ErrNoData)
	}
	s.deps.Tracker.Progress(ctx, run, StageConsolidate, 70)

	table := export.Table{Header: domain.CallHistoryColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.Values())
	}
	return table, nil
}

package indexer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/logging"
	"github.com/user/signalhub/internal/scoring"
)

const defaultEnrichTimeout = 20 * time.Second

// ItemStore is the persistence the pipeline writes through.
type ItemStore interface {
	Get(ctx context.Context, id string) (*db.Item, error)
	Put(ctx context.Context, it *db.Item) (db.UpsertResult, error)
	RecordRun(ctx context.Context, run *db.Run) error
}

// Record is one raw record together with the collector that produced it.
type Record struct {
	Source string
	Raw    db.RawRecord
}

// Status is the terminal state of a record in a batch.
type Status string

const (
	StatusStored  Status = "stored"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Outcome reports what happened to one record.
type Outcome struct {
	Index       int     `json:"index"`
	Source      string  `json:"source"`
	ItemID      string  `json:"item_id,omitempty"`
	URL         string  `json:"url,omitempty"`
	Title       string  `json:"title,omitempty"`
	Status      Status  `json:"status"`
	Inserted    bool    `json:"inserted"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason,omitempty"`
	EnrichError string  `json:"enrich_error,omitempty"`
}

// BatchReport summarizes one Run.
type BatchReport struct {
	RunID      string    `json:"run_id"`
	Keyword    string    `json:"keyword,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stored     int       `json:"stored"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (r *BatchReport) add(o Outcome) {
	switch o.Status {
	case StatusStored:
		r.Stored++
		if o.Inserted {
			r.Inserted++
		}
	case StatusSkipped:
		r.Skipped++
	case StatusError:
		r.Errored++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Options wires a Pipeline.
type Options struct {
	Store    ItemStore
	Enricher Enricher
	Weights  scoring.Weights
	// Keywords always count as keyword matches, besides the run keyword.
	Keywords      []string
	EnrichTimeout time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// Pipeline runs normalize, enrich, score and store over a batch.
type Pipeline struct {
	store         ItemStore
	enricher      Enricher
	weights       scoring.Weights
	keywords      []string
	enrichTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewPipeline validates the weights up front so a bad configuration stops
// the run before any record is touched.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:         opts.Store,
		enricher:      opts.Enricher,
		weights:       opts.Weights,
		keywords:      opts.Keywords,
		enrichTimeout: opts.EnrichTimeout,
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if p.enricher == nil {
		p.enricher = NullEnricher{}
	}
	if p.enrichTimeout <= 0 {
		p.enrichTimeout = defaultEnrichTimeout
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	p.logger = p.logger.With("component", "pipeline")
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Run processes records in input order. One record's failure never stops
// the batch; only cancellation of ctx ends it early, in which case the
// partial report is returned with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, records []Record, keyword string) (*BatchReport, error) {
	report := &BatchReport{Keyword: keyword, StartedAt: p.now().UTC()}
	in := p.scoringInput(keyword)

	var runErr error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		in.Now = p.now().UTC()
		o := p.process(ctx, rec, in)
		o.Index = i
		report.add(o)

		switch o.Status {
		case StatusSkipped:
			p.logger.Info("record skipped", "index", i, "source", o.Source, "reason", o.Reason)
		case StatusError:
			p.logger.Error("record failed", "index", i, "source", o.Source, "item_id", o.ItemID, "reason", o.Reason)
		}
	}
	report.FinishedAt = p.now().UTC()

	run := &db.Run{
		Keyword:    keyword,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Stored:     report.Stored,
		Skipped:    report.Skipped,
		Errored:    report.Errored,
	}
	if err := p.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("failed to record run", "error", err)
	}
	report.RunID = run.ID

	p.logger.Info("batch complete",
		"keyword", keyword,
		"records", len(records),
		"stored", report.Stored,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"errored", report.Errored,
	)
	return report, runErr
}

func (p *Pipeline) process(ctx context.Context, rec Record, in scoring.Input) Outcome {
	o := Outcome{Source: rec.Source}
	if o.Source == "" {
		o.Source = rec.Raw.Source()
	}

	it, err := Normalize(rec.Raw, rec.Source, in.Now)
	if err != nil {
		o.Status = StatusSkipped
		o.Reason = err.Error()
		return o
	}
	o.ItemID, o.URL, o.Title, o.Source = it.ID, it.URL, it.Title, it.Source

	// A re-observed item keeps its discovery time, which also drives recency.
	if existing, err := p.store.Get(ctx, it.ID); err == nil {
		it.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, db.ErrNotFound) {
		p.logger.Debug("lookup before store failed", "item_id", it.ID, "error", err)
	}

	it, err = p.Enrich(ctx, it)
	if err != nil {
		o.EnrichError = err.Error()
	}

	scoring.Apply(&it, p.weights, in)
	o.Score = it.ScoreValue()

	res, err := p.store.Put(ctx, &it)
	if err != nil {
		o.Status = StatusError
		o.Reason = err.Error()
		return o
	}
	o.Status = StatusStored
	o.Inserted = res.Inserted
	return o
}

// Enrich runs the enricher under the per-item timeout. On failure or
// timeout the item comes back with whatever metrics survived and an
// EnrichmentError; identity, content and timestamps are always preserved.
func (p *Pipeline) Enrich(ctx context.Context, it db.Item) (db.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, p.enrichTimeout)
	defer cancel()

	type result struct {
		it  db.Item
		err error
	}
	done := make(chan result, 1)
	in := it.Clone()
	go func() {
		out, err := p.enricher.Enrich(ctx, in)
		done <- result{out, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = result{err: ctx.Err()}
	}

	if r.err != nil {
		var enrichErr *EnrichmentError
		if !errors.As(r.err, &enrichErr) {
			enrichErr = &EnrichmentError{Provider: p.enricher.Name(), ItemID: it.ID, Err: r.err}
		}
		p.logger.Warn("enrichment failed", "item_id", it.ID, "provider", enrichErr.Provider, "error", enrichErr.Err)
		if r.it.ID == it.ID {
			return preserveIdentity(it, r.it), enrichErr
		}
		return it, enrichErr
	}
	return preserveIdentity(it, r.it), nil
}

// Score recomputes score and breakdown in place for the run keyword.
func (p *Pipeline) Score(it *db.Item, keyword string) {
	in := p.scoringInput(keyword)
	in.Now = p.now().UTC()
	scoring.Apply(it, p.weights, in)
}

// Refresh re-enriches (optionally), rescores and stores an existing item.
// An enrichment failure does not stop the store; it comes back as the second
// result so callers can report it.
func (p *Pipeline) Refresh(ctx context.Context, it *db.Item, keyword string, enrich bool) (db.UpsertResult, *EnrichmentError, error) {
	var enrichErr *EnrichmentError
	if enrich {
		var err error
		*it, err = p.Enrich(ctx, *it)
		if err != nil && !errors.As(err, &enrichErr) {
			enrichErr = &EnrichmentError{Provider: p.enricher.Name(), ItemID: it.ID, Err: err}
		}
	}
	p.Score(it, keyword)
	res, err := p.store.Put(ctx, it)
	return res, enrichErr, err
}

func (p *Pipeline) scoringInput(keyword string) scoring.Input {
	kws := make([]string, 0, len(p.keywords)+1)
	if keyword != "" {
		kws = append(kws, keyword)
	}
	return scoring.Input{Keywords: append(kws, p.keywords...)}
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ppiankov/hazardscore/internal/classify"
	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/score"
	"github.com/ppiankov/hazardscore/internal/store"
)

// Breakdown reasons for reports that skip aggregation
const (
	ReasonTrivial    = score.IgnoreReason
	ReasonClassifier = "classifier marked report as ignore"
)

// Pipeline runs a submission through classification, storage and scoring
type Pipeline struct {
	classifier classify.Classifier
	repo       store.Repository
	scorer     *score.Scorer
	threshold  float64
	metrics    *Metrics
	now        func() time.Time
	logger     *slog.Logger
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithClock overrides the time source used for timestamps and decay
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger (defaults to slog.Default)
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics replaces the instruments (defaults to the global meter provider)
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a new pipeline with the given configuration and collaborators
func NewPipeline(cfg *model.Config, repo store.Repository, classifier classify.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		repo:       repo,
		scorer:     score.NewScorer(score.ConfigFromModel(cfg.Scoring), nil),
		threshold:  cfg.Scoring.DashboardThreshold,
		metrics:    NewMetrics(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit classifies, stores and scores one submission
func (p *Pipeline) Submit(ctx context.Context, sub model.Submission) (*model.SubmitResult, error) {
	// 1. Classify text
	pred, err := p.classifier.Classify(ctx, sub.Text)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	category := pred.Category
	confidence := pred.MaxConfidence()
	reason := ""
	if category == model.HazardIgnore {
		confidence = 0
		reason = ReasonClassifier
	}

	// 2. Trivial pre-check may force ignore
	if pre, overridden := classify.PreCheck(pred, sub.Text, p.scorer.Keywords()); overridden {
		category = pre.Category
		confidence = pre.MaxConfidence()
		reason = ReasonTrivial
	}

	// 3. Persist provisional report
	report := model.Report{
		UserID:     sub.UserID,
		Text:       sub.Text,
		HazardType: category,
		Lat:        sub.Lat,
		Lon:        sub.Lon,
		Score:      confidence,
		Phase:      model.PhaseProvisional,
		Timestamp:  p.now().UTC(),
	}
	if err := p.repo.Create(ctx, &report); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	p.metrics.recordSubmission(ctx, category)

	// 4. Ignored reports skip aggregation entirely
	if report.Ignored() {
		if err := p.repo.Finalize(ctx, report.ID, 0); err != nil {
			return nil, fmt.Errorf("finalize report %d: %w", report.ID, err)
		}
		p.metrics.recordIgnored(ctx, reason)
		p.logger.Info("report ignored", "id", report.ID, "user", report.UserID, "reason", reason)

		return &model.SubmitResult{
			ID:         report.ID,
			HazardType: model.HazardIgnore,
			Score:      0,
			Breakdown:  map[string]any{"reason": reason},
			Phase:      model.PhaseFinal,
		}, nil
	}

	// 5. Aggregate against current history and finalize
	result := p.score(ctx, report)
	if err := p.repo.Finalize(ctx, report.ID, result.Score); err != nil {
		return nil, fmt.Errorf("finalize report %d: %w", report.ID, err)
	}
	p.metrics.recordScore(ctx, category, result.Score)

	p.logger.Info("report scored",
		"id", report.ID,
		"user", report.UserID,
		"hazard_type", category,
		"score", result.Score,
	)

	return &model.SubmitResult{
		ID:         report.ID,
		HazardType: category,
		Score:      result.Score,
		Breakdown:  breakdownMap(result.Breakdown),
		Phase:      model.PhaseFinal,
		Signals:    result.Signals,
	}, nil
}

// Rescore recomputes the score of a stored report against current history.
// The classifier is re-run to recover the confidence the provisional score held.
func (p *Pipeline) Rescore(ctx context.Context, id int64) (*model.SubmitResult, error) {
	report, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load report %d: %w", id, err)
	}

	if report.Ignored() {
		return &model.SubmitResult{
			ID:         report.ID,
			HazardType: model.HazardIgnore,
			Score:      0,
			Breakdown:  map[string]any{"reason": p.ignoreReason(report.Text)},
			Phase:      report.Phase,
		}, nil
	}

	pred, err := p.classifier.Classify(ctx, report.Text)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	report.Score = pred.MaxConfidence()

	result := p.score(ctx, *report)
	if err := p.repo.Finalize(ctx, report.ID, result.Score); err != nil {
		return nil, fmt.Errorf("finalize report %d: %w", report.ID, err)
	}

	p.logger.Info("report rescored", "id", report.ID, "score", result.Score)

	return &model.SubmitResult{
		ID:         report.ID,
		HazardType: report.HazardType,
		Score:      result.Score,
		Breakdown:  breakdownMap(result.Breakdown),
		Phase:      model.PhaseFinal,
		Signals:    result.Signals,
	}, nil
}

// Dashboard returns the reports currently surfaced at the configured threshold
func (p *Pipeline) Dashboard(ctx context.Context) ([]model.DashboardEntry, error) {
	reports, err := p.repo.Dashboard(ctx, p.threshold)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	entries := make([]model.DashboardEntry, 0, len(reports))
	for _, r := range reports {
		entries = append(entries, model.NewDashboardEntry(r))
	}
	return entries, nil
}

// Ready reports whether the classifier is configured and reachable
func (p *Pipeline) Ready(ctx context.Context) bool {
	return p.classifier.IsAvailable(ctx)
}

// ignoreReason recovers why a stored report was ignored. The trivial
// pre-check depends only on text, so anything else came from the classifier.
func (p *Pipeline) ignoreReason(text string) string {
	if p.scorer.Keywords().HasTrivial(text) {
		return ReasonTrivial
	}
	return ReasonClassifier
}

// score gathers history and runs the scorer. Read failures never abort:
// missing history degrades to the solo-reporter case and a failed count
// assumes full spam penalty, both of which can only lower the score.
func (p *Pipeline) score(ctx context.Context, report model.Report) score.Result {
	history, err := p.repo.ByHazardType(ctx, report.HazardType)
	if err != nil {
		p.logger.Warn("load same-category reports", "id", report.ID, "error", err)
		history = nil
	}

	count, err := p.repo.CountByUser(ctx, report.UserID)
	if err != nil {
		p.logger.Warn("count user reports", "id", report.ID, "error", err)
		count = math.MaxInt32
	}

	return p.scorer.Calculate(score.Input{
		Report:       report,
		SameCategory: history,
		UserReports:  count,
		Now:          p.now(),
	})
}

func breakdownMap(b score.Breakdown) map[string]any {
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

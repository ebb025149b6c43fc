package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ppiankov/hazardscore/internal/classify"
	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/store"
)

// stubClassifier returns a fixed prediction
type stubClassifier struct {
	category    string
	confidence  float64
	err         error
	unavailable bool
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) IsAvailable(ctx context.Context) bool { return !s.unavailable }

func (s *stubClassifier) Classify(ctx context.Context, text string) (*classify.Prediction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &classify.Prediction{
		Category:   s.category,
		Confidence: map[string]float64{s.category: s.confidence, "other": 1 - s.confidence},
	}, nil
}

// failingRepo makes the history reads fail
type failingRepo struct {
	store.Repository
}

func (f *failingRepo) ByHazardType(ctx context.Context, hazardType string) ([]model.Report, error) {
	return nil, errors.New("disk on fire")
}

func (f *failingRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	return 0, errors.New("disk on fire")
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func newTestPipeline(repo store.Repository, c classify.Classifier) (*Pipeline, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return NewPipeline(model.DefaultConfig(), repo, c, WithClock(clock.Now)), clock
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func floatOf(t *testing.T, b map[string]any, key string) float64 {
	t.Helper()
	v, ok := b[key].(float64)
	if !ok {
		t.Fatalf("breakdown[%q] missing or not a float: %v", key, b[key])
	}
	return v
}

func TestPipeline_Submit_FirstReport(t *testing.T) {
	repo := store.NewMemoryRepository()
	p, _ := newTestPipeline(repo, &stubClassifier{category: "flood", confidence: 0.8})

	res, err := p.Submit(context.Background(), model.Submission{UserID: "u1", Text: "Flood in city area", Lat: 19.07, Lon: 72.87})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if res.HazardType != "flood" || res.Phase != model.PhaseFinal {
		t.Errorf("Unexpected result: %+v", res)
	}
	if !approx(res.Score, 0.66) {
		t.Errorf("Expected score 0.66, got %v", res.Score)
	}
	if !approx(floatOf(t, res.Breakdown, "consensus"), 0.2) {
		t.Errorf("Expected consensus 0.2, got %v", res.Breakdown["consensus"])
	}
	for _, key := range []string{"ml_confidence", "consensus", "spam_penalty", "keyword_score", "time_decay"} {
		if _, ok := res.Breakdown[key]; !ok {
			t.Errorf("Expected breakdown key %s", key)
		}
	}
	if len(res.Signals) != 5 {
		t.Fatalf("Expected 5 signals, got %+v", res.Signals)
	}
	for i, key := range []string{"ml_confidence", "consensus", "spam_penalty", "keyword_score", "time_decay"} {
		if res.Signals[i].Component != key || res.Signals[i].Description == "" {
			t.Errorf("Signal %d: expected described %s, got %+v", i, key, res.Signals[i])
		}
	}

	stored, err := repo.Get(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !approx(stored.Score, 0.66) || stored.Phase != model.PhaseFinal {
		t.Errorf("Expected stored final score 0.66, got %+v", stored)
	}
}

func TestPipeline_Submit_TrivialPreCheck(t *testing.T) {
	repo := store.NewMemoryRepository()
	p, _ := newTestPipeline(repo, &stubClassifier{category: "flood", confidence: 0.9})

	res, err := p.Submit(context.Background(), model.Submission{UserID: "u1", Text: "a stone on the road", Lat: 1, Lon: 1})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if res.HazardType != model.HazardIgnore || res.Score != 0 {
		t.Errorf("Expected ignored report with score 0, got %+v", res)
	}
	if res.Breakdown["reason"] != ReasonTrivial || len(res.Breakdown) != 1 {
		t.Errorf("Expected only a reason in breakdown, got %v", res.Breakdown)
	}

	entries, _ := p.Dashboard(context.Background())
	if len(entries) != 0 {
		t.Errorf("Expected ignored report hidden from dashboard, got %+v", entries)
	}
}

func TestPipeline_Submit_ClassifierIgnore(t *testing.T) {
	p, _ := newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: model.HazardIgnore, confidence: 0.95})

	res, err := p.Submit(context.Background(), model.Submission{UserID: "u1", Text: "nice sunset"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Score != 0 || res.Breakdown["reason"] != ReasonClassifier {
		t.Errorf("Expected classifier ignore, got %+v", res)
	}
}

func TestPipeline_Submit_Consensus(t *testing.T) {
	p, _ := newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: "flood", confidence: 0.8})
	ctx := context.Background()

	// Ignored reports at the same spot never corroborate
	for i := 0; i < 3; i++ {
		if _, err := p.Submit(ctx, model.Submission{UserID: fmt.Sprintf("litter-%d", i), Text: "plastic garbage", Lat: 10, Lon: 10}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	var last *model.SubmitResult
	for i, user := range []string{"alice", "bob", "alice", "carol"} {
		res, err := p.Submit(ctx, model.Submission{UserID: user, Text: "flood water rising", Lat: 10 + float64(i)*0.001, Lon: 10})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		last = res
	}

	// alice, bob, carol
	if !approx(floatOf(t, last.Breakdown, "consensus"), 0.6) {
		t.Errorf("Expected consensus 0.6, got %v", last.Breakdown["consensus"])
	}

	// A distant report gets no corroboration
	far, _ := p.Submit(ctx, model.Submission{UserID: "dave", Text: "flood water rising", Lat: 40, Lon: 10})
	if !approx(floatOf(t, far.Breakdown, "consensus"), 0.2) {
		t.Errorf("Expected distant report consensus 0.2, got %v", far.Breakdown["consensus"])
	}
}

func TestPipeline_Submit_SpamPenalty(t *testing.T) {
	p, _ := newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: "flood", confidence: 0.8})
	ctx := context.Background()

	var res *model.SubmitResult
	for i := 0; i < 14; i++ {
		var err error
		res, err = p.Submit(ctx, model.Submission{UserID: "spammer", Text: "Flood in city area", Lat: 5, Lon: 5})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if i == 3 && floatOf(t, res.Breakdown, "spam_penalty") != 0.1 {
			t.Errorf("Expected 4th report penalty 0.1, got %v", res.Breakdown["spam_penalty"])
		}
	}

	if floatOf(t, res.Breakdown, "spam_penalty") != 1.0 {
		t.Errorf("Expected full spam penalty, got %v", res.Breakdown["spam_penalty"])
	}
	// Self-corroboration does not help: consensus stays 1/5
	if !approx(res.Score, 0.46) {
		t.Errorf("Expected score 0.46, got %v", res.Score)
	}
}

func TestPipeline_Submit_ClassifierError(t *testing.T) {
	repo := store.NewMemoryRepository()
	p, _ := newTestPipeline(repo, &stubClassifier{err: errors.New("model offline")})

	if _, err := p.Submit(context.Background(), model.Submission{UserID: "u", Text: "flood"}); err == nil {
		t.Fatal("Expected classifier error")
	}
	if n, _ := repo.CountByUser(context.Background(), "u"); n != 0 {
		t.Errorf("Expected no report stored, got %d", n)
	}
}

func TestPipeline_Submit_HistoryReadFailure(t *testing.T) {
	repo := &failingRepo{Repository: store.NewMemoryRepository()}
	p, _ := newTestPipeline(repo, &stubClassifier{category: "flood", confidence: 0.8})

	res, err := p.Submit(context.Background(), model.Submission{UserID: "u", Text: "Flood in city area"})
	if err != nil {
		t.Fatalf("Expected scoring to survive read failures, got %v", err)
	}
	// Solo consensus and full spam penalty: 0.4 + 0.06 - 0.2 + 0.2
	if !approx(res.Score, 0.46) {
		t.Errorf("Expected conservative score 0.46, got %v", res.Score)
	}
}

func TestPipeline_Dashboard(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Scoring.DashboardThreshold = 0.5
	clock := &fixedClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := NewPipeline(cfg, store.NewMemoryRepository(), &stubClassifier{category: "flood", confidence: 0.8}, WithClock(clock.Now))
	ctx := context.Background()

	high, _ := p.Submit(ctx, model.Submission{UserID: "a", Text: "Flood in city area", Lat: 1, Lon: 2}) // 0.66
	_, _ = p.Submit(ctx, model.Submission{UserID: "b", Text: "meh", Lat: 50, Lon: 50})                 // 0.36

	entries, err := p.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != high.ID {
		t.Fatalf("Expected only report %d, got %+v", high.ID, entries)
	}
	if entries[0].Timestamp != "2025-06-01T09:00:00Z" {
		t.Errorf("Expected ISO-8601 timestamp, got %s", entries[0].Timestamp)
	}
	if entries[0].Lat == nil || *entries[0].Lat != 1 || entries[0].Lon == nil || *entries[0].Lon != 2 || entries[0].HazardType != "flood" {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
}

func TestPipeline_Rescore_AppliesDecay(t *testing.T) {
	repo := store.NewMemoryRepository()
	p, clock := newTestPipeline(repo, &stubClassifier{category: "flood", confidence: 0.8})
	ctx := context.Background()

	res, _ := p.Submit(ctx, model.Submission{UserID: "u1", Text: "Flood in city area", Lat: 1, Lon: 1})

	clock.t = clock.t.Add(30 * time.Hour)
	rescored, err := p.Rescore(ctx, res.ID)
	if err != nil {
		t.Fatalf("Rescore failed: %v", err)
	}
	if floatOf(t, rescored.Breakdown, "time_decay") != -0.2 {
		t.Errorf("Expected time decay -0.2, got %v", rescored.Breakdown["time_decay"])
	}
	if !approx(rescored.Score, 0.46) {
		t.Errorf("Expected 0.46 after decay, got %v", rescored.Score)
	}
	if len(rescored.Signals) != 5 {
		t.Errorf("Expected rescore to carry signals, got %+v", rescored.Signals)
	}

	if _, err := p.Rescore(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPipeline_Rescore_IgnoreReason(t *testing.T) {
	ctx := context.Background()

	p, _ := newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: model.HazardIgnore, confidence: 0.95})
	res, _ := p.Submit(ctx, model.Submission{UserID: "u1", Text: "my neighbour is loud", Lat: 1, Lon: 1})
	rescored, err := p.Rescore(ctx, res.ID)
	if err != nil {
		t.Fatalf("Rescore failed: %v", err)
	}
	if rescored.Breakdown["reason"] != ReasonClassifier {
		t.Errorf("Expected classifier reason, got %v", rescored.Breakdown["reason"])
	}
	if rescored.Signals != nil {
		t.Errorf("Expected no signals for ignored report, got %+v", rescored.Signals)
	}

	p, _ = newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: "flood", confidence: 0.9})
	res, _ = p.Submit(ctx, model.Submission{UserID: "u1", Text: "plastic garbage on the beach", Lat: 1, Lon: 1})
	rescored, err = p.Rescore(ctx, res.ID)
	if err != nil {
		t.Fatalf("Rescore failed: %v", err)
	}
	if rescored.Breakdown["reason"] != ReasonTrivial {
		t.Errorf("Expected trivial reason, got %v", rescored.Breakdown["reason"])
	}
}

func TestPipeline_Ready(t *testing.T) {
	p, _ := newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: "flood"})
	if !p.Ready(context.Background()) {
		t.Error("Expected ready with an available classifier")
	}

	p, _ = newTestPipeline(store.NewMemoryRepository(), &stubClassifier{category: "flood", unavailable: true})
	if p.Ready(context.Background()) {
		t.Error("Expected not ready with an unreachable classifier")
	}
}

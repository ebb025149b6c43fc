package cli

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/hazardscore/internal/cache"
	"github.com/ppiankov/hazardscore/internal/classify"
	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/pipeline"
	"github.com/ppiankov/hazardscore/internal/store"
)

// app bundles the collaborators every scoring command needs
type app struct {
	repo       store.Repository
	classifier classify.Classifier
	pipeline   *pipeline.Pipeline
}

// newApp opens the store and builds the classifier and pipeline from c
func newApp(c *model.Config) (*app, error) {
	repo, err := store.Open(c.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clf, err := classify.New(classify.ConfigFromModel(c.Classifier))
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	// TTL 0 lets each cache layer apply its own configured expiry
	clf = classify.NewCachedClassifier(clf, cache.New(c.Cache), c.Classifier.Model, 0)

	slog.Debug("app ready",
		"store", c.Store.Driver,
		"classifier", clf.Name(),
		"threshold", c.Scoring.DashboardThreshold,
	)

	return &app{
		repo:       repo,
		classifier: clf,
		pipeline:   pipeline.NewPipeline(c, repo, clf, pipeline.WithLogger(slog.Default())),
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

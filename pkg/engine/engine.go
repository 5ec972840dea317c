// Package engine assembles the correction engine from configuration: the
// backend client, the session-scoped persisted cache, the feedback sink and
// the analysis orchestrator. Hosts embed an Engine per writing session.
package engine

import (
	"github.com/typixhq/typix/pkg/analysis"
	"github.com/typixhq/typix/pkg/config"
	"github.com/typixhq/typix/pkg/feedback"
	"github.com/typixhq/typix/pkg/logging"
	"github.com/typixhq/typix/pkg/model"
	"github.com/typixhq/typix/pkg/querycache"
	"github.com/typixhq/typix/pkg/storage"
)

// Engine bundles an analyzer with the resources it owns.
type Engine struct {
	Analyzer *analysis.Analyzer

	store *storage.Store
	sink  feedback.Sink
}

// Options overrides pieces of the assembly, mainly for embedding and tests.
type Options struct {
	// Corrector replaces the HTTP backend client when non-nil.
	Corrector model.Corrector
	// Feedback replaces the configured sink when non-nil.
	Feedback feedback.Sink
	Logger   *logging.Logger
}

// New builds an engine for one session from cfg. The session id scopes the
// persisted cache: entries written by other sessions are purged.
func New(cfg *config.Config, sessionID string, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	corrector := opts.Corrector
	if corrector == nil {
		corrector = model.NewClientWithOptions(cfg.Backend.APIKey, cfg.Backend.BaseURL, cfg.Backend.Model, model.ClientOptions{
			Timeout:   cfg.Backend.Timeout,
			RateLimit: cfg.Backend.RequestsPerSecond,
			Burst:     cfg.Backend.Burst,
			Logger:    logger,
		})
	}

	e := &Engine{}

	var cacheStore querycache.Store
	if cfg.Storage.Path != "" {
		store, err := storage.New(cfg.Storage.Path, sessionID)
		if err != nil {
			return nil, err
		}
		e.store = store
		cacheStore = store.KV(cfg.Storage.Namespace)
	}

	sink := opts.Feedback
	if sink == nil && cfg.Feedback.Enabled {
		natsSink, err := feedback.NewNATSSink(feedback.NATSConfig{
			URL:     cfg.Feedback.NATSURL,
			Subject: cfg.Feedback.Subject,
			Name:    "typix-" + sessionID,
		})
		if err != nil {
			// Feedback is best-effort; a missing broker must not block the
			// engine.
			logger.Log(logging.LevelWarn, logging.CategoryFeedback, "sink_unavailable", "", map[string]any{
				"error": err.Error(),
			})
		} else {
			sink = natsSink
			e.sink = natsSink
		}
	}

	e.Analyzer = analysis.New(corrector, analysis.Options{
		MinTextLength: cfg.Analysis.MinTextLength,
		StaleTime:     cfg.Analysis.StaleTime,
		Store:         cacheStore,
		Feedback:      sink,
		Logger:        logger,
	})
	return e, nil
}

// Close releases the resources the engine owns. Sinks and stores passed in
// through Options stay open; the caller owns those.
func (e *Engine) Close() error {
	var firstErr error
	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			firstErr = err
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

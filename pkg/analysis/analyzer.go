// Package analysis sequences full-document analysis, sentence-scoped
// re-analysis and issue-list maintenance for one watched text surface. The
// analyzer owns the surface's state exclusively; callers issue commands and
// observe snapshots. All externally visible failures degrade to "no new
// issues" so the typing flow is never interrupted.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/typixhq/typix/pkg/feedback"
	"github.com/typixhq/typix/pkg/logging"
	"github.com/typixhq/typix/pkg/model"
	"github.com/typixhq/typix/pkg/querycache"
	"github.com/typixhq/typix/pkg/sentence"
	"github.com/typixhq/typix/pkg/textdiff"
)

// DefaultMinTextLength is the threshold below which a surface is not worth
// analyzing; shorter texts clear any existing result instead.
const DefaultMinTextLength = 8

// DefaultStaleTime bounds how long a cached correction is considered fresh.
const DefaultStaleTime = 5 * time.Minute

// State is the per-surface analysis state. All issue offsets are relative
// to LastAnalyzedText.
type State struct {
	LastAnalyzedText string
	Issues           []textdiff.Issue
	IsAnalyzing      bool
	// RequestID correlates with the last completed backend query.
	RequestID string
}

// Analyzer owns the analysis state for one watched surface.
type Analyzer struct {
	corrector model.Corrector
	cache     *querycache.Cache[model.CorrectionResult]
	segmenter *sentence.Segmenter
	feedback  *feedback.Dispatcher
	logger    *logging.Logger

	minTextLength int
	staleTime     time.Duration

	mu    sync.Mutex
	state State
	// inFlight counts full-analysis cycles between issue and completion.
	inFlight int
	// issuedSeq/appliedSeq implement last-issued-wins: a completed analysis
	// applies only when nothing newer has completed and no user edit has
	// advanced the text in the meantime.
	issuedSeq  uint64
	appliedSeq uint64
}

// Options configures an Analyzer.
type Options struct {
	// MinTextLength below which analysis clears instead of querying.
	MinTextLength int
	// StaleTime for cached corrections.
	StaleTime time.Duration
	// Store backs the correction cache; nil keeps it in memory.
	Store querycache.Store
	// Segmenter for sentence-scoped re-analysis; nil uses the default.
	Segmenter *sentence.Segmenter
	// Feedback sink for accepted/dismissed fixes; nil disables feedback.
	Feedback feedback.Sink
	Logger   *logging.Logger
}

// New builds an analyzer over the given correction backend.
func New(corrector model.Corrector, opts Options) *Analyzer {
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Segmenter == nil {
		opts.Segmenter = sentence.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Analyzer{
		corrector:     corrector,
		cache:         querycache.New[model.CorrectionResult](opts.Store, querycache.WithLogger[model.CorrectionResult](logger)),
		segmenter:     opts.Segmenter,
		feedback:      feedback.NewDispatcher(opts.Feedback, logger),
		logger:        logger,
		minTextLength: opts.MinTextLength,
		staleTime:     opts.StaleTime,
	}
}

// Snapshot returns a copy of the current state.
func (a *Analyzer) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state
	st.IsAnalyzing = a.inFlight > 0
	st.Issues = make([]textdiff.Issue, len(a.state.Issues))
	copy(st.Issues, a.state.Issues)
	return st
}

// Analyze requests a full analysis of text. On success the issue list is
// replaced wholesale with the extracted issues and LastAnalyzedText
// advances to text. A result that completes after a newer analysis or a
// user edit has advanced the surface is discarded, never applied; issues
// the user already fixed or dismissed during the in-flight window cannot
// reappear. The returned error is informational: on failure the issue list
// is left unchanged.
func (a *Analyzer) Analyze(ctx context.Context, text string, reqCtx model.RequestContext) error {
	a.mu.Lock()
	if len(text) < a.minTextLength {
		a.clearLocked()
		a.mu.Unlock()
		return nil
	}
	a.issuedSeq++
	seq := a.issuedSeq
	a.inFlight++
	a.mu.Unlock()

	metricAnalysesStarted.Inc()
	result, err := a.correct(ctx, text, reqCtx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--

	if err != nil {
		// Neutral recovery: no new issues this round.
		metricBackendFailures.Inc()
		a.logger.Log(logging.LevelWarn, logging.CategoryAnalysis, "analysis_failed", "", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if seq <= a.appliedSeq {
		metricStaleDiscards.Inc()
		a.logger.LogEvent(logging.Event{
			Level:     logging.LevelInfo,
			Category:  logging.CategoryAnalysis,
			EventType: "stale_result_discarded",
			RequestID: result.RequestID,
		})
		return nil
	}

	a.appliedSeq = seq
	a.state.Issues = textdiff.Extract(text, result.Corrected)
	a.state.LastAnalyzedText = text
	a.state.RequestID = result.RequestID
	metricAnalysesApplied.Inc()
	metricActiveIssues.Set(float64(len(a.state.Issues)))
	return nil
}

// ClearResult empties the issue list and drops any pending correlation. An
// in-flight backend request is not cancelled; its eventual result is
// discarded by the staleness rule.
func (a *Analyzer) ClearResult() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
}

// OnSurfaceChanged resets all state when the watched surface changes
// identity. The next Analyze starts from scratch.
func (a *Analyzer) OnSurfaceChanged() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
	a.state.LastAnalyzedText = ""
}

// RemoveIssue removes one issue from the current list. No-op when absent.
// Reports whether an issue was removed.
func (a *Analyzer) RemoveIssue(issue textdiff.Issue) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.removeLocked(issue)
}

// DismissIssue removes the issue because the user rejected it. The
// remaining issues are not rebased: the text did not change. Best-effort
// feedback is dispatched with the user's current version of the span.
func (a *Analyzer) DismissIssue(issue textdiff.Issue, currentText string) {
	a.mu.Lock()
	removed := a.removeLocked(issue)
	requestID := a.state.RequestID
	count := len(a.state.Issues)
	a.mu.Unlock()

	if !removed {
		return
	}
	var userEdit string
	if issue.Start >= 0 && issue.End <= len(currentText) && issue.Start <= issue.End {
		userEdit = currentText[issue.Start:issue.End]
	}
	a.feedback.Dispatch(feedback.Event{
		RequestID:  requestID,
		IssueCount: count,
		Accepted:   feedback.Bool(false),
		UserEdit:   userEdit,
	})
}

// RebaseIssues recomputes the issue list after the surface text changed
// from previousText to currentText and advances LastAnalyzedText. Any full
// analysis still in flight for an older text version will be discarded when
// it completes.
func (a *Analyzer) RebaseIssues(previousText, currentText string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Issues = textdiff.Rebase(previousText, a.state.Issues, currentText)
	a.state.LastAnalyzedText = currentText
	a.appliedSeq = a.issuedSeq
	metricActiveIssues.Set(float64(len(a.state.Issues)))
}

// ReanalyzeOptions tunes ReanalyzeSentence.
type ReanalyzeOptions struct {
	// SkipIssueClear leaves existing issues inside the sentence range
	// untouched. Used when the caller already removed them (immediately
	// after an accepted fix) to avoid a clear-then-reinsert flicker.
	SkipIssueClear bool
}

// ReanalyzeSentence re-runs correction for one sentence of currentText and
// merges the resulting issues, shifted to document offsets, into the issue
// list. Existing issues whose span lies inside the sentence range are
// replaced unless SkipIssueClear is set. If the surface advanced past
// currentText while the request was in flight, the result is discarded.
func (a *Analyzer) ReanalyzeSentence(ctx context.Context, currentText string, r sentence.Range, reqCtx model.RequestContext, opts ReanalyzeOptions) error {
	if r.Start < 0 || r.End > len(currentText) || r.Start >= r.End {
		return nil
	}
	sub := currentText[r.Start:r.End]

	metricSentenceReanalyses.Inc()
	result, err := a.correct(ctx, sub, reqCtx)
	if err != nil {
		metricBackendFailures.Inc()
		a.logger.Log(logging.LevelWarn, logging.CategoryAnalysis, "sentence_reanalysis_failed", "", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	subIssues := textdiff.Extract(sub, result.Corrected)
	for i := range subIssues {
		subIssues[i].Start += r.Start
		subIssues[i].End += r.Start
		subIssues[i].SentenceAnchor += r.Start
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.LastAnalyzedText != "" && a.state.LastAnalyzedText != currentText {
		a.logger.Info(logging.CategoryAnalysis, "stale_sentence_discarded",
			"surface advanced past the reanalyzed text")
		return nil
	}
	if !opts.SkipIssueClear {
		kept := a.state.Issues[:0]
		for _, is := range a.state.Issues {
			if is.Start >= r.Start && is.End <= r.End {
				continue
			}
			kept = append(kept, is)
		}
		a.state.Issues = kept
	}
	a.state.Issues = append(a.state.Issues, subIssues...)
	a.state.LastAnalyzedText = currentText
	a.state.RequestID = result.RequestID
	metricActiveIssues.Set(float64(len(a.state.Issues)))
	return nil
}

// OnFixApplied handles the user accepting an issue: the issue leaves the
// list, the remaining issues are rebased from previousText onto
// currentText, feedback is dispatched, and the sentence owning the fix is
// re-analyzed without clearing (the fixed issue is already gone).
func (a *Analyzer) OnFixApplied(ctx context.Context, fixed textdiff.Issue, previousText, currentText string, reqCtx model.RequestContext) error {
	a.mu.Lock()
	a.removeLocked(fixed)
	requestID := a.state.RequestID
	count := len(a.state.Issues)
	a.mu.Unlock()

	a.RebaseIssues(previousText, currentText)

	a.feedback.Dispatch(feedback.Event{
		RequestID:  requestID,
		IssueCount: count,
		Accepted:   feedback.Bool(true),
	})

	anchor := fixed.SentenceAnchor
	if anchor >= len(currentText) {
		anchor = len(currentText) - 1
	}
	if anchor < 0 {
		return nil
	}
	ranges := a.segmenter.Ranges(currentText)
	owning, ok := sentence.FindSentenceAt(ranges, anchor)
	if !ok {
		return nil
	}
	return a.ReanalyzeSentence(ctx, currentText, owning, reqCtx, ReanalyzeOptions{SkipIssueClear: true})
}

// Cache exposes the underlying correction cache, e.g. for prefix
// invalidation when a page unloads.
func (a *Analyzer) Cache() *querycache.Cache[model.CorrectionResult] {
	return a.cache
}

func (a *Analyzer) correct(ctx context.Context, text string, reqCtx model.RequestContext) (model.CorrectionResult, error) {
	// Tone and instruction are tagged so an empty one cannot make two
	// different requests collapse onto the same storage key.
	key := querycache.Key{"fix", "tone:" + reqCtx.Tone, "instr:" + reqCtx.Instruction, text}
	return a.cache.Fetch(ctx, key, func(ctx context.Context) (model.CorrectionResult, error) {
		result, err := a.corrector.Correct(ctx, model.CorrectionRequest{Text: text, Context: reqCtx})
		if err != nil {
			return model.CorrectionResult{}, err
		}
		return *result, nil
	}, a.staleTime)
}

func (a *Analyzer) clearLocked() {
	a.state.Issues = nil
	a.state.RequestID = ""
	a.appliedSeq = a.issuedSeq
	metricActiveIssues.Set(0)
}

func (a *Analyzer) removeLocked(issue textdiff.Issue) bool {
	for i, is := range a.state.Issues {
		if is == issue {
			a.state.Issues = append(a.state.Issues[:i], a.state.Issues[i+1:]...)
			metricActiveIssues.Set(float64(len(a.state.Issues)))
			return true
		}
	}
	return false
}

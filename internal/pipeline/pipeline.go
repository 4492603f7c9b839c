// Package pipeline runs a complaint through claim extraction, statute
// retrieval, evidence gap analysis and the verdict.
package pipeline

import (
	"context"
	"time"

	"github.com/ppiankov/docket/internal/extract"
	"github.com/ppiankov/docket/internal/metrics"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/validate"
	"go.uber.org/zap"
)

// ClaimExtractor turns a complaint into claims
type ClaimExtractor interface {
	Extract(ctx context.Context, complaint model.Complaint) ([]model.Claim, error)
}

// StatuteRetriever finds provisions for claims
type StatuteRetriever interface {
	Retrieve(ctx context.Context, claims []model.Claim) ([]model.StatuteMatch, error)
}

// GapAnalyzer compares evidence against requirements; it never fails
type GapAnalyzer interface {
	Analyze(ctx context.Context, claims []model.Claim, statutes []model.StatuteMatch, evidence []model.EvidenceItem) model.GapAnalysis
}

// VerdictEngine renders the final assessment
type VerdictEngine interface {
	Decide(ctx context.Context, claims []model.Claim, gaps model.GapAnalysis, evidence []model.EvidenceItem) (model.Verdict, error)
}

// Options tunes the orchestrator
type Options struct {
	MaxRelevantLaws int           // Cap on relevantLaws in the result (default 5)
	RequestTimeout  time.Duration // Zero means no deadline beyond the caller's
	EvidenceLimit   int           // Runes of evidence content kept per item
}

// Pipeline orchestrates the complete analysis
type Pipeline struct {
	extractor ClaimExtractor
	retriever StatuteRetriever
	gaps      GapAnalyzer
	verdicts  VerdictEngine
	opts      Options
	logger    *zap.Logger
	onPhase   func(model.Phase)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPhaseObserver registers fn to be called as each phase starts
func WithPhaseObserver(fn func(model.Phase)) Option {
	return func(p *Pipeline) { p.onPhase = fn }
}

// NewPipeline creates a new pipeline from its phase components
func NewPipeline(extractor ClaimExtractor, retriever StatuteRetriever, gaps GapAnalyzer, verdicts VerdictEngine, opts Options, options ...Option) *Pipeline {
	if opts.MaxRelevantLaws <= 0 {
		opts.MaxRelevantLaws = 5
	}
	if opts.EvidenceLimit <= 0 {
		opts.EvidenceLimit = extract.DefaultEvidenceLimit
	}

	p := &Pipeline{
		extractor: extractor,
		retriever: retriever,
		gaps:      gaps,
		verdicts:  verdicts,
		opts:      opts,
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Analyze runs every phase for req. Any returned error is a *Error.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest) (result *model.AnalysisResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			kind := KindOf(err)
			outcome = kind.String()
			switch kind {
			case KindInvalidInput:
				p.logger.Info("analysis rejected", zap.Error(err))
			case KindCanceled:
				p.logger.Warn("analysis canceled", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			default:
				p.logger.Error("analysis failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			}
		}
		metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	}()

	phase := model.PhaseUpload
	p.enter(phase)

	if err := validate.Request(req); err != nil {
		return nil, &Error{Kind: KindInvalidInput, Phase: phase, Err: err}
	}

	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	complaint := req.ToComplaint()
	evidence := extract.NormalizeEvidence(req.Evidence, p.opts.EvidenceLimit)

	phase = p.advance(phase)
	phaseStart := time.Now()

	claims, err := p.extractor.Extract(ctx, complaint)
	if err != nil {
		return nil, classify(phase, err)
	}
	if len(claims) == 0 {
		claims = []model.Claim{model.SentinelClaim(complaint.Text)}
	}

	statutes, err := p.retriever.Retrieve(ctx, claims)
	if err != nil {
		return nil, classify(phase, err)
	}
	p.observe(phase, phaseStart)

	phase = p.advance(phase)
	phaseStart = time.Now()
	gaps := p.gaps.Analyze(ctx, claims, statutes, evidence)
	p.observe(phase, phaseStart)

	phase = p.advance(phase)
	phaseStart = time.Now()
	verdict, err := p.verdicts.Decide(ctx, claims, gaps, evidence)
	if err != nil {
		return nil, classify(phase, err)
	}
	p.observe(phase, phaseStart)

	result = p.shape(claims, statutes, gaps, verdict)
	p.logger.Info("analysis complete",
		zap.Int("claims", len(result.Claims)),
		zap.Int("statutes", len(statutes)),
		zap.Bool("can_proceed", result.GapAnalysis.CanProceed),
		zap.Int("risk_score", result.Verdict.RiskScore),
		zap.String("recommendation", string(result.Verdict.Recommendation)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// shape builds the success envelope: capped statutes, gated verdict fields
// and no nil slices
func (p *Pipeline) shape(claims []model.Claim, statutes []model.StatuteMatch, gaps model.GapAnalysis, verdict model.Verdict) *model.AnalysisResult {
	laws := statutes
	if len(laws) > p.opts.MaxRelevantLaws {
		laws = laws[:p.opts.MaxRelevantLaws]
	}
	if laws == nil {
		laws = []model.StatuteMatch{}
	}

	return &model.AnalysisResult{
		Success:      true,
		Claims:       claims,
		RelevantLaws: laws,
		GapAnalysis:  gaps.Normalize(),
		Verdict:      verdict.Gated(),
	}
}

func (p *Pipeline) advance(current model.Phase) model.Phase {
	next, ok := current.Next()
	if !ok {
		return current
	}
	p.enter(next)
	return next
}

func (p *Pipeline) enter(phase model.Phase) {
	p.logger.Debug("phase started", zap.String("phase", phase.String()))
	if p.onPhase != nil {
		p.onPhase(phase)
	}
}

func (p *Pipeline) observe(phase model.Phase, start time.Time) {
	metrics.PhaseDuration.WithLabelValues(phase.String()).Observe(time.Since(start).Seconds())
}

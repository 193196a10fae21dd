package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/indarelin/backoffice/internal/messagelog"
	"github.com/indarelin/backoffice/internal/observability/metrics"
	"github.com/indarelin/backoffice/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var pipelineTracer = otel.Tracer("indarelin.internal.conversation.pipeline")

// Source is the stage that produced a reply.
type Source = messagelog.Source

const (
	SourceCustom    = messagelog.SourceCustom
	SourceProviderA = messagelog.SourceProviderA
	SourceProviderB = messagelog.SourceProviderB
	SourceFallback  = messagelog.SourceFallback
)

const (
	// FallbackReply is returned when no stage produced a usable answer.
	FallbackReply = "En este momento estamos experimentando alta demanda. Por favor intenta nuevamente en unos minutos."

	// providerErrorSentinel marks a provider response that is really an error
	// message delivered with a success status.
	providerErrorSentinel = "Hubo un problema"

	// DefaultProviderTimeout bounds a single provider attempt.
	DefaultProviderTimeout = 20 * time.Second
)

// Stage failure reasons, used in logs and the provider failure metric.
const (
	ReasonNoMatch      = "no_match"
	ReasonMatcherError = "matcher_error"
	ReasonUnconfigured = "unconfigured"
	ReasonError        = "error"
	ReasonTimeout      = "timeout"
	ReasonEmpty        = "empty"
	ReasonSentinel     = "sentinel"
)

// ErrEmptyMessage rejects blank input before anything is persisted.
var ErrEmptyMessage = errors.New("conversation: message is empty")

// PersistenceError reports a message log write failure.
type PersistenceError struct {
	Role messagelog.Role
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("conversation: persist %s message: %v", e.Role, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IncomingMessage is one visitor message.
type IncomingMessage struct {
	Text      string
	SourceIP  string
	SessionID string
}

// ReplyResult is the text returned to the visitor and where it came from.
type ReplyResult struct {
	Text   string `json:"reply"`
	Source Source `json:"source"`
}

// StageOutcome is the tagged result of one stage attempt. Reason, and Err
// when there is one, are set only when OK is false.
type StageOutcome struct {
	OK     bool
	Text   string
	Reason string
	Err    error
}

func succeeded(text string) StageOutcome { return StageOutcome{OK: true, Text: text} }

func failed(reason string) StageOutcome { return StageOutcome{Reason: reason} }

// Stage is one step of the reply chain.
type Stage interface {
	Source() Source
	Attempt(ctx context.Context, text string) StageOutcome
}

// CustomReplyMatcher finds an operator-defined canned reply for a message.
type CustomReplyMatcher interface {
	FindMatch(ctx context.Context, text string) (string, bool, error)
}

// MessageLog is the append-only message store.
type MessageLog interface {
	Append(ctx context.Context, rec messagelog.Record) error
}

type customStage struct {
	matcher CustomReplyMatcher
	logger  *logging.Logger
}

func (s *customStage) Source() Source { return SourceCustom }

func (s *customStage) Attempt(ctx context.Context, text string) StageOutcome {
	if s.matcher == nil {
		return failed(ReasonUnconfigured)
	}
	reply, ok, err := s.matcher.FindMatch(ctx, text)
	if err != nil {
		s.logger.Warn("custom reply lookup failed", "error", err)
		return failed(ReasonMatcherError)
	}
	if !ok || strings.TrimSpace(reply) == "" {
		return failed(ReasonNoMatch)
	}
	return succeeded(reply)
}

type providerStage struct {
	source       Source
	client       LLMClient
	timeout      time.Duration
	systemPrompt string
	maxTokens    int32
	temperature  float32
}

func newProviderStage(source Source, client LLMClient, timeout time.Duration, prompt string, cfg PipelineConfig) *providerStage {
	return &providerStage{
		source:       source,
		client:       client,
		timeout:      timeout,
		systemPrompt: prompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
	}
}

func (s *providerStage) Source() Source { return s.source }

func (s *providerStage) Attempt(ctx context.Context, text string) StageOutcome {
	if s.client == nil {
		return failed(ReasonUnconfigured)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Complete(callCtx, LLMRequest{
		System:      []string{s.systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: text}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)):
		return StageOutcome{Reason: ReasonTimeout, Err: err}
	case err != nil:
		return StageOutcome{Reason: ReasonError, Err: err}
	}
	// Whitespace-only counts as empty; otherwise the text is returned as sent.
	if strings.TrimSpace(resp.Text) == "" {
		return failed(ReasonEmpty)
	}
	if strings.Contains(resp.Text, providerErrorSentinel) {
		return failed(ReasonSentinel)
	}
	return succeeded(resp.Text)
}

// PipelineConfig wires the pipeline's collaborators. Nil providers or a nil
// matcher leave that stage permanently failing.
type PipelineConfig struct {
	Matcher         CustomReplyMatcher
	ProviderA       LLMClient
	ProviderB       LLMClient
	ProviderTimeout time.Duration
	MaxTokens       int32
	Temperature     float32
	SystemPrompt    string
	Log             MessageLog
	Metrics         *metrics.ChatMetrics
	Logger          *logging.Logger
}

// Pipeline resolves visitor messages through custom, providerA, providerB and
// finally the static fallback, persisting both sides of every exchange.
type Pipeline struct {
	stages  []Stage
	log     MessageLog
	metrics *metrics.ChatMetrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Log == nil {
		panic("conversation: message log is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultSystemPrompt
	}
	return &Pipeline{
		stages: []Stage{
			&customStage{matcher: cfg.Matcher, logger: logger},
			newProviderStage(SourceProviderA, cfg.ProviderA, timeout, prompt, cfg),
			newProviderStage(SourceProviderB, cfg.ProviderB, timeout, prompt, cfg),
		},
		log:     cfg.Log,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve maps one message to exactly one reply. Only ErrEmptyMessage and
// *PersistenceError are returned; provider failures are absorbed.
func (p *Pipeline) Resolve(ctx context.Context, msg IncomingMessage) (ReplyResult, error) {
	start := time.Now()
	ctx, span := pipelineTracer.Start(ctx, "chat.resolve")
	defer span.End()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ReplyResult{}, ErrEmptyMessage
	}

	if err := p.log.Append(ctx, messagelog.Record{
		Role:      messagelog.RoleUser,
		Text:      text,
		SessionID: msg.SessionID,
		IP:        msg.SourceIP,
		CreatedAt: p.now(),
	}); err != nil {
		perr := &PersistenceError{Role: messagelog.RoleUser, Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, "persist user message")
		p.logger.Error("failed to persist user message", "error", err, "session_id", msg.SessionID)
		return ReplyResult{}, perr
	}

	result := p.runStages(ctx, text, msg.SessionID)

	// The visitor has already been accepted; record the reply even if the
	// request context was cancelled meanwhile.
	if err := p.log.Append(context.WithoutCancel(ctx), messagelog.Record{
		Role:      messagelog.RoleBot,
		Text:      result.Text,
		Source:    result.Source,
		SessionID: msg.SessionID,
		IP:        msg.SourceIP,
		CreatedAt: p.now(),
	}); err != nil {
		perr := &PersistenceError{Role: messagelog.RoleBot, Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, "persist bot message")
		p.logger.Error("failed to persist bot message", "error", err, "source", result.Source, "session_id", msg.SessionID)
		return ReplyResult{}, perr
	}

	span.SetAttributes(attribute.String("indarelin.chat.source", string(result.Source)))
	p.metrics.ObserveReply(string(result.Source))
	p.metrics.ObserveResolve(time.Since(start).Seconds())
	return result, nil
}

func (p *Pipeline) runStages(ctx context.Context, text, sessionID string) ReplyResult {
	for _, stage := range p.stages {
		stageCtx, span := pipelineTracer.Start(ctx, "chat.stage."+string(stage.Source()))
		outcome := stage.Attempt(stageCtx, text)
		span.SetAttributes(
			attribute.String("indarelin.chat.stage", string(stage.Source())),
			attribute.Bool("indarelin.chat.stage_ok", outcome.OK),
		)
		if outcome.OK {
			span.End()
			return ReplyResult{Text: outcome.Text, Source: stage.Source()}
		}
		span.SetAttributes(attribute.String("indarelin.chat.stage_reason", outcome.Reason))
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
		}
		span.End()

		if stage.Source() != SourceCustom {
			p.metrics.ObserveProviderFailure(string(stage.Source()), outcome.Reason)
			attrs := []any{"stage", stage.Source(), "reason", outcome.Reason, "session_id", sessionID}
			if outcome.Err != nil {
				attrs = append(attrs, "error", outcome.Err)
			}
			p.logger.Warn("provider stage failed", attrs...)
		}
	}
	return ReplyResult{Text: FallbackReply, Source: SourceFallback}
}

package guardian

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/audit"
	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/infra"
	"github.com/xela07ax/mindtussle/internal/sitematch"
)

var DefaultModels = []string{"gemini-1.5-flash", "gemini-1.5-pro"}

// Ответы, которые уходят клиенту, когда модель недоступна или ответила мусором.
const (
	demoMessage        = "Add your Gemini API Key in Settings to enable AI analysis."
	unavailableMessage = "AI unavailable. Keep focusing!"
	parseFailMessage   = "Screen analyzed. Stay focused!"
)

func DemoVerdict() domain.Verdict {
	return domain.Verdict{
		Safe:          true,
		Verdict:       domain.VerdictDemoMode,
		Message:       demoMessage,
		Score:         domain.ScoreOf(100),
		DetectedSites: []string{},
		BlockedSites:  []string{},
	}
}

func UnavailableVerdict() domain.Verdict {
	return domain.Verdict{Safe: true, Verdict: domain.VerdictProductive, Message: unavailableMessage, Score: domain.ScoreOf(85),
		DetectedSites: []string{}, BlockedSites: []string{}}
}

func ParseFallbackVerdict() domain.Verdict {
	return domain.Verdict{Safe: true, Verdict: domain.VerdictProductive, Message: parseFailMessage, Score: domain.ScoreOf(90),
		DetectedSites: []string{}, BlockedSites: []string{}}
}

// FailOpenVerdict — никогда не наказываем пользователя за собственные сбои.
func FailOpenVerdict() domain.Verdict {
	return domain.Verdict{Safe: true, DetectedSites: []string{}, BlockedSites: []string{}}
}

// errAllModelsFailed отличает "модели не ответили" от прочих сбоев.
var errAllModelsFailed = errors.New("guardian: all models failed")

type Options struct {
	DefaultAPIKey string
	Models        []string
}

type Service struct {
	factory Factory
	wrapper *ReliabilityWrapper
	auditor audit.Auditor
	metrics *Metrics
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(factory Factory, wrapper *ReliabilityWrapper, auditor audit.Auditor, metrics *Metrics, opts Options, logger *zap.Logger) *Service {
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		factory: factory,
		wrapper: wrapper,
		auditor: auditor,
		metrics: metrics,
		opts:    opts,
		logger:  logger.With(zap.String("mod", "guardian")),
		now:     time.Now,
	}
}

// Analyze классифицирует кадр или текст. Всегда возвращает вердикт:
// ошибки бэкенда превращаются в безопасный ответ.
func (s *Service) Analyze(ctx context.Context, req domain.GuardianRequest) domain.Verdict {
	start := s.now()
	traceID := infra.TraceID(ctx)
	log := s.logger.With(zap.String("trace_id", traceID))

	event := audit.VerdictEvent{
		ID:       uuid.New().String(),
		TraceID:  traceID,
		HasImage: req.Image != "",
	}

	verdict, model, outcome, overridden, err := s.analyze(ctx, req)
	verdict.Normalize()

	switch outcome {
	case audit.OutcomeFailOpen:
		log.Warn("guardian failed open", zap.Error(err))
	case audit.OutcomeUnavailable, audit.OutcomeParseFailed:
		log.Warn("guardian fallback verdict", zap.String("outcome", outcome), zap.Error(err))
	default:
		log.Debug("guardian verdict", zap.String("outcome", outcome), zap.Bool("safe", verdict.Safe))
	}
	if overridden {
		s.metrics.Overrides.Inc()
		log.Info("proctor override", zap.Strings("blocked", verdict.BlockedSites))
	}

	elapsed := s.now().Sub(start)
	s.metrics.Outcomes.WithLabelValues(outcome, strconv.FormatBool(verdict.Safe)).Inc()
	s.metrics.Duration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if s.auditor != nil {
		event.Model = model
		event.Outcome = outcome
		event.Safe = verdict.Safe
		event.Verdict = verdict.Verdict
		event.Score = verdict.ScoreValue()
		event.DetectedSites = verdict.DetectedSites
		event.BlockedSites = verdict.BlockedSites
		event.Overridden = overridden
		event.DurationMs = elapsed.Milliseconds()
		event.Timestamp = start
		if err != nil {
			event.Error = err.Error()
		}
		s.auditor.Log(event)
	}

	return verdict
}

func (s *Service) analyze(ctx context.Context, req domain.GuardianRequest) (domain.Verdict, string, string, bool, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = s.opts.DefaultAPIKey
	}
	if apiKey == "" && s.factory.RequiresKey() {
		return DemoVerdict(), "", audit.OutcomeDemo, false, nil
	}

	allowed := sitematch.NormalizeAll(req.AllowedTools)

	prompt := Prompt{Text: buildPrompt(req.Content, allowed, req.Image != "")}
	if req.Image != "" {
		img, mime, err := DecodeDataURL(req.Image)
		if err != nil {
			return FailOpenVerdict(), "", audit.OutcomeFailOpen, false, err
		}
		prompt.Image, prompt.MIMEType = img, mime
	}

	gen, err := s.factory.ForKey(ctx, apiKey)
	if err != nil {
		return FailOpenVerdict(), "", audit.OutcomeFailOpen, false, err
	}

	text, model, err := s.generate(ctx, gen, prompt)
	if err != nil {
		if errors.Is(err, errAllModelsFailed) {
			return UnavailableVerdict(), "", audit.OutcomeUnavailable, false, err
		}
		return FailOpenVerdict(), "", audit.OutcomeFailOpen, false, err
	}

	verdict, err := parseVerdict(text)
	if err != nil {
		return ParseFallbackVerdict(), model, audit.OutcomeParseFailed, false, err
	}

	overridden := applyProctor(&verdict, allowed)
	return verdict, model, audit.OutcomeClassified, overridden, nil
}

// generate перебирает модели по порядку, первая ответившая выигрывает.
// Открытый предохранитель и отмена контекста прерывают перебор.
func (s *Service) generate(ctx context.Context, gen Generator, prompt Prompt) (string, string, error) {
	models := s.opts.Models
	var (
		text, used string
		next       int
		abort      error
	)

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(len(models))),
		// Между моделями не ждем: следующая модель — другой бэкенд
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			return 0
		}),
	)

	err := r.Do(func() error {
		model := models[next]
		next++

		out, err := s.wrapper.Call(ctx, func(ctx context.Context) (string, error) {
			return gen.Generate(ctx, model, prompt)
		})
		if err != nil {
			if breakerRejected(err) || ctx.Err() != nil {
				abort = err
				return retry.Unrecoverable(err)
			}
			s.metrics.ModelFailures.WithLabelValues(model).Inc()
			s.logger.Warn("model failed, trying next", zap.String("model", model), zap.Error(err))
			return err
		}
		text, used = out, model
		return nil
	})
	if abort != nil {
		return "", "", abort
	}
	if ctx.Err() != nil {
		return "", "", ctx.Err()
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errAllModelsFailed, err)
	}
	return text, used, nil
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

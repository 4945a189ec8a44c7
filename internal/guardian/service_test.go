package guardian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/audit"
	"github.com/xela07ax/mindtussle/internal/domain"
)

// scriptedGenerator отвечает по заранее заданной карте model -> ответ/ошибка.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
	prompts   []Prompt
}

func (g *scriptedGenerator) Generate(_ context.Context, model string, p Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, model)
	g.prompts = append(g.prompts, p)
	if err, ok := g.errs[model]; ok {
		return "", err
	}
	if out, ok := g.responses[model]; ok {
		return out, nil
	}
	return "", errors.New("unknown model")
}

type fakeFactory struct {
	gen         *scriptedGenerator
	requiresKey bool
	keys        []string
	err         error
}

func (f *fakeFactory) RequiresKey() bool { return f.requiresKey }

func (f *fakeFactory) ForKey(_ context.Context, key string) (Generator, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return f.gen, nil
}

type memAuditor struct {
	events []audit.VerdictEvent
}

func (m *memAuditor) Log(e audit.VerdictEvent) { m.events = append(m.events, e) }

func newTestService(f *fakeFactory, opts Options) (*Service, *memAuditor) {
	aud := &memAuditor{}
	w := NewReliabilityWrapper(ReliabilitySettings{Timeout: time.Second, CBFailures: 100}, nil)
	return NewService(f, w, aud, nil, opts, zap.NewNop()), aud
}

func TestDemoModeWithoutKey(t *testing.T) {
	f := &fakeFactory{gen: &scriptedGenerator{}, requiresKey: true}
	svc, aud := newTestService(f, Options{})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{Content: "USER MISSION: study"})

	assert.Equal(t, DemoVerdict(), v)
	assert.Equal(t, "DEMO_MODE", v.Verdict)
	assert.Equal(t, 100, v.ScoreValue())
	assert.Empty(t, f.keys, "без ключа бэкенд не вызывается")
	require.Len(t, aud.events, 1)
	assert.Equal(t, audit.OutcomeDemo, aud.events[0].Outcome)
}

func TestConfiguredKeyIsUsedWhenRequestHasNone(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"gemini-1.5-flash": `{"safe":true,"verdict":"PRODUCTIVE","message":"ok","score":95,"detectedSites":["github.com"]}`,
	}}
	f := &fakeFactory{gen: gen, requiresKey: true}
	svc, _ := newTestService(f, Options{DefaultAPIKey: "server-key"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{Content: "coding", AllowedTools: []string{"GitHub.com"}})

	assert.True(t, v.Safe)
	assert.Equal(t, 95, v.ScoreValue())
	assert.Equal(t, []string{"server-key"}, f.keys)
	assert.Equal(t, []string{}, v.BlockedSites)
}

func TestRequestKeyWins(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{"gemini-1.5-flash": `{"safe":true}`}}
	f := &fakeFactory{gen: gen, requiresKey: true}
	svc, _ := newTestService(f, Options{DefaultAPIKey: "server-key"})

	svc.Analyze(context.Background(), domain.GuardianRequest{APIKey: "user-key"})
	assert.Equal(t, []string{"user-key"}, f.keys)
}

func TestKeylessBackendSkipsDemoMode(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{"llava": `{"safe":true,"score":70}`}}
	f := &fakeFactory{gen: gen, requiresKey: false}
	svc, _ := newTestService(f, Options{Models: []string{"llava"}})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{Content: "x"})
	assert.Equal(t, 70, v.ScoreValue())
}

func TestFallsBackToSecondModel(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      map[string]error{"gemini-1.5-flash": errors.New("quota")},
		responses: map[string]string{"gemini-1.5-pro": "```json\n{\"safe\":true,\"verdict\":\"PRODUCTIVE\",\"score\":88}\n```"},
	}
	svc, aud := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{})

	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-1.5-pro"}, gen.calls)
	assert.Equal(t, 88, v.ScoreValue())
	assert.Equal(t, "gemini-1.5-pro", aud.events[0].Model)
}

func TestAllModelsFail(t *testing.T) {
	gen := &scriptedGenerator{errs: map[string]error{
		"gemini-1.5-flash": errors.New("boom"),
		"gemini-1.5-pro":   errors.New("boom"),
	}}
	svc, aud := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{})

	assert.Equal(t, UnavailableVerdict(), v)
	assert.Equal(t, audit.OutcomeUnavailable, aud.events[0].Outcome)
}

func TestUnparseableResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{"gemini-1.5-flash": "I think the user is doing fine."}}
	svc, _ := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{})
	assert.Equal(t, ParseFallbackVerdict(), v)
}

func TestFactoryErrorFailsOpen(t *testing.T) {
	f := &fakeFactory{requiresKey: true, err: errors.New("bad key")}
	svc, aud := newTestService(f, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{})

	assert.Equal(t, FailOpenVerdict(), v)
	assert.Equal(t, audit.OutcomeFailOpen, aud.events[0].Outcome)
	assert.NotEmpty(t, aud.events[0].Error)
}

func TestBadImageFailsOpen(t *testing.T) {
	svc, _ := newTestService(&fakeFactory{gen: &scriptedGenerator{}, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{Image: "data:image/jpeg;base64,@@@"})
	assert.Equal(t, FailOpenVerdict(), v)
}

func TestImageIsForwarded(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{"gemini-1.5-flash": `{"safe":true}`}}
	svc, aud := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	svc.Analyze(context.Background(), domain.GuardianRequest{
		Content: "USER MISSION: write thesis",
		Image:   "data:image/png;base64,aGVsbG8=",
	})

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, []byte("hello"), gen.prompts[0].Image)
	assert.Equal(t, "image/png", gen.prompts[0].MIMEType)
	assert.Contains(t, gen.prompts[0].Text, "USER MISSION: write thesis")
	assert.Contains(t, gen.prompts[0].Text, noAllowedSites)
	assert.True(t, aud.events[0].HasImage)
}

func TestProctorOverridesSafeModelVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"gemini-1.5-flash": `Sure! {"safe":true,"verdict":"PRODUCTIVE","message":"Looks good","score":92,"detectedSites":["YouTube.com"," leetcode.com "]}`,
	}}
	svc, aud := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{AllowedTools: []string{"leetcode"}})

	assert.False(t, v.Safe)
	assert.Equal(t, domain.VerdictDistracted, v.Verdict)
	assert.Equal(t, []string{"youtube.com"}, v.BlockedSites)
	assert.Equal(t, []string{"youtube.com", "leetcode.com"}, v.DetectedSites)
	assert.Equal(t, "Proctor Alert: Unauthorized site detected (youtube.com). Close it immediately.", v.Message)
	assert.True(t, aud.events[0].Overridden)
}

func TestOpenBreakerFailsOpen(t *testing.T) {
	gen := &scriptedGenerator{errs: map[string]error{
		"gemini-1.5-flash": errors.New("boom"),
		"gemini-1.5-pro":   errors.New("boom"),
	}}
	f := &fakeFactory{gen: gen, requiresKey: true}
	w := NewReliabilityWrapper(ReliabilitySettings{CBFailures: 2, CBTimeout: time.Hour}, nil)
	svc := NewService(f, w, nil, nil, Options{DefaultAPIKey: "k"}, zap.NewNop())

	// Первый запрос: обе модели падают, предохранитель выбивает
	assert.Equal(t, UnavailableVerdict(), svc.Analyze(context.Background(), domain.GuardianRequest{}))

	calls := len(gen.calls)
	v := svc.Analyze(context.Background(), domain.GuardianRequest{})
	assert.Equal(t, FailOpenVerdict(), v)
	assert.Equal(t, calls, len(gen.calls), "при открытом предохранителе модель не вызывается")
}

func TestZeroScoreIsKept(t *testing.T) {
	gen := &scriptedGenerator{responses: map[string]string{
		"gemini-1.5-flash": `{"safe":true,"verdict":"PRODUCTIVE","score":0}`,
	}}
	svc, _ := newTestService(&fakeFactory{gen: gen, requiresKey: true}, Options{DefaultAPIKey: "k"})

	v := svc.Analyze(context.Background(), domain.GuardianRequest{})
	require.NotNil(t, v.Score)
	assert.Equal(t, 0, *v.Score)

	body, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"score":0`)

	// fail-open ответ по-прежнему без score
	body, err = json.Marshal(FailOpenVerdict())
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"score"`)
}

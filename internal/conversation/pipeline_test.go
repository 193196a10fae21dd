package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/indarelin/backoffice/internal/customreplies"
	"github.com/indarelin/backoffice/internal/messagelog"
	"github.com/indarelin/backoffice/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu    sync.Mutex
	reqs  []LLMRequest
	reply string
	err   error
	block bool
}

func (f *fakeLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return LLMResponse{}, err
	}
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.reply}, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fakeMatcher struct {
	reply string
	ok    bool
	err   error
	calls int
}

func (m *fakeMatcher) FindMatch(context.Context, string) (string, bool, error) {
	m.calls++
	return m.reply, m.ok, m.err
}

// flakyLog fails appends for one role.
type flakyLog struct {
	*messagelog.InMemoryStore
	failRole messagelog.Role
}

func (l *flakyLog) Append(ctx context.Context, rec messagelog.Record) error {
	if rec.Role == l.failRole {
		return errors.New("connection reset by peer")
	}
	return l.InMemoryStore.Append(ctx, rec)
}

func records(t *testing.T, store *messagelog.InMemoryStore) []messagelog.Record {
	t.Helper()
	recs, err := store.List(context.Background(), messagelog.Filter{Limit: messagelog.MaxListLimit})
	require.NoError(t, err)
	return recs
}

func botRecords(t *testing.T, store *messagelog.InMemoryStore) []messagelog.Record {
	t.Helper()
	var out []messagelog.Record
	for _, r := range records(t, store) {
		if r.Role == messagelog.RoleBot {
			out = append(out, r)
		}
	}
	return out
}

func TestResolve_ProviderAReply(t *testing.T) {
	store := messagelog.NewInMemoryStore()
	a := &fakeLLM{reply: "¡Hola! ¿En qué puedo ayudarte?"}
	b := &fakeLLM{reply: "unused"}
	p := NewPipeline(PipelineConfig{Matcher: &fakeMatcher{}, ProviderA: a, ProviderB: b, Log: store})

	res, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola", SourceIP: "203.0.113.9", SessionID: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, ReplyResult{Text: "¡Hola! ¿En qué puedo ayudarte?", Source: SourceProviderA}, res)
	assert.Equal(t, 0, b.calls())

	recs := records(t, store)
	require.Len(t, recs, 2)
	bot := botRecords(t, store)
	require.Len(t, bot, 1)
	assert.Equal(t, SourceProviderA, bot[0].Source)
	assert.Equal(t, res.Text, bot[0].Text)
	assert.Equal(t, "203.0.113.9", bot[0].IP)
	assert.Equal(t, "s-1", bot[0].SessionID)

	require.Len(t, a.reqs, 1)
	req := a.reqs[0]
	require.Len(t, req.System, 1)
	assert.Equal(t, defaultSystemPrompt, req.System[0])
	assert.Equal(t, []ChatMessage{{Role: ChatRoleUser, Content: "Hola"}}, req.Messages)
}

func TestResolve_EmptyMessageWritesNothing(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		store := messagelog.NewInMemoryStore()
		a := &fakeLLM{reply: "x"}
		matcher := &fakeMatcher{}
		p := NewPipeline(PipelineConfig{Matcher: matcher, ProviderA: a, Log: store})

		_, err := p.Resolve(context.Background(), IncomingMessage{Text: text})
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Equal(t, 0, store.Len())
		assert.Equal(t, 0, a.calls())
		assert.Equal(t, 0, matcher.calls)
	}
}

func TestResolve_CustomMatchSkipsProviders(t *testing.T) {
	repo := customreplies.NewInMemoryRepository()
	_, err := repo.Create(context.Background(), &customreplies.ReplyInput{Trigger: "horario", Response: "Atendemos 9-18h"})
	require.NoError(t, err)

	store := messagelog.NewInMemoryStore()
	a := &fakeLLM{reply: "a"}
	b := &fakeLLM{reply: "b"}
	p := NewPipeline(PipelineConfig{
		Matcher:   customreplies.NewMatcher(repo),
		ProviderA: a,
		ProviderB: b,
		Log:       store,
	})

	res, err := p.Resolve(context.Background(), IncomingMessage{Text: "horario"})
	require.NoError(t, err)
	assert.Equal(t, ReplyResult{Text: "Atendemos 9-18h", Source: SourceCustom}, res)
	assert.Equal(t, 0, a.calls())
	assert.Equal(t, 0, b.calls())
	bot := botRecords(t, store)
	require.Len(t, bot, 1)
	assert.Equal(t, SourceCustom, bot[0].Source)
}

func TestResolve_ProviderAFailuresFallThroughToB(t *testing.T) {
	tests := []struct {
		name string
		a    LLMClient
	}{
		{name: "error", a: &fakeLLM{err: errors.New("503 service unavailable")}},
		{name: "empty text", a: &fakeLLM{reply: "   "}},
		{name: "sentinel phrase", a: &fakeLLM{reply: "Hubo un problema al procesar tu solicitud."}},
		{name: "timeout", a: &fakeLLM{block: true}},
		{name: "unconfigured", a: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := messagelog.NewInMemoryStore()
			b := &fakeLLM{reply: "Respuesta de B"}
			p := NewPipeline(PipelineConfig{
				ProviderA:       tt.a,
				ProviderB:       b,
				ProviderTimeout: 20 * time.Millisecond,
				Log:             store,
			})

			res, err := p.Resolve(context.Background(), IncomingMessage{Text: "¿Qué necesito para registrar?"})
			require.NoError(t, err)
			assert.Equal(t, ReplyResult{Text: "Respuesta de B", Source: SourceProviderB}, res)
			assert.Equal(t, 1, b.calls())
			bot := botRecords(t, store)
			require.Len(t, bot, 1)
			assert.Equal(t, SourceProviderB, bot[0].Source)
		})
	}
}

func TestResolve_ProviderBFailuresReachFallback(t *testing.T) {
	tests := []struct {
		name string
		b    *fakeLLM
	}{
		{name: "error", b: &fakeLLM{err: errors.New("invalid api key")}},
		{name: "empty text", b: &fakeLLM{reply: "\n\t "}},
		{name: "sentinel phrase", b: &fakeLLM{reply: "Lo siento, Hubo un problema."}},
		{name: "timeout", b: &fakeLLM{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := messagelog.NewInMemoryStore()
			a := &fakeLLM{err: errors.New("rate limited")}
			p := NewPipeline(PipelineConfig{
				ProviderA:       a,
				ProviderB:       tt.b,
				ProviderTimeout: 20 * time.Millisecond,
				Log:             store,
			})

			res, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
			require.NoError(t, err)
			assert.Equal(t, ReplyResult{Text: FallbackReply, Source: SourceFallback}, res)
			assert.NotContains(t, res.Text, "api key")
			assert.Equal(t, 1, a.calls())
			assert.Equal(t, 1, tt.b.calls())

			bot := botRecords(t, store)
			require.Len(t, bot, 1)
			assert.Equal(t, SourceFallback, bot[0].Source)
			assert.Equal(t, FallbackReply, bot[0].Text)
		})
	}
}

func TestResolve_ProviderTextReturnedAsSent(t *testing.T) {
	store := messagelog.NewInMemoryStore()
	a := &fakeLLM{reply: "  Claro, te ayudo.\n"}
	p := NewPipeline(PipelineConfig{
		ProviderA:   a,
		MaxTokens:   256,
		Temperature: 0.4,
		Log:         store,
	})

	res, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
	require.NoError(t, err)
	assert.Equal(t, "  Claro, te ayudo.\n", res.Text)

	bot := botRecords(t, store)
	require.Len(t, bot, 1)
	assert.Equal(t, res.Text, bot[0].Text)

	require.Equal(t, 1, a.calls())
	assert.Equal(t, int32(256), a.reqs[0].MaxTokens)
	assert.InDelta(t, 0.4, a.reqs[0].Temperature, 0.0001)
}

func TestResolve_MatcherErrorIsNoMatch(t *testing.T) {
	a := &fakeLLM{reply: "desde A"}
	p := NewPipeline(PipelineConfig{
		Matcher:   &fakeMatcher{err: errors.New("redis timeout")},
		ProviderA: a,
		Log:       messagelog.NewInMemoryStore(),
	})
	res, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
	require.NoError(t, err)
	assert.Equal(t, SourceProviderA, res.Source)
}

func TestResolve_UserPersistenceFailure(t *testing.T) {
	store := &flakyLog{InMemoryStore: messagelog.NewInMemoryStore(), failRole: messagelog.RoleUser}
	a := &fakeLLM{reply: "x"}
	p := NewPipeline(PipelineConfig{ProviderA: a, Log: store})

	_, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, messagelog.RoleUser, perr.Role)
	assert.Equal(t, 0, a.calls())
	assert.Equal(t, 0, store.Len())
}

func TestResolve_BotPersistenceFailure(t *testing.T) {
	store := &flakyLog{InMemoryStore: messagelog.NewInMemoryStore(), failRole: messagelog.RoleBot}
	p := NewPipeline(PipelineConfig{ProviderA: &fakeLLM{reply: "x"}, Log: store})

	_, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, messagelog.RoleBot, perr.Role)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Equal(t, 1, store.Len())
}

func TestResolve_CancelledRequestStillRecordsReply(t *testing.T) {
	store := messagelog.NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeLLM{reply: "x"}
	p := NewPipeline(PipelineConfig{Matcher: cancellingMatcher(cancel), ProviderA: a, Log: store})

	res, err := p.Resolve(ctx, IncomingMessage{Text: "Hola"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, botRecords(t, store), 1)
}

// cancellingMatcher cancels the request mid-pipeline, as a disconnecting
// client would.
type cancellingMatcher context.CancelFunc

func (c cancellingMatcher) FindMatch(context.Context, string) (string, bool, error) {
	c()
	return "", false, nil
}

func TestResolve_ConcurrentRequests(t *testing.T) {
	store := messagelog.NewInMemoryStore()
	p := NewPipeline(PipelineConfig{ProviderA: &fakeLLM{reply: "ok"}, Log: store})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Resolve(context.Background(), IncomingMessage{Text: fmt.Sprintf("mensaje %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2*n, store.Len())
	assert.Len(t, botRecords(t, store), n)
}

func TestResolve_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)
	p := NewPipeline(PipelineConfig{
		ProviderA: &fakeLLM{reply: ""},
		ProviderB: &fakeLLM{reply: "ok"},
		Log:       messagelog.NewInMemoryStore(),
		Metrics:   m,
	})

	_, err := p.Resolve(context.Background(), IncomingMessage{Text: "Hola"})
	require.NoError(t, err)

	expected := `
# HELP indarelin_chat_provider_failures_total Provider stage failures that caused the pipeline to move on
# TYPE indarelin_chat_provider_failures_total counter
indarelin_chat_provider_failures_total{reason="empty",stage="providerA"} 1
# HELP indarelin_chat_replies_total Replies returned to visitors, by the stage that produced them
# TYPE indarelin_chat_replies_total counter
indarelin_chat_replies_total{source="providerB"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"indarelin_chat_provider_failures_total", "indarelin_chat_replies_total")
	assert.NoError(t, err)
}

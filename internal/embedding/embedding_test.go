package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/vector"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Name() string    { return "mock" }

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"liability", "clause", "4"}, SplitWords("  Liability-clause, §4! "))
	assert.Empty(t, SplitWords("  ...  "))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
	assert.GreaterOrEqual(t, HashString("a very long string that would overflow a naive hash many times over"), 0)
}

func TestHashEmbedder_deterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "Please review the service agreement")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Please review the service agreement")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, vector.L2Norm(a), 1e-5)
}

func TestHashEmbedder_sharedWordsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "liability clauses in section 4")
	related, _ := e.Embed(ctx, "I have concerns about the liability clauses in section 4.")
	unrelated, _ := e.Embed(ctx, "Do we need additional paperwork for state registration?")

	assert.Greater(t, vector.Cosine(q, related), vector.Cosine(q, unrelated))
}

func TestHashEmbedder_punctuationOnlyIsNonZero(t *testing.T) {
	e := NewHashEmbedder(16)
	emb, err := e.Embed(context.Background(), "?!")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vector.L2Norm(emb), 1e-5)
}

func TestWithCache_hitsAvoidProviderCall(t *testing.T) {
	m := &mockEmbedder{}
	m.On("Embed", mock.Anything, "hello").Return([]float32{1, 0, 0}, nil).Once()

	e := WithCache(m, 10, time.Minute)
	first, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	first[0] = 99 // callers own their copy

	second, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, second)
	m.AssertExpectations(t)
}

func TestWithCache_errorsAreNotCached(t *testing.T) {
	m := &mockEmbedder{}
	m.On("Embed", mock.Anything, "x").Return(nil, errors.New("unavailable")).Once()
	m.On("Embed", mock.Anything, "x").Return([]float32{0, 1, 0}, nil).Once()

	e := WithCache(m, 10, time.Minute)
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	got, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, got)
	m.AssertExpectations(t)
}

func TestWithCache_disabled(t *testing.T) {
	m := &mockEmbedder{}
	assert.Same(t, Embedder(m), WithCache(m, 0, time.Minute))
}

func TestWithTimeout_classifiesErrors(t *testing.T) {
	m := &mockEmbedder{}
	m.On("Embed", mock.Anything, "down").Return(nil, errors.New("connection refused"))
	m.On("Embed", mock.Anything, "blank").Return([]float32{}, nil)
	m.On("Embed", mock.Anything, "slow").Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	e := WithTimeout(m, 20*time.Millisecond)
	_, err := e.Embed(context.Background(), "down")
	assert.ErrorIs(t, err, models.ErrProvider)

	_, err = e.Embed(context.Background(), "blank")
	assert.ErrorIs(t, err, models.ErrProvider)

	_, err = e.Embed(context.Background(), "slow")
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_embed(t *testing.T) {
	var calls atomic.Int32
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],
			"usage":{"prompt_tokens":3,"total_tokens":3}}`))
	})

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)
	emb, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "openai:text-embedding-3-small", e.Name())
}

func TestOpenAIEmbedder_wrongDimensions(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`))
	})
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestOpenAIEmbedder_unauthorizedIsProviderError(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestOpenAIEmbedder_slowServerTimesOut(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	inner, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = WithTimeout(inner, 50*time.Millisecond).Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestProvidersRequireKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.ErrorIs(t, err, models.ErrAuth)
	_, err = NewGeminiEmbedder(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestNewGeminiEmbedder_defaults(t *testing.T) {
	e, err := NewGeminiEmbedder(context.Background(), GeminiConfig{APIKey: "g-key", Dimensions: 768})
	require.NoError(t, err)
	assert.Equal(t, "gemini:"+DefaultGeminiModel, e.Name())
	assert.Equal(t, 768, e.Dimensions())
}

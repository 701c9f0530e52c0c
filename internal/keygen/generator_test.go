package keygen

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/jwalitptl/register-api/pkg/circuitbreaker"
	"github.com/jwalitptl/register-api/pkg/metrics"
)

func TestNewGeneratorDefaults(t *testing.T) {
	g, err := NewGenerator(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWordCount, g.WordCount())
	assert.Equal(t, SourceWordlist, g.source)
	assert.Nil(t, g.remote)
	assert.NoError(t, g.Health(context.Background()))
}

func TestNewGeneratorRejectsBadConfig(t *testing.T) {
	_, err := NewGenerator(Config{Words: -1})
	assert.ErrorIs(t, err, ErrInvalidWordCount)

	_, err = NewGenerator(Config{Source: "dice"})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestLocalWordlist(t *testing.T) {
	g, err := NewGenerator(Config{Words: 8})
	require.NoError(t, err)

	key, err := g.Local()
	require.NoError(t, err)

	assert.Len(t, key.Words, 8)
	assert.Equal(t, SourceWordlist, key.Source)
	assert.Equal(t, strings.Join(key.Words, " "), key.Phrase)
	for _, w := range key.Words {
		assert.Contains(t, defaultWords, w)
	}
	assert.True(t, ValidPhrase(key.Phrase))
}

func TestLocalBIP39(t *testing.T) {
	for _, n := range []int{12, 24} {
		g, err := NewGenerator(Config{Words: n, Source: SourceBIP39})
		require.NoError(t, err)

		key, err := g.Local()
		require.NoError(t, err)
		assert.Len(t, key.Words, n)
		assert.True(t, bip39.IsMnemonicValid(key.Phrase), key.Phrase)
	}
}

func TestLocalBIP39OddLength(t *testing.T) {
	g, err := NewGenerator(Config{Words: 5, Source: SourceBIP39})
	require.NoError(t, err)

	key, err := g.Local()
	require.NoError(t, err)
	assert.Len(t, key.Words, 5)
	for _, w := range key.Words {
		assert.Contains(t, bip39.GetWordList(), w)
	}
}

func TestGenerateRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/key/generate", r.URL.Path)
		json.NewEncoder(w).Encode([]string{"Knee", "door", "tall"})
	}))
	defer srv.Close()

	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	g, err := NewGenerator(Config{Words: 3, RemoteURL: srv.URL + "/api"}, WithMetrics(m))
	require.NoError(t, err)

	key, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, key.Source)
	assert.Equal(t, "knee door tall", key.Phrase)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KeysGenerated.WithLabelValues("remote")))
}

func TestGenerateRemoteKeysAreNotShared(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		words, err := sample(defaultWords, 12)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(words)
	}))
	defer srv.Close()

	g, err := NewGenerator(Config{Words: 12, RemoteURL: srv.URL})
	require.NoError(t, err)

	a, err := g.Generate(context.Background())
	require.NoError(t, err)
	b, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceRemote, a.Source)
	assert.Equal(t, SourceRemote, b.Source)
	assert.NotEqual(t, a.Phrase, b.Phrase, "each caller must get its own key")
}

func TestGenerateCallerTimeoutKeepsCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
	}))
	defer srv.Close()

	g, err := NewGenerator(Config{Words: 3, RemoteURL: srv.URL, BreakerFailures: 2})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := g.Generate(ctx)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, circuitbreaker.StateClosed, g.breaker.State())
	assert.NoError(t, g.Health(context.Background()))
}

func TestGenerateFallsBackToLocal(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"wrong count", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`["only","two"]`))
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
		{"bad word", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`["knee","d00r","tall"]`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			m := metrics.NewMetrics("test", prometheus.NewRegistry())
			g, err := NewGenerator(Config{Words: 3, RemoteURL: srv.URL}, WithMetrics(m))
			require.NoError(t, err)

			key, err := g.Generate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, SourceWordlist, key.Source)
			assert.Len(t, key.Words, 3)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.KeyFallbacks))
		})
	}
}

func TestGenerateBreakerStopsRemoteCalls(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g, err := NewGenerator(Config{Words: 4, RemoteURL: srv.URL, BreakerFailures: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		key, err := g.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceWordlist, key.Source)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.ErrorIs(t, g.Health(context.Background()), circuitbreaker.ErrOpen)
}

func TestGenerateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g, err := NewGenerator(Config{Words: 3, RemoteURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidPhrase(t *testing.T) {
	assert.True(t, ValidPhrase("knee door tall"))
	assert.True(t, ValidPhrase("knee"))
	assert.False(t, ValidPhrase(""))
	assert.False(t, ValidPhrase("knee  door"))
	assert.False(t, ValidPhrase(" knee"))
	assert.False(t, ValidPhrase("Knee door"))
	assert.False(t, ValidPhrase("knee door1"))
}

func TestQRCode(t *testing.T) {
	data, err := QRCode("knee door tall royal", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestQRCodeDefaultsAndErrors(t *testing.T) {
	_, err := QRCode("   ", 100)
	assert.ErrorIs(t, err, ErrEmptySeed)

	data, err := QRCode("knee", 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())
}

func TestDefaultWordsIsCopy(t *testing.T) {
	words := DefaultWords()
	require.Len(t, words, 60)
	words[0] = "changed"
	assert.Equal(t, "beautiful", defaultWords[0])
}

// Package keygen produces the mnemonic encryption key shown on the
// registration form and renders it as a printable QR code.
package keygen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tyler-smith/go-bip39"

	"github.com/jwalitptl/register-api/pkg/circuitbreaker"
	"github.com/jwalitptl/register-api/pkg/metrics"
	"github.com/jwalitptl/register-api/pkg/requester"
)

// Source names where a key's words came from.
type Source string

const (
	SourceWordlist Source = "wordlist"
	SourceBIP39    Source = "bip39"
	SourceRemote   Source = "remote"

	DefaultWordCount = 12
	generatePath     = "key/generate"
)

var (
	ErrInvalidSource    = errors.New("unknown key source")
	ErrInvalidWordCount = errors.New("word count must be positive")

	phrasePattern = regexp.MustCompile(`^[a-z]+( [a-z]+)*$`)
)

// Key is a generated encryption key.
type Key struct {
	Words  []string `json:"words"`
	Phrase string   `json:"phrase"`
	Source Source   `json:"source"`
}

func newKey(words []string, source Source) Key {
	return Key{
		Words:  words,
		Phrase: strings.Join(words, " "),
		Source: source,
	}
}

// Config holds key generation settings
type Config struct {
	Words  int
	Source Source
	// RemoteURL is the base URL of a word service exposing key/generate.
	// Empty disables remote fetching.
	RemoteURL       string
	Timeout         time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type Generator struct {
	words   int
	source  Source
	remote  *requester.Requester
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

type Option func(*Generator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithRequester replaces the requester built from Config.RemoteURL.
func WithRequester(r *requester.Requester) Option {
	return func(g *Generator) {
		g.remote = r
	}
}

func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	if cfg.Words == 0 {
		cfg.Words = DefaultWordCount
	}
	if cfg.Words < 0 {
		return nil, ErrInvalidWordCount
	}
	if cfg.Source == "" {
		cfg.Source = SourceWordlist
	}
	if cfg.Source != SourceWordlist && cfg.Source != SourceBIP39 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, cfg.Source)
	}

	g := &Generator{
		words:  cfg.Words,
		source: cfg.Source,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.remote == nil && cfg.RemoteURL != "" {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		base := strings.TrimSuffix(cfg.RemoteURL, "/") + "/"
		// No response cache: every answer is a fresh key for a single user.
		g.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "keygen",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
		})
		g.remote = requester.New(
			requester.WithMethod("GET"),
			requester.WithURL(base+generatePath),
			requester.WithType(requester.TypeJSON),
			requester.WithClient(httpClient(timeout)),
			requester.WithBreaker(g.breaker),
			requester.WithMetrics(g.metrics),
		)
	}
	return g, nil
}

func (g *Generator) WordCount() int {
	return g.words
}

// Health reports the word service circuit as an error once it has opened.
// Generation keeps working through local sampling in that state.
func (g *Generator) Health(context.Context) error {
	if g.breaker != nil && g.breaker.State() == circuitbreaker.StateOpen {
		return fmt.Errorf("word service: %w", circuitbreaker.ErrOpen)
	}
	return nil
}

// Generate asks the remote word service for a key and falls back to local
// sampling when it is not configured or its answer is unusable.
func (g *Generator) Generate(ctx context.Context) (Key, error) {
	if g.remote != nil {
		words, err := g.fetch(ctx)
		if err == nil {
			g.count(SourceRemote)
			return newKey(words, SourceRemote), nil
		}
		if ctx.Err() != nil {
			return Key{}, ctx.Err()
		}
		log.Ctx(ctx).Warn().Err(err).Msg("remote key generation failed, sampling locally")
		if g.metrics != nil {
			g.metrics.KeyFallbacks.Inc()
		}
	}
	return g.Local()
}

// Local generates a key without contacting the word service.
func (g *Generator) Local() (Key, error) {
	var (
		words []string
		err   error
	)
	switch g.source {
	case SourceBIP39:
		words, err = bip39Words(g.words)
	default:
		words, err = sample(defaultWords, g.words)
	}
	if err != nil {
		return Key{}, err
	}
	g.count(g.source)
	return newKey(words, g.source), nil
}

func (g *Generator) fetch(ctx context.Context) ([]string, error) {
	var words []string
	if err := g.remote.DecodeJSON(ctx, &words); err != nil {
		return nil, err
	}
	if len(words) != g.words {
		return nil, fmt.Errorf("word service returned %d words, want %d", len(words), g.words)
	}
	for i, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if !phrasePattern.MatchString(w) {
			return nil, fmt.Errorf("word service returned invalid word %q", words[i])
		}
		words[i] = w
	}
	return words, nil
}

func (g *Generator) count(source Source) {
	if g.metrics != nil {
		g.metrics.KeysGenerated.WithLabelValues(string(source)).Inc()
	}
}

// ValidPhrase reports whether s is lowercase words separated by single spaces.
func ValidPhrase(s string) bool {
	return phrasePattern.MatchString(s)
}

// bip39Words returns a checksummed mnemonic when n is a valid BIP39 length
// and n words sampled from the BIP39 list otherwise.
func bip39Words(n int) ([]string, error) {
	if n%3 == 0 && n >= 12 && n <= 24 {
		entropy, err := bip39.NewEntropy(n * 32 / 3)
		if err != nil {
			return nil, fmt.Errorf("failed to create entropy: %w", err)
		}
		mnemonic, err := bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, fmt.Errorf("failed to create mnemonic: %w", err)
		}
		return strings.Fields(mnemonic), nil
	}
	return sample(bip39.GetWordList(), n)
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func sample(list []string, n int) ([]string, error) {
	limit := big.NewInt(int64(len(list)))
	words := make([]string, n)
	for i := range words {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to read randomness: %w", err)
		}
		words[i] = list[idx.Int64()]
	}
	return words, nil
}

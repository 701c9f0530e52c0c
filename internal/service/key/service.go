package key

import (
	"context"
	"errors"

	"github.com/jwalitptl/register-api/internal/keygen"
	apperrors "github.com/jwalitptl/register-api/pkg/errors"
	"github.com/jwalitptl/register-api/pkg/metrics"
)

type Service struct {
	gen     *keygen.Generator
	qrSize  int
	metrics *metrics.Metrics
}

func NewService(gen *keygen.Generator, qrSize int, m *metrics.Metrics) *Service {
	return &Service{
		gen:     gen,
		qrSize:  qrSize,
		metrics: m,
	}
}

// Generate returns a fresh key, from the word service when one is configured.
func (s *Service) Generate(ctx context.Context) (keygen.Key, error) {
	key, err := s.gen.Generate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return keygen.Key{}, apperrors.Unavailable("keygen", err)
		}
		return keygen.Key{}, apperrors.Internal(err)
	}
	return key, nil
}

// Regenerate samples a key locally. This is what the form's regenerate
// button calls so a slow word service never blocks it.
func (s *Service) Regenerate() (keygen.Key, error) {
	key, err := s.gen.Local()
	if err != nil {
		return keygen.Key{}, apperrors.Internal(err)
	}
	return key, nil
}

func (s *Service) QRCode(seed string) ([]byte, error) {
	png, err := keygen.QRCode(seed, s.qrSize)
	if err != nil {
		if errors.Is(err, keygen.ErrEmptySeed) {
			return nil, apperrors.BadRequest("seed is required", err)
		}
		return nil, apperrors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.QRCodesPrinted.Inc()
	}
	return png, nil
}

func (s *Service) Health(ctx context.Context) error {
	return s.gen.Health(ctx)
}

package password

import (
	"github.com/jwalitptl/register-api/internal/model"
	"github.com/jwalitptl/register-api/internal/presenter"
	"github.com/jwalitptl/register-api/pkg/metrics"
	"github.com/jwalitptl/register-api/pkg/passwordcheck"
)

// Service evaluates passwords for the registration form. It never stores or
// logs the passwords it sees.
type Service struct {
	checker *passwordcheck.Checker
	metrics *metrics.Metrics
}

func NewService(checker *passwordcheck.Checker, m *metrics.Metrics) *Service {
	return &Service{
		checker: checker,
		metrics: m,
	}
}

func (s *Service) Requirements() passwordcheck.Summary {
	return s.checker.Requirements().Summary()
}

// Check validates password and renders its witnesses. The match witness is
// only rendered when a repeat value was supplied.
func (s *Service) Check(req *model.PasswordCheckRequest) *model.PasswordCheckResponse {
	report := s.checker.Validate(req.Password)
	valid := report.Valid()
	s.metrics.ObserveEvaluation(valid, report.Strength.Score)

	resp := &model.PasswordCheckResponse{
		Report: report,
		Valid:  valid,
		View:   presenter.RenderPassword(report),
	}
	if req.Repeat != nil {
		w := s.renderMatch(req.Password, *req.Repeat)
		resp.Match = &w
	}
	return resp
}

func (s *Service) Match(req *model.PasswordMatchRequest) *model.PasswordMatchResponse {
	return &model.PasswordMatchResponse{
		Match:   s.checker.Match(req.Password, req.Repeat),
		Witness: s.renderMatch(req.Password, req.Repeat),
	}
}

func (s *Service) renderMatch(password, repeat string) presenter.Witness {
	return presenter.RenderMatch(password, repeat, func(a, b string) bool {
		matched := s.checker.Match(a, b)
		s.metrics.ObserveMatch(matched)
		return matched
	})
}

package model

import (
	"github.com/jwalitptl/register-api/internal/presenter"
	"github.com/jwalitptl/register-api/pkg/passwordcheck"
)

// PasswordCheckRequest is sent by the form on every keystroke. Repeat is
// optional; when present the match witness is rendered too.
type PasswordCheckRequest struct {
	Password string  `json:"password"`
	Repeat   *string `json:"repeat,omitempty"`
}

type PasswordMatchRequest struct {
	Password string `json:"password"`
	Repeat   string `json:"repeat"`
}

type PasswordCheckResponse struct {
	Report passwordcheck.Report   `json:"report"`
	Valid  bool                   `json:"valid"`
	View   presenter.PasswordView `json:"view"`
	Match  *presenter.Witness     `json:"match,omitempty"`
}

type PasswordMatchResponse struct {
	Match   bool              `json:"match"`
	Witness presenter.Witness `json:"witness"`
}

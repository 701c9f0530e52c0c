// Package passwordcheck evaluates passwords against a fixed set of
// requirements and scores their strength. Checkers hold no mutable state and
// are safe for concurrent use.
package passwordcheck

import (
	"unicode"
	"unicode/utf8"
)

// Result is the outcome of a single requirement.
type Result struct {
	Validated bool `json:"validated"`
}

// Strength is the scored outcome of the strength requirement.
type Strength struct {
	Score     int  `json:"score"`
	Validated bool `json:"validated"`
}

// Report holds one result per active requirement. Inactive requirements are nil.
type Report struct {
	Min          *Result  `json:"min,omitempty"`
	Max          *Result  `json:"max,omitempty"`
	Capitals     *Result  `json:"capitals,omitempty"`
	Numbers      *Result  `json:"numbers,omitempty"`
	SpecialChars *Result  `json:"special_chars,omitempty"`
	Strength     Strength `json:"strength"`
}

// Valid reports whether every active requirement passed, strength included.
func (r Report) Valid() bool {
	for _, res := range []*Result{r.Min, r.Max, r.Capitals, r.Numbers, r.SpecialChars} {
		if res != nil && !res.Validated {
			return false
		}
	}
	return r.Strength.Validated
}

type Checker struct {
	req Requirements
}

// New returns a Checker for req. It fails when req is inconsistent, which can
// only happen for a Requirements value not built through NewRequirements.
func New(req Requirements) (*Checker, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return &Checker{req: req}, nil
}

// MustNew is like New but panics on invalid requirements.
func MustNew(req Requirements) *Checker {
	c, err := New(req)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Checker) Requirements() Requirements {
	return c.req
}

// Validate evaluates password against every active requirement. It never fails;
// an empty password simply fails every check.
func (c *Checker) Validate(password string) Report {
	comp := analyze(password)

	var report Report
	if n, ok := c.req.minLength.Value(); ok {
		report.Min = &Result{Validated: comp.length >= n}
	}
	if n, ok := c.req.maxLength.Value(); ok {
		report.Max = &Result{Validated: comp.length <= n}
	}
	if c.req.capitals {
		report.Capitals = &Result{Validated: comp.upper}
	}
	if c.req.numbers {
		report.Numbers = &Result{Validated: comp.digit}
	}
	if c.req.specialChars {
		report.SpecialChars = &Result{Validated: comp.special}
	}

	score := comp.score()
	report.Strength = Strength{
		Score:     score,
		Validated: score >= c.req.minStrength,
	}
	return report
}

// Match reports whether a and b are identical.
func (c *Checker) Match(a, b string) bool {
	return Match(a, b)
}

// Match reports whether a and b are identical. No normalization is applied.
func Match(a, b string) bool {
	return a == b
}

// composition records which character classes a password contains.
type composition struct {
	length  int
	lower   bool
	upper   bool
	digit   bool
	special bool
}

func analyze(password string) composition {
	comp := composition{length: utf8.RuneCountInString(password)}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			comp.upper = true
		case unicode.IsLower(r):
			comp.lower = true
		case unicode.IsDigit(r):
			comp.digit = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			comp.special = true
		}
	}
	return comp
}

package passwordcheck

import (
	"errors"
	"fmt"
)

// MaxStrength is the top of the strength scale.
const MaxStrength = 100

var ErrInvalidRequirements = errors.New("invalid password requirements")

// Limit is a length threshold that is either disabled or enabled with a value.
// The zero value is disabled.
type Limit struct {
	value   int
	enabled bool
}

// Disabled returns a limit that is never checked
func Disabled() Limit {
	return Limit{}
}

// Enabled returns a limit checked against n
func Enabled(n int) Limit {
	return Limit{value: n, enabled: true}
}

// AtLeast reads better for minimum lengths.
func AtLeast(n int) Limit { return Enabled(n) }

// AtMost reads better for maximum lengths.
func AtMost(n int) Limit { return Enabled(n) }

func (l Limit) Enabled() bool { return l.enabled }

// Value returns the threshold and whether the limit is enabled.
func (l Limit) Value() (int, bool) { return l.value, l.enabled }

func (l Limit) String() string {
	if !l.enabled {
		return "disabled"
	}
	return fmt.Sprintf("%d", l.value)
}

// Requirements is the immutable set of rules a password is checked against.
type Requirements struct {
	minLength    Limit
	maxLength    Limit
	capitals     bool
	numbers      bool
	specialChars bool
	minStrength  int
}

// Option configures Requirements
type Option func(*Requirements)

func WithMinLength(l Limit) Option {
	return func(r *Requirements) {
		r.minLength = l
	}
}

func WithMaxLength(l Limit) Option {
	return func(r *Requirements) {
		r.maxLength = l
	}
}

func WithCapitals(required bool) Option {
	return func(r *Requirements) {
		r.capitals = required
	}
}

func WithNumbers(required bool) Option {
	return func(r *Requirements) {
		r.numbers = required
	}
}

func WithSpecialChars(required bool) Option {
	return func(r *Requirements) {
		r.specialChars = required
	}
}

func WithMinStrength(score int) Option {
	return func(r *Requirements) {
		r.minStrength = score
	}
}

// NewRequirements applies opts over an empty rule set and checks that the
// result is consistent.
func NewRequirements(opts ...Option) (Requirements, error) {
	var r Requirements
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.validate(); err != nil {
		return Requirements{}, err
	}
	return r, nil
}

// DefaultRequirements mirrors the registration form defaults.
func DefaultRequirements() Requirements {
	return Requirements{
		minLength:   AtLeast(3),
		maxLength:   Disabled(),
		capitals:    true,
		numbers:     true,
		minStrength: 80,
	}
}

func (r Requirements) validate() error {
	if r.minStrength < 0 || r.minStrength > MaxStrength {
		return fmt.Errorf("%w: strength %d outside [0,%d]", ErrInvalidRequirements, r.minStrength, MaxStrength)
	}
	lo, loOn := r.minLength.Value()
	hi, hiOn := r.maxLength.Value()
	if loOn && lo < 0 {
		return fmt.Errorf("%w: negative min length %d", ErrInvalidRequirements, lo)
	}
	if hiOn && hi < 0 {
		return fmt.Errorf("%w: negative max length %d", ErrInvalidRequirements, hi)
	}
	if loOn && hiOn && lo > hi {
		return fmt.Errorf("%w: min length %d exceeds max length %d", ErrInvalidRequirements, lo, hi)
	}
	return nil
}

func (r Requirements) MinLength() Limit { return r.minLength }
func (r Requirements) MaxLength() Limit { return r.maxLength }
func (r Requirements) RequireCapitals() bool { return r.capitals }
func (r Requirements) RequireNumbers() bool { return r.numbers }
func (r Requirements) RequireSpecials() bool { return r.specialChars }
func (r Requirements) MinStrength() int { return r.minStrength }

// Summary is the JSON-friendly view of the active requirements.
type Summary struct {
	MinLength    *int `json:"min,omitempty"`
	MaxLength    *int `json:"max,omitempty"`
	Capitals     bool `json:"capitals"`
	Numbers      bool `json:"numbers"`
	SpecialChars bool `json:"special_chars"`
	Strength     int  `json:"strength"`
}

func (r Requirements) Summary() Summary {
	s := Summary{
		Capitals:     r.capitals,
		Numbers:      r.numbers,
		SpecialChars: r.specialChars,
		Strength:     r.minStrength,
	}
	if v, ok := r.minLength.Value(); ok {
		s.MinLength = &v
	}
	if v, ok := r.maxLength.Value(); ok {
		s.MaxLength = &v
	}
	return s
}

// Package presenter maps password reports onto the registration form's
// witnesses: the per-requirement ticks, the overall checker, the strength bar
// and the match indicator.
package presenter

import (
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/register-api/pkg/passwordcheck"
)

// Witness is the display state of a single indicator.
type Witness int

const (
	Hidden Witness = iota
	Validated
	NotValidated
)

var witnessNames = map[Witness]string{
	Hidden:       "hidden",
	Validated:    "validated",
	NotValidated: "not_validated",
}

func (w Witness) String() string {
	if name, ok := witnessNames[w]; ok {
		return name
	}
	return fmt.Sprintf("witness(%d)", int(w))
}

func (w Witness) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

func (w *Witness) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range witnessNames {
		if v == name {
			*w = k
			return nil
		}
	}
	return fmt.Errorf("unknown witness %q", name)
}

func witnessFor(validated bool) Witness {
	if validated {
		return Validated
	}
	return NotValidated
}

// Requirement witness keys.
const (
	KeyMin          = "min"
	KeyMax          = "max"
	KeyCapitals     = "capitals"
	KeyNumbers      = "numbers"
	KeySpecialChars = "special_chars"
	KeyStrength     = "strength"
)

// PasswordView is everything the form shows for the password field.
type PasswordView struct {
	Requirements  map[string]Witness  `json:"requirements"`
	Overall       Witness             `json:"overall"`
	StrengthBar   int                 `json:"strength_bar"`
	StrengthLabel passwordcheck.Label `json:"strength_label"`
}

// RenderPassword builds the view for report. Only active requirements get a
// witness; the overall witness is validated when all of them are.
func RenderPassword(report passwordcheck.Report) PasswordView {
	view := PasswordView{
		Requirements:  make(map[string]Witness, 6),
		StrengthBar:   report.Strength.Score,
		StrengthLabel: passwordcheck.LabelFor(report.Strength.Score),
	}

	for key, res := range map[string]*passwordcheck.Result{
		KeyMin:          report.Min,
		KeyMax:          report.Max,
		KeyCapitals:     report.Capitals,
		KeyNumbers:      report.Numbers,
		KeySpecialChars: report.SpecialChars,
	} {
		if res != nil {
			view.Requirements[key] = witnessFor(res.Validated)
		}
	}
	view.Requirements[KeyStrength] = witnessFor(report.Strength.Validated)
	view.Overall = witnessFor(report.Valid())

	return view
}

// RenderMatch hides the match witness until both fields hold text. match is
// only consulted when they do.
func RenderMatch(password, repeat string, match func(a, b string) bool) Witness {
	if password == "" || repeat == "" {
		return Hidden
	}
	return witnessFor(match(password, repeat))
}

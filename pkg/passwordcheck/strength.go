package passwordcheck

const (
	pointsPerRune  = 4
	maxLengthScore = 40

	lowerPoints   = 10
	upperPoints   = 15
	digitPoints   = 15
	specialPoints = 20
)

// Label buckets a strength score for display.
type Label string

const (
	LabelLow    Label = "Low"
	LabelMedium Label = "Medium"
	LabelHigh   Label = "High"
)

// LabelFor returns Low below 30, Medium below 80 and High otherwise.
func LabelFor(score int) Label {
	switch {
	case score < 30:
		return LabelLow
	case score < 80:
		return LabelMedium
	default:
		return LabelHigh
	}
}

// Score returns the strength of password in [0, MaxStrength]. Adding a rune or
// a new character class never lowers the score.
func Score(password string) int {
	return analyze(password).score()
}

func (c composition) score() int {
	score := c.length * pointsPerRune
	if score > maxLengthScore {
		score = maxLengthScore
	}

	if c.lower {
		score += lowerPoints
	}
	if c.upper {
		score += upperPoints
	}
	if c.digit {
		score += digitPoints
	}
	if c.special {
		score += specialPoints
	}

	if score < 0 {
		score = 0
	}
	if score > MaxStrength {
		score = MaxStrength
	}
	return score
}

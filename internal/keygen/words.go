package keygen

// defaultWords is the registration form's built-in word list.
var defaultWords = []string{
	"beautiful", "knee", "stupid", "question", "flashy", "tub", "curvy", "cheat", "screw", "testy",
	"electric", "bath", "behavior", "abiding", "tall", "royal", "hurt", "door", "kindly", "bent",
	"pin", "vanish", "mindless", "defeated", "admire", "argument", "keen", "tickle", "box", "ready",
	"wish", "ambitious", "yarn", "sable", "spiffy", "busy", "snore", "guarantee", "north", "jumbled",
	"selection", "bag", "sweet", "scribble", "brash", "merciful", "miss", "dead", "number", "married",
	"dime", "insidious", "vulgar", "overconfident", "achiever", "mushy", "pointless", "sniff", "wail", "nerv",
}

// DefaultWords returns a copy of the built-in word list.
func DefaultWords() []string {
	out := make([]string, len(defaultWords))
	copy(out, defaultWords)
	return out
}

package feedback

import (
	"github.com/mcoot/numduel/internal/model"
)

// Result is the full evaluation of a guess against a secret
type Result struct {
	Exact        int
	TotalCorrect int
}

// ValidateNumber checks that s is exactly NumberLength ASCII digits.
// Leading zeros and repeated digits are allowed.
func ValidateNumber(s string) error {
	if len(s) != model.NumberLength {
		return model.ErrInvalidNumber
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return model.ErrInvalidNumber
		}
	}
	return nil
}

// Evaluate compares a guess with a secret. Both must already be valid.
// TotalCorrect is the size of the digit multiset intersection, so a
// repeated guess digit only counts as often as it occurs in the secret.
func Evaluate(guess, secret string) Result {
	var guessCounts, secretCounts [10]int
	exact := 0
	for i := 0; i < model.NumberLength; i++ {
		if guess[i] == secret[i] {
			exact++
		}
		guessCounts[guess[i]-'0']++
		secretCounts[secret[i]-'0']++
	}

	total := 0
	for d := 0; d < 10; d++ {
		total += min(guessCounts[d], secretCounts[d])
	}
	return Result{Exact: exact, TotalCorrect: total}
}

// IsWin reports whether every digit is in place
func (r Result) IsWin() bool {
	return r.Exact == model.NumberLength
}

// Disclose returns the feedback the guessing player is allowed to see
func (r Result) Disclose(mode model.GameMode) model.Feedback {
	if mode == model.GameModeHard {
		total := r.TotalCorrect
		return model.Feedback{Exact: r.Exact, TotalCorrect: &total}
	}
	misplaced := r.TotalCorrect - r.Exact
	outOfPlace := model.NumberLength - r.TotalCorrect
	return model.Feedback{Exact: r.Exact, Misplaced: &misplaced, OutOfPlace: &outOfPlace}
}

package feedback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/numduel/internal/model"
)

func TestValidateNumber(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"12345", true},
		{"00000", true},
		{"01234", true},
		{"11111", true},
		{"1234", false},
		{"123456", false},
		{"", false},
		{"1234a", false},
		{"12 45", false},
		{"-1234", false},
		{"١٢٣٤٥", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNumber(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrInvalidNumber)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		guess, secret string
		exact, total  int
	}{
		{"12345", "12345", 5, 5},
		{"54321", "12345", 1, 5},
		{"67890", "12345", 0, 0},
		{"11111", "12345", 1, 1},
		{"12345", "11111", 1, 1},
		{"11222", "12121", 2, 4},
		{"00000", "00000", 5, 5},
		{"10000", "00001", 3, 5},
		{"13579", "97531", 1, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.guess, tt.secret), func(t *testing.T) {
			r := Evaluate(tt.guess, tt.secret)
			assert.Equal(t, tt.exact, r.Exact)
			assert.Equal(t, tt.total, r.TotalCorrect)
		})
	}
}

func TestStandardFeedbackAlwaysSumsToFive(t *testing.T) {
	numbers := []string{"12345", "11111", "00000", "54321", "11223", "90909", "67890", "12121"}
	for _, g := range numbers {
		for _, s := range numbers {
			f := Evaluate(g, s).Disclose(model.GameModeStandard)
			require.NotNil(t, f.Misplaced)
			require.NotNil(t, f.OutOfPlace)
			assert.Equal(t, model.NumberLength, f.Exact+*f.Misplaced+*f.OutOfPlace, "%s vs %s", g, s)
			assert.Nil(t, f.TotalCorrect)
		}
	}
}

func TestPermutationHasAllDigitsCorrect(t *testing.T) {
	r := Evaluate("23451", "12345")
	assert.Equal(t, 5, r.TotalCorrect)
	assert.Less(t, r.Exact, 5)
	assert.False(t, r.IsWin())
}

func TestHardModeWithholdsBreakdown(t *testing.T) {
	f := Evaluate("54321", "12345").Disclose(model.GameModeHard)
	assert.Equal(t, 1, f.Exact)
	require.NotNil(t, f.TotalCorrect)
	assert.Equal(t, 5, *f.TotalCorrect)
	assert.Nil(t, f.Misplaced)
	assert.Nil(t, f.OutOfPlace)
}

func TestWinIsIdenticalAcrossModes(t *testing.T) {
	r := Evaluate("12345", "12345")
	assert.True(t, r.IsWin())
	assert.True(t, r.Disclose(model.GameModeStandard).IsWin())
	assert.True(t, r.Disclose(model.GameModeHard).IsWin())
}

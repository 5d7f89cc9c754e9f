package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeFormatters(t *testing.T) {
	tests := []struct {
		scale Scale
		value Raw
		want  string
	}{
		{Stars5, "4.5", "4.5 ★"},
		{Stars10, "9", "9 ★"},
		{Numeric10, "8.5", "8.5/10"},
		{Numeric100, "87", "87/100"},
		{LetterGrade, "b+", "B+"},
		{Float, "0.73", "0.73"},
		{Float, "0.5", "0.50"},
	}
	for _, tt := range tests {
		info, ok := Describe(tt.scale)
		require.True(t, ok, tt.scale)
		assert.Equal(t, tt.want, info.Format(tt.value), tt.scale)
	}
}

func TestDescribeShapes(t *testing.T) {
	for _, s := range Scales() {
		info, ok := Describe(s)
		require.True(t, ok, s)
		assert.Equal(t, s, info.Scale)
		assert.NotEmpty(t, info.Label)
		if s == LetterGrade {
			assert.Nil(t, info.Bounds)
			assert.Equal(t, []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}, info.Options)
			continue
		}
		require.NotNil(t, info.Bounds, s)
		assert.Less(t, info.Bounds.Min, info.Bounds.Max)
		assert.Positive(t, info.Bounds.Step)
	}

	stars, _ := Describe(Stars5)
	assert.Equal(t, Bounds{Min: 0, Max: 5, Step: 0.5}, *stars.Bounds)
}

func TestDescribeUnknownScale(t *testing.T) {
	_, ok := Describe("bogus")
	assert.False(t, ok)
}

func TestDescribeOptionsAreCopied(t *testing.T) {
	info, _ := Describe(LetterGrade)
	info.Options[0] = "Z"

	again, _ := Describe(LetterGrade)
	assert.Equal(t, "A+", again.Options[0])
}

func TestOriginalDisplay(t *testing.T) {
	assert.Equal(t, "87/100", Original{Value: "87", Scale: Numeric100}.Display())
	assert.Equal(t, "7", Original{Value: " 7 ", Scale: "bogus"}.Display())
}

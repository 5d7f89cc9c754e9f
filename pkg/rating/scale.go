package rating

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidRating is returned for unknown scales, unparseable values and
// letter grades outside the grade table.
var ErrInvalidRating = errors.New("invalid rating")

// Scale identifies how a raw rating value is read.
type Scale string

const (
	Stars5      Scale = "stars_5"
	Stars10     Scale = "stars_10"
	Numeric10   Scale = "numeric_10"
	Numeric100  Scale = "numeric_100"
	LetterGrade Scale = "letter_grade"
	Float       Scale = "float"
)

// Scales returns every supported scale.
func Scales() []Scale {
	return []Scale{Stars5, Stars10, Numeric10, Numeric100, LetterGrade, Float}
}

// scaleAliases maps a folded spelling (lower case, no separators) to its scale,
// so both "stars_5" and "stars5" resolve.
var scaleAliases = func() map[string]Scale {
	m := make(map[string]Scale)
	for _, s := range Scales() {
		m[foldScale(string(s))] = s
	}
	return m
}()

func foldScale(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ParseScale resolves a scale tag. Unknown tags fail with ErrInvalidRating.
func ParseScale(s string) (Scale, error) {
	if sc, ok := scaleAliases[foldScale(s)]; ok {
		return sc, nil
	}
	return "", fmt.Errorf("%w: unknown rating scale %q", ErrInvalidRating, s)
}

// Valid reports whether s is one of the supported scales.
func (s Scale) Valid() bool {
	return slices.Contains(Scales(), s)
}

// Grade is one entry of the letter-grade table.
type Grade struct {
	Letter string  `json:"letter"`
	Value  float64 `json:"value"`
}

var gradeTable = map[string]float64{
	"A+": 1.00, "A": 0.95, "A-": 0.90,
	"B+": 0.87, "B": 0.83, "B-": 0.80,
	"C+": 0.77, "C": 0.73, "C-": 0.70,
	"D+": 0.67, "D": 0.63, "D-": 0.60,
	"F": 0.00,
}

// Grades returns the letter grades ordered by descending normalized value.
func Grades() []Grade {
	grades := make([]Grade, 0, len(gradeTable))
	for letter, v := range gradeTable {
		grades = append(grades, Grade{Letter: letter, Value: v})
	}
	slices.SortFunc(grades, func(a, b Grade) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return strings.Compare(a.Letter, b.Letter)
	})
	return grades
}

func gradeLetters() []string {
	grades := Grades()
	letters := make([]string, len(grades))
	for i, g := range grades {
		letters[i] = g.Letter
	}
	return letters
}

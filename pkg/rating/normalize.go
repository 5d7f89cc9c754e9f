package rating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Raw is a rating as the reviewer entered it: a real number on the numeric
// scales or a letter on the letter-grade scale.
type Raw string

// Number builds a Raw from a float.
func Number(v float64) Raw {
	return Raw(strconv.FormatFloat(v, 'f', -1, 64))
}

// Float reads r as a finite real number.
func (r Raw) Float() (float64, error) {
	s := strings.TrimSpace(string(r))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRating, string(r))
	}
	return v, nil
}

// MarshalJSON emits a JSON number when r reads as one, otherwise a string.
func (r Raw) MarshalJSON() ([]byte, error) {
	if v, err := r.Float(); err == nil {
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (r *Raw) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Raw(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rating value must be a number or a string: %w", err)
	}
	*r = Raw(n.String())
	return nil
}

// Original pairs a raw value with the scale it was entered on.
type Original struct {
	Value Raw   `json:"value"`
	Scale Scale `json:"scale"`
}

// Normalized converts o to the canonical [0,1] value.
func (o Original) Normalized() (float64, error) {
	return Normalize(o.Value, o.Scale)
}

// Normalize converts value, read on scale, to a number in [0,1].
func Normalize(value Raw, scale Scale) (float64, error) {
	var divisor float64
	switch scale {
	case Stars5:
		divisor = 5
	case Stars10, Numeric10:
		divisor = 10
	case Numeric100:
		divisor = 100
	case Float:
		divisor = 1
	case LetterGrade:
		return normalizeGrade(value)
	default:
		return 0, fmt.Errorf("%w: unknown rating scale %q", ErrInvalidRating, string(scale))
	}

	v, err := value.Float()
	if err != nil {
		return 0, err
	}
	return clamp(v / divisor), nil
}

func normalizeGrade(value Raw) (float64, error) {
	letter := strings.ToUpper(strings.TrimSpace(string(value)))
	v, ok := gradeTable[letter]
	if !ok {
		return 0, fmt.Errorf("%w: invalid letter grade %q", ErrInvalidRating, string(value))
	}
	return v, nil
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

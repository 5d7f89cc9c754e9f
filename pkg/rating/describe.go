package rating

import (
	"strconv"
	"strings"
)

// Bounds describes the input range of a numeric scale.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// ScaleInfo is the display metadata for a scale. Numeric scales carry Bounds,
// the letter scale carries Options.
type ScaleInfo struct {
	Scale   Scale            `json:"scale"`
	Label   string           `json:"label"`
	Bounds  *Bounds          `json:"bounds,omitempty"`
	Options []string         `json:"options,omitempty"`
	Format  func(Raw) string `json:"-"`
}

var scaleInfo = map[Scale]ScaleInfo{
	Stars5: {
		Label:  "5 Stars",
		Bounds: &Bounds{Min: 0, Max: 5, Step: 0.5},
		Format: func(v Raw) string { return displayNumber(v) + " ★" },
	},
	Stars10: {
		Label:  "10 Stars",
		Bounds: &Bounds{Min: 0, Max: 10, Step: 0.5},
		Format: func(v Raw) string { return displayNumber(v) + " ★" },
	},
	Numeric10: {
		Label:  "Score (0-10)",
		Bounds: &Bounds{Min: 0, Max: 10, Step: 0.1},
		Format: func(v Raw) string { return displayNumber(v) + "/10" },
	},
	Numeric100: {
		Label:  "Score (0-100)",
		Bounds: &Bounds{Min: 0, Max: 100, Step: 1},
		Format: func(v Raw) string { return displayNumber(v) + "/100" },
	},
	LetterGrade: {
		Label:   "Letter Grade",
		Options: gradeLetters(),
		Format:  func(v Raw) string { return strings.ToUpper(strings.TrimSpace(string(v))) },
	},
	Float: {
		Label:  "Float (0.0-1.0)",
		Bounds: &Bounds{Min: 0, Max: 1, Step: 0.01},
		Format: func(v Raw) string {
			f, err := v.Float()
			if err != nil {
				return strings.TrimSpace(string(v))
			}
			return strconv.FormatFloat(f, 'f', 2, 64)
		},
	},
}

// Describe returns display metadata for scale. The boolean is false for
// unknown scales.
func Describe(scale Scale) (ScaleInfo, bool) {
	info, ok := scaleInfo[scale]
	if !ok {
		return ScaleInfo{}, false
	}
	info.Scale = scale
	if info.Bounds != nil {
		b := *info.Bounds
		info.Bounds = &b
	}
	if info.Options != nil {
		info.Options = append([]string(nil), info.Options...)
	}
	return info, true
}

// Display renders value with the formatter of its scale, falling back to the
// raw text for unknown scales.
func (o Original) Display() string {
	info, ok := Describe(o.Scale)
	if !ok {
		return strings.TrimSpace(string(o.Value))
	}
	return info.Format(o.Value)
}

func displayNumber(v Raw) string {
	f, err := v.Float()
	if err != nil {
		return strings.TrimSpace(string(v))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

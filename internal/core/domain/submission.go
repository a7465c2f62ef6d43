package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// CBCSubmission is one set of Complete Blood Count measurements. JSON keys
// match the names the classifier was trained on.
type CBCSubmission struct {
	Age        float64 `json:"Age"`
	Sex        Sex     `json:"Sex"`
	Hemoglobin float64 `json:"Hemoglobin"`
	Hematocrit float64 `json:"Hematocrit"`
	RBC        float64 `json:"RBC"`
	MCV        float64 `json:"MCV"`
	MCH        float64 `json:"MCH"`
	MCHC       float64 `json:"MCHC"`
	WBC        float64 `json:"WBC"`
	Platelets  float64 `json:"Platelets"`
}

// ValidationError lists every field of a submission that could not be
// accepted, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// ParseSubmission coerces a decoded JSON object into a CBCSubmission.
// Numbers may arrive as JSON numbers or numeric strings.
func ParseSubmission(raw map[string]any) (CBCSubmission, error) {
	var (
		sub     CBCSubmission
		invalid = map[string]string{}
	)

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"Age", &sub.Age},
		{"Hemoglobin", &sub.Hemoglobin},
		{"Hematocrit", &sub.Hematocrit},
		{"RBC", &sub.RBC},
		{"MCV", &sub.MCV},
		{"MCH", &sub.MCH},
		{"MCHC", &sub.MCHC},
		{"WBC", &sub.WBC},
		{"Platelets", &sub.Platelets},
	}

	for _, f := range numeric {
		v, ok := raw[f.name]
		if !ok || v == nil {
			invalid[f.name] = "missing"
			continue
		}
		if _, isBool := v.(bool); isBool {
			invalid[f.name] = "not a number"
			continue
		}
		if s, isString := v.(string); isString {
			v = strings.TrimSpace(s)
			if v == "" {
				invalid[f.name] = "missing"
				continue
			}
		}
		n, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			invalid[f.name] = "not a number"
			continue
		}
		*f.dst = n
	}

	switch v, ok := raw["Sex"]; {
	case !ok || v == nil:
		invalid["Sex"] = "missing"
	default:
		s, err := cast.ToStringE(v)
		sex := Sex(strings.ToUpper(strings.TrimSpace(s)))
		if err != nil || (sex != SexMale && sex != SexFemale) {
			invalid["Sex"] = `must be "M" or "F"`
			break
		}
		sub.Sex = sex
	}

	if len(invalid) > 0 {
		return CBCSubmission{}, &ValidationError{Fields: invalid}
	}
	return sub, nil
}

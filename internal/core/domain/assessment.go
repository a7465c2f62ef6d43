package domain

import "strings"

// PredictionOutcome is what the classifier answered. Every field is
// optional; nil means the collaborator did not send a usable value.
type PredictionOutcome struct {
	Message     *string
	Anemia      *bool
	Probability *float64
}

type Status string

const (
	StatusAnemic        Status = "anemic"
	StatusNormal        Status = "normal"
	StatusIndeterminate Status = "indeterminate"
)

type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// WHO hemoglobin cut-offs in g/dL.
const (
	severeHemoglobin   = 8.0
	moderateHemoglobin = 11.0
)

// Assessment is the normalized form of a PredictionOutcome.
type Assessment struct {
	Status      Status
	Severity    Severity
	Label       string
	Probability *float64
}

// AnemiaFlag maps the status back to the 0/1 wire flag. Indeterminate has
// no flag.
func (a Assessment) AnemiaFlag() *int {
	var flag int
	switch a.Status {
	case StatusAnemic:
		flag = 1
	case StatusNormal:
		flag = 0
	default:
		return nil
	}
	return &flag
}

// Assess normalizes an outcome. An explicit anemia flag wins over the
// message label; with neither the outcome is indeterminate.
func Assess(outcome PredictionOutcome, sub CBCSubmission) Assessment {
	status := StatusIndeterminate
	switch {
	case outcome.Anemia != nil && *outcome.Anemia:
		status = StatusAnemic
	case outcome.Anemia != nil:
		status = StatusNormal
	case outcome.Message != nil:
		status = statusFromLabel(*outcome.Message)
	}

	a := Assessment{
		Status:      status,
		Probability: outcome.Probability,
		Label:       defaultLabel(status),
	}
	if outcome.Message != nil && strings.TrimSpace(*outcome.Message) != "" {
		a.Label = *outcome.Message
	}
	if status == StatusAnemic {
		a.Severity = severityFor(sub.Hemoglobin)
	}
	return a
}

func statusFromLabel(label string) Status {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return StatusIndeterminate
	case strings.Contains(l, "no anemi"), strings.Contains(l, "not anemi"), strings.Contains(l, "normal"):
		return StatusNormal
	case strings.Contains(l, "anemi"):
		return StatusAnemic
	}
	return StatusIndeterminate
}

func defaultLabel(s Status) string {
	switch s {
	case StatusAnemic:
		return "Anemia"
	case StatusNormal:
		return "No anemia"
	}
	return "Indeterminate"
}

func severityFor(hemoglobin float64) Severity {
	switch {
	case hemoglobin <= 0:
		return SeverityNone
	case hemoglobin < severeHemoglobin:
		return SeveritySevere
	case hemoglobin < moderateHemoglobin:
		return SeverityModerate
	}
	return SeverityMild
}

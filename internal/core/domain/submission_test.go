package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestParseSubmission_Numbers(t *testing.T) {
	raw := decode(t, `{"Age":30,"Sex":"F","Hemoglobin":12.5,"Hematocrit":36,"RBC":4.2,
		"MCV":90,"MCH":27,"MCHC":30,"WBC":7.0,"Platelets":250}`)

	sub, err := ParseSubmission(raw)
	require.NoError(t, err)
	assert.Equal(t, CBCSubmission{
		Age: 30, Sex: SexFemale, Hemoglobin: 12.5, Hematocrit: 36, RBC: 4.2,
		MCV: 90, MCH: 27, MCHC: 30, WBC: 7.0, Platelets: 250,
	}, sub)
}

func TestParseSubmission_CoercesNumericStrings(t *testing.T) {
	raw := decode(t, `{"Age":"45","Sex":" m ","Hemoglobin":"10.1","Hematocrit":"31",
		"RBC":"3.9","MCV":"80","MCH":"25","MCHC":"31.5","WBC":" 6.4 ","Platelets":"310"}`)

	sub, err := ParseSubmission(raw)
	require.NoError(t, err)
	assert.Equal(t, 45.0, sub.Age)
	assert.Equal(t, SexMale, sub.Sex)
	assert.Equal(t, 10.1, sub.Hemoglobin)
	assert.Equal(t, 31.5, sub.MCHC)
	assert.Equal(t, 6.4, sub.WBC)
}

func TestParseSubmission_ReportsEveryBadField(t *testing.T) {
	raw := decode(t, `{"Age":"old","Sex":"X","Hemoglobin":true,"Hematocrit":"",
		"RBC":4.2,"MCV":90,"MCH":27,"MCHC":30,"WBC":7.0}`)

	_, err := ParseSubmission(raw)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"Age":        "not a number",
		"Sex":        `must be "M" or "F"`,
		"Hemoglobin": "not a number",
		"Hematocrit": "missing",
		"Platelets":  "missing",
	}, verr.Fields)
	assert.Contains(t, err.Error(), "Age: not a number")
}

func TestParseSubmission_NilMap(t *testing.T) {
	_, err := ParseSubmission(nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 10)
}

func TestParseSubmission_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "NaN string", value: "NaN"},
		{name: "Inf string", value: "Inf"},
		{name: "negative infinity", value: "-Infinity"},
		{name: "NaN float", value: math.NaN()},
		{name: "Inf float", value: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, `{"Age":30,"Sex":"F","Hemoglobin":12.5,"Hematocrit":36,"RBC":4.2,
				"MCV":90,"MCH":27,"MCHC":30,"WBC":7.0,"Platelets":250}`)
			raw["Hemoglobin"] = tt.value

			_, err := ParseSubmission(raw)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, map[string]string{"Hemoglobin": "not a number"}, verr.Fields)
		})
	}
}

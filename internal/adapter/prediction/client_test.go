package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

func sampleSubmission() domain.CBCSubmission {
	return domain.CBCSubmission{
		Age: 30, Sex: domain.SexFemale, Hemoglobin: 12.5, Hematocrit: 36, RBC: 4.2,
		MCV: 90, MCH: 27, MCHC: 30, WBC: 7.0, Platelets: 250,
	}
}

func stubClassifier(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPredict_SendsSubmission(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":"No anemia","anemia":0,"probability":0.05}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleSubmission())
	require.NoError(t, err)

	assert.Equal(t, "F", got["Sex"])
	assert.Equal(t, 12.5, got["Hemoglobin"])
	assert.Equal(t, 250.0, got["Platelets"])
	assert.Len(t, got, 10)
}

func TestPredict_FullResponse(t *testing.T) {
	srv := stubClassifier(t, http.StatusOK, `{"message":"Anemia detected","anemia":1,"probability":0.92}`)

	out, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleSubmission())
	require.NoError(t, err)

	require.NotNil(t, out.Message)
	assert.Equal(t, "Anemia detected", *out.Message)
	require.NotNil(t, out.Anemia)
	assert.True(t, *out.Anemia)
	require.NotNil(t, out.Probability)
	assert.InDelta(t, 0.92, *out.Probability, 1e-9)
}

func TestPredict_PartialResponse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		message     bool
		anemia      *bool
		probability bool
	}{
		{name: "empty object", body: `{}`},
		{name: "message only", body: `{"message":"No anemia"}`, message: true},
		{name: "bool flag", body: `{"anemia":false}`, anemia: ptr(false)},
		{name: "string flag", body: `{"anemia":"1","probability":"0.4"}`, anemia: ptr(true), probability: true},
		{name: "unusable types dropped", body: `{"anemia":"maybe","probability":[1],"message":{"a":1}}`},
		{name: "null fields", body: `{"anemia":null,"probability":null,"message":null}`},
		{name: "NaN probability dropped", body: `{"anemia":1,"probability":"NaN"}`, anemia: ptr(true)},
		{name: "infinite probability dropped", body: `{"probability":"-Inf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stubClassifier(t, http.StatusOK, tt.body)

			out, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleSubmission())
			require.NoError(t, err)

			assert.Equal(t, tt.message, out.Message != nil)
			assert.Equal(t, tt.anemia, out.Anemia)
			assert.Equal(t, tt.probability, out.Probability != nil)
		})
	}
}

func TestPredict_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		msg    string
	}{
		{name: "bad request with error", status: http.StatusBadRequest, body: `{"error":"KeyError: 'Sex'"}`, msg: "KeyError: 'Sex'"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, msg: "returned 500"},
		{name: "unparsable body", status: http.StatusOK, body: `<html>`, msg: "decode response"},
		{name: "array body", status: http.StatusOK, body: `[1,2]`, msg: "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stubClassifier(t, tt.status, tt.body)

			_, err := NewClient(srv.URL, time.Second).Predict(context.Background(), sampleSubmission())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPredict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Predict(context.Background(), sampleSubmission())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
}

func TestPredict_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond).Predict(context.Background(), sampleSubmission())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func ptr[T any](v T) *T { return &v }

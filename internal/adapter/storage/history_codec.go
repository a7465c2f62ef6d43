package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cast"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

func encodeHistory(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

// decodeHistory reads a History document. Entries that do not match the
// current record layout are read as legacy entries: numeric ids, CBC values
// stored as strings and no status or severity.
func decodeHistory(data []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var entries []json.RawMessage
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptHistory, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after history", domain.ErrCorruptHistory)
	}

	records := make([]domain.Record, 0, len(entries))
	for i, entry := range entries {
		record, err := decodeRecord(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", domain.ErrCorruptHistory, i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeRecord(entry json.RawMessage) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(entry))
	dec.DisallowUnknownFields()

	var record domain.Record
	strictErr := dec.Decode(&record)
	if strictErr == nil && record.ID != "" && record.Status != "" {
		return record, nil
	}

	record, err := decodeLegacyRecord(entry)
	if err != nil {
		if strictErr != nil {
			return domain.Record{}, errors.Join(strictErr, err)
		}
		return domain.Record{}, err
	}
	return record, nil
}

func decodeLegacyRecord(entry json.RawMessage) (domain.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(entry, &raw); err != nil {
		return domain.Record{}, err
	}
	if raw == nil {
		return domain.Record{}, errors.New("record is null")
	}

	id, err := legacyID(raw["id"])
	if err != nil {
		return domain.Record{}, err
	}

	sub, err := domain.ParseSubmission(raw)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %s: %w", id, err)
	}

	ts, err := cast.ToStringE(raw["timestamp"])
	if err != nil || ts == "" {
		return domain.Record{}, fmt.Errorf("record %s: missing timestamp", id)
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %s: %w", id, err)
	}

	var outcome domain.PredictionOutcome
	if v, ok := raw["result"].(string); ok {
		outcome.Message = &v
	}
	if v := raw["anemia"]; v != nil {
		if b, err := cast.ToBoolE(v); err == nil {
			outcome.Anemia = &b
		}
	}
	if v := raw["probability"]; v != nil {
		if p, err := cast.ToFloat64E(v); err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
			outcome.Probability = &p
		}
	}

	return domain.NewRecord(id, sub, domain.Assess(outcome, sub), at), nil
}

// legacyID accepts the millisecond timestamps older servers used as ids.
func legacyID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		if id == math.Trunc(id) && !math.IsInf(id, 0) {
			return strconv.FormatFloat(id, 'f', -1, 64), nil
		}
	}
	return "", fmt.Errorf("invalid record id %v", v)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

var (
	baseURL       string
	totalRequests int
	cleanup       bool
)

var rootCmd = &cobra.Command{
	Use:   "stress_test",
	Short: "Fire concurrent CBC submissions and verify every success lands in History exactly once",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return run(cmd.Context(), logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "base URL of the service")
	rootCmd.Flags().IntVarP(&totalRequests, "requests", "n", 50, "number of concurrent submissions")
	rootCmd.Flags().BoolVar(&cleanup, "cleanup", true, "delete the records created by this run")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	client := &http.Client{Timeout: 30 * time.Second}

	before, err := listHistory(ctx, client)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	var (
		successCount atomic.Int32
		failCount    atomic.Int32
		mu           sync.Mutex
		created      []string
		wg           sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			record, err := submit(ctx, client, sampleSubmission(n))
			if err != nil {
				failCount.Add(1)
				logger.Debug("submission failed", zap.Int("n", n), zap.Error(err))
				return
			}
			successCount.Add(1)

			mu.Lock()
			created = append(created, record.ID)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	after, err := listHistory(ctx, client)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	seen := make(map[string]int, len(after))
	for _, r := range after {
		seen[r.ID]++
	}
	var missing, duplicated int
	for _, id := range created {
		switch seen[id] {
		case 0:
			missing++
		case 1:
		default:
			duplicated++
		}
	}

	logger.Info("stress test finished",
		zap.Int("requests", totalRequests),
		zap.Int32("succeeded", successCount.Load()),
		zap.Int32("failed", failCount.Load()),
		zap.Int("history_before", len(before)),
		zap.Int("history_after", len(after)),
		zap.Int("missing", missing),
		zap.Int("duplicated", duplicated),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rps", float64(totalRequests)/elapsed.Seconds()))

	if cleanup {
		for _, id := range created {
			if err := deleteRecord(ctx, client, id); err != nil {
				logger.Warn("cleanup failed", zap.String("record_id", id), zap.Error(err))
			}
		}
	}

	if missing > 0 || duplicated > 0 || len(after) != len(before)+int(successCount.Load()) {
		return fmt.Errorf("history lost or duplicated records")
	}
	return nil
}

func sampleSubmission(n int) map[string]any {
	sex := "F"
	if n%2 == 0 {
		sex = "M"
	}
	return map[string]any{
		"Age":        20 + n%60,
		"Sex":        sex,
		"Hemoglobin": 9.0 + float64(n%60)/10,
		"Hematocrit": 36,
		"RBC":        4.2,
		"MCV":        90,
		"MCH":        27,
		"MCHC":       30,
		"WBC":        7.0,
		"Platelets":  250,
	}
}

func submit(ctx context.Context, client *http.Client, body map[string]any) (domain.Record, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return domain.Record{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/check-anemia", bytes.NewReader(data))
	if err != nil {
		return domain.Record{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.Record{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Record{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	var record domain.Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return domain.Record{}, err
	}
	return record, nil
}

func listHistory(ctx context.Context, client *http.Client) ([]domain.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/history", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []domain.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func deleteRecord(ctx context.Context, client *http.Client, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, baseURL+"/api/history/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data/history.json", cfg.Storage.File.Path)
	assert.Equal(t, 10*time.Second, cfg.Prediction.Timeout)
	assert.Empty(t, cfg.Events.Kafka.Brokers)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
prediction:
  url: http://classifier:5000/predict
  timeout: 3s
storage:
  backend: redis
  redis:
    addr: redis:6379
    name: clinic-a
events:
  kafka:
    brokers: [kafka-1:9092, kafka-2:9092]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, "http://classifier:5000/predict", cfg.Prediction.URL)
	assert.Equal(t, 3*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "clinic-a", cfg.Storage.Redis.Name)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, "cbc-records", cfg.Events.Kafka.Topic)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("http: ["), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(fakeEnv(map[string]string{
		"ANEMIA_HTTP_ADDR":          ":8080",
		"ANEMIA_GRPC_ADDR":          "",
		"ANEMIA_STORAGE_BACKEND":    "s3",
		"ANEMIA_S3_BUCKET":          "cbc",
		"ANEMIA_PREDICTION_TIMEOUT": "250ms",
		"KAFKA_BROKERS":             " a:9092, ,b:9092 ",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "cbc", cfg.Storage.S3.Bucket)
	assert.Equal(t, 250*time.Millisecond, cfg.Prediction.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Kafka.Brokers)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_BadTimeout(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(fakeEnv(map[string]string{"ANEMIA_PREDICTION_TIMEOUT": "soon"}))
	assert.ErrorContains(t, err, "ANEMIA_PREDICTION_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "tape" },
			want:   []string{`storage.backend "tape"`},
		},
		{
			name: "missing fields reported together",
			mutate: func(c *Config) {
				c.HTTP.Addr = ""
				c.Prediction.Timeout = 0
			},
			want: []string{"http.addr is required", "prediction.timeout must be positive"},
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendS3
			},
			want: []string{"storage.s3.bucket"},
		},
		{
			name: "brokers without topic",
			mutate: func(c *Config) {
				c.Events.Kafka.Brokers = []string{"k:9092"}
				c.Events.Kafka.Topic = ""
			},
			want: []string{"events.kafka.topic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

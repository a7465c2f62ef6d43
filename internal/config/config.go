// Package config loads server settings from an optional YAML file and the
// environment. Environment variables win over the file, the file wins over
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMySQL = "mysql"
	BackendS3    = "s3"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Prediction PredictionConfig `yaml:"prediction"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Log        LogConfig        `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	// Addr empty disables the gRPC listener.
	Addr string `yaml:"addr"`
}

type PredictionConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	File    FileConfig  `yaml:"file"`
	Redis   RedisConfig `yaml:"redis"`
	MySQL   MySQLConfig `yaml:"mysql"`
	S3      S3Config    `yaml:"s3"`
}

type FileConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name"`
}

type MySQLConfig struct {
	DSN  string `yaml:"dsn"`
	Name string `yaml:"name"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Prediction: PredictionConfig{
			URL:     "http://127.0.0.1:5000/predict",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Path: "data/history.json"},
			Redis:   RedisConfig{Addr: "localhost:6379", Name: "default"},
			MySQL:   MySQLConfig{DSN: "root:root@tcp(localhost:3306)/anemia?parseTime=true", Name: "default"},
			S3:      S3Config{Key: "history/history.json"},
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{Topic: "cbc-records"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ANEMIA_HTTP_ADDR":       &c.HTTP.Addr,
		"ANEMIA_GRPC_ADDR":       &c.GRPC.Addr,
		"ANEMIA_PREDICTION_URL":  &c.Prediction.URL,
		"ANEMIA_STORAGE_BACKEND": &c.Storage.Backend,
		"ANEMIA_HISTORY_PATH":    &c.Storage.File.Path,
		"REDIS_ADDR":             &c.Storage.Redis.Addr,
		"MYSQL_DSN":              &c.Storage.MySQL.DSN,
		"ANEMIA_S3_BUCKET":       &c.Storage.S3.Bucket,
		"ANEMIA_S3_ENDPOINT":     &c.Storage.S3.Endpoint,
		"KAFKA_TOPIC":            &c.Events.Kafka.Topic,
		"ANEMIA_LOG_LEVEL":       &c.Log.Level,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("ANEMIA_PREDICTION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ANEMIA_PREDICTION_TIMEOUT: %w", err)
		}
		c.Prediction.Timeout = d
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok {
		c.Events.Kafka.Brokers = splitList(v)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Prediction.URL == "" {
		errs = append(errs, errors.New("prediction.url is required"))
	}
	if c.Prediction.Timeout <= 0 {
		errs = append(errs, errors.New("prediction.timeout must be positive"))
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.File.Path == "" {
			errs = append(errs, errors.New("storage.file.path is required"))
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is required"))
		}
	case BackendMySQL:
		if c.Storage.MySQL.DSN == "" {
			errs = append(errs, errors.New("storage.mysql.dsn is required"))
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Key == "" {
			errs = append(errs, errors.New("storage.s3.bucket and storage.s3.key are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of file, redis, mysql, s3", c.Storage.Backend))
	}

	if len(c.Events.Kafka.Brokers) > 0 && c.Events.Kafka.Topic == "" {
		errs = append(errs, errors.New("events.kafka.topic is required when brokers are set"))
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

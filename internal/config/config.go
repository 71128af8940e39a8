package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMariaDB  = "mysql"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"-"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Encoder     EncoderConfig     `yaml:"encoder"`
	Web         WebConfig         `yaml:"web"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	Driver       string // postgres (default) or mysql
	URL          string // PostgreSQL connection URL or MariaDB DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RecognitionConfig struct {
	Tolerance    float64 `yaml:"tolerance"`     // maximum Euclidean distance for a match
	EmbeddingDim int     `yaml:"embedding_dim"` // expected encoder output length
	MinImageDim  int     `yaml:"min_image_dim"` // enrollment photo minimum width and height in pixels
	MinFaceDim   int     `yaml:"min_face_dim"`  // enrollment face box minimum width and height in pixels
	FrameScale   float64 `yaml:"frame_scale"`   // attendance frames are resized by this factor before detection
}

type EncoderConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the encoder request timeout.
func (c EncoderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type WebConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	MarkRatePerSecond float64  `yaml:"mark_rate_per_second"` // per client IP
	MarkBurst         int      `yaml:"mark_burst"`
	AllowedOrigins    []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

type AttendanceConfig struct {
	TimeZone string `yaml:"timezone"` // IANA zone that decides the attendance day
}

// Location returns the configured time zone, UTC if it cannot be loaded.
func (c AttendanceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // optional rotating log file
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for v := range strings.SplitSeq(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Defaults returns the embedded build-time configuration.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	cfg.Database = DatabaseConfig{Driver: DriverPostgres, MaxOpenConns: 25, MaxIdleConns: 5}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", d.Database.Driver)),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Recognition: RecognitionConfig{
			Tolerance:    envFloat("FACE_MATCH_TOLERANCE", d.Recognition.Tolerance),
			EmbeddingDim: envInt("FACE_EMBEDDING_DIM", d.Recognition.EmbeddingDim),
			MinImageDim:  envInt("FACE_MIN_IMAGE_DIM", d.Recognition.MinImageDim),
			MinFaceDim:   envInt("FACE_MIN_FACE_DIM", d.Recognition.MinFaceDim),
			FrameScale:   envFloat("FACE_FRAME_SCALE", d.Recognition.FrameScale),
		},
		Encoder: EncoderConfig{
			URL:            envString("ENCODER_URL", d.Encoder.URL),
			TimeoutSeconds: envInt("ENCODER_TIMEOUT_SECONDS", d.Encoder.TimeoutSeconds),
		},
		Web: WebConfig{
			Host:              envString("WEB_HOST", d.Web.Host),
			Port:              envInt("WEB_PORT", d.Web.Port),
			MarkRatePerSecond: envFloat("WEB_MARK_RATE_PER_SECOND", d.Web.MarkRatePerSecond),
			MarkBurst:         envInt("WEB_MARK_BURST", d.Web.MarkBurst),
			AllowedOrigins:    envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
		},
		Attendance: AttendanceConfig{
			TimeZone: envString("ATTENDANCE_TIMEZONE", d.Attendance.TimeZone),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", d.Log.Level),
			File:  os.Getenv("LOG_FILE"),
		},
	}
}

// Validate reports configuration values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverMariaDB:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q (use %s or %s)", c.Database.Driver, DriverPostgres, DriverMariaDB))
	}
	if !(c.Recognition.Tolerance > 0) {
		errs = append(errs, errors.New("FACE_MATCH_TOLERANCE must be positive"))
	}
	if !(c.Recognition.FrameScale > 0) || c.Recognition.FrameScale > 1 {
		errs = append(errs, errors.New("FACE_FRAME_SCALE must be in (0, 1]"))
	}
	if _, err := time.LoadLocation(c.Attendance.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

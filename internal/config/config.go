package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Frame source backends.
const (
	SourceOpenCV = "opencv"
	SourceV4L2   = "v4l2"
)

type Config struct {
	Port           int
	AllowedOrigins []string

	KnownDistance       float64 // Reference distance used during calibration
	KnownWidth          float64 // Real width of the reference face, same unit as KnownDistance
	DistanceUnit        string  // Unit label drawn next to the estimate
	DistanceScale       float64 // Multiplier applied to every reported estimate
	FocalLength         float64 // Fixed focal length in pixels; 0 means calibrate per session
	CalibrationAttempts int
	CalibrationInterval time.Duration

	CascadePath  string
	ScaleFactor  float64
	MinNeighbors int
	MinFaceSize  int

	FrameSource      string
	DeviceMaxIndex   int // Camera indexes probed per round (0..DeviceMaxIndex-1)
	DeviceRetries    int
	DeviceRetryDelay time.Duration
	FrameRetries     int // Consecutive missed frames tolerated while streaming
	V4L2Device       string
	FrameInterval    time.Duration // Pause between steady-state frames
	JPEGQuality      int

	LogDirectory string
	LogLevel     string
}

// Load reads the configuration from the environment. Variables from ./.env,
// when present, are loaded first and never override variables that are
// already set.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	return fromEnv()
}

// LoadFile is Load with an explicit .env file, which must exist.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Port:           getEnvAsInt("PORT", 8000),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),

		KnownDistance:       getEnvAsFloat("KNOWN_DISTANCE", 0.45), // meters
		KnownWidth:          getEnvAsFloat("KNOWN_WIDTH", 0.15),    // meters
		DistanceUnit:        getEnv("DISTANCE_UNIT", "m"),
		DistanceScale:       getEnvAsFloat("DISTANCE_SCALE", 1.0),
		FocalLength:         getEnvAsFloat("FOCAL_LENGTH", 0),
		CalibrationAttempts: getEnvAsInt("CALIBRATION_ATTEMPTS", 30),
		CalibrationInterval: getEnvAsMillis("CALIBRATION_INTERVAL_MS", 50),

		CascadePath:  getEnv("CASCADE_PATH", filepath.Join(".", "data", "haarcascade_frontalface_default.xml")),
		ScaleFactor:  getEnvAsFloat("SCALE_FACTOR", 1.1),
		MinNeighbors: getEnvAsInt("MIN_NEIGHBORS", 3),
		MinFaceSize:  getEnvAsInt("MIN_FACE_SIZE", 30),

		FrameSource:      strings.ToLower(getEnv("FRAME_SOURCE", SourceOpenCV)),
		DeviceMaxIndex:   getEnvAsInt("DEVICE_MAX_INDEX", 5),
		DeviceRetries:    getEnvAsInt("DEVICE_RETRIES", 5),
		DeviceRetryDelay: getEnvAsMillis("DEVICE_RETRY_DELAY_MS", 1000),
		FrameRetries:     getEnvAsInt("FRAME_RETRIES", 5),
		V4L2Device:       getEnv("V4L2_DEVICE", "/dev/video0"),
		FrameInterval:    getEnvAsMillis("FRAME_INTERVAL_MS", 100),
		JPEGQuality:      getEnvAsInt("JPEG_QUALITY", 90),

		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.KnownDistance <= 0:
		return fmt.Errorf("KNOWN_DISTANCE must be positive, got %v", c.KnownDistance)
	case c.KnownWidth <= 0:
		return fmt.Errorf("KNOWN_WIDTH must be positive, got %v", c.KnownWidth)
	case c.DistanceScale <= 0:
		return fmt.Errorf("DISTANCE_SCALE must be positive, got %v", c.DistanceScale)
	case c.FocalLength < 0:
		return fmt.Errorf("FOCAL_LENGTH must not be negative, got %v", c.FocalLength)
	case c.CalibrationAttempts <= 0:
		return fmt.Errorf("CALIBRATION_ATTEMPTS must be positive, got %d", c.CalibrationAttempts)
	case c.DeviceMaxIndex <= 0 || c.DeviceRetries <= 0:
		return fmt.Errorf("DEVICE_MAX_INDEX and DEVICE_RETRIES must be positive")
	case c.FrameRetries < 0:
		return fmt.Errorf("FRAME_RETRIES must not be negative, got %d", c.FrameRetries)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("JPEG_QUALITY must be within 1..100, got %d", c.JPEGQuality)
	case c.FrameSource != SourceOpenCV && c.FrameSource != SourceV4L2:
		return fmt.Errorf("unknown FRAME_SOURCE %q", c.FrameSource)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

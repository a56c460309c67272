package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Raster      RasterConfig    `toml:"raster"`
	Importer    ImporterConfig  `toml:"importer"`
	Export      ExportConfig    `toml:"export"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Logging     LoggingConfig   `toml:"logging"`
	Cleanup     CleanupConfig   `toml:"cleanup"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Staging string `toml:"staging"` // Root for staged archives, extracted assets and page images
	Exports string `toml:"exports"` // Default output directory for reports and bundles
}

// RasterConfig controls the page-image rendering pipeline.
// Scale and timeout values match the interactive viewer so batch output
// is pixel-identical to what the operator previews.
type RasterConfig struct {
	MaxPagesBatch       int           `toml:"max_pages_batch"`       // Page cap per document during batch runs
	MaxPagesInteractive int           `toml:"max_pages_interactive"` // Page cap for single-document requests
	TargetLongEdge      int           `toml:"target_long_edge"`      // Desired long edge in pixels before scale clamping
	MinScale            float64       `toml:"min_scale"`             // Lower clamp for the render scale factor
	MaxScale            float64       `toml:"max_scale"`             // Upper clamp for the render scale factor
	PageTimeout         time.Duration `toml:"page_timeout"`          // Per-page render deadline
	OpenAttempts        int           `toml:"open_attempts"`         // Document open attempts before giving up
	OpenBackoff         time.Duration `toml:"open_backoff"`          // Base delay between open attempts (linear)
	JPEGQuality         int           `toml:"jpeg_quality"`          // Encoder quality for page images
	MinEncodedBytes     int           `toml:"min_encoded_bytes"`     // Encoded pages smaller than this are discarded as degenerate
	SettleDelay         time.Duration `toml:"settle_delay"`          // Pause between documents in a batch run
	RecoveryDelay       time.Duration `toml:"recovery_delay"`        // Pause after a failed document before continuing
}

// ImporterConfig controls archive scanning and classification
type ImporterConfig struct {
	VideoExtensions       []string `toml:"video_extensions"`
	ImageExtensions       []string `toml:"image_extensions"`
	PageDocExtensions     []string `toml:"pagedoc_extensions"`
	SpreadsheetExtensions []string `toml:"spreadsheet_extensions"`
	MaxNestedDepth        int      `toml:"max_nested_depth"` // How many levels of zips-inside-zips to descend
}

// ExportConfig controls report and bundle generation
type ExportConfig struct {
	ImageMaxWidth   int    `toml:"image_max_width"` // Images are fitted to this box before bundle placement
	ImageMaxHeight  int    `toml:"image_max_height"`
	ImageQuality    int    `toml:"image_quality"`     // JPEG quality for bundle images
	MaxAttachmentMB int64  `toml:"max_attachment_mb"` // Files above this are skipped when embedding into bundles
	FontPath        string `toml:"font_path"`         // TTF with CJK coverage for bundle text; built-in fonts only cover Latin-1
}

// WebSocketConfig contains configuration for progress streaming
type WebSocketConfig struct {
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"render_progress": "250ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// CleanupConfig controls scheduled purging of expired batches
type CleanupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
	MaxAge   string `toml:"max_age"`  // Batches older than this are purged, e.g. "720h"
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in colligo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Staging: "./data/staging",
				Exports: "./data/exports",
			},
		},
		Raster: RasterConfig{
			MaxPagesBatch:       20,
			MaxPagesInteractive: 200,
			TargetLongEdge:      1200,
			MinScale:            1.0,
			MaxScale:            2.0,
			PageTimeout:         30 * time.Second,
			OpenAttempts:        3,
			OpenBackoff:         1 * time.Second,
			JPEGQuality:         85,
			MinEncodedBytes:     100,
			SettleDelay:         500 * time.Millisecond,
			RecoveryDelay:       1 * time.Second,
		},
		Importer: ImporterConfig{
			VideoExtensions:       []string{".mp4", ".avi", ".mov", ".wmv", ".mkv"},
			ImageExtensions:       []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"},
			PageDocExtensions:     []string{".pdf"},
			SpreadsheetExtensions: []string{".xlsx", ".xls"},
			MaxNestedDepth:        1,
		},
		Export: ExportConfig{
			ImageMaxWidth:   1200,
			ImageMaxHeight:  1680,
			ImageQuality:    95,
			MaxAttachmentMB: 100,
		},
		WebSocket: WebSocketConfig{
			// Empty AllowedEvents allows all events
			AllowedEvents: []string{},
			// Throttle per-page render events to keep large batches from flooding clients
			ThrottleIntervals: map[string]string{
				"render_progress": "250ms",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Cleanup: CleanupConfig{
			Enabled:  false,         // Disabled by default - user must explicitly opt-in
			Schedule: "0 0 3 * * *", // Daily at 03:00 (cron format with seconds)
			MaxAge:   "720h",        // 30 days
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: COLLIGO_ENV, fallback: GO_ENV)
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("COLLIGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COLLIGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("COLLIGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if staging := os.Getenv("COLLIGO_STAGING_DIR"); staging != "" {
		config.Storage.Filesystem.Staging = staging
	}
	if exports := os.Getenv("COLLIGO_EXPORTS_DIR"); exports != "" {
		config.Storage.Filesystem.Exports = exports
	}

	// Logging configuration
	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("COLLIGO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("COLLIGO_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Raster configuration
	if pageTimeout := os.Getenv("COLLIGO_RASTER_PAGE_TIMEOUT"); pageTimeout != "" {
		if pt, err := time.ParseDuration(pageTimeout); err == nil {
			config.Raster.PageTimeout = pt
		}
	}
	if openAttempts := os.Getenv("COLLIGO_RASTER_OPEN_ATTEMPTS"); openAttempts != "" {
		if oa, err := strconv.Atoi(openAttempts); err == nil && oa > 0 {
			config.Raster.OpenAttempts = oa
		}
	}
	if openBackoff := os.Getenv("COLLIGO_RASTER_OPEN_BACKOFF"); openBackoff != "" {
		if ob, err := time.ParseDuration(openBackoff); err == nil {
			config.Raster.OpenBackoff = ob
		}
	}
	if maxPages := os.Getenv("COLLIGO_RASTER_MAX_PAGES_BATCH"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil && mp > 0 {
			config.Raster.MaxPagesBatch = mp
		}
	}
	if settleDelay := os.Getenv("COLLIGO_RASTER_SETTLE_DELAY"); settleDelay != "" {
		if sd, err := time.ParseDuration(settleDelay); err == nil {
			config.Raster.SettleDelay = sd
		}
	}

	// Export configuration
	if maxAttachment := os.Getenv("COLLIGO_EXPORT_MAX_ATTACHMENT_MB"); maxAttachment != "" {
		if ma, err := strconv.ParseInt(maxAttachment, 10, 64); err == nil && ma > 0 {
			config.Export.MaxAttachmentMB = ma
		}
	}

	// WebSocket configuration
	if allowedEvents := os.Getenv("COLLIGO_WEBSOCKET_ALLOWED_EVENTS"); allowedEvents != "" {
		// Split comma-separated event types
		events := []string{}
		for _, e := range splitString(allowedEvents, ",") {
			trimmed := trimSpace(e)
			if trimmed != "" {
				events = append(events, trimmed)
			}
		}
		if len(events) > 0 {
			config.WebSocket.AllowedEvents = events
		}
	}
	if renderThrottle := os.Getenv("COLLIGO_WEBSOCKET_THROTTLE_RENDER_PROGRESS"); renderThrottle != "" {
		// Parse duration string (e.g., "2s", "1500ms")
		if _, err := time.ParseDuration(renderThrottle); err == nil {
			if config.WebSocket.ThrottleIntervals == nil {
				config.WebSocket.ThrottleIntervals = make(map[string]string)
			}
			config.WebSocket.ThrottleIntervals["render_progress"] = renderThrottle
		}
	}

	// Cleanup configuration
	if enabled := os.Getenv("COLLIGO_CLEANUP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cleanup.Enabled = e
		}
	}
	if schedule := os.Getenv("COLLIGO_CLEANUP_SCHEDULE"); schedule != "" {
		config.Cleanup.Schedule = schedule
	}
	if maxAge := os.Getenv("COLLIGO_CLEANUP_MAX_AGE"); maxAge != "" {
		if _, err := time.ParseDuration(maxAge); err == nil {
			config.Cleanup.MaxAge = maxAge
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, dataDir string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if dataDir != "" {
		config.Storage.Badger.Path = dataDir + "/db"
		config.Storage.Filesystem.Staging = dataDir + "/staging"
		config.Storage.Filesystem.Exports = dataDir + "/exports"
	}
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateCleanupSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateCleanupSchedule(schedule string) error {
	// Parse the cron expression (6-field format with seconds, matching the scheduler)
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 6 {
		return fmt.Errorf("invalid cron format: expected 6 fields")
	}

	minuteField := parts[1]

	// Check for patterns that violate 5-minute minimum
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// MaxAgeDuration returns the parsed retention window for cleanup runs
func (c *CleanupConfig) MaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Package config provides configuration management for the Framewall Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort     = 8799
	DefaultLogLevel = "info"
	DefaultDataDir  = ".framewall"

	// Environment variable names
	EnvPort     = "FRAMEWALL_PORT"
	EnvLogLevel = "FRAMEWALL_LOG_LEVEL"
	EnvDataDir  = "FRAMEWALL_DATA_DIR"
	EnvHeadless = "FRAMEWALL_HEADLESS"

	// Encoder environment variable names
	EnvFFmpegPath            = "FRAMEWALL_FFMPEG"
	EnvFFprobePath           = "FRAMEWALL_FFPROBE"
	EnvRecoverableSignatures = "FRAMEWALL_RECOVERABLE_SIGNATURES"

	// Remote library environment variable names. When a URL is set the agent
	// resolves assets through the companion service instead of the local
	// catalog.
	EnvLibraryURL   = "FRAMEWALL_LIBRARY_URL"
	EnvLibraryToken = "FRAMEWALL_LIBRARY_TOKEN"

	// Database filename
	DBFilename = "framewall.db"

	// Render geometry
	DefaultRenderSize = 1080
	DefaultFrameRate  = 30

	// Timeline durations (seconds)
	DefaultTitleCardSeconds = 2.0
	DefaultStillClipSeconds = 5.0
	DefaultMinClipSeconds   = 0.5
	DefaultMaxTitleLength   = 64

	// Encoder tuning
	DefaultEncodeAttempts     = 3
	DefaultProgressPollMillis = 200

	// Decoded thumbnails kept in memory
	DefaultRasterCacheSize = 32
)

// DefaultEncodeBackoff is the delay before each primary-encode attempt.
var DefaultEncodeBackoff = []time.Duration{0, 450 * time.Millisecond, 1200 * time.Millisecond}

// DefaultRecoverableSignatures is the default recoverable-capability error
// class for the primary encoder. "-16976" is the capability-mismatch code some
// hardware encoder stacks report when a preset is unsupported.
var DefaultRecoverableSignatures = []string{
	"-16976",
	"Impossible to convert between the formats",
	"Conversion failed",
	"Unknown encoder",
}

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MoviesDir() string
	ScratchDir() string
	Headless() bool

	RenderSize() int
	FrameRate() int
	TitleCardSeconds() float64
	StillClipSeconds() float64
	MinClipSeconds() float64
	MaxTitleLength() int

	FFmpegPath() string
	FFprobePath() string
	EncodeAttempts() int
	EncodeBackoff() []time.Duration
	ProgressPollInterval() time.Duration
	RecoverableSignatures() []string

	LibraryURL() string
	LibraryToken() string
	RasterCacheSize() int
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	headless bool

	ffmpegPath  string
	ffprobePath string
	signatures  []string

	libraryURL   string
	libraryToken string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)
	cfg.libraryURL = os.Getenv(EnvLibraryURL)
	cfg.libraryToken = os.Getenv(EnvLibraryToken)

	if sigs := os.Getenv(EnvRecoverableSignatures); sigs != "" {
		for _, s := range strings.Split(sigs, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.signatures = append(cfg.signatures, s)
			}
		}
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MoviesDir returns the directory finished exports are written to
func (c *EnvConfig) MoviesDir() string {
	return filepath.Join(c.dataDir, "Movies")
}

// ScratchDir returns the base directory for per-export scratch space
func (c *EnvConfig) ScratchDir() string {
	return filepath.Join(c.dataDir, "scratch")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) RenderSize() int {
	return DefaultRenderSize
}

func (c *EnvConfig) FrameRate() int {
	return DefaultFrameRate
}

func (c *EnvConfig) TitleCardSeconds() float64 {
	return DefaultTitleCardSeconds
}

func (c *EnvConfig) StillClipSeconds() float64 {
	return DefaultStillClipSeconds
}

func (c *EnvConfig) MinClipSeconds() float64 {
	return DefaultMinClipSeconds
}

func (c *EnvConfig) MaxTitleLength() int {
	return DefaultMaxTitleLength
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) EncodeAttempts() int {
	return DefaultEncodeAttempts
}

func (c *EnvConfig) EncodeBackoff() []time.Duration {
	return DefaultEncodeBackoff
}

func (c *EnvConfig) ProgressPollInterval() time.Duration {
	return DefaultProgressPollMillis * time.Millisecond
}

func (c *EnvConfig) RecoverableSignatures() []string {
	if len(c.signatures) > 0 {
		return c.signatures
	}
	return DefaultRecoverableSignatures
}

func (c *EnvConfig) LibraryURL() string {
	return c.libraryURL
}

func (c *EnvConfig) LibraryToken() string {
	return c.libraryToken
}

func (c *EnvConfig) RasterCacheSize() int {
	return DefaultRasterCacheSize
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

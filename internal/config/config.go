package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultPort            = "5000"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultAllowedOrigin   = "*"
	DefaultSendBuffer      = 256
	DefaultMaxMessageSize  = 64 * 1024
	DefaultShutdownTimeout = 10 * time.Second
	DefaultServerURL       = "http://localhost:" + DefaultPort
	DefaultRoomsAccess     = RoomsLocal
)

// Who may read GET /rooms. It lists every online user id and who is calling
// whom.
const (
	RoomsOff    = "off"
	RoomsLocal  = "local"
	RoomsPublic = "public"
)

// Config holds the signaling server configuration
type Config struct {
	// Addr is the listen address of the HTTP server
	Addr string

	LogLevel  string
	LogFormat string

	// AllowedOrigins is checked against the Origin header of websocket
	// upgrades. "*" allows any origin.
	AllowedOrigins []string

	// SendBuffer is the size of each connection's outbound queue. A client
	// that lets it fill up is disconnected.
	SendBuffer int

	// MaxMessageSize is the largest frame accepted from a client
	MaxMessageSize int64

	ShutdownTimeout time.Duration

	// RoomsAccess is one of RoomsOff, RoomsLocal (loopback peers only) or
	// RoomsPublic.
	RoomsAccess string
}

// Options carries CLI flag values. Zero values mean "not set".
type Options struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	AllowedOrigins  string
	SendBuffer      int
	MaxMessageSize  int64
	ShutdownTimeout time.Duration
	RoomsAccess     string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	addr := opts.Addr
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = DefaultPort
		}
		addr = ":" + port
	}

	logLevel := firstNonEmpty(opts.LogLevel, os.Getenv("LOG_LEVEL"), DefaultLogLevel)
	logFormat := firstNonEmpty(opts.LogFormat, os.Getenv("LOG_FORMAT"), DefaultLogFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: want text or json", logFormat)
	}

	origins := splitList(firstNonEmpty(opts.AllowedOrigins, os.Getenv("ALLOWED_ORIGINS"), DefaultAllowedOrigin))
	if len(origins) == 0 {
		return nil, errors.New("allowed origins must not be empty")
	}

	sendBuffer := opts.SendBuffer
	if sendBuffer == 0 {
		v, err := envInt("SEND_BUFFER", DefaultSendBuffer)
		if err != nil {
			return nil, err
		}
		sendBuffer = v
	}
	if sendBuffer <= 0 {
		return nil, fmt.Errorf("send buffer must be positive, got %d", sendBuffer)
	}

	maxMessageSize := opts.MaxMessageSize
	if maxMessageSize == 0 {
		v, err := envInt("MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
		if err != nil {
			return nil, err
		}
		maxMessageSize = int64(v)
	}
	if maxMessageSize < 1024 {
		return nil, fmt.Errorf("max message size must be at least 1024 bytes, got %d", maxMessageSize)
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout == 0 {
		if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
			}
			shutdownTimeout = d
		}
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	roomsAccess := firstNonEmpty(opts.RoomsAccess, os.Getenv("ROOMS_ACCESS"), DefaultRoomsAccess)
	switch roomsAccess {
	case RoomsOff, RoomsLocal, RoomsPublic:
	default:
		return nil, fmt.Errorf("invalid rooms access %q: want off, local or public", roomsAccess)
	}

	return &Config{
		Addr:            addr,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		AllowedOrigins:  origins,
		SendBuffer:      sendBuffer,
		MaxMessageSize:  maxMessageSize,
		ShutdownTimeout: shutdownTimeout,
		RoomsAccess:     roomsAccess,
	}, nil
}

// AllowsAnyOrigin reports whether origin checks are disabled
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// ServerURL resolves the base URL of a running server for client commands:
// flag > WARPCHAT_SERVER > default.
func ServerURL(flag string) string {
	return strings.TrimRight(firstNonEmpty(flag, os.Getenv("WARPCHAT_SERVER"), DefaultServerURL), "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

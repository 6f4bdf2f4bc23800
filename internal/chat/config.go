package chat

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection inbound line
// rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration. The zero value is not usable
// directly; NewServer sanitizes whatever it is given, so zero or negative
// fields fall back to defaults.
type Config struct {
	// TCPAddr is the listen address for the line-oriented socket protocol.
	TCPAddr string
	// HTTPAddr is the listen address for health, room listing, and
	// WebSocket upgrades.
	HTTPAddr string
	// AllowedOrigins restricts WebSocket upgrades; "*" allows any origin.
	AllowedOrigins []string
	// MaxLineBytes bounds a single inbound frame. Exceeding it is a
	// protocol violation that ends the connection. Generous by default to
	// accommodate base64 file payloads.
	MaxLineBytes int
	// TopicCapacity is the per-subscriber event buffer for each room and
	// the server-wide topic.
	TopicCapacity int
	// DefaultRoom is the lobby room every client lands in.
	DefaultRoom string
	RateLimit   RateLimitConfig
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TCPAddr:        ":9000",
		HTTPAddr:       ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxLineBytes:   64 * 1024,
		TopicCapacity:  DefaultTopicCapacity,
		DefaultRoom:    DefaultRoomName,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
	}
}

func (c Config) sanitized() Config {
	def := DefaultConfig()

	if c.TCPAddr == "" {
		c.TCPAddr = def.TCPAddr
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = def.HTTPAddr
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if c.TopicCapacity <= 0 {
		c.TopicCapacity = def.TopicCapacity
	}
	if c.DefaultRoom == "" {
		c.DefaultRoom = def.DefaultRoom
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	return c
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults for anything unset or unparseable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("TCP_ADDR"); addr != "" {
		cfg.TCPAddr = addr
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}
	if v := os.Getenv("MAX_LINE_BYTES"); v != "" {
		cfg.MaxLineBytes = parsePositiveInt(v, cfg.MaxLineBytes)
	}
	if v := os.Getenv("TOPIC_CAPACITY"); v != "" {
		cfg.TopicCapacity = parsePositiveInt(v, cfg.TopicCapacity)
	}
	if room := os.Getenv("DEFAULT_ROOM"); room != "" {
		cfg.DefaultRoom = room
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		cfg.RateLimit.Burst = parsePositiveInt(v, cfg.RateLimit.Burst)
	}
	if v := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); v != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(v, cfg.RateLimit.RefillInterval)
	}

	return cfg
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parsePositiveInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

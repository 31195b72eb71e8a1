package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	// CORSOrigin is echoed in Access-Control-Allow-Origin for REST routes.
	CORSOrigin     string
	AllowedOrigins []string
	StaticDir      string
	MessagesDir    string

	RedisURL           string
	EventChannelPrefix string
	DatabaseURL        string

	WebhookURL     string
	WebhookToken   string
	WebhookTimeout time.Duration
	WebhookRetries int

	WSPingInterval time.Duration
	WSSendBuffer   int

	MaxSessions     int
	SessionIdleTTL  time.Duration
	SweepInterval   time.Duration
	ShutdownTimeout time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":3000",
		CORSOrigin:         "*",
		AllowedOrigins:     []string{"*"},
		EventChannelPrefix: "chess:",
		WebhookTimeout:     10 * time.Second,
		WebhookRetries:     3,
		WSPingInterval:     25 * time.Second,
		WSSendBuffer:       32,
		MaxSessions:        1000,
		SessionIdleTTL:     30 * time.Minute,
		SweepInterval:      time.Minute,
		ShutdownTimeout:    10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 || n > 65535 {
			return nil, errors.New("PORT must be a number between 1 and 65535")
		}
		cfg.ListenAddr = ":" + v
	}

	if v := strings.TrimSpace(os.Getenv("FRONTEND_URL")); v != "" {
		cfg.CORSOrigin = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitList(v)
	} else if cfg.CORSOrigin != "*" {
		if u, err := url.Parse(cfg.CORSOrigin); err == nil && u.Host != "" {
			cfg.AllowedOrigins = []string{u.Host}
		}
	}
	cfg.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("EVENT_CHANNEL_PREFIX")); v != "" {
		cfg.EventChannelPrefix = v
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	cfg.WebhookToken = strings.TrimSpace(os.Getenv("WEBHOOK_TOKEN"))
	if n, ok := positiveInt("WEBHOOK_TIMEOUT_SEC"); ok {
		cfg.WebhookTimeout = time.Duration(n) * time.Second
	}
	if n, ok := positiveInt("WEBHOOK_RETRIES"); ok {
		cfg.WebhookRetries = n
	}

	if v := strings.TrimSpace(os.Getenv("WS_PING_INTERVAL_SEC")); v != "" {
		// 0 disables pings
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WSPingInterval = time.Duration(n) * time.Second
			if n == 0 {
				cfg.WSPingInterval = -1
			}
		}
	}
	if n, ok := positiveInt("WS_SEND_BUFFER"); ok {
		cfg.WSSendBuffer = n
	}

	if v := strings.TrimSpace(os.Getenv("MAX_SESSIONS")); v != "" {
		// 0 means unlimited
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxSessions = n
		}
	}
	if d, ok := duration("SESSION_IDLE_TTL"); ok {
		cfg.SessionIdleTTL = d
	}
	if d, ok := duration("SWEEP_INTERVAL"); ok {
		cfg.SweepInterval = d
	}
	if d, ok := duration("SHUTDOWN_TIMEOUT"); ok {
		cfg.ShutdownTimeout = d
	}

	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, errors.New("WEBHOOK_URL must be an absolute http(s) URL")
		}
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// duration accepts Go durations ("90s", "1h") or a plain number of seconds.
func duration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

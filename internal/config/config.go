package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Render modes for the transcript pane.
const (
	RenderContinuous = "continuous" // all sections visible, scroll tracking
	RenderSingle     = "single"     // one section visible, wheel/key paging
)

// Config holds application configuration. It is loaded once at start-up
// and passed by value or pointer into each component; nothing mutates it
// afterwards.
type Config struct {
	// Listen is the host:port for the HTTP server.
	Listen string `json:"listen,omitempty"`

	// DataFile is the VideoDocument JSON served by the API and used as the
	// local fallback by the UI.
	DataFile string `json:"data_file,omitempty"`

	// VideoID is the id the UI requests its document under.
	VideoID string `json:"video_id,omitempty"`

	// APIBaseURL points the UI DataClient at a remote API. Empty means the
	// UI reads DataFile directly and calls the in-process backend.
	APIBaseURL string `json:"api_base_url,omitempty"`

	// RenderMode is "continuous" or "single".
	RenderMode string `json:"render_mode,omitempty"`

	// DisableAutoScroll turns off scroll-position section tracking.
	DisableAutoScroll bool `json:"disable_auto_scroll,omitempty"`

	// LLMEnabled routes chat through the AI endpoint instead of keyword rules.
	LLMEnabled bool `json:"llm_enabled,omitempty"`

	ChatTimeoutMS    int `json:"chat_timeout_ms,omitempty"`
	ChatReplyDelayMS int `json:"chat_reply_delay_ms,omitempty"`

	OpenAIAPIKey  string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`
	OpenAIModel   string `json:"openai_model,omitempty"`

	YouTubeAPIKey string `json:"youtube_api_key,omitempty"`

	// CommentsMaxResults is the default page size for YouTube comments (capped at 100).
	CommentsMaxResults int `json:"comments_max_results,omitempty"`

	// FramesDir caches extracted frames on local disk when S3 is not configured.
	FramesDir string `json:"frames_dir,omitempty"`

	FramesS3Endpoint  string `json:"frames_s3_endpoint,omitempty"`
	FramesS3Bucket    string `json:"frames_s3_bucket,omitempty"`
	FramesS3Region    string `json:"frames_s3_region,omitempty"`
	FramesS3AccessKey string `json:"frames_s3_access_key,omitempty"`
	FramesS3SecretKey string `json:"frames_s3_secret_key,omitempty"`

	LayoutLeftDefault  float64 `json:"layout_left_default,omitempty"`
	LayoutRightDefault float64 `json:"layout_right_default,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             "127.0.0.1:8000",
		DataFile:           filepath.Join("data", "video-data.json"),
		VideoID:            "lQHK61IDFH4",
		RenderMode:         RenderContinuous,
		ChatTimeoutMS:      30000,
		ChatReplyDelayMS:   500,
		OpenAIModel:        "gpt-3.5-turbo",
		CommentsMaxResults: 20,
		FramesDir:          filepath.Join(os.TempDir(), "vidpage-frames"),
		FramesS3Region:     "eu-central-1",
		LayoutLeftDefault:  20,
		LayoutRightDefault: 28,
	}
}

// ChatTimeout returns the chat request deadline.
func (c *Config) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutMS) * time.Millisecond
}

// ChatReplyDelay returns the pause before the bot reply is produced.
func (c *Config) ChatReplyDelay() time.Duration {
	return time.Duration(c.ChatReplyDelayMS) * time.Millisecond
}

// AutoScroll reports whether scroll tracking is enabled.
func (c *Config) AutoScroll() bool {
	return !c.DisableAutoScroll
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.RenderMode {
	case RenderContinuous, RenderSingle:
	default:
		return fmt.Errorf("render_mode must be %q or %q, got %q", RenderContinuous, RenderSingle, c.RenderMode)
	}
	if c.CommentsMaxResults < 0 {
		return fmt.Errorf("comments_max_results must be non-negative")
	}
	return nil
}

// Load loads configuration from baseDir/config.json, then baseDir/.env and
// the process environment. Returns defaults if neither exists.
// The baseDir parameter allows tests to use t.TempDir().
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("VIDPAGE_LISTEN", &cfg.Listen)
	str("VIDPAGE_DATA_FILE", &cfg.DataFile)
	str("VIDPAGE_VIDEO_ID", &cfg.VideoID)
	str("VIDPAGE_API_BASE_URL", &cfg.APIBaseURL)
	str("VIDPAGE_RENDER_MODE", &cfg.RenderMode)
	str("VIDPAGE_FRAMES_DIR", &cfg.FramesDir)
	str("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	str("OPENAI_MODEL", &cfg.OpenAIModel)
	str("YOUTUBE_API_KEY", &cfg.YouTubeAPIKey)
	str("FRAMES_S3_ENDPOINT", &cfg.FramesS3Endpoint)
	str("FRAMES_S3_BUCKET", &cfg.FramesS3Bucket)
	str("FRAMES_S3_REGION", &cfg.FramesS3Region)
	str("FRAMES_S3_ACCESS_KEY", &cfg.FramesS3AccessKey)
	str("FRAMES_S3_SECRET_KEY", &cfg.FramesS3SecretKey)

	if v, ok := lookup("VIDPAGE_LLM_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse VIDPAGE_LLM_ENABLED: %w", err)
		}
		cfg.LLMEnabled = b
	}
	if v, ok := lookup("VIDPAGE_CHAT_TIMEOUT_MS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse VIDPAGE_CHAT_TIMEOUT_MS: %w", err)
		}
		cfg.ChatTimeoutMS = n
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Listen = pickString(overlay.Listen, base.Listen)
	result.DataFile = pickString(overlay.DataFile, base.DataFile)
	result.VideoID = pickString(overlay.VideoID, base.VideoID)
	result.APIBaseURL = pickString(overlay.APIBaseURL, base.APIBaseURL)
	result.RenderMode = pickString(overlay.RenderMode, base.RenderMode)
	result.OpenAIAPIKey = pickString(overlay.OpenAIAPIKey, base.OpenAIAPIKey)
	result.OpenAIBaseURL = pickString(overlay.OpenAIBaseURL, base.OpenAIBaseURL)
	result.OpenAIModel = pickString(overlay.OpenAIModel, base.OpenAIModel)
	result.YouTubeAPIKey = pickString(overlay.YouTubeAPIKey, base.YouTubeAPIKey)
	result.FramesDir = pickString(overlay.FramesDir, base.FramesDir)
	result.FramesS3Endpoint = pickString(overlay.FramesS3Endpoint, base.FramesS3Endpoint)
	result.FramesS3Bucket = pickString(overlay.FramesS3Bucket, base.FramesS3Bucket)
	result.FramesS3Region = pickString(overlay.FramesS3Region, base.FramesS3Region)
	result.FramesS3AccessKey = pickString(overlay.FramesS3AccessKey, base.FramesS3AccessKey)
	result.FramesS3SecretKey = pickString(overlay.FramesS3SecretKey, base.FramesS3SecretKey)

	result.ChatTimeoutMS = pickInt(overlay.ChatTimeoutMS, base.ChatTimeoutMS)
	result.ChatReplyDelayMS = pickInt(overlay.ChatReplyDelayMS, base.ChatReplyDelayMS)
	result.CommentsMaxResults = pickInt(overlay.CommentsMaxResults, base.CommentsMaxResults)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.LayoutLeftDefault = overlay.LayoutLeftDefault
	if result.LayoutLeftDefault == 0 {
		result.LayoutLeftDefault = base.LayoutLeftDefault
	}
	result.LayoutRightDefault = overlay.LayoutRightDefault
	if result.LayoutRightDefault == 0 {
		result.LayoutRightDefault = base.LayoutRightDefault
	}

	// Booleans: overlay wins if true, else base
	result.DisableAutoScroll = base.DisableAutoScroll || overlay.DisableAutoScroll
	result.LLMEnabled = base.LLMEnabled || overlay.LLMEnabled

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

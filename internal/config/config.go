// Package config loads service settings from defaults, an optional YAML
// file, .env files and the environment, in that order.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env           string   `yaml:"env"`
	Port          int      `yaml:"port"`
	CORSOrigins   []string `yaml:"cors_origins"`
	Verbose       bool     `yaml:"verbose"`
	ScratchDir    string   `yaml:"scratch_dir"`
	MinFreeDiskMB uint64   `yaml:"min_free_disk_mb"`
	// Styles points to an optional YAML document overriding the style table.
	Styles string `yaml:"styles"`

	Encoder   Encoder   `yaml:"encoder"`
	Timeouts  Timeouts  `yaml:"timeouts"`
	Assets    Assets    `yaml:"assets"`
	Watermark Watermark `yaml:"watermark"`
	Audio     Audio     `yaml:"audio"`
	Slack     Slack     `yaml:"slack"`
	Vision    Vision    `yaml:"vision"`
}

type Encoder struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	// VideoCodec is "auto" to probe for hardware encoders, or a codec name.
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
	Threads      int    `yaml:"threads"` // 0 = derive from CPU count
}

// Timeouts bound every external process. Segment renders get
// clamp(Multiplier*duration, Floor, Cap).
type Timeouts struct {
	Floor      time.Duration `yaml:"floor"`
	Cap        time.Duration `yaml:"cap"`
	Multiplier float64       `yaml:"multiplier"`
	Probe      time.Duration `yaml:"probe"`
}

type Assets struct {
	Dir           string `yaml:"dir"`
	Wave          string `yaml:"wave"`
	Highlight     string `yaml:"highlight"`
	Logo          string `yaml:"logo"`
	WatermarkLogo string `yaml:"watermark_logo"`
	QRBanner      string `yaml:"qr_banner"`
}

type Watermark struct {
	Enabled    bool   `yaml:"enabled"`
	QRRequired bool   `yaml:"qr_required"`
	QRURL      string `yaml:"qr_url"` // used to generate a banner when the asset is absent
}

type Audio struct {
	Enabled       bool          `yaml:"enabled"`
	AssemblyAIKey string        `yaml:"assemblyai_key"`
	BaseURL       string        `yaml:"base_url"`
	RNNoiseModel  string        `yaml:"rnnoise_model"`
	PauseGapMs    int64         `yaml:"pause_gap_ms"`
	FillerTerms   []string      `yaml:"filler_terms"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`
	MinKeepMs     int64         `yaml:"min_keep_ms"`
}

type Slack struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	BaseURL   string `yaml:"base_url"`
}

type Vision struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	// Personas turns on the persona interview and image routes.
	Personas     bool   `yaml:"personas"`
	PersonaModel string `yaml:"persona_model"`
	ImageModel   string `yaml:"image_model"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Env:           "development",
		Port:          8000,
		CORSOrigins:   []string{"http://localhost:5173"},
		ScratchDir:    filepath.Join(os.TempDir(), "takeone"),
		MinFreeDiskMB: 512,
		Encoder: Encoder{
			FFmpegPath:   "ffmpeg",
			VideoCodec:   "libx264",
			Preset:       "fast",
			CRF:          23,
			AudioCodec:   "aac",
			AudioBitrate: "192k",
		},
		Timeouts: Timeouts{
			Floor:      60 * time.Second,
			Cap:        10 * time.Minute,
			Multiplier: 4,
			Probe:      15 * time.Second,
		},
		Assets: Assets{
			Dir:           "assets",
			Wave:          "Wave.png",
			Highlight:     "highlight.png",
			Logo:          "logoAxon.png",
			WatermarkLogo: "axon-delta-yellow.png",
			QRBanner:      "QRCodeBanner.png",
		},
		Watermark: Watermark{Enabled: true},
		Audio: Audio{
			BaseURL:      "https://api.assemblyai.com/v2",
			RNNoiseModel: "models/rnnoise/sh.rnnn",
			PauseGapMs:   600,
			FillerTerms:  []string{"um", "uh", "uhh", "uhm", "er", "ah", "like", "you know", "kind of", "sort of"},
			PollInterval: 2 * time.Second,
			PollTimeout:  180 * time.Second,
			MinKeepMs:    1000,
		},
		Slack:  Slack{BaseURL: "https://slack.com/api"},
		Vision: Vision{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1", PersonaModel: "gpt-4", ImageModel: "dall-e-3"},
	}
}

// Load builds the configuration. path may be empty. Missing .env files are
// not an error.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, errors.Wrapf(err, "parse config %s", path)
		}
	}

	_ = godotenv.Load(".env", ".env.local")
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Env = getenv("ENV", c.Env)
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		c.Port = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v, err := strconv.ParseBool(os.Getenv("FEATURE_AUDIO_ENHANCE")); err == nil {
		c.Audio.Enabled = v
	}
	c.Audio.AssemblyAIKey = getenv("ASSEMBLYAI_API_KEY", c.Audio.AssemblyAIKey)
	c.Audio.BaseURL = getenv("ASSEMBLYAI_BASE_URL", c.Audio.BaseURL)
	c.Audio.RNNoiseModel = getenv("AUDIO_RNNOISE_MODEL_PATH", c.Audio.RNNoiseModel)
	c.Slack.BotToken = getenv("SLACK_BOT_TOKEN", c.Slack.BotToken)
	c.Slack.ChannelID = getenv("SLACK_CHANNEL_ID", c.Slack.ChannelID)
	c.Vision.APIKey = getenv("OPENAI_API_KEY", c.Vision.APIKey)
	if v, err := strconv.ParseBool(os.Getenv("FEATURE_OPENAI")); err == nil {
		c.Vision.Personas = v
	}
	c.Assets.Dir = getenv("TAKEONE_ASSETS_DIR", c.Assets.Dir)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return errors.Errorf("config: port %d out of range", c.Port)
	case c.ScratchDir == "":
		return errors.New("config: scratch_dir is empty")
	case c.Encoder.CRF < 0 || c.Encoder.CRF > 51:
		return errors.Errorf("config: encoder.crf %d out of range", c.Encoder.CRF)
	case c.Timeouts.Floor <= 0 || c.Timeouts.Cap < c.Timeouts.Floor:
		return errors.Errorf("config: timeouts floor %s cap %s", c.Timeouts.Floor, c.Timeouts.Cap)
	case c.Timeouts.Multiplier <= 0:
		return errors.Errorf("config: timeouts.multiplier %v", c.Timeouts.Multiplier)
	case c.Timeouts.Probe <= 0:
		return errors.New("config: timeouts.probe must be positive")
	case c.Audio.PauseGapMs < 0 || c.Audio.MinKeepMs < 0:
		return errors.New("config: audio gaps must not be negative")
	case c.Audio.Enabled && (c.Audio.PollInterval <= 0 || c.Audio.PollTimeout < c.Audio.PollInterval):
		return errors.Errorf("config: audio poll interval %s timeout %s", c.Audio.PollInterval, c.Audio.PollTimeout)
	}
	return nil
}

// Production reports whether the service runs outside development.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Asset resolves a configured asset name against the assets directory.
func (c Config) Asset(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Assets.Dir, name)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

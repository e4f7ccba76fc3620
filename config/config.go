package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Videos      VideosConfig      `yaml:"videos"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Log         LogConfig         `yaml:"log"`
}

type AudioConfig struct {
	// Source selects the optional capture loop: "microphone", "file",
	// or empty for none. The HTTP endpoint runs regardless.
	Source     string `yaml:"source"`
	HTTPAddr   string `yaml:"http_addr"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
	AuthToken  string `yaml:"auth_token"`
}

type TranscriberConfig struct {
	Engine   string `yaml:"engine"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`

	// whispercli engine only.
	Binary   string `yaml:"binary"`
	ModelDir string `yaml:"model_dir"`

	LoadTimeout    string `yaml:"load_timeout"`
	RequestTimeout string `yaml:"request_timeout"`
}

type VideosConfig struct {
	Dir      string            `yaml:"dir"`
	Commands map[string]string `yaml:"commands"`
}

type PlaybackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}

	if c.Transcriber.Engine == "" {
		c.Transcriber.Engine = "openai"
	}
	if c.Transcriber.Model == "" {
		if c.Transcriber.Engine == "whispercli" {
			c.Transcriber.Model = "whisper-base.en"
		} else {
			c.Transcriber.Model = "whisper-1"
		}
	}
	if c.Transcriber.Binary == "" {
		c.Transcriber.Binary = "whisper-cli"
	}
	if c.Transcriber.ModelDir == "" {
		c.Transcriber.ModelDir = "./models"
	}
	if c.Transcriber.LoadTimeout == "" {
		c.Transcriber.LoadTimeout = "10m"
	}
	if c.Transcriber.RequestTimeout == "" {
		c.Transcriber.RequestTimeout = "30s"
	}

	if c.Videos.Dir == "" {
		c.Videos.Dir = "./videos"
	}
	if len(c.Videos.Commands) == 0 {
		c.Videos.Commands = map[string]string{
			"hello": "hello.mp4",
			"yes":   "yes.mp4",
			"no":    "no.mp4",
		}
	}

	if c.Playback.Command == "" {
		c.Playback.Command = "mpv"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Transcriber.Engine {
	case "openai", "whispercli":
	default:
		return fmt.Errorf("transcriber.engine must be openai or whispercli, got %q", c.Transcriber.Engine)
	}

	switch c.Audio.Source {
	case "", "microphone", "file":
	default:
		return fmt.Errorf("audio.source must be microphone, file or empty, got %q", c.Audio.Source)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}

	return nil
}

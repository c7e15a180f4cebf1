package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all user-facing configuration for congabox2.
// The Box developer token is deliberately not part of the file; it comes from
// the BOX_DEVELOPER_TOKEN environment variable.
type Config struct {
	Box     BoxConfig     `toml:"box"`
	Data    DataConfig    `toml:"data"`
	Convert ConvertConfig `toml:"convert"`
}

type BoxConfig struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type ConvertConfig struct {
	ContextChars int `toml:"context_chars"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Box: BoxConfig{
			BaseURL:     "https://api.box.com",
			Model:       "azure__openai__gpt_4o_mini",
			Temperature: 0.2,
			MaxTokens:   1000,
		},
		Data:    DataConfig{Dir: "data"},
		Convert: ConvertConfig{ContextChars: 50},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

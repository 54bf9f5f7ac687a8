// Package config loads the application configuration via viper, following
// the same env-file-plus-environment-variable layering the rest of the
// services in this codebase use.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the fully resolved, validated application configuration.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	// ConcurrencyLimit bounds the number of simultaneous peer connections
	// the process will accept. Zero means unlimited.
	ConcurrencyLimit int `mapstructure:"concurrency_limit"`

	// TimeLimitSeconds, when non-zero, force-closes a connection this many
	// seconds after it reaches the "connected" state.
	TimeLimitSeconds int `mapstructure:"time_limit_seconds"`

	// InputSampleRate/OutputSampleRate/OutputFrameSize are the default
	// audio pipeline tunables handed to stream handlers that don't
	// override them.
	InputSampleRate  int `mapstructure:"input_sample_rate" validate:"required"`
	OutputSampleRate int `mapstructure:"output_sample_rate" validate:"required"`
	OutputFrameSize  int `mapstructure:"output_frame_size" validate:"required"`

	ICEServerURLs []string `mapstructure:"ice_server_urls"`

	AlgoOptions   AlgoOptionsConfig   `mapstructure:"algo_options"`
	StopwordsMode StopwordsModeConfig `mapstructure:"stopwords"`
}

// AlgoOptionsConfig mirrors reply.AlgoOptions for config-file overrides.
type AlgoOptionsConfig struct {
	AudioChunkDurationSeconds   float64 `mapstructure:"audio_chunk_duration_seconds"`
	StartedTalkingThreshold     float64 `mapstructure:"started_talking_threshold_seconds"`
	SpeechThresholdSeconds      float64 `mapstructure:"speech_threshold_seconds"`
}

// StopwordsModeConfig holds the wake-word list used by the stopwords engine.
type StopwordsModeConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Words   []string `mapstructure:"words"`
}

// InitConfig builds the viper instance, loading ".env" (or the file named
// by ENV_PATH) and falling back to process environment variables.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("config: loading env file %v", path)
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: no env file found, reading from environment variables only")
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "fastrtc-go")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("CONCURRENCY_LIMIT", 10)
	v.SetDefault("TIME_LIMIT_SECONDS", 0)

	v.SetDefault("INPUT_SAMPLE_RATE", 48000)
	v.SetDefault("OUTPUT_SAMPLE_RATE", 24000)
	v.SetDefault("OUTPUT_FRAME_SIZE", 480)

	v.SetDefault("ICE_SERVER_URLS", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("ALGO_OPTIONS__AUDIO_CHUNK_DURATION_SECONDS", 0.6)
	v.SetDefault("ALGO_OPTIONS__STARTED_TALKING_THRESHOLD_SECONDS", 0.2)
	v.SetDefault("ALGO_OPTIONS__SPEECH_THRESHOLD_SECONDS", 0.1)

	v.SetDefault("STOPWORDS__ENABLED", false)
	v.SetDefault("STOPWORDS__WORDS", []string{})
}

// GetApplicationConfig unmarshals and validates the resolved config.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("config: unmarshal failed: %+v", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		log.Printf("config: validation failed: %+v", err)
		return nil, err
	}
	return &cfg, nil
}

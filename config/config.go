package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Gemini     Gemini
	JWT        JWT
	Evaluation Evaluation
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Gemini struct {
	APIKey string
	Model  string
}

type JWT struct {
	Secret string
}

// Evaluation tunes the LLM scoring call.
type Evaluation struct {
	TimeoutMs  int
	MaxRetries int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("EVALUATION_TIMEOUT_MS", 30000)
	viper.SetDefault("EVALUATION_MAX_RETRIES", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Gemini.APIKey = viper.GetString("GEMINI_API_KEY")
	config.Gemini.Model = viper.GetString("GEMINI_MODEL")

	config.JWT.Secret = viper.GetString("JWT_SECRET")

	config.Evaluation.TimeoutMs = viper.GetInt("EVALUATION_TIMEOUT_MS")
	config.Evaluation.MaxRetries = viper.GetInt("EVALUATION_MAX_RETRIES")

	log.Info().Str("port", config.Server.Port).Str("dbHost", config.Database.Host).
		Str("geminiModel", config.Gemini.Model).Msg("Config loaded")
	return &config, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		AppURL         string   `yaml:"appUrl"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	// AI selects the inference backend. Provider is "gemini" or "huggingface".
	AI struct {
		Provider       string            `yaml:"provider"`
		TimeoutSeconds int               `yaml:"timeoutSeconds"`
		Models         map[string]string `yaml:"models"`
	} `yaml:"ai"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
	} `yaml:"gemini"`

	HuggingFace struct {
		ApiKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"huggingface"`

	// Auth.Provider is "local" (OTP + password) or "cognito".
	Auth struct {
		Provider string `yaml:"provider"`
	} `yaml:"auth"`

	Cognito struct {
		AppClientId     string `yaml:"appClientId"`
		AppClientSecret string `yaml:"appClientSecret"`
		UserPoolId      string `yaml:"userPoolId"`
		Region          string `yaml:"region"`
	} `yaml:"cognito"`

	JWT struct {
		Secret                string `yaml:"secret"`
		SessionTimeoutMinutes int    `yaml:"sessionTimeoutMinutes"`
	} `yaml:"jwt"`

	SMTP struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		SenderEmail string `yaml:"senderEmail"`
		SenderName  string `yaml:"senderName"`
	} `yaml:"smtp"`

	Admin struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Email    string `yaml:"email"`
	} `yaml:"admin"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		GenerationsPerHour int     `yaml:"generationsPerHour"`
		AuthRequestsPerSec float64 `yaml:"authRequestsPerSec"`
	} `yaml:"rateLimit"`
}

// LoadConfig reads the configuration file, then applies .env and
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "APP_ENV")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.AppURL, "APP_URL")
	setString(&c.Database.URI, "MONGO_URI")
	setString(&c.AI.Provider, "AI_PROVIDER")
	setString(&c.Gemini.ApiKey, "GEMINI_API_KEY")
	setString(&c.HuggingFace.ApiKey, "HUGGINGFACE_API_KEY")
	setString(&c.Auth.Provider, "AUTH_PROVIDER")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setInt(&c.JWT.SessionTimeoutMinutes, "SESSION_TIMEOUT_MINUTES")
	setString(&c.SMTP.Username, "EMAIL_USER")
	setString(&c.SMTP.Password, "EMAIL_PASSWORD")
	setString(&c.Admin.Username, "ADMIN_USERNAME")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
	setString(&c.Admin.Email, "ADMIN_EMAIL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 1313
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Server.AppURL == "" {
		c.Server.AppURL = "http://localhost:5173"
	}
	if c.Database.URI == "" {
		c.Database.URI = "mongodb://localhost:27017/codegalaxy"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.HuggingFace.BaseURL == "" {
		c.HuggingFace.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if c.Auth.Provider == "" {
		c.Auth.Provider = "local"
	}
	if c.JWT.SessionTimeoutMinutes == 0 {
		c.JWT.SessionTimeoutMinutes = 60
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.SenderEmail == "" {
		c.SMTP.SenderEmail = c.SMTP.Username
	}
	if c.SMTP.SenderName == "" {
		c.SMTP.SenderName = "CodeGalaxy"
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "codeAdmin"
	}
	if c.Admin.Email == "" {
		c.Admin.Email = "admin@codegalaxy.com"
	}
	if c.RateLimit.GenerationsPerHour == 0 {
		c.RateLimit.GenerationsPerHour = 50
	}
	if c.RateLimit.AuthRequestsPerSec == 0 {
		c.RateLimit.AuthRequestsPerSec = 2
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		Environment        string   `mapstructure:"environment"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		// TrustedProxies lists the reverse proxies (IPs or CIDRs) whose
		// X-Forwarded-For header names the real client.
		TrustedProxies []string `mapstructure:"trusted_proxies"`
	} `mapstructure:"server"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`

	// API is the upstream VoteFlow REST API the SPA talks to.
	API struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"api"`

	Database struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Paystack struct {
		PublicKey string `mapstructure:"public_key"`
		SecretKey string `mapstructure:"secret_key"`
		BaseURL   string `mapstructure:"base_url"`
		ProxyURL  string `mapstructure:"proxy_url"`
		Currency  string `mapstructure:"currency"`
	} `mapstructure:"paystack"`

	Storage struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"storage"`

	Import struct {
		MaxFileBytes int64         `mapstructure:"max_file_bytes"`
		PreviewRows  int           `mapstructure:"preview_rows"`
		Latency      time.Duration `mapstructure:"latency"`
		SessionTTL   time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"import"`

	Directory struct {
		PageSize int           `mapstructure:"page_size"`
		Latency  time.Duration `mapstructure:"latency"`
		Seed     bool          `mapstructure:"seed"`
	} `mapstructure:"directory"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Session-ID"})
	v.SetDefault("log.level", "info")
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "voteflow")
	v.SetDefault("jwt.issuer", "voteflow")
	v.SetDefault("paystack.base_url", "https://api.paystack.co")
	v.SetDefault("paystack.proxy_url", "http://localhost:5000/api/paystack")
	v.SetDefault("paystack.currency", "NGN")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("import.max_file_bytes", 5*1024*1024)
	v.SetDefault("import.preview_rows", 10)
	v.SetDefault("import.latency", 2*time.Second)
	v.SetDefault("import.session_ttl", 30*time.Minute)
	v.SetDefault("directory.page_size", 5)
	v.SetDefault("directory.latency", time.Second)
	v.SetDefault("directory.seed", true)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		logrus.Info("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logrus.Fatalf("config unmarshal error: %v", err)
	}

	// The SPA's build-time variables are honoured so one .env serves both.
	if url := firstEnv("VOTEFLOW_API_URL", "REACT_APP_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	if key := firstEnv("PAYSTACK_PUBLIC_KEY", "REACT_APP_PAYSTACK_PUBLIC_KEY"); key != "" {
		cfg.Paystack.PublicKey = key
	}
	if key := os.Getenv("PAYSTACK_SECRET_KEY"); key != "" {
		cfg.Paystack.SecretKey = key
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
		cfg.Database.Enabled = true
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.Server.TrustedProxies = strings.Split(proxies, ",")
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" && cfg.Server.Environment == "production" {
			logrus.Fatal("JWT_SECRET not found in environment")
		}
	}

	return &cfg
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

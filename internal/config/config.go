package config

import (
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type MainConfig struct {
	AppName       string `toml:"appName"`
	Host          string `toml:"host" env:"CHATNEST_HOST"`
	Port          int    `toml:"port" env:"CHATNEST_PORT"`
	PublicBaseURL string `toml:"publicBaseURL" env:"CHATNEST_PUBLIC_BASE_URL"` // 生成 widget 链接/嵌入代码
	Timezone      string `toml:"timezone"`                                    // 访客未提供时区时的默认值
}

type DatabaseConfig struct {
	Driver       string `toml:"driver"` // mysql / sqlite
	Host         string `toml:"host" env:"DB_HOST"`
	Port         int    `toml:"port" env:"DB_PORT"`
	User         string `toml:"user" env:"DB_USER"`
	Password     string `toml:"password" env:"DB_PASSWORD"`
	DatabaseName string `toml:"databaseName" env:"DB_NAME"`
	SqlitePath   string `toml:"sqlitePath"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level" env:"LOG_LEVEL"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

type JwtConfig struct {
	Key         string `toml:"key" env:"JWT_KEY"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type RedisConfig struct {
	Host            string `toml:"host" env:"REDIS_HOST"`
	Port            int    `toml:"port" env:"REDIS_PORT"`
	Password        string `toml:"password" env:"REDIS_PASSWORD"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"poolSize"`
	MinIdleConns    int    `toml:"minIdleConns"`
	CacheTTLSeconds int    `toml:"cacheTTLSeconds"`
}

// LLMConfig 外部补全接口（OpenAI 兼容）
type LLMConfig struct {
	BaseURL              string  `toml:"baseURL" env:"LLM_BASE_URL"`
	APIKey               string  `toml:"apiKey" env:"LLM_API_KEY"`
	Model                string  `toml:"model" env:"LLM_MODEL"`
	Temperature          float64 `toml:"temperature"`
	MaxTokens            int     `toml:"maxTokens"`
	TimeoutSeconds       int     `toml:"timeoutSeconds"`
	HealthTimeoutSeconds int     `toml:"healthTimeoutSeconds"`
}

// PromptConfig Instructions 为空时使用内置指令
type PromptConfig struct {
	Instructions string `toml:"instructions"`
}

type WidgetConfig struct {
	MaxMessageLength  int      `toml:"maxMessageLength"`
	SessionCookieName string   `toml:"sessionCookieName"`
	AllowOrigins      []string `toml:"allowOrigins"`
}

type StorageConfig struct {
	UploadDir   string `toml:"uploadDir" env:"CHATNEST_UPLOAD_DIR"`
	MaxPdfBytes int64  `toml:"maxPdfBytes"`
}

type SecurityConfig struct {
	SSLRedirect bool `toml:"sslRedirect"`
}

type Config struct {
	MainConfig     `toml:"mainConfig"`
	DatabaseConfig `toml:"databaseConfig"`
	JwtConfig      `toml:"jwtConfig"`
	LogConfig      `toml:"logConfig"`
	RedisConfig    `toml:"redisConfig"`
	LLMConfig      `toml:"llmConfig"`
	PromptConfig   `toml:"promptConfig"`
	WidgetConfig   `toml:"widgetConfig"`
	StorageConfig  `toml:"storageConfig"`
	SecurityConfig `toml:"securityConfig"`
}

var config *Config

const defaultConfigPath = "configs/config_local.toml"

// Default 内置默认值，配置文件与环境变量在此基础上覆盖
func Default() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName:       "chatnest",
			Host:          "0.0.0.0",
			Port:          8000,
			PublicBaseURL: "http://localhost:8000",
			Timezone:      "UTC",
		},
		DatabaseConfig: DatabaseConfig{
			Driver:     "mysql",
			Host:       "127.0.0.1",
			Port:       3306,
			SqlitePath: "chatnest.db",
		},
		JwtConfig: JwtConfig{ExpireHours: 24},
		LogConfig: LogConfig{Level: "info"},
		RedisConfig: RedisConfig{
			CacheTTLSeconds: 600,
		},
		LLMConfig: LLMConfig{
			Model:                "openai/gpt-oss-120b",
			Temperature:          0.7,
			MaxTokens:            1000,
			TimeoutSeconds:       360,
			HealthTimeoutSeconds: 5,
		},
		WidgetConfig: WidgetConfig{
			MaxMessageLength:  1000,
			SessionCookieName: "chatnest_session",
			AllowOrigins:      []string{"*"},
		},
		StorageConfig: StorageConfig{
			UploadDir:   "storage/app",
			MaxPdfBytes: 10 << 20,
		},
	}
}

// LoadConfig 依次加载：默认值 -> toml 文件 -> .env -> 环境变量
func LoadConfig(path string) (*Config, error) {
	conf := Default()
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	if _, err := toml.DecodeFile(path, conf); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("config file %s not found, using defaults", path)
	}

	// .env 仅用于本地开发，缺失时忽略
	_ = godotenv.Load()

	if err := env.Parse(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func GetConfig() *Config {
	if config == nil {
		conf, err := LoadConfig(os.Getenv("CHATNEST_CONFIG"))
		if err != nil {
			log.Printf("加载配置文件失败: %v, 使用默认设置", err)
			conf = Default()
		}
		config = conf
	}
	return config
}

package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	Social      Social      `json:"social"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	BaseURL     string `json:"baseURL"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Logger struct {
	Format string `json:"format"`
}

// Social holds the OAuth client registration for each publish platform. A
// platform with empty credentials is simply not registered at startup.
type Social struct {
	Instagram OAuthClient `json:"instagram"`
	TikTok    OAuthClient `json:"tiktok"`
	LinkedIn  OAuthClient `json:"linkedin"`
	Twitter   OAuthClient `json:"twitter"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initSocial(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10002
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10002
	}
	if v := os.Getenv("APP_BASE_URL"); v != "" {
		C.App.BaseURL = v
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		if v := os.Getenv("DB_PORT"); v != "" {
			C.Database.Psql.Port = v
		} else {
			C.Database.Psql.Port = "5432"
		}
	}
}

// initSocial fills platform client credentials from environment variables when
// the config file leaves them empty; env names follow <PLATFORM>_CLIENT_ID etc.
func initSocial(C *Config) {
	fill := func(c *OAuthClient, prefix string) {
		if c.ClientID == "" {
			c.ClientID = os.Getenv(prefix + "_CLIENT_ID")
		}
		if c.ClientSecret == "" {
			c.ClientSecret = os.Getenv(prefix + "_CLIENT_SECRET")
		}
		if c.RedirectURI == "" {
			c.RedirectURI = os.Getenv(prefix + "_REDIRECT_URI")
		}
		if len(c.Scopes) == 0 {
			if v := os.Getenv(prefix + "_SCOPES"); v != "" {
				c.Scopes = strings.Split(v, ",")
			}
		}
	}
	fill(&C.Social.Instagram, "INSTAGRAM")
	fill(&C.Social.TikTok, "TIKTOK")
	fill(&C.Social.LinkedIn, "LINKEDIN")
	fill(&C.Social.Twitter, "TWITTER")
}

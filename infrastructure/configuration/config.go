package configuration

import (
	"fmt"
	"os"
	"strconv"

	"terastream/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Mongo       Mongo       `json:"mongo"`
	Terabox     Terabox     `json:"terabox"`
	Stream      Stream      `json:"stream"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
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

type Mongo struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// Terabox holds the upstream endpoint configuration. Cookie is the NDUS
// session cookie used when a request does not carry its own.
type Terabox struct {
	Host            string `json:"host"`
	Cookie          string `json:"cookie"`
	UserAgent       string `json:"userAgent"`
	MaxRetries      int    `json:"maxRetries"`
	RetryBaseMs     int    `json:"retryBaseMs"`
	TimeoutSeconds  int    `json:"timeoutSeconds"`
	TokenTTLSeconds int    `json:"tokenTTLSeconds"`
	CacheTTLDays    int    `json:"cacheTTLDays"`
}

// Stream holds the streaming relay configuration.
type Stream struct {
	AllowedDomains []string `json:"allowedDomains"`
	DefaultType    string   `json:"defaultType"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initUpstream(&C)
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
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10080
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
		C.App.Port = 10080
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; admin endpoints will reject every request. Provide SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// Optional MSSQL config via environment (Azure SQL deployments)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_PORT"); v != "" && C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}

	if C.Mongo.URI == "" {
		C.Mongo.URI = os.Getenv("MONGO_URI")
	}
	if C.Mongo.Database == "" {
		C.Mongo.Database = "terastream"
	}
}

func initUpstream(C *Config) {
	if C.Terabox.Host == "" {
		C.Terabox.Host = "https://www.terabox.com"
	}
	if v := os.Getenv("TERABOX_COOKIE"); v != "" {
		C.Terabox.Cookie = v
	}
	if C.Terabox.UserAgent == "" {
		C.Terabox.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if C.Terabox.MaxRetries == 0 {
		C.Terabox.MaxRetries = 2
	}
	if C.Terabox.RetryBaseMs == 0 {
		C.Terabox.RetryBaseMs = 200
	}
	if C.Terabox.TimeoutSeconds == 0 {
		C.Terabox.TimeoutSeconds = 12
	}
	if C.Terabox.TokenTTLSeconds == 0 {
		C.Terabox.TokenTTLSeconds = 300
	}
	if C.Terabox.CacheTTLDays == 0 {
		C.Terabox.CacheTTLDays = 7
	}
	if len(C.Stream.AllowedDomains) == 0 {
		C.Stream.AllowedDomains = []string{
			"terabox.com", "teraboxcdn.com", "terabox.app",
			"1024tera.com", "dubox.com", "teraboxlink.com",
		}
	}
	if C.Stream.DefaultType == "" {
		C.Stream.DefaultType = "M3U8_AUTO_720"
	}
}

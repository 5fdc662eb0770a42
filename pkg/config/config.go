package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        Server        `mapstructure:"server"`
	Postgres      Postgres      `mapstructure:"postgres"`
	Broker        Broker        `mapstructure:"broker"`
	Cron          Cron          `mapstructure:"cron"`
	Delivery      Delivery      `mapstructure:"delivery"`
	Retry         Retry         `mapstructure:"retry"`
	Sweeper       Sweeper       `mapstructure:"sweeper"`
	HTTPClient    HTTPClient    `mapstructure:"httpClient"`
	Subscriptions Subscriptions `mapstructure:"subscriptions"`
	Sentry        Sentry        `mapstructure:"sentry"`
	LoggingLevel  string        `mapstructure:"logging-level"`
}

type Server struct {
	Port          string `mapstructure:"port"`
	SwaggerHost   string `mapstructure:"swagger_host"`
	SwaggerSchema string `mapstructure:"swagger_schema"`
	BodyLimit     int    `mapstructure:"body_limit"`
}

type Postgres struct {
	ConnString     string `mapstructure:"conn_string"`
	MaxConnections int32  `mapstructure:"max_connections"`
	MigrationsDir  string `mapstructure:"migrations_dir"`
}

type Broker struct {
	Kafka Kafka `mapstructure:"kafka"`
}

type Kafka struct {
	Enabled       bool   `mapstructure:"enabled"`
	Brokers       string `mapstructure:"brokers"`
	ReaderTopic   string `mapstructure:"readerTopic"`
	ReaderUsr     string `mapstructure:"readerUsr"`
	ReaderUsrPwd  string `mapstructure:"readerUsrPwd"`
	WriterTopic   string `mapstructure:"writerTopic"`
	WriterUsr     string `mapstructure:"writerUsr"`
	WriterUsrPwd  string `mapstructure:"writerUsrPwd"`
	ConsumerGroup string `mapstructure:"consumerGroup"`
	MaxAttempts   int    `mapstructure:"maxAttempts"`
}

// Cron schedules accept the standard cron format with seconds or "@every <duration>".
type Cron struct {
	PendingSchedule string `mapstructure:"pendingSchedule"`
	RetriesSchedule string `mapstructure:"retriesSchedule"`
}

type Delivery struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"userAgent"`
	ResponseLimit int           `mapstructure:"responseLimit"`
	EventVersion  string        `mapstructure:"eventVersion"`
}

type Retry struct {
	MaxAttempts int             `mapstructure:"maxAttempts"`
	Schedule    []time.Duration `mapstructure:"schedule"`
}

type Sweeper struct {
	BatchSize        int           `mapstructure:"batchSize"`
	PendingBatchSize int           `mapstructure:"pendingBatchSize"`
	Workers          int           `mapstructure:"workers"`
	Lease            time.Duration `mapstructure:"lease"`
}

type Subscriptions struct {
	All     bool     `mapstructure:"all"`
	Clinics []string `mapstructure:"clinics"`
}

type Sentry struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type HTTPClient struct {
	ConnectTimeout        time.Duration `mapstructure:"connectTimeout"`
	TLSHandshakeTimeout   time.Duration `mapstructure:"TLSHandshakeTimeout"`
	ResponseHeaderTimeout time.Duration `mapstructure:"responseHeaderTimeout"`
	ExpectContinueTimeout time.Duration `mapstructure:"expectContinueTimeout"`

	IdleConnTimeout     time.Duration `mapstructure:"idleConnTimeout"`
	MaxIdleConns        int           `mapstructure:"maxIdleConns"`
	MaxIdleConnsPerHost int           `mapstructure:"maxIdleConnsPerHost"`
	MaxConnsPerHost     int           `mapstructure:"maxConnsPerHost"`
	KeepAlives          bool          `mapstructure:"keepAlives"`

	// 0 leaves the deadline to the request context.
	ClientTimeout time.Duration `mapstructure:"clientTimeout"`

	UserAgent string `mapstructure:"userAgent"`

	InsecureSkipVerify bool `mapstructure:"insecureSkipVerify"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.body_limit", 1024*1024)
	v.SetDefault("server.swagger_host", "localhost:8080")
	v.SetDefault("server.swagger_schema", "http")
	v.SetDefault("postgres.conn_string", "")
	v.SetDefault("postgres.max_connections", 5)
	v.SetDefault("postgres.migrations_dir", "resources/migrations")

	// every key needs a default, otherwise Unmarshal never looks at the environment
	v.SetDefault("broker.kafka.enabled", false)
	v.SetDefault("broker.kafka.brokers", "")
	v.SetDefault("broker.kafka.readerTopic", "clinic.changes")
	v.SetDefault("broker.kafka.readerUsr", "")
	v.SetDefault("broker.kafka.readerUsrPwd", "")
	v.SetDefault("broker.kafka.writerTopic", "webhooks.dead-letters")
	v.SetDefault("broker.kafka.writerUsr", "")
	v.SetDefault("broker.kafka.writerUsrPwd", "")
	v.SetDefault("broker.kafka.consumerGroup", "webhooks-consumer-group")
	v.SetDefault("broker.kafka.maxAttempts", 3)

	v.SetDefault("cron.pendingSchedule", "@every 30s")
	v.SetDefault("cron.retriesSchedule", "@every 1m")

	v.SetDefault("delivery.timeout", 10*time.Second)
	v.SetDefault("delivery.userAgent", "Clinio-Webhooks/1.0")
	v.SetDefault("delivery.responseLimit", 500)
	v.SetDefault("delivery.eventVersion", "1.0")

	v.SetDefault("retry.maxAttempts", 7)
	v.SetDefault("retry.schedule", "30s,120s,600s")

	v.SetDefault("sweeper.batchSize", 10)
	v.SetDefault("sweeper.pendingBatchSize", 50)
	v.SetDefault("sweeper.workers", 4)
	v.SetDefault("sweeper.lease", 5*time.Minute)

	v.SetDefault("subscriptions.all", true)
	v.SetDefault("subscriptions.clinics", []string{})
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("httpClient.connectTimeout", 3*time.Second)
	v.SetDefault("httpClient.TLSHandshakeTimeout", 3*time.Second)
	v.SetDefault("httpClient.responseHeaderTimeout", 8*time.Second)
	v.SetDefault("httpClient.expectContinueTimeout", time.Second)
	v.SetDefault("httpClient.idleConnTimeout", 90*time.Second)
	v.SetDefault("httpClient.maxIdleConns", 100)
	v.SetDefault("httpClient.maxIdleConnsPerHost", 10)
	v.SetDefault("httpClient.maxConnsPerHost", 0)
	v.SetDefault("httpClient.keepAlives", true)
	v.SetDefault("httpClient.clientTimeout", 0)
	v.SetDefault("httpClient.userAgent", "")
	v.SetDefault("httpClient.insecureSkipVerify", false)

	v.SetDefault("logging-level", "info")
}

func NewConfig() (Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	// SERVER_PORT -> server.port, LOGGING_LEVEL -> logging-level
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(path)

	var conf Config
	if err := v.ReadInConfig(); err != nil {
		// no .env file is fine, environment variables are enough
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return conf, err
		}
	}

	err := v.Unmarshal(&conf)

	return conf, err
}

package config

import (
	"time"

	pkgconfig "github.com/weiawesome/trip-chat/pkg/config"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Store     StoreConfig
	Directory DirectoryConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Cassandra CassandraConfig
	Redis     RedisConfig
	Events    EventsConfig
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type ChatConfig struct {
	MaxBodyLength       int  `mapstructure:"max_body_length"`
	DefaultHistoryLimit int  `mapstructure:"default_history_limit"`
	MaxHistoryLimit     int  `mapstructure:"max_history_limit"`
	AuthorizeJoins      bool `mapstructure:"authorize_joins"`
	SummaryConcurrency  int  `mapstructure:"summary_concurrency"`
}

// StoreConfig selects the message store backend: gorm, mongo, cassandra or memory.
type StoreConfig struct {
	Driver string
}

// DirectoryConfig selects the activity directory backend: gorm, mongo or memory.
type DirectoryConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type CassandraConfig struct {
	Hosts          []string
	Keyspace       string
	Consistency    string
	Username       string
	Password       string
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration
	NumConns       int `mapstructure:"num_conns"`
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	PresencePrefix    string        `mapstructure:"presence_prefix"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

type EventsConfig struct {
	Driver     string // redis, kafka, none
	Brokers    string
	Partitions int
}

type AuthConfig struct {
	PublicKeyFile string `mapstructure:"public_key_file"`
	Issuer        string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("chat.max_body_length", 4000)
	v.SetDefault("chat.default_history_limit", 100)
	v.SetDefault("chat.max_history_limit", 500)
	v.SetDefault("chat.authorize_joins", true)
	v.SetDefault("chat.summary_concurrency", 8)
	v.SetDefault("store.driver", "gorm")
	v.SetDefault("directory.driver", "gorm")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "trip_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "trip_chat")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("cassandra.hosts", []string{"localhost"})
	v.SetDefault("cassandra.keyspace", "trip_chat")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.connect_timeout", "10s")
	v.SetDefault("cassandra.timeout", "5s")
	v.SetDefault("cassandra.num_conns", 2)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.presence_prefix", "chat:presence")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.brokers", "localhost:9092")
	v.SetDefault("events.partitions", 8)
	v.SetDefault("auth.public_key_file", "./config/jwt_public.pem")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("directory.driver", "DIRECTORY_DRIVER")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("cassandra.hosts", "CASSANDRA_HOSTS")
	v.BindEnv("cassandra.keyspace", "CASSANDRA_KEYSPACE")
	v.BindEnv("cassandra.username", "CASSANDRA_USERNAME")
	v.BindEnv("cassandra.password", "CASSANDRA_PASSWORD")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.public_key_file", "JWT_PUBLIC_KEY_FILE")
	v.BindEnv("auth.issuer", "JWT_ISSUER")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 30*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Mongo.Timeout = pkgconfig.Duration(v, "mongo.timeout", 10*time.Second)
	cfg.Cassandra.Hosts = pkgconfig.StringSlice(v, "cassandra.hosts")
	cfg.Cassandra.ConnectTimeout = pkgconfig.Duration(v, "cassandra.connect_timeout", 10*time.Second)
	cfg.Cassandra.Timeout = pkgconfig.Duration(v, "cassandra.timeout", 5*time.Second)
	cfg.Redis.HeartbeatInterval = pkgconfig.Duration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = pkgconfig.Duration(v, "redis.key_ttl", 30*time.Second)

	return &cfg, nil
}

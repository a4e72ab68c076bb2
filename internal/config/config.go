package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// AMQPConfig configures the outbound notification sink. An empty URL disables
// publishing (a no-op publisher is wired instead).
type AMQPConfig struct {
	URL      string `env:"AMQP_URL" envDefault:""`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"codemarket.events"`
}

// RedisConfig configures the payment-request rate limiter. An empty address
// disables limiting.
type RedisConfig struct {
	Addr            string `env:"REDIS_ADDR" envDefault:""`
	RateLimitPrefix string `env:"REDIS_RATE_LIMIT_PREFIX" envDefault:"codemarket:rate_limit"`
}

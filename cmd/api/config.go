package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/codemarket/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Payment policy bounds, in minor units.
	MinDeposit        int64 `env:"PAY_MIN_DEPOSIT" envDefault:"10000"`
	MaxDeposit        int64 `env:"PAY_MAX_DEPOSIT" envDefault:"10000000"`
	MinWithdrawal     int64 `env:"PAY_MIN_WITHDRAWAL" envDefault:"10000"`
	RequestsPerMinute int   `env:"PAY_REQUESTS_PER_MINUTE" envDefault:"10"`

	Postgres config.PostgresConfig
	AMQP     config.AMQPConfig
	Redis    config.RedisConfig
}

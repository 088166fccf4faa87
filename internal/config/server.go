package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Secret for the signed websocket auth tokens handed out by the
	// account service.
	AuthSecret string `env:"AUTH_SECRET,required,notEmpty"`

	TurnTimeLimitSec    int `env:"TURN_TIME_LIMIT_SEC" envDefault:"30"`
	HeartbeatTimeoutSec int `env:"HEARTBEAT_TIMEOUT_SEC" envDefault:"30"`
	ReconnectGraceSec   int `env:"RECONNECT_GRACE_SEC" envDefault:"20"`
	BoardSize           int `env:"BOARD_SIZE" envDefault:"15"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

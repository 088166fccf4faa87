package config

import "github.com/caarlos0/env/v11"

// TestConfig gates the Postgres integration tests. Without the DSN set the
// suites skip instead of failing.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}

package config

// AppConfig is everything the game server binary reads from the
// environment, one section per concern.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp parses every section. The log section loads first so a bad
// server section can still be reported through an initialized logger.
func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{Log: logCfg}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
	}, nil
}

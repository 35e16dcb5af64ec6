// Package config loads typed configuration structs from environment
// variables using caarlos0/env, with optional .env file support through
// godotenv.
//
// Configuration structs declare their variables with `env` tags:
//
//	type GatewayConfig struct {
//		APIKey      string `env:"PADDLE_API_KEY,required"`
//		Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
//	}
//
// Each struct type is parsed at most once per process; repeated Load calls
// return the cached value, so independent components can load the same
// config type without coordinating.
package config

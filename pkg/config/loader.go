package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.RWMutex
	loaded = make(map[string]any)

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into the provided configuration struct.
// Each unique configuration type is parsed once per process lifetime;
// subsequent calls for the same type return the cached value so components
// sharing a config struct observe identical settings.
//
// The default .env file is loaded lazily before the first parse. A missing
// .env file is not an error.
//
// Example:
//
//	type RunnerConfig struct {
//		Interval       time.Duration `env:"BILLING_CYCLE_INTERVAL" envDefault:"24h"`
//		GatewayTimeout time.Duration `env:"BILLING_GATEWAY_TIMEOUT" envDefault:"15s"`
//	}
//
//	var cfg RunnerConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	name := typeName[T]()

	mu.RLock()
	if cached, ok := loaded[name]; ok {
		*v = cached.(T)
		mu.RUnlock()
		return nil
	}
	mu.RUnlock()

	if err := env.Parse(v); err != nil {
		return fmt.Errorf("%w: %v", ErrParsingConfig, err)
	}

	mu.Lock()
	// First successful parse wins; a concurrent loader may have stored the
	// value already and both parses read the same environment.
	if cached, ok := loaded[name]; ok {
		*v = cached.(T)
	} else {
		loaded[name] = *v
	}
	mu.Unlock()

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Useful for configurations required for the application to start.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// typeName returns a stable string identifier for the generic type T.
func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STAYS_"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type HTTP struct {
	Host              string        `yaml:"host"`
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	LivenessEndpoint  string        `yaml:"livenessEndpoint"`
}

type Storage struct {
	Driver      string `yaml:"driver"`
	PostgresDSN string `yaml:"postgresDsn"`
	Seed        bool   `yaml:"seed"`
}

type Favorites struct {
	Driver        string `yaml:"driver"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
}

type Events struct {
	AMQPURL  string `yaml:"amqpUrl"`
	Exchange string `yaml:"exchange"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type Catalog struct {
	ImageBaseURL string `yaml:"imageBaseUrl"`
}

type Pricing struct {
	CleaningFee float64 `yaml:"cleaningFee"`
	ServiceFee  float64 `yaml:"serviceFee"`
}

type Retry struct {
	MaxAttempts     int           `yaml:"maxAttempts"`
	InitialInterval time.Duration `yaml:"initialInterval"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Storage   Storage   `yaml:"storage"`
	Favorites Favorites `yaml:"favorites"`
	Events    Events    `yaml:"events"`
	Auth      Auth      `yaml:"auth"`
	Catalog   Catalog   `yaml:"catalog"`
	Pricing   Pricing   `yaml:"pricing"`
	Retry     Retry     `yaml:"retry"`
	Log       Log       `yaml:"log"`
}

func Default() Config {
	return Config{
		HTTP: HTTP{
			Host:              "localhost",
			Port:              "8092",
			ReadHeaderTimeout: 20 * time.Second, //nolint:gomnd
			ShutdownTimeout:   4 * time.Second,  //nolint:gomnd
			LivenessEndpoint:  "/liveness",
		},
		Storage:   Storage{Driver: DriverMemory, PostgresDSN: "", Seed: true},
		Favorites: Favorites{Driver: DriverMemory, RedisAddr: "localhost:6379", RedisPassword: "", RedisDB: 0},
		Events:    Events{AMQPURL: "", Exchange: "reservations"},
		Auth:      Auth{JWTSecret: ""},
		Catalog:   Catalog{ImageBaseURL: "/images"},
		Pricing:   Pricing{CleaningFee: 200, ServiceFee: 0},                       //nolint:gomnd
		Retry:     Retry{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond}, //nolint:gomnd
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load layers defaults, the YAML file, the .env file and the process
// environment, later sources winning. Empty paths are skipped; a missing
// .env file is not an error.
func Load(path, envFile string) (Config, error) {
	conf := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		if err := yaml.Unmarshal(raw, &conf); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := conf.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"HTTP_HOST":         &c.HTTP.Host,
		"HTTP_PORT":         &c.HTTP.Port,
		"LIVENESS_ENDPOINT": &c.HTTP.LivenessEndpoint,
		"STORAGE_DRIVER":    &c.Storage.Driver,
		"POSTGRES_DSN":      &c.Storage.PostgresDSN,
		"FAVORITES_DRIVER":  &c.Favorites.Driver,
		"REDIS_ADDR":        &c.Favorites.RedisAddr,
		"REDIS_PASSWORD":    &c.Favorites.RedisPassword,
		"AMQP_URL":          &c.Events.AMQPURL,
		"AMQP_EXCHANGE":     &c.Events.Exchange,
		"JWT_SECRET":        &c.Auth.JWTSecret,
		"IMAGE_BASE_URL":    &c.Catalog.ImageBaseURL,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
	}

	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"HTTP_READ_HEADER_TIMEOUT": &c.HTTP.ReadHeaderTimeout,
		"HTTP_SHUTDOWN_TIMEOUT":    &c.HTTP.ShutdownTimeout,
		"RETRY_INITIAL_INTERVAL":   &c.Retry.InitialInterval,
	}

	for name, dst := range durations {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
			}

			*dst = d
		}
	}

	ints := map[string]*int{
		"REDIS_DB":           &c.Favorites.RedisDB,
		"RETRY_MAX_ATTEMPTS": &c.Retry.MaxAttempts,
	}

	for name, dst := range ints {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
			}

			*dst = n
		}
	}

	floats := map[string]*float64{
		"CLEANING_FEE": &c.Pricing.CleaningFee,
		"SERVICE_FEE":  &c.Pricing.ServiceFee,
	}

	for name, dst := range floats {
		if v, ok := lookup(envPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", envPrefix, name, err)
			}

			*dst = f
		}
	}

	if v, ok := lookup(envPrefix + "SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sSEED: %w", envPrefix, err)
		}

		c.Storage.Seed = b
	}

	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgresDsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	switch c.Favorites.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Favorites.RedisAddr == "" {
			errs = append(errs, errors.New("favorites.redisAddr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown favorites driver %q", c.Favorites.Driver))
	}

	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http.port is required"))
	}

	if c.Pricing.CleaningFee < 0 || c.Pricing.ServiceFee < 0 {
		errs = append(errs, errors.New("fees must not be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.maxAttempts must be at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

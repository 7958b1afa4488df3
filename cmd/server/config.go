package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/krypto"
	"github.com/mediahub/mediahub/internal/session"
)

const (
	sessionBackendSQLite = "sqlite"
	sessionBackendRedis  = "redis"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	cookieKeys      []krypto.Key
	secureCookie    bool
}

type dbConfig struct {
	file    string
	migrate bool
}

type sessionConfig struct {
	backend       string
	ttl           time.Duration
	purgeInterval time.Duration
}

type redisConfig struct {
	addr     string
	password krypto.Secret
	db       int
}

// adminConfig describes the admin that is seeded on startup.
// Nothing is seeded when password is nil.
type adminConfig struct {
	username auth.Username
	email    email.Address
	password *auth.Password
}

// config is the configuration for the server command.
type config struct {
	http    httpConfig
	db      dbConfig
	session sessionConfig
	redis   redisConfig
	auth    auth.ServiceConfig
	admin   adminConfig
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			secureCookie:    true,
		},
		db: dbConfig{
			file:    "mediahub.db",
			migrate: true,
		},
		session: sessionConfig{
			backend:       sessionBackendSQLite,
			ttl:           session.DefaultTTL,
			purgeInterval: time.Minute * 10,
		},
		redis: redisConfig{
			addr: "localhost:6379",
		},
		auth: auth.ServiceConfig{
			MaxConcurrentHashes: 4,
		},
		admin: adminConfig{
			username: "admin",
			email:    "admin@localhost",
		},
	}
}

// requiredEnvKeys are the env variables that have no sensible default.
var requiredEnvKeys = []string{
	"HTTP_COOKIE_KEYS",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_COOKIE_KEYS": func(v string, c *config) error {
		keys, err := krypto.ParseKeys(v)
		if err != nil {
			return err
		}
		c.http.cookieKeys = keys
		return nil
	},
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.secureCookie)
	},
	"DB_FILE": func(v string, c *config) error {
		if v == "" {
			return errors.New("must not be empty")
		}
		c.db.file = v
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"SESSION_BACKEND": func(v string, c *config) error {
		switch v {
		case sessionBackendSQLite, sessionBackendRedis:
			c.session.backend = v
			return nil
		default:
			return fmt.Errorf("unknown backend %q, want %q or %q", v, sessionBackendSQLite, sessionBackendRedis)
		}
	},
	"SESSION_TTL": func(v string, c *config) error {
		return confDuration(v, &c.session.ttl, time.Minute, math.MaxInt64)
	},
	"SESSION_PURGE_INTERVAL": func(v string, c *config) error {
		return confDuration(v, &c.session.purgeInterval, time.Second, math.MaxInt64)
	},
	"REDIS_ADDR": func(v string, c *config) error {
		if v == "" {
			return errors.New("must not be empty")
		}
		c.redis.addr = v
		return nil
	},
	"REDIS_PASSWORD": func(v string, c *config) error {
		c.redis.password = krypto.NewSecret(v)
		return nil
	},
	"REDIS_DB": func(v string, c *config) error {
		return confInt(v, &c.redis.db, 0, math.MaxInt32)
	},
	"AUTH_MAX_CONCURRENT_HASHES": func(v string, c *config) error {
		var n int
		err := confInt(v, &n, 1, 1024)
		if err != nil {
			return err
		}
		c.auth.MaxConcurrentHashes = int64(n)
		return nil
	},
	"ADMIN_USERNAME": func(v string, c *config) error {
		u, err := auth.ParseUsername(v)
		if err != nil {
			return err
		}
		c.admin.username = u
		return nil
	},
	"ADMIN_EMAIL": func(v string, c *config) error {
		addr, err := email.ParseAddress(v)
		if err != nil {
			return err
		}
		c.admin.email = addr
		return nil
	},
	"ADMIN_PASSWORD": func(v string, c *config) error {
		if v == "" {
			c.admin.password = nil
			return nil
		}

		pwd, err := auth.ParseNewPassword(v)
		if err != nil {
			return err
		}
		c.admin.password = &pwd
		return nil
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work. All invalid and missing variables are reported
// at once.
func configFromEnv() (config, error) {
	c := defaultConfig()

	keys := make([]string, 0, len(envMap))
	for key := range envMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			if err := envMap[key](val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	for _, key := range requiredEnvKeys {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing required env variable %s", key))
		}
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

// confInt attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confInt(v string, tgt *int, min, max int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	if n < min || n > max {
		return fmt.Errorf("%d not in range [%d, %d] (inclusive)", n, min, max)
	}

	*tgt = n

	return nil
}

func confBool(v string, tgt *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*tgt = b

	return nil
}

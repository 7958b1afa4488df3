package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/krypto"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"HTTP_COOKIE_KEYS": "568554094ec040ab8a6b3e6d7cc138b0dc855f39ba1aeb2ffc903f7260b3a452,d503685b5e0848dcd1026711a5d92e8a087dfaffa489fb563e0de73db2f2476c",
	}
}

func newConfig(mf func(*config)) config {
	c := defaultConfig()
	c.http.cookieKeys = []krypto.Key{
		must(krypto.ParseKey("568554094ec040ab8a6b3e6d7cc138b0dc855f39ba1aeb2ffc903f7260b3a452")),
		must(krypto.ParseKey("d503685b5e0848dcd1026711a5d92e8a087dfaffa489fb563e0de73db2f2476c")),
	}

	if mf != nil {
		mf(&c)
	}
	return c
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("ok, uses defaults for non-required env variables", func(t *testing.T) {
		// set the required env variables.
		for key, val := range requiredEnv() {
			envForTest(t, key, val)
		}

		want := newConfig(nil)
		got, err := configFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%+v\nwant\n%+v", got, want)
		}
	})

	valid := map[string]struct {
		key string
		val string
		mf  func(*config) // modify default config to create wanted config.
	}{
		"ok, non-default HTTP_ADDR": {
			key: "HTTP_ADDR", val: "localhost:8080", mf: func(c *config) { c.http.addr = "localhost:8080" },
		},
		"ok, non-default HTTP_READ_TIMEOUT": {
			key: "HTTP_READ_TIMEOUT", val: "101ms", mf: func(c *config) { c.http.readTimeout = 101 * time.Millisecond },
		},
		"ok, non-default HTTP_WRITE_TIMEOUT": {
			key: "HTTP_WRITE_TIMEOUT", val: "202ms", mf: func(c *config) { c.http.writeTimeout = 202 * time.Millisecond },
		},
		"ok, non-default HTTP_IDLE_TIMEOUT": {
			key: "HTTP_IDLE_TIMEOUT", val: "303ms", mf: func(c *config) { c.http.idleTimeout = 303 * time.Millisecond },
		},
		"ok, non-default HTTP_SHUTDOWN_TIMEOUT": {
			key: "HTTP_SHUTDOWN_TIMEOUT", val: "404ms", mf: func(c *config) { c.http.shutdownTimeout = 404 * time.Millisecond },
		},
		"ok, other HTTP_COOKIE_KEYS": {
			key: "HTTP_COOKIE_KEYS",
			val: "04017690e77c6a19671178e1950c7519389b58f6ffb8dcf53b2acfcaca398778",
			mf: func(c *config) {
				c.http.cookieKeys = []krypto.Key{
					must(krypto.ParseKey("04017690e77c6a19671178e1950c7519389b58f6ffb8dcf53b2acfcaca398778")),
				}
			},
		},
		"ok, non-default HTTP_SECURE_COOKIE": {
			key: "HTTP_SECURE_COOKIE", val: "false", mf: func(c *config) { c.http.secureCookie = false },
		},
		"ok, non-default DB_FILE": {
			key: "DB_FILE", val: "test.db", mf: func(c *config) { c.db.file = "test.db" },
		},
		"ok, non-default DB_MIGRATE": {
			key: "DB_MIGRATE", val: "false", mf: func(c *config) { c.db.migrate = false },
		},
		"ok, non-default SESSION_BACKEND": {
			key: "SESSION_BACKEND", val: "redis", mf: func(c *config) { c.session.backend = sessionBackendRedis },
		},
		"ok, non-default SESSION_TTL": {
			key: "SESSION_TTL", val: "2h", mf: func(c *config) { c.session.ttl = 2 * time.Hour },
		},
		"ok, non-default SESSION_PURGE_INTERVAL": {
			key: "SESSION_PURGE_INTERVAL", val: "30s", mf: func(c *config) { c.session.purgeInterval = 30 * time.Second },
		},
		"ok, non-default REDIS_ADDR": {
			key: "REDIS_ADDR", val: "redis:6380", mf: func(c *config) { c.redis.addr = "redis:6380" },
		},
		"ok, non-default REDIS_PASSWORD": {
			key: "REDIS_PASSWORD", val: "hunter22", mf: func(c *config) { c.redis.password = krypto.NewSecret("hunter22") },
		},
		"ok, non-default REDIS_DB": {
			key: "REDIS_DB", val: "3", mf: func(c *config) { c.redis.db = 3 },
		},
		"ok, non-default AUTH_MAX_CONCURRENT_HASHES": {
			key: "AUTH_MAX_CONCURRENT_HASHES", val: "16", mf: func(c *config) { c.auth.MaxConcurrentHashes = 16 },
		},
		"ok, non-default ADMIN_USERNAME": {
			key: "ADMIN_USERNAME", val: "root", mf: func(c *config) { c.admin.username = "root" },
		},
		"ok, non-default ADMIN_EMAIL": {
			key: "ADMIN_EMAIL",
			val: "root@example.com",
			mf: func(c *config) {
				c.admin.email = must(email.ParseAddress("root@example.com"))
			},
		},
		"ok, ADMIN_PASSWORD": {
			key: "ADMIN_PASSWORD",
			val: "adminPassword1",
			mf: func(c *config) {
				pwd := must(auth.ParseNewPassword("adminPassword1"))
				c.admin.password = &pwd
			},
		},
		"ok, empty ADMIN_PASSWORD": {
			key: "ADMIN_PASSWORD", val: "", mf: nil,
		},
	}

	for name, tc := range valid {
		t.Run(name, func(t *testing.T) {
			// set the required env variables.
			for key, val := range requiredEnv() {
				envForTest(t, key, val)
			}

			// set the tested env variable
			envForTest(t, tc.key, tc.val)

			want := newConfig(tc.mf)
			got, err := configFromEnv()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, want) {
				t.Errorf("got\n%+v\nwant\n%+v", got, want)
			}
		})
	}

	invalid := map[string]struct {
		key string
		val string
	}{
		"fail, negative HTTP_READ_TIMEOUT":         {"HTTP_READ_TIMEOUT", "-1ms"},
		"fail, negative HTTP_WRITE_TIMEOUT":        {"HTTP_WRITE_TIMEOUT", "-1ms"},
		"fail, negative HTTP_IDLE_TIMEOUT":         {"HTTP_IDLE_TIMEOUT", "-1ms"},
		"fail, negative HTTP_SHUTDOWN_TIMEOUT":     {"HTTP_SHUTDOWN_TIMEOUT", "-1ms"},
		"fail, invalid HTTP_COOKIE_KEYS":           {"HTTP_COOKIE_KEYS", "abc"},
		"fail, empty HTTP_COOKIE_KEYS":             {"HTTP_COOKIE_KEYS", ""},
		"fail, invalid HTTP_SECURE_COOKIE":         {"HTTP_SECURE_COOKIE", "abc"},
		"fail, empty DB_FILE":                      {"DB_FILE", ""},
		"fail, invalid DB_MIGRATE":                 {"DB_MIGRATE", "no!"},
		"fail, unknown SESSION_BACKEND":            {"SESSION_BACKEND", "memcached"},
		"fail, too short SESSION_TTL":              {"SESSION_TTL", "1s"},
		"fail, zero SESSION_PURGE_INTERVAL":        {"SESSION_PURGE_INTERVAL", "0s"},
		"fail, empty REDIS_ADDR":                   {"REDIS_ADDR", ""},
		"fail, negative REDIS_DB":                  {"REDIS_DB", "-1"},
		"fail, invalid REDIS_DB":                   {"REDIS_DB", "one"},
		"fail, zero AUTH_MAX_CONCURRENT_HASHES":    {"AUTH_MAX_CONCURRENT_HASHES", "0"},
		"fail, invalid ADMIN_USERNAME":             {"ADMIN_USERNAME", "a b"},
		"fail, invalid ADMIN_EMAIL":                {"ADMIN_EMAIL", "@@"},
		"fail, too short ADMIN_PASSWORD":           {"ADMIN_PASSWORD", "short"},
		"fail, invalid AUTH_MAX_CONCURRENT_HASHES": {"AUTH_MAX_CONCURRENT_HASHES", "many"},
	}

	for name, tc := range invalid {
		t.Run(name, func(t *testing.T) {
			// set the required env variables.
			for key, val := range requiredEnv() {
				envForTest(t, key, val)
			}

			// set the tested env variable.
			envForTest(t, tc.key, tc.val)

			_, err := configFromEnv()
			if err == nil {
				t.Fatal("expected error, got <nil>")
			}

			// Check that the error message contains the invalid env variable.
			// These errors are immediately logged, so comparing on a string level is fine.
			msg := err.Error()
			if !strings.Contains(msg, tc.key) {
				t.Errorf("expected error message to mention %s, got %s", tc.key, msg)
			}
		})
	}

	for key := range requiredEnv() {
		t.Run(fmt.Sprintf("fail, env variable %s not set", key), func(t *testing.T) {
			// set all required env variables except the one being tested.
			for k, val := range requiredEnv() {
				if k != key {
					envForTest(t, k, val)
				}
			}

			_, err := configFromEnv()
			if err == nil {
				t.Fatal("expected error, got <nil>")
			}

			msg := err.Error()
			if !strings.Contains(msg, key) {
				t.Errorf("expected error message to mention %s, got %s", key, msg)
			}
		})
	}

	t.Run("fail, multiple invalid env variables", func(t *testing.T) {
		// set the required env variables.
		for key, val := range requiredEnv() {
			envForTest(t, key, val)
		}

		// set two invalid env variables.
		envForTest(t, "HTTP_READ_TIMEOUT", "-1ms")
		envForTest(t, "HTTP_WRITE_TIMEOUT", "-1ms")

		_, err := configFromEnv()
		if err == nil {
			t.Fatal("expected error, got <nil>")
		}

		// Check that the error message contains both invalid env variables.
		msg := err.Error()
		for _, key := range []string{"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT"} {
			if !strings.Contains(msg, key) {
				t.Errorf("expected error message to mention %s, got %s", key, msg)
			}
		}
	})
}

// envForTest sets an environment variable for a test and unsets it when the test is done.
func envForTest(t *testing.T, key, val string) {
	t.Helper()

	t.Cleanup(func() {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset env var %s: %v", key, err)
		}
	})

	if err := os.Setenv(key, val); err != nil {
		t.Fatalf("failed to set env var %s: %v", key, err)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

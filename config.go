package auth

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// defaultSecret is the signing fallback when SECRET_KEY is unset. Kept for
// wire compatibility with existing deployments; set a real secret in prod.
const defaultSecret = "AHaR9uyS3s5SeCREkY"

type envConfig struct {
	secret   string
	hashCost int
	admin    string
	bind     string
	dsn      string
	workers  int
	backlog  int
}

var _ Config = (*envConfig)(nil)

// LoadConfig reads .env (if present) and the environment exactly once and
// returns the immutable process configuration.
func LoadConfig() Config {
	godotenv.Load()

	return &envConfig{
		secret:   getEnv("SECRET_KEY", defaultSecret),
		hashCost: getEnvInt("HASH_ROUNDS", bcrypt.DefaultCost),
		admin:    getEnv("ADMIN", ""),
		bind:     getEnv("BIND_ADDRESS", "127.0.0.1:8085"),
		dsn:      getEnv("DATABASE_URL", "file:top_blog.db?cache=shared"),
		workers:  getEnvInt("DBA_WORKERS", 8),
		backlog:  getEnvInt("DBA_BACKLOG", 256),
	}
}

func (c *envConfig) GetSigningKey() string { return c.secret }
func (c *envConfig) GetHashCost() int      { return c.hashCost }
func (c *envConfig) GetAdminUname() string { return c.admin }
func (c *envConfig) GetBindAddress() string {
	return c.bind
}
func (c *envConfig) GetDSN() string     { return c.dsn }
func (c *envConfig) GetPoolWorkers() int { return c.workers }
func (c *envConfig) GetPoolBacklog() int { return c.backlog }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Chain    ChainConfig
	Oracle   OracleConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// ChainConfig holds the RPC endpoint and TaskManager deployment details
type ChainConfig struct {
	RPCURL             string
	ChainID            int64
	TaskManagerAddress string
	ReadTimeoutSeconds int64
	TaskCacheTTLSecs   int64
}

// OracleConfig holds the oracle signing key and EIP-712 domain descriptor
type OracleConfig struct {
	PrivateKey    string
	DomainName    string
	DomainVersion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	chainID, err := strconv.ParseInt(getEnv("CHAIN_ID", "10143"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_ID: %w", err)
	}

	readTimeout, err := strconv.ParseInt(getEnv("CHAIN_READ_TIMEOUT_SECONDS", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_READ_TIMEOUT_SECONDS: %w", err)
	}

	cacheTTL, err := strconv.ParseInt(getEnv("TASK_CACHE_TTL_SECONDS", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TASK_CACHE_TTL_SECONDS: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "infofix_oracle"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Chain: ChainConfig{
			RPCURL:             getEnv("ETH_RPC_URL", ""),
			ChainID:            chainID,
			TaskManagerAddress: getEnv("TASK_MANAGER_ADDRESS", ""),
			ReadTimeoutSeconds: readTimeout,
			TaskCacheTTLSecs:   cacheTTL,
		},
		Oracle: OracleConfig{
			PrivateKey:    getEnv("ORACLE_PRIVATE_KEY", ""),
			DomainName:    getEnv("VOUCHER_DOMAIN_NAME", "InfoFix"),
			DomainVersion: getEnv("VOUCHER_DOMAIN_VERSION", "1"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Oracle.PrivateKey == "" {
		return nil, fmt.Errorf("ORACLE_PRIVATE_KEY is required")
	}

	if config.Chain.RPCURL == "" {
		return nil, fmt.Errorf("ETH_RPC_URL is required")
	}

	if config.Chain.TaskManagerAddress == "" {
		return nil, fmt.Errorf("TASK_MANAGER_ADDRESS is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

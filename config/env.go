package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPCEndpoint = "ARBWATCH_RPC_ENDPOINT"
	EnvWSEndpoint  = "ARBWATCH_WS_ENDPOINT"
	EnvInfuraKey   = "INFURA_API_KEY"
	EnvPrivateKey  = "PRIVATE_KEY"
	EnvNetwork     = "NETWORK" // mainnet, sepolia, holesky
)

// LoadEnv loads environment variables from a .env file if present.
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets an environment variable or fails.
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

// applyEnvOverrides lets endpoint settings come from the environment so the
// config file can be committed without node URLs.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv(EnvRPCEndpoint); v != "" {
		c.RPCEndpoint = v
	}
	if v := os.Getenv(EnvWSEndpoint); v != "" {
		c.WSEndpoint = v
	}
}

// GetNetworkEndpoints derives Infura endpoints from NETWORK and
// INFURA_API_KEY when explicit endpoints are not configured.
func GetNetworkEndpoints() (string, string, error) {
	network := GetEnvWithDefault(EnvNetwork, "mainnet")
	infuraKey, err := GetRequiredEnv(EnvInfuraKey)
	if err != nil {
		return "", "", err
	}

	var httpEndpoint, wsEndpoint string
	switch network {
	case "mainnet":
		httpEndpoint = fmt.Sprintf("https://mainnet.infura.io/v3/%s", infuraKey)
		wsEndpoint = fmt.Sprintf("wss://mainnet.infura.io/ws/v3/%s", infuraKey)
	case "sepolia":
		httpEndpoint = fmt.Sprintf("https://sepolia.infura.io/v3/%s", infuraKey)
		wsEndpoint = fmt.Sprintf("wss://sepolia.infura.io/ws/v3/%s", infuraKey)
	case "holesky":
		httpEndpoint = fmt.Sprintf("https://holesky.infura.io/v3/%s", infuraKey)
		wsEndpoint = fmt.Sprintf("wss://holesky.infura.io/ws/v3/%s", infuraKey)
	default:
		return "", "", fmt.Errorf("unsupported network: %s", network)
	}

	return httpEndpoint, wsEndpoint, nil
}

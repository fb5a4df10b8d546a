// Package config provides JWT configuration functionality.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
)

// DefaultSessionHours is how long an editing session token stays valid.
const DefaultSessionHours = 720

// JWTConfig holds configuration for session token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	// Ephemeral is set when no JWT_SECRET was configured and a random secret
	// was generated. Tokens then do not survive a restart.
	Ephemeral bool
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET and JWT_EXPIRATION_HOURS (default: 720). Without a
// secret a random one is generated and a warning is logged.
func NewJWTConfig() (*JWTConfig, error) {
	config := &JWTConfig{Secret: os.Getenv("JWT_SECRET")}

	if config.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("JWT_SECRET is not set and a random secret could not be generated: %w", err)
		}
		log.Printf("[AUTH] JWT_SECRET is not set; using an ephemeral secret, sessions will not survive a restart")
		config.Secret = secret
		config.Ephemeral = true
	}

	expirationStr := os.Getenv("JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		config.ExpirationHours = DefaultSessionHours
	} else {
		expirationHours, err := strconv.Atoi(expirationStr)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		config.ExpirationHours = expirationHours
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

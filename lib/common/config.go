package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultNamespace is the key prefix used when no namespace is configured
	DefaultNamespace = "main"
	// DefaultMaxValueSize is the maximum size of an encoded value or a key (500 MiB)
	DefaultMaxValueSize = 500 * 1024 * 1024
)

// --------------------------------------------------------------------------
// Dictionary configuration struct
// --------------------------------------------------------------------------

// DictConfig holds all configuration parameters of a dictionary instance.
type DictConfig struct {
	// Namespace is prefixed to every key (<namespace>:<key>)
	Namespace string

	// Expire is the default expiration applied to every write, 0 means no expiration
	Expire time.Duration

	// PreserveExpiration keeps the remaining TTL of a key when it is overwritten
	PreserveExpiration bool

	// MaxValueSize is the maximum length of an encoded value or key
	MaxValueSize int

	// Ordered selects the insertion order tracking variant (only used by the cli)
	Ordered bool
}

// DefaultDictConfig returns the configuration of a dictionary with the namespace "main",
// no expiration and the default maximum value size
func DefaultDictConfig() DictConfig {
	return DictConfig{
		Namespace:    DefaultNamespace,
		MaxValueSize: DefaultMaxValueSize,
	}
}

// WithDefaults returns a copy of the configuration where unset fields are replaced by their defaults
func (c DictConfig) WithDefaults() DictConfig {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.MaxValueSize == 0 {
		c.MaxValueSize = DefaultMaxValueSize
	}
	return c
}

// Validate checks the configuration for invalid values
func (c *DictConfig) Validate() error {
	if c.Namespace == "" {
		return Errorf(RetCInvalidConfig, "namespace must not be empty")
	}
	if c.Expire < 0 {
		return Errorf(RetCInvalidConfig, "expire must not be negative, got %s", c.Expire)
	}
	if c.MaxValueSize <= 0 {
		return Errorf(RetCInvalidConfig, "max value size must be positive, got %d", c.MaxValueSize)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *DictConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Dictionary")
	addField("Namespace", c.Namespace)
	addField("Ordered", strconv.FormatBool(c.Ordered))
	addField("Max Value Size", fmt.Sprintf("%d bytes", c.MaxValueSize))

	addSection("Expiration")
	if c.Expire > 0 {
		addField("Expire", c.Expire.String())
	} else {
		addField("Expire", "never")
	}
	addField("Preserve Expiration", strconv.FormatBool(c.PreserveExpiration))

	return sb.String()
}

// --------------------------------------------------------------------------
// Redis connection configuration struct
// --------------------------------------------------------------------------

type RedisConfig struct {
	Addrs         []string
	Username      string
	Password      string
	DB            int
	TimeoutSecond int
	PoolSize      int
	RetryCount    int
}

// DefaultRedisConfig returns the configuration for a local redis server
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addrs:         []string{"localhost:6379"},
		TimeoutSecond: 5,
		RetryCount:    3,
	}
}

// Timeout returns the configured timeout as a duration (0 means the client default)
func (c *RedisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the redis configuration
func (c *RedisConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Redis Connection")
	addField("Database", strconv.Itoa(c.DB))
	addField("Username", c.Username)
	addField("Password", strings.Repeat("*", len(c.Password)))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Pool Size", strconv.Itoa(int(math.Max(0, float64(c.PoolSize)))))

	// Endpoints
	addSection("Endpoints")
	for i, addr := range c.Addrs {
		addField(strconv.Itoa(i), addr)
	}

	return sb.String()
}

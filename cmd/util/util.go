package util

import (
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/dict"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRedisFlags adds the redis connection flags to a command
func SetupRedisFlags(cmd *cobra.Command) {
	key := "redis-addrs"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("Comma-separated list of redis addresses. Multiple addresses connect to a redis cluster"))

	key = "redis-db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The redis database to use (single node only)"))

	key = "redis-username"
	cmd.PersistentFlags().String(key, "", WrapString("The username for redis ACL authentication"))

	key = "redis-password"
	cmd.PersistentFlags().String(key, "", WrapString("The password for redis authentication"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("The dial, read and write timeout of the redis client in seconds"))

	key = "redis-pool-size"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of connections per redis node (0 uses the client default)"))

	key = "redis-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times the redis client retries a failed command (0 disables retries)"))
}

// SetupDictFlags adds the dictionary configuration flags to a command
func SetupDictFlags(cmd *cobra.Command) {
	key := "namespace"
	cmd.PersistentFlags().String(key, common.DefaultNamespace, WrapString("The namespace of the dictionary, every key is stored as <namespace>:<key>"))

	key = "expire"
	cmd.PersistentFlags().Int(key, 0, WrapString("Expire written keys after this many seconds (0 disables expiration)"))

	key = "preserve-expiration"
	cmd.PersistentFlags().Bool(key, false, WrapString("Keep the remaining TTL of a key when it is overwritten"))

	key = "ordered"
	cmd.PersistentFlags().Bool(key, false, WrapString("Use the dictionary variant that tracks the insertion order of its keys"))

	key = "max-value-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxValueSize, WrapString("Maximum size of an encoded value or a key in bytes"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rdict")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetRedisConfig reads the redis connection configuration from viper
func GetRedisConfig() *common.RedisConfig {
	return &common.RedisConfig{
		Addrs:         strings.Split(viper.GetString("redis-addrs"), ","),
		Username:      viper.GetString("redis-username"),
		Password:      viper.GetString("redis-password"),
		DB:            viper.GetInt("redis-db"),
		TimeoutSecond: viper.GetInt("timeout"),
		PoolSize:      viper.GetInt("redis-pool-size"),
		RetryCount:    viper.GetInt("redis-retries"),
	}
}

// GetDictConfig reads the dictionary configuration from viper
func GetDictConfig() *common.DictConfig {
	return &common.DictConfig{
		Namespace:          viper.GetString("namespace"),
		Expire:             time.Duration(viper.GetInt("expire")) * time.Second,
		PreserveExpiration: viper.GetBool("preserve-expiration"),
		MaxValueSize:       viper.GetInt("max-value-size"),
		Ordered:            viper.GetBool("ordered"),
	}
}

// OpenDict initializes the loggers and opens the configured dictionary
func OpenDict() (dict.IDict, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}
	return dict.Open(*GetDictConfig(), *GetRedisConfig())
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

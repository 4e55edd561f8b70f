package dict

import (
	"encoding/hex"
	"fmt"
	"github.com/ValentinKolb/rDict/cmd/util"
	"github.com/ValentinKolb/rDict/lib/codec"
	"github.com/ValentinKolb/rDict/lib/dict"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	redisDict dict.IDict

	// DictCommands represents the dictionary command group
	DictCommands = &cobra.Command{
		Use:   "dict",
		Short: "Perform dictionary operations",
		Long: `Perform dictionary operations on a redis server. Values keep their type: they are stored as "<type>:<payload>".
The configuration can be set via command line flags or environment variables. The format of the environment variables is RDICT_<flag> (e.g. RDICT_REDIS_ADDRS=localhost:6379)`,
		PersistentPreRunE:  setupDict,
		PersistentPostRunE: closeDict,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common flags to the dict command
	util.SetupRedisFlags(DictCommands)
	util.SetupDictFlags(DictCommands)

	key := "secret-key"
	DictCommands.PersistentFlags().String(key, "", util.WrapString("Hex encoded 32 byte key. If set, values of type secret are stored encrypted"))

	// Add subcommands
	DictCommands.AddCommand(getCmd)
	DictCommands.AddCommand(setCmd)
	DictCommands.AddCommand(delCmd)
	DictCommands.AddCommand(hasCmd)
	DictCommands.AddCommand(keysCmd)
	DictCommands.AddCommand(itemsCmd)
	DictCommands.AddCommand(lenCmd)
	DictCommands.AddCommand(popCmd)
	DictCommands.AddCommand(popItemCmd)
	DictCommands.AddCommand(setDefaultCmd)
	DictCommands.AddCommand(swapCmd)
	DictCommands.AddCommand(ttlCmd)
	DictCommands.AddCommand(clearCmd)
	DictCommands.AddCommand(infoCmd)
	DictCommands.AddCommand(multiGetCmd)
	DictCommands.AddCommand(multiDelCmd)
	DictCommands.AddCommand(perfTestCmd)
}

// setupDict opens the dictionary used by the subcommands
func setupDict(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	redisDict, err = util.OpenDict()
	if err != nil {
		return err
	}

	if secretKey := viper.GetString("secret-key"); secretKey != "" {
		key, err := hex.DecodeString(secretKey)
		if err != nil {
			return fmt.Errorf("secret-key must be hex encoded: %w", err)
		}
		if err := codec.RegisterSecret(redisDict.Registry(), key); err != nil {
			return err
		}
	}
	return nil
}

func closeDict(_ *cobra.Command, _ []string) error {
	if redisDict == nil {
		return nil
	}
	return redisDict.Close()
}

package dict

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/codec"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/spf13/cobra"
	"sort"
)

var (
	valueType string

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			v, err := redisDict.Get(cmd.Context(), key)
			if errors.Is(err, common.ErrKeyNotFound) {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, %s\n", key, describe(v))
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. The value is parsed according to --type (any registered type name, json, null or secret)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1], valueType)
			if err != nil {
				return err
			}
			if err := redisDict.Set(cmd.Context(), args[0], v); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := redisDict.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := redisDict.Contains(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys (in insertion order with --ordered)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for key, err := range redisDict.Keys(cmd.Context()) {
				if err != nil {
					return err
				}
				fmt.Println(key)
			}
			return nil
		},
	}
	itemsCmd = &cobra.Command{
		Use:   "items",
		Short: "Lists all key value pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for item, err := range redisDict.Items(cmd.Context()) {
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, %s\n", item.Key, describe(item.Value))
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Counts the keys of the dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := redisDict.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	popCmd = &cobra.Command{
		Use:   "pop [key]",
		Short: "Removes a key and prints its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := redisDict.Pop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, %s\n", args[0], describe(v))
			return nil
		},
	}
	popItemCmd = &cobra.Command{
		Use:   "popitem",
		Short: "Removes one key value pair (the last inserted with --ordered) and prints it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, v, err := redisDict.PopItem(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, %s\n", key, describe(v))
			return nil
		},
	}
	setDefaultCmd = &cobra.Command{
		Use:   "setdefault [key] [value]",
		Short: "Sets the value for a key if it is absent and prints the value of the key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := parseValue(args[1], valueType)
			if err != nil {
				return err
			}
			v, err := redisDict.SetDefault(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, %s\n", args[0], describe(v))
			return nil
		},
	}
	swapCmd = &cobra.Command{
		Use:   "swap [key] [value]",
		Short: "Sets the value for a key and prints the value it replaced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[1], valueType)
			if err != nil {
				return err
			}
			old, found, err := redisDict.Swap(cmd.Context(), args[0], v)
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("key=%s, found=true, %s\n", args[0], describe(old))
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Prints the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, ok, err := redisDict.GetTTL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("key=%s, ttl=none\n", args[0])
				return nil
			}
			fmt.Printf("key=%s, ttl=%s\n", args[0], ttl)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all keys of the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := redisDict.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("clear successfully")
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information and statistics about the redis server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := redisDict.Info(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(info))
			for k := range info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-32s %s\n", k, info[k])
			}
			return nil
		},
	}
	multiGetCmd = &cobra.Command{
		Use:   "multi-get [prefix]",
		Short: "Prints all key value pairs whose key starts with prefix (not with --ordered)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := redisDict.MultiDict(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("key=%s, %s\n", k, describe(m[k]))
			}
			return nil
		},
	}
	multiDelCmd = &cobra.Command{
		Use:   "multi-del [prefix]",
		Short: "Deletes all keys starting with prefix (not with --ordered)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := redisDict.MultiDel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d keys\n", n)
			return nil
		},
	}
)

func init() {
	for _, cmd := range []*cobra.Command{setCmd, setDefaultCmd, swapCmd} {
		cmd.Flags().StringVar(&valueType, "type", "str", "Type of the value (str, int, float, bool, json, null, secret or any registered type name)")
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseValue converts a command line argument into a value of the given type.
// Registered type names use the decoder of the dictionary, so "datetime" or "UUID" work as well.
func parseValue(raw, typ string) (any, error) {
	r := redisDict.Registry()
	switch typ {
	case "json":
		return codec.DecodeJSON(r, raw)
	case "null", "none", "NoneType":
		return nil, nil
	case "secret":
		if !r.Has("Secret") {
			return nil, common.Errorf(common.RetCInvalidConfig, "values of type secret require --secret-key")
		}
		return codec.Secret(raw), nil
	}
	if !r.Has(typ) {
		return nil, common.Errorf(common.RetCInvalidTypeName, "unknown type %q, registered types: %v", typ, r.Names())
	}
	return r.DecodeFor(typ, raw)
}

// describe formats a value with its type name
func describe(v any) string {
	name, err := redisDict.Registry().TypeName(v)
	if err != nil {
		name = fmt.Sprintf("%T", v)
	}
	return fmt.Sprintf("type=%s, value=%v", name, v)
}

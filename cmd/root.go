package cmd

import (
	"fmt"
	"github.com/ValentinKolb/rDict/cmd/dict"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rdict",
		Short: "typed dictionary on top of redis",
		Long: fmt.Sprintf(`rDict (v%s)

A dictionary library written in Go that stores its entries in redis
while preserving the type of every value.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rDict",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rDict v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(dict.DictCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

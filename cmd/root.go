package cmd

import (
	"fmt"
	"os"

	"github.com/hanpf2391/Flux/cmd/serve"
	"github.com/hanpf2391/Flux/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "flux",
		Short: "infinite shared canvas server",
		Long: fmt.Sprintf(`Flux (v%s)

A backend for an infinite shared canvas: anonymous visitors write cells
with optimistic concurrency, watch each other edit in realtime, and get
steered towards the liveliest part of the grid.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Flux",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Flux v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use for cached values (json, gob)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

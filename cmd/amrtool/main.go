// Command amrtool inspects AMR plotfiles: it prints metadata, decodes
// fields, extracts axis-aligned slices and dumps raw FAB bytes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scigolib/amr"
	"github.com/scigolib/amr/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "amrtool",
	Short: "Inspect AMR plotfiles",
	Long: `amrtool reads block-structured AMR plotfiles.

Settings come from an optional YAML file (--config); flags given on the
command line override it.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		glog.Flush()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(infoCmd, readCmd, sliceCmd, dumpfabCmd)
}

// loadConfig returns the file settings, or the defaults without --config.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// plotfileArg picks the plotfile from args, falling back to the config.
func plotfileArg(cfg config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Plotfile != "" {
		return cfg.Plotfile, nil
	}
	return "", fmt.Errorf("no plotfile given")
}

// readerOptions maps reader settings to Open options.
func readerOptions(r config.Reader) []amr.Option {
	opts := []amr.Option{
		amr.WithMaxLevel(r.MaxLevel),
		amr.WithParallelism(r.Parallelism),
	}
	if r.CacheEntries > 0 {
		opts = append(opts, amr.WithCacheEntries(r.CacheEntries))
	}
	if len(r.Fields) > 0 {
		opts = append(opts, amr.WithFields(r.Fields...))
	}
	if len(r.Blocks) > 0 {
		opts = append(opts, amr.WithBlocksOfInterest(r.Blocks...))
	}
	return opts
}

// sliceConfig maps slice settings to an extractor configuration.
func sliceConfig(s config.Slice) amr.SliceConfig {
	return amr.SliceConfig{
		Normal:   int(s.Normal),
		Offset:   s.Offset,
		MaxLevel: s.MaxLevel,
		Prefetch: s.Prefetch,
		Fields:   s.Fields,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mattchoo2/batchtxttochineseutf8/internal/cli"
	"github.com/mattchoo2/batchtxttochineseutf8/internal/cli/config"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
)

// rootCmd is the base command; batchtxt has no subcommands.
var rootCmd = &cobra.Command{
	Use:   "batchtxt [root]",
	Short: "Normalize Chinese text files to UTF-8 Simplified Chinese in place.",
	Long: `batchtxt walks a directory tree of text files in mixed legacy encodings
(GBK, Big5, UTF-8 with or without BOM), detects each file's encoding, and
rewrites content and file names in place as UTF-8 Simplified Chinese.

It features:
  - Parallel processing with per-file error isolation.
  - Charset detection with a tunable confidence threshold; undetectable
    files are skipped, never guessed destructively.
  - Traditional/Simplified script conversion (OpenCC conversion tables).
  - Atomic in-place rewrites, with optional .bak backups.
  - Dry-run mode and a JSON report for scripting.
  - An interactive terminal UI for monitoring progress.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		rootArg := ""
		if len(args) > 0 {
			rootArg = args[0]
		}

		opts, logger, err := config.LoadAndValidate(cfgFile, rootArg, version, cmd.Flags())
		if err != nil {
			return err
		}

		return cli.Run(ctx, opts, logger)
	},
}

// Execute runs the root command and exits non-zero on failure. Cobra prints
// the error itself.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default: search ., ~/.config/batchtxt, ~/.batchtxt)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose (debug) logging; disables the TUI")

	// Flag names align with the viper keys bound in internal/cli/config.
	rootCmd.Flags().StringP("conversion", "c", normalizer.DefaultConversion, `OpenCC conversion for content and names (e.g. "t2s", "s2t")`)
	rootCmd.Flags().StringSlice("ext", normalizer.DefaultExtensions, "File extensions treated as text candidates")
	rootCmd.Flags().StringArray("ignore", []string{}, "Glob patterns to exclude (repeatable)")
	rootCmd.Flags().Int("concurrency", normalizer.DefaultConcurrency, "Parallel workers (0 = number of CPUs)")
	rootCmd.Flags().String("on-error", string(normalizer.DefaultOnErrorMode), `Behavior on per-file errors ("continue" or "stop")`)
	rootCmd.Flags().String("write-mode", string(normalizer.DefaultWriteMode), `How to replace content ("in-place" or "backup")`)
	rootCmd.Flags().Bool("strict-decode", false, "Fail files whose decode substitutes undecodable bytes")
	rootCmd.Flags().String("default-encoding", "", `Charset assumed when detection is inconclusive (e.g. "gbk")`)
	rootCmd.Flags().Int("min-confidence", normalizer.DefaultMinConfidence, "Minimum detection confidence (0-100) to trust a charset guess")
	rootCmd.Flags().BoolP("dry-run", "n", false, "Report what would change without modifying files")
	rootCmd.Flags().String("output-format", string(normalizer.DefaultOutputFormat), `Final report format ("text" or "json")`)
	rootCmd.Flags().Bool("no-tui", false, "Disable the interactive terminal UI")
}

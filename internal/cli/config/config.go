// Package config merges configuration for the batchtxt CLI from defaults,
// an optional YAML file, BATCHTXT_* environment variables, and command line
// flags, in ascending precedence. The merged result is validated and handed
// to the normalizer library as an Options struct.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

const (
	// EnvPrefix is the prefix for environment variable overrides, e.g.
	// BATCHTXT_CONVERSION=s2t.
	EnvPrefix = "BATCHTXT"
	// DefaultConfigName is the base name of the config file searched for
	// when --config is not given.
	DefaultConfigName = "batchtxt"
)

// flagBindings maps viper config keys to the CLI flag that overrides them.
var flagBindings = map[string]string{
	"conversion":      "conversion",
	"extensions":      "ext",
	"ignore":          "ignore",
	"concurrency":     "concurrency",
	"onError":         "on-error",
	"writeMode":       "write-mode",
	"strictDecode":    "strict-decode",
	"defaultEncoding": "default-encoding",
	"minConfidence":   "min-confidence",
	"dryRun":          "dry-run",
	"outputFormat":    "output-format",
	"verbose":         "verbose",
}

// LoadAndValidate loads configuration from all sources, validates the merged
// result, derives final values, and builds the logger the rest of the CLI
// uses. rootArg is the positional root directory argument and takes
// precedence over any configured root.
func LoadAndValidate(cfgFile, rootArg, appVersion string, flags *pflag.FlagSet) (normalizer.Options, *slog.Logger, error) {
	var opts normalizer.Options
	v := viper.New()

	// Basic logger for errors raised before the verbosity level is known.
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flagName := range flagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", flagName))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}

	opts.AppVersion = appVersion

	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// The positional argument is the highest-precedence source for the root.
	if rootArg != "" {
		opts.RootPath = rootArg
	}

	// Boolean flags always win when set explicitly; viper's merge cannot
	// distinguish an explicit false from an unset flag.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("dry-run") {
		opts.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("strict-decode") {
		opts.StrictDecode, _ = flags.GetBool("strict-decode")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("root", opts.RootPath),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)

	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in
// Viper. Keys match the mapstructure tags on normalizer.Options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("root", ".")
	v.SetDefault("verbose", normalizer.DefaultVerbose)
	v.SetDefault("tui", normalizer.DefaultTuiEnabled)
	v.SetDefault("onError", string(normalizer.DefaultOnErrorMode))
	v.SetDefault("dryRun", false)

	v.SetDefault("conversion", normalizer.DefaultConversion)
	v.SetDefault("writeMode", string(normalizer.DefaultWriteMode))
	v.SetDefault("strictDecode", false)

	v.SetDefault("minConfidence", normalizer.DefaultMinConfidence)
	v.SetDefault("defaultEncoding", "")

	v.SetDefault("concurrency", normalizer.DefaultConcurrency)

	v.SetDefault("extensions", normalizer.DefaultExtensions)
	v.SetDefault("tempFilePrefix", normalizer.DefaultTempFilePrefix)
	v.SetDefault("ignore", []string{})

	v.SetDefault("outputFormat", string(normalizer.DefaultOutputFormat))
}

// isValidEnumValue checks if a given string value is present in a slice of
// allowed enum values. Case-sensitive comparison.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options struct and calculates derived fields. Errors are wrapped with
// normalizer.ErrConfigValidation.
func validateAndDeriveOptions(opts *normalizer.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	if opts.RootPath == "" {
		err := fmt.Errorf("%w: root path is required", normalizer.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "root"))
		return err
	}
	absRoot, err := filepath.Abs(opts.RootPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute root path '%s': %w", normalizer.ErrConfigValidation, opts.RootPath, err)
		logger.Error(err.Error(), slog.String("key", "root"), slog.String("value", opts.RootPath))
		return err
	}
	opts.RootPath = absRoot
	info, err := os.Stat(opts.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: root path '%s' does not exist", normalizer.ErrConfigValidation, opts.RootPath)
		} else {
			err = fmt.Errorf("%w: cannot access root path '%s': %w", normalizer.ErrConfigValidation, opts.RootPath, err)
		}
		logger.Error(err.Error(), slog.String("key", "root"), slog.String("value", opts.RootPath))
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%w: root path '%s' is not a directory", normalizer.ErrConfigValidation, opts.RootPath)
		logger.Error(err.Error(), slog.String("key", "root"), slog.String("value", opts.RootPath))
		return err
	}
	logger.Debug("Validated root path", slog.String("path", opts.RootPath))

	if !script.IsSupportedConversion(opts.Conversion) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'conversion' (flag --conversion). Allowed: %s",
			normalizer.ErrConfigValidation, opts.Conversion, strings.Join(script.SupportedConversions(), ", "))
		logger.Error(err.Error(), slog.String("key", "conversion"), slog.String("value", opts.Conversion))
		return err
	}

	allowedOnError := []normalizer.OnErrorMode{normalizer.OnErrorContinue, normalizer.OnErrorStop}
	if !isValidEnumValue(opts.OnErrorMode, allowedOnError) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'onError' (flag --on-error). Allowed: %v",
			normalizer.ErrConfigValidation, opts.OnErrorMode, allowedOnError)
		logger.Error(err.Error(), slog.String("key", "onError"), slog.String("value", string(opts.OnErrorMode)))
		return err
	}
	allowedWriteMode := []normalizer.WriteMode{normalizer.WriteInPlace, normalizer.WriteBackup}
	if !isValidEnumValue(opts.WriteMode, allowedWriteMode) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'writeMode' (flag --write-mode). Allowed: %v",
			normalizer.ErrConfigValidation, opts.WriteMode, allowedWriteMode)
		logger.Error(err.Error(), slog.String("key", "writeMode"), slog.String("value", string(opts.WriteMode)))
		return err
	}
	allowedOutputFormat := []normalizer.OutputFormat{normalizer.OutputFormatText, normalizer.OutputFormatJSON}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v",
			normalizer.ErrConfigValidation, opts.OutputFormat, allowedOutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}

	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'minConfidence' (flag --min-confidence). Must be between 0 and 100",
			normalizer.ErrConfigValidation, opts.MinConfidence)
		logger.Error(err.Error(), slog.String("key", "minConfidence"), slog.Int("value", opts.MinConfidence))
		return err
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0",
			normalizer.ErrConfigValidation, opts.Concurrency)
		logger.Error(err.Error(), slog.String("key", "concurrency"), slog.Int("value", opts.Concurrency))
		return err
	}
	if len(opts.Extensions) == 0 {
		err := fmt.Errorf("%w: at least one candidate extension is required (flag --ext)", normalizer.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "extensions"))
		return err
	}

	if opts.Logger == nil {
		return fmt.Errorf("internal setup error: logger handler is nil in validateAndDeriveOptions")
	}

	if opts.Concurrency == 0 {
		opts.Concurrency = runtime.NumCPU()
		logger.Debug("Concurrency not set, defaulting to number of CPUs", slog.Int("concurrency", opts.Concurrency))
	}

	// Verbose logging and the TUI contend for the terminal; verbose wins.
	if opts.Verbose {
		if opts.TuiEnabled && !flags.Changed("no-tui") {
			logger.Debug("Verbose mode enabled, TUI disabled")
		}
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.String("conversion", opts.Conversion),
		slog.String("writeMode", string(opts.WriteMode)),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)

	return nil
}

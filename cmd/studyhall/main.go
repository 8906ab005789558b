package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studyhall/internal/client"
	"studyhall/internal/prefs"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studyhall",
		Short: "Local study assistant: upload lecture PDFs, get summaries, flashcards and practice exams",
	}

	serve := serveCmd()
	root.AddCommand(serve, uploadCmd(), examsCmd(), settingsCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studyhall --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studyhall")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studyhall")
	v.AddConfigPath("/etc/studyhall")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("prefs", defaultPrefsPath(), "Preferences file path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addClientFlags(cmd *cobra.Command) {
	addCommonFlags(cmd)
	cmd.Flags().StringP("server", "s", "http://localhost:8000", "Backend server URL")
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "studyhall_prefs.yaml"
	}
	return filepath.Join(home, ".config", "studyhall", "prefs.yaml")
}

func openPrefs(v *viper.Viper) (*prefs.Store, error) {
	return prefs.New(v.GetString("prefs"))
}

func newClient(v *viper.Viper) (*client.Client, error) {
	pf, err := openPrefs(v)
	if err != nil {
		return nil, err
	}
	return client.New(v.GetString("server"), pf, slog.Default()), nil
}

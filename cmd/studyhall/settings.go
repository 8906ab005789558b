package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studyhall/internal/prefs"
)

// settingsKeys are the preference keys exposed on the command line.
var settingsKeys = []string{
	prefs.KeyProvider,
	prefs.KeyOpenAIModel,
	prefs.KeyOpenAIAPIKey,
	prefs.KeyUsername,
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write local preferences",
	}
	cmd.AddCommand(settingsGetCmd(), settingsSetCmd())
	return cmd
}

func settingsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one preference, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			pf, err := openPrefs(v)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Println(pf.Get(args[0]))
				return nil
			}
			for _, key := range settingsKeys {
				value := pf.Get(key)
				if key == prefs.KeyOpenAIAPIKey && value != "" {
					value = maskKey(value)
				}
				fmt.Printf("%s = %s\n", key, value)
			}
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

func maskKey(key string) string {
	if len(key) <= 7 {
		return "***"
	}
	return key[:7] + strings.Repeat("*", 8)
}

func settingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			pf, err := openPrefs(v)
			if err != nil {
				return err
			}
			key := args[0]
			known := false
			for _, k := range settingsKeys {
				if k == key {
					known = true
					break
				}
			}
			if !known {
				return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingsKeys, ", "))
			}
			if err := pf.Set(key, args[1]); err != nil {
				return err
			}
			fmt.Printf("%s updated\n", key)
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clever-documents/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit configuration",
	Long: `Reads and writes the TOML config file. Values set here can be overridden
by CLEVER_* environment variables, a .env file and --set flags.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every setting and its effective value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:     "set [key] [value]",
	Short:   "Save a setting to the config file",
	Example: "  clever config set embedding.provider openai\n  clever config set ingest.default_tags api,guide",
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a setting from the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if appConfig == nil {
		return fmt.Errorf("configuration not loaded")
	}
	for _, key := range config.Keys() {
		v, _ := appConfig.Get(key)
		cmd.Printf("%s = %s\n", key, displayValue(key, v))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if appConfig == nil {
		return fmt.Errorf("configuration not loaded")
	}
	v, err := appConfig.Get(args[0])
	if err != nil {
		return err
	}
	cmd.Println(config.Format(v))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	value, err := config.Normalize(key, raw)
	if err != nil {
		return err
	}

	// Check the result is still a valid configuration before saving.
	if appConfig != nil {
		next := *appConfig
		if err := next.Set(key, raw); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("%s = %s\n", key, displayValue(key, value))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if err := configStore.Unset(args[0]); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cmd.Println(configStore.Path())
	return nil
}

func displayValue(key string, v any) string {
	s := config.Format(v)
	if config.IsSecret(key) && s != "" {
		return "********"
	}
	return s
}

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/wincast/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wincast configuration",
	Long:  `View and manage wincast configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current wincast configuration.`,
	Example: `  # Show configuration as YAML (default)
  wincast config show

  # Show configuration as JSON
  wincast config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a configuration value and write it back to the config file.`,
	Example: `  # Set the capture rate
  wincast config set fps 30

  # Enable the status API
  wincast config set api.enabled true`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", formatFlag)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	key, value := args[0], args[1]
	cfg := configMgr.Get()

	switch key {
	case "fps":
		cfg.FPS, err = strconv.Atoi(value)
	case "focus_poll_ms":
		cfg.FocusPollMs, err = strconv.Atoi(value)
	case "log_level":
		cfg.LogLevel = value
	case "log_pretty":
		cfg.LogPretty, err = strconv.ParseBool(value)
	case "viewer.width":
		cfg.Viewer.Width, err = strconv.Atoi(value)
	case "viewer.height":
		cfg.Viewer.Height, err = strconv.Atoi(value)
	case "api.enabled":
		cfg.API.Enabled, err = strconv.ParseBool(value)
	case "api.port":
		cfg.API.Port, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}

	configMgr.Set(cfg)
	if err := configMgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s = %s\n", key, value)
	fmt.Printf("Saved to %s\n", configMgr.Path())
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Println(configMgr.Path())
	return nil
}

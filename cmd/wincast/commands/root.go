package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "wincast",
		Short: "wincast - Focus-following window mirror for X11",
		Long: `wincast mirrors whichever window currently has input focus into a
local viewer window. A capture session is opened lazily the first time a
window gains focus and kept alive until that window closes; the viewer
always shows frames from the focused session only.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wincast/config.yaml)")
	rootCmd.PersistentFlags().Int("fps", 0, "target capture rate (default is 60)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("api-port", 0, "status API port (implies --api)")
	rootCmd.PersistentFlags().Bool("api", false, "serve the local status API")

	// Bind flags to viper
	viper.BindPFlag("fps", rootCmd.PersistentFlags().Lookup("fps"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("api_port", rootCmd.PersistentFlags().Lookup("api-port"))
	viper.BindPFlag("api_enabled", rootCmd.PersistentFlags().Lookup("api"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

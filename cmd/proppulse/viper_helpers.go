package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag-or-viper helpers: an explicitly set flag wins, otherwise the viper
// key (config file or PROPPULSE_* env) decides.

func flagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	return viper.GetString(viperKey)
}

func flagOrViperInt(cmd *cobra.Command, flagName, viperKey string) int {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetInt(flagName)
		return v
	}
	return viper.GetInt(viperKey)
}

func flagOrViperDuration(cmd *cobra.Command, flagName, viperKey string) time.Duration {
	if cmd.Flags().Changed(flagName) {
		v, _ := cmd.Flags().GetDuration(flagName)
		return v
	}
	return viper.GetDuration(viperKey)
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpchat/internal/ui"
	"github.com/BioHazard786/Warpchat/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warpchat",
	Short: "Signaling relay for Warpchat chat delivery and WebRTC calls",
	Long: `Warpchat relays chat notifications and WebRTC call negotiation between
browser peers over a single websocket per client. Messages are persisted by the
REST layer before they are relayed; audio and video flow directly between peers.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// Netsetup-cfg is the client side of network setup.
//
// It finds setup portals over mDNS and walks the user through putting the
// portal's device on a WiFi network, either with the interactive wizard
// or with direct commands for scripting.
//
// Usage:
//
//	netsetup-cfg [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'netsetup-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netsetup-cfg",
	Short: "Network setup client",
	Long: `Put a device on a WiFi network through its setup portal.

Join the device's access point, then run the wizard: it finds the portal,
lists the networks the device can see, asks for the password and waits
while the device joins.

If no command is specified, the interactive wizard will launch automatically.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full("netsetup-cfg"))
	},
}

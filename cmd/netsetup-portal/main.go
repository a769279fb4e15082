// Netsetup-portal is the device side of network setup.
//
// On a device that has no stored network it runs the setup portal: a
// captive DNS server, the setup wizard and its HTTP API, and an mDNS
// advertisement. Once the user picks a network and the device joins it,
// the credentials are stored and the device boots again onto that
// network.
//
// Usage:
//
//	netsetup-portal serve [flags]
//
// Configuration comes from NETSETUP_* environment variables, optionally
// loaded from a .env file, and is overridden by flags.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/server"
	"github.com/muurk/netsetup/internal/ui"
	"github.com/muurk/netsetup/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netsetup-portal",
	Short: "Network setup portal",
	Long: `The device-side network setup portal.

A device without a stored WiFi network starts an access point and runs
this portal on it. Clients that join the access point are sent to the
setup wizard by captive DNS, pick a network and enter its password. The
device joins the network, stores it and restarts onto it.

For the client-side wizard, use the separate 'netsetup-cfg' utility.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

// Flags shared by every command
var envFile string

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File of NETSETUP_* variables to load (ignored if missing)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	host        string
	port        int
	dnsPort     int
	portalIP    string
	hostname    string
	radioKind   string
	iface       string
	storePath   string
	logLevel    string
	noAdvertise bool
	joinWait    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot the device: join the stored network or run the setup portal",
	Long: `Boot the device.

If a network is stored, the device joins it and the command exits once
the join has settled. Otherwise the setup portal runs until setup
completes, and the device then joins the new network.

The simulated radio offers three demo networks; HomeWiFi accepts the
password "secret123". The nmcli radio drives NetworkManager.`,
	Example: `  # Run the portal with the simulated radio on a high port
  netsetup-portal serve --port 8080 --dns-port 0

  # Drive a real wireless interface through NetworkManager
  sudo netsetup-portal serve --radio nmcli --interface wlan0

  # Debug logging, no mDNS advertisement
  netsetup-portal serve --log-level debug --no-advertise`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	f.IntVar(&port, "port", server.DefaultHTTPPort, "HTTP port")
	f.IntVar(&dnsPort, "dns-port", server.DefaultDNSPort, "Captive DNS port (0 disables captive DNS)")
	f.StringVar(&portalIP, "portal-ip", server.DefaultPortalIP, "Address captive DNS answers with")
	f.StringVar(&hostname, "hostname", "netsetup", "Access point name, also the mDNS instance name")
	f.StringVar(&radioKind, "radio", server.RadioSimulated, "Radio backend (simulated, nmcli)")
	f.StringVar(&iface, "interface", "", "Wireless interface for the nmcli radio")
	f.BoolVar(&noAdvertise, "no-advertise", false, "Do not advertise the portal over mDNS")
	f.DurationVar(&joinWait, "join-wait", 60*time.Second, "How long to wait for the stored network to be joined")

	for _, c := range []*cobra.Command{serveCmd, statusCmd, resetCmd} {
		c.Flags().StringVar(&storePath, "store", "netsetup.db", "SQLite credential store")
		c.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	radio, closeRadio := newRadio(cfg)
	defer closeRadio()

	store, err := server.OpenStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, radio, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Begin(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, joinWait)
	defer cancel()

	status, err := srv.AwaitLink(waitCtx)
	if err != nil {
		return fmt.Errorf("stored network not joined (last status %s): %w", status, err)
	}
	logging.Info("Link settled", zap.String("status", status.String()))
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the device has a stored network",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		store, err := server.OpenStore(cfg.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		creds, ok, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if !ok {
			p.PrintWarning("Device is not set up",
				ui.Detail{Key: "Store", Value: cfg.StorePath},
				ui.Detail{Key: "Next boot", Value: "runs the setup portal"},
			)
			return nil
		}
		p.PrintSuccess("Device is set up",
			ui.Detail{Key: "Network", Value: creds.SSID},
			ui.Detail{Key: "Saved", Value: creds.UpdatedAt.Local().Format(time.RFC1123)},
			ui.Detail{Key: "Store", Value: cfg.StorePath},
		)
		return nil
	},
}

var assumeYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored network so the next boot runs the portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer logging.Sync()

		if !assumeYes && !ui.ResetConfirmation(cmd.InOrStdin(), cmd.OutOrStdout()) {
			return nil
		}

		radio, closeRadio := newRadio(cfg)
		defer closeRadio()

		store, err := server.OpenStore(cfg.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()

		srv, err := server.New(cfg, radio, store)
		if err != nil {
			return err
		}
		if err := srv.Reset(cmd.Context()); err != nil {
			return err
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Stored network cleared",
			ui.Detail{Key: "Next boot", Value: "runs the setup portal"},
		)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full("netsetup-portal"))
	},
}

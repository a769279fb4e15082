package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/config"
	"github.com/muurk/netsetup/internal/discovery"
	"github.com/muurk/netsetup/internal/logging"
	"github.com/muurk/netsetup/internal/ui"
	"github.com/muurk/netsetup/internal/wizard/tui"
)

// Command flags
var (
	portalAddr   string
	scanTimeout  int
	outputFormat string
	ssid         string
	password     string
	finish       bool
)

func init() {
	// Common flags for portal commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&portalAddr, "portal", "", "Portal address, host or host:port (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 0, "Discovery timeout in seconds (default from preferences)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(wizardCmd)
}

// loadRegistry returns the user registry. A broken registry is reported
// and replaced by defaults so the tool stays usable.
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Failed to load registry, using defaults", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

// discoveryTimeout returns --timeout, or the preference when it is unset
func discoveryTimeout(reg *config.Registry) time.Duration {
	if scanTimeout > 0 {
		return time.Duration(scanTimeout) * time.Second
	}
	if reg.Preferences != nil && reg.Preferences.DiscoverTimeout > 0 {
		return time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}
	return discovery.DefaultScanTimeout
}

// newClient opens the API of portal with the user's preferences applied
func newClient(reg *config.Registry, portal *discovery.Portal) *backend.Client {
	client := backend.NewClientWithURL(portal.BaseURL())
	if prefs := reg.Preferences; prefs != nil {
		if prefs.JoinTimeout > 0 {
			client.JoinTimeout = time.Duration(prefs.JoinTimeout) * time.Second
		}
		client.DisableEvents = !prefs.UseEvents
	}
	return client
}

// resolvePortal returns the portal named by --portal, or the only portal
// discovery finds.
func resolvePortal(ctx context.Context, reg *config.Registry) (*discovery.Portal, error) {
	if portalAddr != "" {
		portal, err := tui.ParseAddress(portalAddr)
		if err != nil {
			return nil, err
		}
		if instance, ok := reg.FindByAddress(portal.Address()); ok {
			portal.Instance = instance
		}
		return portal, nil
	}

	timeout := discoveryTimeout(reg)
	portals, err := discovery.ScanForPortals(ctx, timeout)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	switch len(portals) {
	case 0:
		return nil, fmt.Errorf("no setup portal found within %s (use --portal to give an address)", timeout)
	case 1:
		return portals[0], nil
	default:
		return nil, fmt.Errorf("found %d setup portals, use --portal to choose one", len(portals))
	}
}

// saveRegistry persists the registry, logging rather than failing
func saveRegistry() {
	if err := config.SaveGlobal(); err != nil {
		logging.Warn("Failed to save registry", zap.Error(err))
	}
}

// scanCmd discovers setup portals on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for setup portals on the network",
	Long: `Scan for setup portals using mDNS/DNS-SD discovery.

A device in setup mode advertises its portal on its own access point.
Join that access point first, then scan.`,
	Example: `  # Scan with the default timeout
  netsetup-cfg scan

  # Longer scan for slow networks
  netsetup-cfg scan --timeout 15

  # Machine-readable output
  netsetup-cfg scan --format json`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	reg := loadRegistry()
	timeout := discoveryTimeout(reg)

	portals, err := discovery.ScanForPortals(cmd.Context(), timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	for _, p := range portals {
		reg.UpdatePortalLastSeen(p.Instance, p.Address())
	}
	if len(portals) > 0 {
		saveRegistry()
	}

	if outputFormat == "json" {
		return printJSON(portals)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Portal discovery", "netsetup-cfg scan",
		ui.Detail{Key: "Timeout", Value: timeout.String()},
	)

	if len(portals) == 0 {
		printer.PrintError("No setup portals found", nil, []string{
			"Ensure the device is powered on and in setup mode",
			"Join the device's WiFi access point",
			"Try increasing --timeout for slower networks",
			"Use --portal to give the address if discovery fails",
		})
		return nil
	}

	for _, p := range portals {
		details := []ui.Detail{
			{Key: "Address", Value: p.Address()},
			{Key: "Hostname", Value: p.Hostname},
			{Key: "Path", Value: p.Path},
		}
		if known := reg.GetPortal(p.Instance); known != nil && known.LastSSID != "" {
			details = append(details, ui.Detail{Key: "Last network", Value: known.LastSSID})
		}
		printer.PrintSuccess(p.Instance, details...)
	}
	return nil
}

// networksCmd lists the networks the device can see
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the WiFi networks the device can see",
	Example: `  netsetup-cfg networks --portal 192.168.100.24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := loadRegistry()
		portal, err := resolvePortal(cmd.Context(), reg)
		if err != nil {
			return err
		}

		networks, err := newClient(reg, portal).ListNetworks(cmd.Context())
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return printJSON(networks)
		}

		details := make([]ui.Detail, 0, len(networks))
		for _, n := range networks {
			security := n.Security
			if n.IsOpen() {
				security = "open"
			}
			details = append(details, ui.Detail{
				Key:   n.SSID,
				Value: fmt.Sprintf("%s %3d%%  %s", tui.SignalBars(n.SignalBars()), n.Signal, security),
			})
		}

		printer := ui.NewPrinter(cmd.OutOrStdout())
		if len(details) == 0 {
			printer.PrintWarning("No networks found",
				ui.Detail{Key: "Portal", Value: portal.Address()},
				ui.Detail{Key: "Hint", Value: "the device rescans periodically, try again shortly"},
			)
			return nil
		}
		printer.PrintSuccess(strconv.Itoa(len(details))+" networks on "+portal.Address(), details...)
		return nil
	},
}

// connectCmd joins the device to a network without the wizard
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join the device to a WiFi network",
	Long: `Send network credentials to the device and wait for it to join.

The password is prompted for when --password is not given. With --finish
the device saves the network and restarts onto it after a successful join.`,
	Example: `  # Prompt for the password
  netsetup-cfg connect --ssid HomeWiFi

  # Join and save in one go
  netsetup-cfg connect --portal 192.168.100.24 --ssid HomeWiFi --finish`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&ssid, "ssid", "", "Network name (required)")
	connectCmd.Flags().StringVar(&password, "password", "", "Network password (prompted when omitted)")
	connectCmd.Flags().BoolVar(&finish, "finish", false, "Save the network on the device after a successful join")
	_ = connectCmd.MarkFlagRequired("ssid")
}

func runConnect(cmd *cobra.Command, args []string) error {
	if err := backend.ValidateSSID(ssid); err != nil {
		return err
	}

	reg := loadRegistry()
	portal, err := resolvePortal(cmd.Context(), reg)
	if err != nil {
		return err
	}
	client := newClient(reg, portal)

	if !cmd.Flags().Changed("password") {
		password, err = promptPassword(fmt.Sprintf("Password for %s (empty for an open network): ", ssid))
		if err != nil {
			return err
		}
	}

	steps := []string{"Reach portal", "Join network"}
	if finish {
		steps = append(steps, "Save and restart")
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Join network",
		Command: "netsetup-cfg connect",
		Params: []ui.Detail{
			{Key: "Portal", Value: portal.Address()},
			{Key: "SSID", Value: ssid},
		},
		StepNames:    steps,
		Troubleshoot: troubleshoot,
		Output:       cmd.OutOrStdout(),
	})

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Detail, error) {
		onStep(1, ui.StepRunning, "")
		if err := client.Ping(ctx); err != nil {
			onStep(1, ui.StepFailed, backend.ShortMessage(err))
			return nil, err
		}
		onStep(1, ui.StepComplete, portal.Address())

		onStep(2, ui.StepRunning, "")

		result, err := client.Connect(ctx, ssid, password)
		if err != nil {
			onStep(2, ui.StepFailed, backend.ShortMessage(err))
			return nil, err
		}
		onStep(2, ui.StepComplete, result.Link.String())

		details := []ui.Detail{
			{Key: "SSID", Value: ssid},
			{Key: "Link", Value: result.Link.String()},
		}
		if !finish {
			details = append(details, ui.Detail{Key: "Next", Value: "run again with --finish to save the network"})
			return details, nil
		}

		onStep(3, ui.StepRunning, "")
		if err := client.Finish(ctx); err != nil {
			onStep(3, ui.StepFailed, backend.ShortMessage(err))
			return nil, err
		}
		onStep(3, ui.StepComplete, "")
		return details, nil
	})
	if err != nil {
		return err
	}

	reg.UpdatePortalLastSeen(portal.Instance, portal.Address())
	if finish {
		reg.RecordSetup(portal.Instance, ssid)
	}
	saveRegistry()
	return nil
}

// troubleshoot turns a connect error into tips for the failure box
func troubleshoot(err error) []string {
	tips := []string{}
	if hint := backend.TroubleshootingHint(err); hint != "" {
		tips = append(tips, hint)
	}
	if backend.IsTransportError(err) {
		tips = append(tips, "Check that this computer is still on the device's access point")
	}
	return tips
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readPasswordLine(os.Stdin)
	}
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// readPasswordLine reads one line from r as a password. An empty line is
// an open network; input that ends before any line is an error.
func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", errors.New("no password on standard input (use --password for an open network)")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// wizardCmd runs the interactive setup wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch the interactive setup wizard",
	Long: `Launch the interactive setup wizard.

The wizard finds setup portals over mDNS (or uses --portal), then walks
through choosing a network, entering its password and saving it on the
device.`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	reg := loadRegistry()

	opts := tui.Options{
		ScanTimeout: discoveryTimeout(reg),
		Connect: func(p *discovery.Portal) tui.Backend {
			return newClient(reg, p)
		},
	}
	opts.Scan = func(ctx context.Context) ([]*discovery.Portal, error) {
		scanner := discovery.NewScanner()
		scanner.Timeout = opts.ScanTimeout
		return scanner.ScanForPortals(ctx)
	}

	if portalAddr != "" {
		portal, err := tui.ParseAddress(portalAddr)
		if err != nil {
			return err
		}
		if instance, ok := reg.FindByAddress(portal.Address()); ok {
			portal.Instance = instance
		}
		opts.Portal = portal
	} else if reg.Preferences != nil && !reg.Preferences.AutoDiscover {
		return fmt.Errorf("automatic discovery is disabled in preferences, use --portal")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	final, err := tea.NewProgram(tui.NewAppModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	app, ok := final.(tui.AppModel)
	if !ok {
		return nil
	}
	app.Close()

	portal, setSSID, finished := app.Outcome()
	if portal == nil {
		return nil
	}
	reg.UpdatePortalLastSeen(portal.Instance, portal.Address())
	if finished {
		reg.RecordSetup(portal.Instance, setSSID)
		fmt.Printf("Device saved %s and is restarting onto it.\n", setSSID)
	}
	saveRegistry()
	return nil
}

package tui

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/muurk/netsetup/internal/discovery"
	"github.com/muurk/netsetup/internal/urls"
)

// ScanFunc finds setup portals on the local network.
type ScanFunc func(ctx context.Context) ([]*discovery.Portal, error)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	portals []*discovery.Portal
	err     error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Rescan  key.Binding
	Manual  key.Binding
	Quit    key.Binding
	Confirm key.Binding // For manual mode
	Cancel  key.Binding // For manual mode
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual address entry
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Confirm, m.Cancel},
	}
}

// scanningKeyMap defines key bindings for scanning mode
type scanningKeyMap struct {
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (s scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{s.Manual, s.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (s scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{s.Manual, s.Quit},
	}
}

// emptyScreenKeyMap defines key bindings for empty results screen
type emptyScreenKeyMap struct {
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (e emptyScreenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{e.Rescan, e.Manual, e.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (e emptyScreenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{e.Rescan, e.Manual, e.Quit},
	}
}

// portalItem wraps a Portal for use with bubbles/list
type portalItem struct {
	portal *discovery.Portal
}

// FilterValue implements list.Item
func (p portalItem) FilterValue() string {
	return p.portal.Instance + " " + p.portal.IP + " " + p.portal.Hostname
}

// Title returns the portal name for list display
func (p portalItem) Title() string {
	if p.portal.Instance == manualInstance {
		return fmt.Sprintf("Manual: %s", p.portal.Address())
	}
	return p.portal.Instance
}

// Description returns portal details for list display
func (p portalItem) Description() string {
	return fmt.Sprintf("%s • %s", p.portal.Address(), p.portal.Path)
}

// manualInstance names portals entered by address
const manualInstance = "manual"

// portalDelegate renders portals as cards
type portalDelegate struct {
	width int
}

func (d portalDelegate) Height() int { return 7 } // Card height including borders

func (d portalDelegate) Spacing() int { return 1 }

func (d portalDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d portalDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	pi, ok := item.(portalItem)
	if !ok {
		return
	}

	portal := pi.portal
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(StepActiveStyle.Render("→ " + pi.Title()))
	} else {
		content.WriteString("  " + pi.Title())
	}
	content.WriteString("\n\n")

	host := portal.Hostname
	if host == "" {
		host = "-"
	}
	content.WriteString(fmt.Sprintf("  Address:  %s\n", portal.Address()))
	content.WriteString(fmt.Sprintf("  Hostname: %s", host))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(1, 2).
		MarginLeft(2)

	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	cardStyle = cardStyle.Width(cardWidth)

	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel is the portal picker shown before the wizard
type DiscoveryModel struct {
	ctx     context.Context
	scan    ScanFunc
	timeout time.Duration

	// Discovery state
	Scanning   bool
	PortalList list.Model
	Selected   bool
	Err        error

	// Manual address entry state
	ManualMode   bool
	AddressInput textinput.Model
	InputErr     error

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap
	ScanningKeys  scanningKeyMap
	EmptyKeys     emptyScreenKeyMap
}

// NewDiscoveryModel creates a portal picker. timeout only drives the
// progress bar; scan is expected to honour its own deadline.
func NewDiscoveryModel(ctx context.Context, scan ScanFunc, timeout time.Duration) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	addressInput := textinput.New()
	addressInput.Placeholder = "192.168.100.24"
	addressInput.CharLimit = 64
	addressInput.Width = 30

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	portalList := list.New([]list.Item{}, portalDelegate{width: MinTerminalWidth}, DefaultWidth-4, DefaultHeight-10)
	portalList.Title = "Setup Portals"
	portalList.SetShowStatusBar(false)
	portalList.SetShowHelp(false)
	portalList.SetFilteringEnabled(true)
	portalList.DisableQuitKeybindings()
	portalList.Styles.Title = TitleStyle

	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	manualKeys := manualModeKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	scanningKeys := scanningKeyMap{
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	emptyKeys := emptyScreenKeyMap{
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	return DiscoveryModel{
		ctx:          ctx,
		scan:         scan,
		timeout:      timeout,
		PortalList:   portalList,
		AddressInput: addressInput,
		Spinner:      s,
		ProgressBar:  progressBar,
		Help:         help.New(),
		Keys:         keys,
		ManualKeys:   manualKeys,
		ScanningKeys: scanningKeys,
		EmptyKeys:    emptyKeys,
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		m.scanPortals,
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.PortalList.SetDelegate(portalDelegate{width: msg.Width})
		m.PortalList.SetSize(msg.Width-4, msg.Height-10) // Leave room for header/footer
		return m, nil

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		manual := m.manualItems()
		items := make([]list.Item, 0, len(manual)+len(msg.portals))
		items = append(items, manual...)
		for _, p := range msg.portals {
			items = append(items, portalItem{portal: p})
		}
		return m, m.PortalList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateNormalMode handles keyboard input in the portal list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.Keys.Manual) {
		m.ManualMode = true
		m.InputErr = nil
		m.AddressInput.SetValue("")
		return m, m.AddressInput.Focus()
	}

	if m.Scanning {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Enter):
		if m.PortalList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		m.PortalList.SetItems(m.manualItems())
		m.Err = nil
		return m, tea.Batch(
			func() tea.Msg { return scanStartMsg{} },
			m.scanPortals,
			m.Spinner.Tick,
		)
	}

	// Let the list handle up/down navigation
	var cmd tea.Cmd
	m.PortalList, cmd = m.PortalList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual address entry mode
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.InputErr = nil
		m.AddressInput.SetValue("")
		m.AddressInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		portal, err := ParseAddress(m.AddressInput.Value())
		if err != nil {
			m.InputErr = err
			return m, nil
		}
		items := append([]list.Item{portalItem{portal: portal}}, m.PortalList.Items()...)
		cmd = m.PortalList.SetItems(items)
		m.PortalList.Select(0)
		m.ManualMode = false
		m.InputErr = nil
		m.AddressInput.SetValue("")
		m.AddressInput.Blur()
		return m, cmd
	}

	m.AddressInput, cmd = m.AddressInput.Update(msg)
	return m, cmd
}

// manualItems returns the manually entered portals currently listed
func (m DiscoveryModel) manualItems() []list.Item {
	var items []list.Item
	for _, item := range m.PortalList.Items() {
		if pi, ok := item.(portalItem); ok && pi.portal.Instance == manualInstance {
			items = append(items, item)
		}
	}
	return items
}

// ParseAddress turns "host" or "host:port" into a manually entered portal.
func ParseAddress(address string) (*discovery.Portal, error) {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimSuffix(address, "/")
	if address == "" {
		return nil, errors.New("address is empty")
	}

	host, port := address, discovery.DefaultPort
	if h, p, err := net.SplitHostPort(address); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, errors.Newf("invalid port %q", p)
		}
		host, port = h, n
	}
	if host == "" || strings.ContainsAny(host, " /") {
		return nil, errors.Newf("invalid address %q", address)
	}

	return &discovery.Portal{
		Instance:     manualInstance,
		Hostname:     host,
		IP:           host,
		Port:         port,
		Path:         urls.Home,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
	case m.Scanning:
		content = m.renderScanning(width)
	default:
		content = m.renderPortalResults()
	}

	var helpText string
	switch {
	case m.ManualMode:
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		helpText = m.Help.View(m.ScanningKeys)
	case len(m.PortalList.Items()) > 0:
		helpText = m.Help.View(m.Keys)
	default:
		helpText = m.Help.View(m.EmptyKeys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)

	fraction := 1.0
	if m.timeout > 0 {
		fraction = min(1.0, float64(elapsed)/float64(m.timeout))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR SETUP PORTALS", m.Spinner.View())),
		"",
		SubtitleStyle.Render("Looking for devices in setup mode..."),
		"",
		m.ProgressBar.ViewAs(fraction),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderPortalResults renders the portal list or "no portals found" message
func (m DiscoveryModel) renderPortalResults() string {
	var b strings.Builder

	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)

	case len(m.PortalList.Items()) == 0:
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render("⚠ No setup portals found"))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)
		b.WriteString("\n")

	default:
		b.WriteString(m.PortalList.View())
	}

	return b.String()
}

const troubleshooting = `  Troubleshooting:
    • Ensure the device is powered on and in setup mode
    • Connect this computer to the device's WiFi access point
    • mDNS may be blocked; press m and enter 192.168.100.24
    • Press r to rescan
`

// renderManualEntry renders the manual address entry dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder

	b.WriteString(RenderSubtitle("Enter the portal address"))
	b.WriteString("\n\n")
	b.WriteString("  Address: ")
	b.WriteString(m.AddressInput.View())
	b.WriteString("\n\n")

	if m.InputErr != nil {
		b.WriteString(RenderError(m.InputErr.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

// SelectedPortal returns the chosen portal, if any
func (m DiscoveryModel) SelectedPortal() *discovery.Portal {
	if !m.Selected {
		return nil
	}
	if item, ok := m.PortalList.SelectedItem().(portalItem); ok {
		return item.portal
	}
	return nil
}

// scanPortals is a command that performs portal discovery
func (m DiscoveryModel) scanPortals() tea.Msg {
	portals, err := m.scan(m.ctx)
	return scanCompleteMsg{portals: portals, err: err}
}

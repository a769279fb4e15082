package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/netsetup/internal/backend"
	"github.com/muurk/netsetup/internal/urls"
	"github.com/muurk/netsetup/internal/wizard"
)

// Messages for async wizard operations
type navigatedMsg struct {
	rendered *wizard.Rendered
	err      error
}

type finishedMsg struct {
	err error
}

// wizardKeyMap defines key bindings for the wizard steps
type wizardKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Next   key.Binding
	Back   key.Binding
	Rescan key.Binding
	Retry  key.Binding
	Quit   key.Binding
}

// stepKeys restricts the key map to the bindings a screen responds to.
type stepKeys []key.Binding

// ShortHelp returns keybindings to be shown in the mini help view
func (k stepKeys) ShortHelp() []key.Binding {
	return k
}

// FullHelp returns keybindings for the expanded help view
func (k stepKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k}
}

func newWizardKeyMap() wizardKeyMap {
	return wizardKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Next: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// networkItem wraps a scan entry for use with bubbles/list
type networkItem struct {
	network backend.Network
}

// FilterValue implements list.Item
func (n networkItem) FilterValue() string { return n.network.SSID }

// Title returns the SSID for list display
func (n networkItem) Title() string { return n.network.SSID }

// Description returns signal and security for list display
func (n networkItem) Description() string {
	return fmt.Sprintf("%s %d%% • %s", SignalBars(n.network.SignalBars()), n.network.Signal, securityLabel(n.network.Security))
}

// WizardModel drives a wizard.Shell from the terminal. The shell owns the
// session state; the model only mirrors the mounted step.
type WizardModel struct {
	ctx     context.Context
	Shell   *wizard.Shell
	Backend Backend
	Portal  string

	// Mounted step and pending work
	Rendered *wizard.Rendered
	Busy     bool
	BusyText string
	Err      error
	Finished bool

	// Components
	Networks list.Model
	Password textinput.Model
	Spinner  spinner.Model
	Help     help.Model
	Keys     wizardKeyMap

	// UI state
	Width  int
	Height int
}

// NewWizardModel creates a wizard session against be. portal is shown on
// the landing step.
func NewWizardModel(ctx context.Context, be Backend, portal string) WizardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	password := textinput.New()
	password.Placeholder = "WiFi password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = backend.MaxPasswordLength
	password.Width = 40

	networks := list.New([]list.Item{}, list.NewDefaultDelegate(), DefaultWidth-4, DefaultHeight-12)
	networks.SetShowTitle(false)
	networks.SetShowStatusBar(false)
	networks.SetShowHelp(false)
	networks.SetFilteringEnabled(false)
	networks.DisableQuitKeybindings()

	return WizardModel{
		ctx:      ctx,
		Shell:    wizard.NewShell(Steps(be, portal)),
		Backend:  be,
		Portal:   portal,
		Busy:     true,
		BusyText: "Starting wizard...",
		Networks: networks,
		Password: password,
		Spinner:  s,
		Help:     help.New(),
		Keys:     newWizardKeyMap(),
	}
}

// Init starts the wizard session on its landing step
func (m WizardModel) Init() tea.Cmd {
	shell, ctx := m.Shell, m.ctx
	start := func() tea.Msg {
		err := shell.Start(ctx, urls.Home)
		return navigatedMsg{rendered: shell.Current(), err: err}
	}
	return tea.Batch(start, m.Spinner.Tick)
}

// Close ends the wizard session and waits for pending backend calls.
func (m WizardModel) Close() {
	m.Shell.Stop()
}

// Step returns the id of the mounted step, or "" before the first mount.
func (m WizardModel) Step() wizard.StepID {
	if m.Rendered == nil {
		return ""
	}
	return m.Rendered.Step.ID
}

// Update handles messages and updates the model
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Networks.SetSize(msg.Width-6, msg.Height-14)
		return m, nil

	case navigatedMsg:
		return m.handleNavigated(msg)

	case finishedMsg:
		m.Busy = false
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Err = nil
		m.Finished = true
		return m, nil

	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.Busy {
			return m, nil
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m WizardModel) handleNavigated(msg navigatedMsg) (tea.Model, tea.Cmd) {
	// A newer navigation is in flight and will report on its own
	if wizard.IsSuperseded(msg.err) {
		return m, nil
	}

	m.Busy = false
	if msg.err != nil {
		m.Err = msg.err
		if msg.rendered != nil && m.Rendered == nil {
			m.Rendered = msg.rendered
		}
		return m, nil
	}

	m.Err = nil
	m.Rendered = msg.rendered

	switch content := msg.rendered.Content.(type) {
	case networksContent:
		items := make([]list.Item, len(content.networks))
		for i, n := range content.networks {
			items[i] = networkItem{network: n}
		}
		return m, m.Networks.SetItems(items)

	case connectContent:
		m.Password.SetValue("")
		if content.open() {
			m.Password.Blur()
		} else {
			m.Password.Focus()
		}
	}
	return m, nil
}

// handleKey routes keyboard input for the mounted step
func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Finished {
		if key.Matches(msg, m.Keys.Quit, m.Keys.Next) {
			return m, tea.Quit
		}
		return m, nil
	}

	if key.Matches(msg, m.Keys.Retry) && wizard.IsLoadError(m.Err) {
		return m.run("Retrying...", m.Shell.Retry)
	}

	switch m.Step() {
	case wizard.StepHome:
		switch {
		case key.Matches(msg, m.Keys.Next):
			return m.run("Scanning for networks...", m.Shell.Advance)
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		}

	case wizard.StepNetworks:
		switch {
		case key.Matches(msg, m.Keys.Next):
			item, ok := m.Networks.SelectedItem().(networkItem)
			if !ok {
				return m, nil
			}
			network := wizard.NetworkFrom(item.network)
			return m.run("Selecting "+network.SSID+"...", func(ctx context.Context) (*wizard.Rendered, error) {
				return m.Shell.ChooseNetwork(ctx, network)
			})
		case key.Matches(msg, m.Keys.Rescan):
			return m.run("Scanning for networks...", func(ctx context.Context) (*wizard.Rendered, error) {
				return m.Shell.Navigate(ctx, urls.Networks)
			})
		case key.Matches(msg, m.Keys.Back):
			return m.run("", m.Shell.Back)
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.Networks, cmd = m.Networks.Update(msg)
		return m, cmd

	case wizard.StepConnect:
		switch {
		case key.Matches(msg, m.Keys.Next):
			password := m.Password.Value()
			ssid := ""
			if c, ok := m.Rendered.Content.(connectContent); ok {
				ssid = c.network.SSID
			}
			be := m.Backend
			return m.run("Joining "+ssid+"...", func(ctx context.Context) (*wizard.Rendered, error) {
				return m.Shell.SubmitConnection(ctx, be, password)
			})
		case key.Matches(msg, m.Keys.Back):
			m.Password.Blur()
			return m.run("Scanning for networks...", m.Shell.Back)
		}
		var cmd tea.Cmd
		m.Password, cmd = m.Password.Update(msg)
		return m, cmd

	case wizard.StepFinish:
		switch {
		case key.Matches(msg, m.Keys.Next):
			m.Busy = true
			m.BusyText = "Saving settings on the device..."
			shell, be, ctx := m.Shell, m.Backend, m.ctx
			return m, tea.Batch(func() tea.Msg {
				return finishedMsg{err: shell.FinishSetup(ctx, be)}
			}, m.Spinner.Tick)
		case key.Matches(msg, m.Keys.Back):
			return m.run("", m.Shell.Back)
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		}
	}

	return m, nil
}

// run marks the model busy and performs a shell navigation in the background
func (m WizardModel) run(busyText string, navigate func(ctx context.Context) (*wizard.Rendered, error)) (tea.Model, tea.Cmd) {
	m.Busy = true
	m.BusyText = busyText
	m.Err = nil
	ctx := m.ctx
	return m, tea.Batch(func() tea.Msg {
		r, err := navigate(ctx)
		return navigatedMsg{rendered: r, err: err}
	}, m.Spinner.Tick)
}

// View renders the mounted step
func (m WizardModel) View() string {
	return RenderApplicationContainer(m.buildContent(), m.Help.View(m.helpKeys()), m.Width, m.Height)
}

func (m WizardModel) buildContent() string {
	var b strings.Builder

	b.WriteString(m.renderProgress())
	b.WriteString("\n")

	switch {
	case m.Finished:
		b.WriteString(RenderTitle("Setup complete"))
		b.WriteString("\n")
		b.WriteString(RenderSuccess("The device saved the settings and is restarting."))
		b.WriteString("\n\n")
		b.WriteString("Reconnect this computer to your usual network.\n")
	case m.Rendered != nil:
		b.WriteString(m.renderStep())
	}

	if m.Busy {
		b.WriteString("\n\n")
		b.WriteString(SpinnerStyle.Render(m.Spinner.View() + " " + m.BusyText))
	}

	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(RenderError(errorMessage(m.Err)))
		if hint := backend.TroubleshootingHint(m.Err); hint != "" && (backend.IsTransportError(m.Err) || backend.IsDeviceError(m.Err)) {
			b.WriteString("\n")
			b.WriteString(SubtitleStyle.Render(hint))
		}
	}

	return b.String()
}

func (m WizardModel) renderStep() string {
	var b strings.Builder

	switch content := m.Rendered.Content.(type) {
	case homeContent:
		b.WriteString(RenderTitle("Welcome"))
		b.WriteString("\n")
		b.WriteString(content.View())

	case networksContent:
		b.WriteString(RenderTitle("Choose a network"))
		b.WriteString("\n")
		if len(content.networks) == 0 {
			b.WriteString(WarningStyle.Render("⚠ The device found no networks"))
			b.WriteString("\n\n  Move the device closer to your router and press r to rescan.")
		} else {
			b.WriteString(m.Networks.View())
		}

	case connectContent:
		b.WriteString(RenderTitle(content.View()))
		b.WriteString("\n")
		if content.open() {
			b.WriteString("This network is open. Press enter to join it.")
		} else {
			b.WriteString("  Password: ")
			b.WriteString(m.Password.View())
		}
		if state := m.Shell.State(); state.Result != nil && state.Result.Status == wizard.StatusFailure {
			b.WriteString("\n\n")
			b.WriteString(WarningStyle.Render("Last attempt failed: " + state.Result.ErrorDetail))
		}

	case finishContent:
		b.WriteString(RenderTitle("Almost done"))
		b.WriteString("\n")
		b.WriteString(RenderSuccess(content.View()))
		b.WriteString("\n\n")
		b.WriteString("Press enter to save the settings. The device will restart and\n")
		b.WriteString("leave setup mode.")

	default:
		b.WriteString(m.Rendered.View())
	}

	return b.String()
}

// renderProgress renders the step trail with the mounted step highlighted
func (m WizardModel) renderProgress() string {
	names := []struct {
		id    wizard.StepID
		label string
	}{
		{wizard.StepHome, "Welcome"},
		{wizard.StepNetworks, "Network"},
		{wizard.StepConnect, "Password"},
		{wizard.StepFinish, "Finish"},
	}

	parts := make([]string, len(names))
	for i, n := range names {
		if n.id == m.Step() {
			parts[i] = StepActiveStyle.Render(n.label)
		} else {
			parts[i] = StepInactiveStyle.Render(n.label)
		}
	}
	return lipgloss.NewStyle().PaddingTop(1).Render(strings.Join(parts, StepInactiveStyle.Render(" › ")))
}

// helpKeys returns the bindings the mounted step responds to
func (m WizardModel) helpKeys() stepKeys {
	k := m.Keys
	if m.Busy {
		return nil
	}
	if m.Finished {
		return stepKeys{k.Quit}
	}

	var keys stepKeys
	switch m.Step() {
	case wizard.StepHome:
		keys = stepKeys{k.Next, k.Quit}
	case wizard.StepNetworks:
		keys = stepKeys{k.Up, k.Down, k.Next, k.Rescan, k.Back, k.Quit}
	case wizard.StepConnect:
		keys = stepKeys{k.Next, k.Back}
	case wizard.StepFinish:
		keys = stepKeys{k.Next, k.Back, k.Quit}
	}
	if wizard.IsLoadError(m.Err) {
		keys = append(keys, k.Retry)
	}
	return keys
}

// errorMessage picks the user-facing text for err
func errorMessage(err error) string {
	switch {
	case backend.IsTransportError(err), backend.IsDeviceError(err):
		return backend.ShortMessage(err)
	case wizard.IsLoadError(err):
		return "Could not load this step: " + backend.ShortMessage(err)
	default:
		return err.Error()
	}
}

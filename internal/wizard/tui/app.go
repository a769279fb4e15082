package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/netsetup/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenWizard    Screen = "wizard"
)

// BackendFactory opens the portal API for a chosen portal.
type BackendFactory func(portal *discovery.Portal) Backend

// Options configures the application model.
type Options struct {
	// Portal skips discovery and starts the wizard against it
	Portal *discovery.Portal

	// Scan finds portals for the discovery screen
	Scan ScanFunc

	// ScanTimeout is the expected scan duration, shown as progress
	ScanTimeout time.Duration

	// Connect opens the API of the chosen portal
	Connect BackendFactory
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	ctx  context.Context
	opts Options

	// Current screen state
	CurrentScreen Screen

	// Screen models
	DiscoveryModel DiscoveryModel
	WizardModel    WizardModel

	// Shared application state
	SelectedPortal *discovery.Portal
	wizardStarted  bool

	// UI state
	Width  int
	Height int
}

// NewAppModel creates the application model. Without opts.Portal it
// starts on the discovery screen.
func NewAppModel(ctx context.Context, opts Options) AppModel {
	m := AppModel{
		ctx:    ctx,
		opts:   opts,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}

	if opts.Portal != nil {
		m.CurrentScreen = ScreenWizard
		m.SelectedPortal = opts.Portal
		m.WizardModel = m.newWizard(opts.Portal)
		m.wizardStarted = true
		return m
	}

	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(ctx, opts.Scan, opts.ScanTimeout)
	return m
}

func (m AppModel) newWizard(portal *discovery.Portal) WizardModel {
	w := NewWizardModel(m.ctx, m.opts.Connect(portal), portal.Address())
	w.Width, w.Height = m.Width, m.Height
	return w
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenWizard:
		return m.WizardModel.Init()
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if m.CurrentScreen == ScreenDiscovery {
			d, _ := m.DiscoveryModel.Update(msg)
			m.DiscoveryModel = d.(DiscoveryModel)
		}
		if m.wizardStarted {
			w, _ := m.WizardModel.Update(msg)
			m.WizardModel = w.(WizardModel)
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.DiscoveryModel.ManualMode {
			if keyMsg.String() == "q" || keyMsg.String() == "esc" {
				return m, tea.Quit
			}
		}

		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)

		if portal := m.DiscoveryModel.SelectedPortal(); portal != nil {
			return m.startWizard(portal)
		}
		return m, cmd

	case ScreenWizard:
		updated, cmd := m.WizardModel.Update(msg)
		m.WizardModel = updated.(WizardModel)
		return m, cmd
	}

	return m, nil
}

// startWizard transitions from discovery to a wizard session on portal
func (m AppModel) startWizard(portal *discovery.Portal) (tea.Model, tea.Cmd) {
	m.SelectedPortal = portal
	m.CurrentScreen = ScreenWizard
	m.WizardModel = m.newWizard(portal)
	m.wizardStarted = true
	return m, m.WizardModel.Init()
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenWizard:
		return m.WizardModel.View()
	default:
		return "Unknown screen"
	}
}

// Close stops the wizard session, if one was started.
func (m AppModel) Close() {
	if m.wizardStarted {
		m.WizardModel.Close()
	}
}

// Outcome reports what the session achieved: the portal used and, once
// the device accepted the settings, the network it joined.
func (m AppModel) Outcome() (portal *discovery.Portal, ssid string, finished bool) {
	if !m.wizardStarted || !m.WizardModel.Finished {
		return m.SelectedPortal, "", false
	}
	if n := m.WizardModel.Shell.State().Network; n != nil {
		ssid = n.SSID
	}
	return m.SelectedPortal, ssid, true
}

// Package tui implements the terminal front end of the network setup wizard.
//
// The screens are Bubble Tea models. The wizard itself is a wizard.Shell:
// the models only forward key presses to shell operations, run them as
// commands and render whatever step the shell mounted. Guards, redirects
// and the session state all live in the shell, so the terminal wizard and
// the portal's browser wizard behave the same.
//
// # Architecture
//
// Two screens are coordinated by AppModel:
//   - Discovery: finds setup portals over mDNS, or takes an address by hand
//   - Wizard: Welcome › Network › Password › Finish, driven by the shell
//
// Every screen is wrapped by RenderApplicationContainer for a consistent
// header, content area and context-sensitive footer.
//
// # Framework Components
//
//   - bubbles/spinner: pending shell operations and scans
//   - bubbles/textinput: password and manual address entry
//   - bubbles/progress: scan progress
//   - bubbles/list: portal cards and the network list
//   - bubbles/help: per-screen key help
//   - lipgloss: styling and layout
//
// # Usage Example
//
//	app := tui.NewAppModel(ctx, tui.Options{
//	    Scan:        scan,
//	    ScanTimeout: 5 * time.Second,
//	    Connect: func(p *discovery.Portal) tui.Backend {
//	        return backend.NewClientWithURL(p.BaseURL())
//	    },
//	})
//	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	final.(tui.AppModel).Close()
//
// # Key Bindings
//
//   - Discovery: ↑/↓ navigate, enter select, r rescan, m manual address, q quit
//   - Welcome: enter continue, q quit
//   - Network: ↑/↓ navigate, enter choose, r rescan, esc back, q quit
//   - Password: type the password, enter join, esc back
//   - Finish: enter save on the device, esc back, q quit
//
// ctrl+r retries a step whose content failed to load; ctrl+c always quits.
//
// # Thread Safety
//
// The Bubble Tea framework ensures thread safety through message passing.
// Shell operations run inside commands; their results come back as
// messages and are applied in Update.
package tui

package ports

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/ui"
)

// Controls performs input on nodes of the active dialog.
type Controls interface {
	// SetText replaces the content of an editable node.
	SetText(ctx context.Context, node ui.Node, text string) error
	// Click activates a clickable node.
	Click(ctx context.Context, node ui.Node) error
}

// Platform is the device-side surface of the automation host.
type Platform interface {
	// AutomationAvailable reports whether dialogs can be observed and driven.
	AutomationAvailable(ctx context.Context) bool
	// OpenAutomationSettings brings up the screen where the user grants access.
	OpenAutomationSettings(ctx context.Context) error
	// InitiateCall dials a USSD code.
	InitiateCall(ctx context.Context, code string) error
	// ActiveDialog returns the current USSD dialog tree.
	// Returns domain.ErrNoActiveDialog when none is on screen.
	ActiveDialog(ctx context.Context) (ui.Node, error)
}

// Host is everything the controller needs from the device.
type Host interface {
	Controls
	Platform
}

// DialogSource delivers dialog notifications. The channel closes when ctx ends
// or the source stops.
type DialogSource interface {
	Watch(ctx context.Context) (<-chan ui.Node, error)
}

// ControlFinder locates the input field and the send button of a dialog.
// Hosts with unusual layouts can supply their own.
type ControlFinder interface {
	FindEditable(root ui.Node) (ui.Node, error)
	FindClickable(root ui.Node, labels []string) (ui.Node, error)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/ui"
)

// ErrControlNotFound is returned when the dialog has no matching control.
var ErrControlNotFound = errors.New("control not found")

// FindEditable returns the first editable node in preorder.
func FindEditable(root ui.Node) (ui.Node, error) {
	if n, ok := ui.Find(root, isEditable); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: no editable field", ErrControlNotFound)
}

// FindClickable returns the first clickable node whose text or label equals one
// of labels, ignoring case. Labels are tried in priority order.
func FindClickable(root ui.Node, labels []string) (ui.Node, error) {
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		n, ok := ui.Find(root, func(n ui.Node) bool {
			if !n.Clickable() {
				return false
			}
			return strings.EqualFold(strings.TrimSpace(n.Text()), label) ||
				strings.EqualFold(strings.TrimSpace(n.Label()), label)
		})
		if ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: no button among %v", ErrControlNotFound, labels)
}

func isEditable(n ui.Node) bool {
	return n.Editable() || strings.Contains(n.Class(), "EditText")
}

// Inject types text into the dialog's editable field. A nil finder uses Finder.
func Inject(ctx context.Context, f ports.ControlFinder, c ports.Controls, root ui.Node, text string) error {
	if f == nil {
		f = Finder{}
	}
	field, err := f.FindEditable(root)
	if err != nil {
		return err
	}
	if err := c.SetText(ctx, field, text); err != nil {
		return fmt.Errorf("failed to set text: %w", err)
	}
	return nil
}

// Click presses the first send-like button of the dialog. A nil finder uses Finder.
func Click(ctx context.Context, f ports.ControlFinder, c ports.Controls, root ui.Node, labels []string) error {
	if f == nil {
		f = Finder{}
	}
	button, err := f.FindClickable(root, labels)
	if err != nil {
		return err
	}
	if err := c.Click(ctx, button); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

// Finder is the default ports.ControlFinder.
type Finder struct{}

// FindEditable implements ports.ControlFinder.
func (Finder) FindEditable(root ui.Node) (ui.Node, error) {
	return FindEditable(root)
}

// FindClickable implements ports.ControlFinder.
func (Finder) FindClickable(root ui.Node, labels []string) (ui.Node, error) {
	return FindClickable(root, labels)
}

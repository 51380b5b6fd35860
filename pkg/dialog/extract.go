package dialog

import (
	"strings"

	"github.com/aretw0/ussdflow/pkg/ui"
)

type extractConfig struct {
	labels    bool
	separator string
	walkOpts  []ui.WalkOption
}

// Option configures ExtractText.
type Option func(*extractConfig)

// WithLabels also collects accessibility labels (content descriptions).
func WithLabels() Option {
	return func(c *extractConfig) {
		c.labels = true
	}
}

// WithSeparator replaces the default "\n" separator.
func WithSeparator(sep string) Option {
	return func(c *extractConfig) {
		c.separator = sep
	}
}

// WithWalkOptions forwards traversal bounds to ui.Walk.
func WithWalkOptions(opts ...ui.WalkOption) Option {
	return func(c *extractConfig) {
		c.walkOpts = append(c.walkOpts, opts...)
	}
}

// ExtractText flattens the visible text of a dialog tree.
// Parent text comes before its children, siblings left to right, each entry
// followed by the separator. The tree is only read.
func ExtractText(root ui.Node, opts ...Option) string {
	cfg := extractConfig{separator: "\n"}
	for _, opt := range opts {
		opt(&cfg)
	}

	var b strings.Builder
	ui.Walk(root, func(n ui.Node, _ int) bool {
		if text := n.Text(); text != "" {
			b.WriteString(text)
			b.WriteString(cfg.separator)
		}
		if cfg.labels {
			if label := n.Label(); label != "" {
				b.WriteString(label)
				b.WriteString(cfg.separator)
			}
		}
		return true
	}, cfg.walkOpts...)
	return b.String()
}

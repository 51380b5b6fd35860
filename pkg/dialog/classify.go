package dialog

import (
	"regexp"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ui"
)

// Classifier derives the snapshot flags from flattened dialog text.
// All phrase lists match case-insensitively as substrings.
type Classifier struct {
	MainMenu   []string `mapstructure:"main_menu" yaml:"main_menu"`
	Terminal   []string `mapstructure:"terminal" yaml:"terminal"`
	Success    []string `mapstructure:"success" yaml:"success"`
	Inquiry    []string `mapstructure:"inquiry" yaml:"inquiry"`
	Mismatch   []string `mapstructure:"mismatch" yaml:"mismatch"`
	WrongPIN   []string `mapstructure:"wrong_pin" yaml:"wrong_pin"`
	USSDMarker []string `mapstructure:"ussd_markers" yaml:"ussd_markers"`
}

// pinPattern matches "PIN" at a word start, or "password".
var pinPattern = regexp.MustCompile(`(?i)\bpin|password`)

// DefaultClassifier returns the vocabulary observed on Ghanaian mobile-money menus.
func DefaultClassifier() *Classifier {
	return &Classifier{
		MainMenu: []string{
			"Mobile Money", "MoMo", "Transfer Money", "Cash Out",
			"Merchant Payment", "Airtime", "Financial Services",
		},
		Terminal:   []string{"successful", "completed", "failed", "error"},
		Success:    []string{"successful", "completed"},
		Inquiry:    []string{"balance is", "commission is"},
		Mismatch:   []string{"do not match", "does not match", "mismatch"},
		WrongPIN:   []string{"incorrect pin", "wrong pin", "invalid pin"},
		USSDMarker: []string{"USSD", "Mobile Money", "MTN", "Vodafone", "AirtelTigo", "*171#", "*110#", "*133#"},
	}
}

var defaultClassifier = DefaultClassifier()

// Classify uses the default vocabulary.
func Classify(text string) domain.DialogSnapshot {
	return defaultClassifier.Classify(text)
}

// Classify builds a snapshot for one notification.
func (c *Classifier) Classify(text string) domain.DialogSnapshot {
	lower := strings.ToLower(text)
	inquiry := containsAny(lower, c.Inquiry)
	failure := containsAny(lower, []string{"failed", "error"})

	return domain.DialogSnapshot{
		RawText:            text,
		LooksLikeMainMenu:  containsAny(lower, c.MainMenu),
		LooksLikePinPrompt: pinPattern.MatchString(text),
		LooksLikeTerminal:  containsAny(lower, c.Terminal) || inquiry,
		LooksLikeSuccess:   (containsAny(lower, c.Success) && !failure) || (inquiry && !failure),
		LooksLikeMismatch:  containsAny(lower, c.Mismatch),
		LooksLikeWrongPIN:  containsAny(lower, c.WrongPIN),
	}
}

// IsUSSDDialog reports whether the tree looks like a carrier USSD dialog rather
// than an unrelated window. Windows of a telephony package always qualify; an
// AlertDialog from any other package also needs a USSD marker in its text.
func (c *Classifier) IsUSSDDialog(root ui.Node) bool {
	if root == nil {
		return false
	}
	telephony, alert := false, false
	ui.Walk(root, func(n ui.Node, _ int) bool {
		pkg := strings.ToLower(n.Package())
		if strings.Contains(pkg, "phone") || strings.Contains(pkg, "dialer") || strings.Contains(pkg, "telecom") {
			telephony = true
			return false
		}
		if strings.Contains(n.Class(), "AlertDialog") {
			alert = true
		}
		return true
	})
	if telephony {
		return true
	}
	if !alert {
		return false
	}
	text := strings.ToLower(ExtractText(root, WithLabels()))
	return containsAny(text, c.USSDMarker) || containsAny(text, c.MainMenu)
}

// IsUSSDDialog uses the default vocabulary.
func IsUSSDDialog(root ui.Node) bool {
	return defaultClassifier.IsUSSDDialog(root)
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

package adb

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Runner executes one adb invocation against a device.
type Runner interface {
	Run(ctx context.Context, serial string, args ...string) (string, error)
}

// ExecRunner shells out to the adb binary.
type ExecRunner struct {
	// Path to adb. Empty means "adb" on PATH.
	Path string
}

// Run executes `adb -s serial args...` and returns combined output.
func (r ExecRunner) Run(ctx context.Context, serial string, args ...string) (string, error) {
	if err := ValidateSerial(serial); err != nil {
		return "", err
	}
	bin := r.Path
	if bin == "" {
		bin = "adb"
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"-s", serial}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("adb %s failed: %w, output: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// serialPattern accepts USB serials, ip:port and mDNS names.
var serialPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

// ValidateSerial rejects device serials that could smuggle shell syntax.
func ValidateSerial(serial string) error {
	if serial == "" {
		return fmt.Errorf("device serial cannot be empty")
	}
	if len(serial) > 256 {
		return fmt.Errorf("device serial too long (max 256 characters)")
	}
	if !serialPattern.MatchString(serial) {
		return fmt.Errorf("invalid device serial %q", serial)
	}
	return nil
}

// shellSpecials are escaped for `input text`, which runs through the device shell.
var shellSpecials = []string{
	`\`, "'", `"`, "`", "$",
	"(", ")", "{", "}", "[", "]",
	"&", "|", ";", "<", ">",
	"#", "!", "~", "*", "?",
}

// EscapeInputText prepares ASCII text for `adb shell input text`.
// Spaces become %s; shell specials are backslash-escaped.
func EscapeInputText(text string) string {
	result := text
	for _, ch := range shellSpecials {
		result = strings.ReplaceAll(result, ch, `\`+ch)
	}
	return strings.ReplaceAll(result, " ", "%s")
}

// ussdCodePattern accepts dialable USSD strings such as *171*2#.
var ussdCodePattern = regexp.MustCompile(`^[0-9*#+]+$`)

// EncodeTelURI builds the tel: URI for a USSD code; "#" must be percent-encoded.
func EncodeTelURI(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !ussdCodePattern.MatchString(code) {
		return "", fmt.Errorf("invalid ussd code %q", code)
	}
	return "tel:" + strings.ReplaceAll(code, "#", "%23"), nil
}

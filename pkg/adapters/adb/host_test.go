package adb_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/adapters/adb"
	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ussdDump = `noise<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">
<node text="" class="android.widget.FrameLayout" package="com.android.phone" bounds="[0,0][1080,1920]">
  <node text="Enter amount:" class="android.widget.TextView" package="com.android.phone" bounds="[60,700][1020,780]" />
  <node text="" class="android.widget.EditText" package="com.android.phone" clickable="true" bounds="[60,800][1020,900]" />
  <node text="Cancel" class="android.widget.Button" package="com.android.phone" clickable="true" bounds="[60,950][500,1050]" />
  <node text="Send" class="android.widget.Button" package="com.android.phone" clickable="true" bounds="[580,950][1020,1050]" />
</node>
</hierarchy>`

const launcherDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">
<node text="Home" class="android.widget.FrameLayout" package="com.android.launcher3" bounds="[0,0][1080,1920]" />
</hierarchy>`

// fakeRunner answers commands by prefix and records every invocation.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string][]string
	fail      map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: map[string][]string{}, fail: map[string]int{}}
}

func (f *fakeRunner) Run(ctx context.Context, serial string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	for prefix, n := range f.fail {
		if strings.HasPrefix(cmd, prefix) && n > 0 {
			f.fail[prefix] = n - 1
			return "ERROR: could not get idle state", errors.New("exit status 1")
		}
	}
	for prefix, outs := range f.responses {
		if strings.HasPrefix(cmd, prefix) && len(outs) > 0 {
			out := outs[0]
			if len(outs) > 1 {
				f.responses[prefix] = outs[1:]
			}
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newHost(t *testing.T, r *fakeRunner) *adb.Host {
	t.Helper()
	h, err := adb.New("emulator-5554", adb.WithRunner(r), adb.WithRetryDelay(0), adb.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	return h
}

func TestHost_ActiveDialogAndInput(t *testing.T) {
	r := newFakeRunner()
	r.responses["shell uiautomator dump"] = []string{ussdDump}
	h := newHost(t, r)
	ctx := context.Background()

	root, err := h.ActiveDialog(ctx)
	require.NoError(t, err)
	assert.Contains(t, dialog.ExtractText(root), "Enter amount:")

	require.NoError(t, executor.Inject(ctx, nil, h, root, "100 GHS"))
	require.NoError(t, executor.Click(ctx, nil, h, root, []string{"Send"}))

	calls := r.Calls()
	assert.Contains(t, calls, "shell input tap 540 850")
	assert.Contains(t, calls, "shell input text 100%sGHS")
	assert.Contains(t, calls, "shell input tap 800 1000")
}

func TestHost_ActiveDialogRejectsOtherWindows(t *testing.T) {
	r := newFakeRunner()
	r.responses["shell uiautomator dump"] = []string{launcherDump}
	h := newHost(t, r)

	_, err := h.ActiveDialog(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveDialog)
}

func TestHost_DumpRetries(t *testing.T) {
	r := newFakeRunner()
	r.fail["shell uiautomator dump"] = 2
	r.responses["shell uiautomator dump"] = []string{ussdDump}
	h := newHost(t, r)

	_, err := h.ActiveDialog(context.Background())
	require.NoError(t, err)

	pkills := 0
	for _, c := range r.Calls() {
		if c == "shell pkill uiautomator" {
			pkills++
		}
	}
	assert.Equal(t, 2, pkills)
}

func TestHost_DumpGivesUp(t *testing.T) {
	r := newFakeRunner()
	r.fail["shell uiautomator dump"] = 5
	h := newHost(t, r)

	_, err := h.ActiveDialog(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoActiveDialog)
}

func TestHost_InitiateCall(t *testing.T) {
	r := newFakeRunner()
	h := newHost(t, r)

	require.NoError(t, h.InitiateCall(context.Background(), "*171#"))
	assert.Contains(t, r.Calls(), "shell am start -a android.intent.action.CALL -d tel:*171%23")

	assert.Error(t, h.InitiateCall(context.Background(), "*171#; reboot"))
}

func TestHost_AutomationAvailable(t *testing.T) {
	r := newFakeRunner()
	r.responses["get-state"] = []string{"device\n", "unauthorized\n"}
	h := newHost(t, r)

	assert.True(t, h.AutomationAvailable(context.Background()))
	assert.False(t, h.AutomationAvailable(context.Background()))
}

func TestHost_OpenAutomationSettings(t *testing.T) {
	r := newFakeRunner()
	h := newHost(t, r)

	require.NoError(t, h.OpenAutomationSettings(context.Background()))
	assert.Contains(t, r.Calls(), "shell am start -a android.settings.ACCESSIBILITY_SETTINGS")
}

func TestHost_WatchEmitsChangedDialogs(t *testing.T) {
	r := newFakeRunner()
	second := strings.Replace(ussdDump, "Enter amount:", "Enter PIN:", 1)
	r.responses["shell uiautomator dump"] = []string{ussdDump, ussdDump, launcherDump, second}
	h := newHost(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := h.Watch(ctx)
	require.NoError(t, err)

	first := <-ch
	assert.Contains(t, dialog.ExtractText(first), "Enter amount:")
	next := <-ch
	assert.Contains(t, dialog.ExtractText(next), "Enter PIN:")
}

func TestNew_ValidatesSerial(t *testing.T) {
	_, err := adb.New("emulator-5554; rm -rf /")
	assert.Error(t, err)
	_, err = adb.New("192.168.1.100:5555")
	assert.NoError(t, err)
}

func TestEscapeInputText(t *testing.T) {
	assert.Equal(t, "hello%sworld", adb.EscapeInputText("hello world"))
	assert.Equal(t, `a\&b`, adb.EscapeInputText("a&b"))
	assert.Equal(t, `\\\$`, adb.EscapeInputText(`\$`))
	assert.Equal(t, "0244123456", adb.EscapeInputText("0244123456"))
}

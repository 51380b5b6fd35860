package dialog_test

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/ui"
	"github.com/stretchr/testify/assert"
)

func ussdTree() *ui.Element {
	return &ui.Element{
		ClassName:   "android.widget.FrameLayout",
		PackageName: "com.android.phone",
		Nodes: []ui.Element{
			{ClassName: "android.widget.TextView", TextValue: "MTN Mobile Money", ContentDesc: "title"},
			{ClassName: "android.widget.LinearLayout", Nodes: []ui.Element{
				{ClassName: "android.widget.TextView", TextValue: "1. Transfer Money"},
				{ClassName: "android.widget.TextView", TextValue: "2. Cash Out"},
			}},
			{ClassName: "android.widget.EditText"},
			{ClassName: "android.widget.Button", TextValue: "Send", IsClickable: true},
		},
	}
}

func TestExtractText_PreorderWithSeparator(t *testing.T) {
	text := dialog.ExtractText(ussdTree())
	assert.Equal(t, "MTN Mobile Money\n1. Transfer Money\n2. Cash Out\nSend\n", text)
}

func TestExtractText_Labels(t *testing.T) {
	text := dialog.ExtractText(ussdTree(), dialog.WithLabels(), dialog.WithSeparator("|"))
	assert.Equal(t, "MTN Mobile Money|title|1. Transfer Money|2. Cash Out|Send|", text)
}

func TestExtractText_DoesNotMutate(t *testing.T) {
	tree := ussdTree()
	before := *tree
	_ = dialog.ExtractText(tree, dialog.WithLabels())
	assert.Equal(t, before, *tree)
}

func TestExtractText_Nil(t *testing.T) {
	var root *ui.Element
	assert.Empty(t, dialog.ExtractText(root))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		mainMenu bool
		pin      bool
		terminal bool
		success  bool
	}{
		{"1. Transfer Money\n2. Cash Out", true, false, false, false},
		{"Enter PIN:", false, true, false, false},
		{"Enter your password", false, true, false, false},
		{"Shopping list", false, false, false, false},
		{"Transaction successful. Ref: AB12", false, false, true, true},
		{"Transaction failed", false, false, true, false},
		{"An error occurred", false, false, true, false},
		{"Your balance is GHS 20.00", false, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			snap := dialog.Classify(tt.text)
			assert.Equal(t, tt.text, snap.RawText)
			assert.Equal(t, tt.mainMenu, snap.LooksLikeMainMenu, "main menu")
			assert.Equal(t, tt.pin, snap.LooksLikePinPrompt, "pin prompt")
			assert.Equal(t, tt.terminal, snap.LooksLikeTerminal, "terminal")
			assert.Equal(t, tt.success, snap.LooksLikeSuccess, "success")
		})
	}
}

func TestClassify_MismatchAndWrongPIN(t *testing.T) {
	assert.True(t, dialog.Classify("Numbers do not match. Re-enter number").LooksLikeMismatch)
	snap := dialog.Classify("Incorrect PIN. Enter PIN:")
	assert.True(t, snap.LooksLikeWrongPIN)
	assert.True(t, snap.LooksLikePinPrompt)
	assert.False(t, snap.LooksLikeTerminal)
}

func TestIsUSSDDialog(t *testing.T) {
	assert.True(t, dialog.IsUSSDDialog(ussdTree()))

	foreignAlert := &ui.Element{
		ClassName:   "android.app.AlertDialog",
		PackageName: "com.example.chat",
		Nodes:       []ui.Element{{TextValue: "Delete message?"}},
	}
	assert.False(t, dialog.IsUSSDDialog(foreignAlert))

	foreignAlert.Nodes[0].TextValue = "USSD code running..."
	assert.True(t, dialog.IsUSSDDialog(foreignAlert))

	assert.False(t, dialog.IsUSSDDialog(&ui.Element{PackageName: "com.android.launcher"}))
}

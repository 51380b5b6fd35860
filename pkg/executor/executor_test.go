package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/ussdflow/pkg/executor"
	"github.com/aretw0/ussdflow/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	texts  []string
	clicks []string
	err    error
}

func (r *recorder) SetText(ctx context.Context, n ui.Node, text string) error {
	if r.err != nil {
		return r.err
	}
	r.texts = append(r.texts, text)
	return nil
}

func (r *recorder) Click(ctx context.Context, n ui.Node) error {
	if r.err != nil {
		return r.err
	}
	r.clicks = append(r.clicks, n.Text())
	return nil
}

func dialogTree() *ui.Element {
	return &ui.Element{
		ClassName:   "android.app.AlertDialog",
		PackageName: "com.android.phone",
		Nodes: []ui.Element{
			{ClassName: "android.widget.TextView", TextValue: "Enter amount:"},
			{ClassName: "android.widget.EditText", IsClickable: true},
			{ClassName: "android.widget.Button", TextValue: "Cancel", IsClickable: true},
			{ClassName: "android.widget.Button", TextValue: "SEND", IsClickable: true},
		},
	}
}

func TestFindEditable(t *testing.T) {
	n, err := executor.FindEditable(dialogTree())
	require.NoError(t, err)
	assert.Equal(t, "android.widget.EditText", n.Class())

	_, err = executor.FindEditable(&ui.Element{ClassName: "android.widget.TextView"})
	assert.ErrorIs(t, err, executor.ErrControlNotFound)
}

func TestFindClickable(t *testing.T) {
	n, err := executor.FindClickable(dialogTree(), []string{"Send", "OK"})
	require.NoError(t, err)
	assert.Equal(t, "SEND", n.Text())

	_, err = executor.FindClickable(dialogTree(), []string{"Submit"})
	assert.ErrorIs(t, err, executor.ErrControlNotFound)
}

func TestFindClickable_MatchesLabel(t *testing.T) {
	root := &ui.Element{Nodes: []ui.Element{
		{ClassName: "android.widget.ImageButton", ContentDesc: "OK", IsClickable: true},
	}}
	n, err := executor.FindClickable(root, []string{"ok"})
	require.NoError(t, err)
	assert.Equal(t, "OK", n.Label())
}

func TestFindClickable_SkipsNonClickable(t *testing.T) {
	root := &ui.Element{Nodes: []ui.Element{
		{ClassName: "android.widget.TextView", TextValue: "Send"},
	}}
	_, err := executor.FindClickable(root, []string{"Send"})
	assert.ErrorIs(t, err, executor.ErrControlNotFound)
}

func TestInjectAndClick(t *testing.T) {
	r := &recorder{}
	ctx := context.Background()

	require.NoError(t, executor.Inject(ctx, nil, r, dialogTree(), "100"))
	require.NoError(t, executor.Click(ctx, executor.Finder{}, r, dialogTree(), []string{"Send"}))

	assert.Equal(t, []string{"100"}, r.texts)
	assert.Equal(t, []string{"SEND"}, r.clicks)
}

func TestInject_ControlError(t *testing.T) {
	boom := errors.New("device offline")
	r := &recorder{err: boom}

	err := executor.Inject(context.Background(), nil, r, dialogTree(), "100")
	assert.ErrorIs(t, err, boom)
}

func TestClick_NoButton(t *testing.T) {
	r := &recorder{}

	err := executor.Click(context.Background(), nil, r, dialogTree(), []string{"Dismiss"})
	assert.ErrorIs(t, err, executor.ErrControlNotFound)
	assert.Empty(t, r.clicks)
}

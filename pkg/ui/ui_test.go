package ui_test

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `UI hierchary dumped to: /data/local/tmp/view.xml
<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node text="" class="android.widget.FrameLayout" package="com.android.phone" clickable="false" bounds="[0,0][1080,2340]">
    <node text="1. Transfer Money&#10;2. Cash Out" class="android.widget.TextView" package="com.android.phone" content-desc="" bounds="[60,800][1020,1000]" />
    <node text="" class="android.widget.EditText" package="com.android.phone" focusable="true" bounds="[60,1000][1020,1100]" />
    <node text="Cancel" class="android.widget.Button" package="com.android.phone" clickable="true" bounds="[60,1150][500,1250]" />
    <node text="Send" class="android.widget.Button" package="com.android.phone" clickable="true" bounds="[540,1150][1020,1250]" />
  </node>
</hierarchy>`

func TestParseHierarchy(t *testing.T) {
	root, err := ui.ParseHierarchy([]byte(sampleDump))
	require.NoError(t, err)

	assert.Equal(t, "android.widget.FrameLayout", root.Class())
	require.Equal(t, 4, root.ChildCount())
	assert.Equal(t, "1. Transfer Money\n2. Cash Out", root.Child(0).Text())
	assert.True(t, root.Child(1).Editable())
	assert.True(t, root.Child(3).Clickable())
	assert.Nil(t, root.Child(9))
}

func TestParseHierarchy_BareAmpersand(t *testing.T) {
	raw := `<?xml version='1.0'?><hierarchy><node text="Buy Goods & Services" class="x" /></hierarchy>`
	root, err := ui.ParseHierarchy([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Buy Goods & Services", root.Text())
}

func TestParseHierarchy_Empty(t *testing.T) {
	_, err := ui.ParseHierarchy([]byte(`<hierarchy rotation="0"></hierarchy>`))
	assert.ErrorIs(t, err, ui.ErrEmptyHierarchy)
}

func TestParseBounds(t *testing.T) {
	r, err := ui.ParseBounds("[540,1150][1020,1250]")
	require.NoError(t, err)
	x, y := r.Center()
	assert.Equal(t, 780, x)
	assert.Equal(t, 1200, y)

	_, err = ui.ParseBounds("bogus")
	assert.Error(t, err)
}

// cyclicNode links back to its parent to emulate hosts that hand out cyclic graphs.
type cyclicNode struct {
	name     string
	children []*cyclicNode
}

func (n *cyclicNode) Text() string { return n.name }
func (n *cyclicNode) Label() string { return "" }
func (n *cyclicNode) Class() string { return "" }
func (n *cyclicNode) Package() string { return "" }
func (n *cyclicNode) Editable() bool { return false }
func (n *cyclicNode) Clickable() bool { return false }
func (n *cyclicNode) ChildCount() int { return len(n.children) }
func (n *cyclicNode) Child(i int) ui.Node { return n.children[i] }

func TestWalk_TerminatesOnCycles(t *testing.T) {
	root := &cyclicNode{name: "root"}
	a := &cyclicNode{name: "a"}
	b := &cyclicNode{name: "b"}
	root.children = []*cyclicNode{a, b}
	a.children = []*cyclicNode{root, b}

	var order []string
	ui.Walk(root, func(n ui.Node, _ int) bool {
		order = append(order, n.Text())
		return true
	})
	assert.Equal(t, []string{"root", "a", "b"}, order)
}

func TestWalk_RespectsBounds(t *testing.T) {
	// A chain deeper than the limit.
	root := &ui.Element{TextValue: "0"}
	cur := root
	for i := 1; i < 10; i++ {
		cur.Nodes = []ui.Element{{TextValue: "n"}}
		cur = &cur.Nodes[0]
	}

	visited := 0
	ui.Walk(root, func(ui.Node, int) bool {
		visited++
		return true
	}, ui.WithMaxDepth(3))
	assert.Equal(t, 4, visited)

	visited = 0
	ui.Walk(root, func(ui.Node, int) bool {
		visited++
		return true
	}, ui.WithMaxNodes(2))
	assert.Equal(t, 2, visited)
}

func TestFind(t *testing.T) {
	root, err := ui.ParseHierarchy([]byte(sampleDump))
	require.NoError(t, err)

	n, ok := ui.Find(root, func(n ui.Node) bool { return n.Text() == "Send" })
	require.True(t, ok)
	assert.True(t, n.Clickable())

	_, ok = ui.Find(root, func(n ui.Node) bool { return n.Text() == "Nope" })
	assert.False(t, ok)
}

// Package drivertest provides a scripted in-memory driver.Driver for tests.
package drivertest

import (
	"context"
	"fmt"

	"github.com/spigell/quickapply/internal/driver"
)

// Node is a fake page element. It is matched by the selector it is
// registered under, not by evaluating the selector.
type Node struct {
	Sel      string
	Text     string
	Attrs    map[string]string
	Disabled bool
	Children map[string][]*Node
	// OnClick runs after the click is recorded and may rewrite the page.
	OnClick  func(f *Fake)
	ClickErr error
}

func (n *Node) Selector() string { return n.Sel }

// Child registers children under selector and returns n for chaining.
func (n *Node) Child(selector string, children ...*Node) *Node {
	if n.Children == nil {
		n.Children = make(map[string][]*Node)
	}
	for _, c := range children {
		c.Sel = selector
	}
	n.Children[selector] = append(n.Children[selector], children...)
	return n
}

// Fake is a scripted page. Zero value is an empty page.
type Fake struct {
	URL   string
	Nodes map[string][]*Node
	// Heights are returned by successive DocumentHeight calls; the last value repeats.
	Heights []int
	// OnNavigate hooks run when their URL is navigated to.
	OnNavigate map[string]func(f *Fake)
	// Errors makes Locate and LocateAll fail for a selector.
	Errors map[string]error

	Navigations []string
	Clicks      []string
	Typed       []string
	Scrolls     int
	HeightCalls int
	Closed      bool
}

// New returns an empty fake page.
func New() *Fake {
	return &Fake{
		Nodes:      make(map[string][]*Node),
		OnNavigate: make(map[string]func(f *Fake)),
		Errors:     make(map[string]error),
	}
}

// Set replaces the nodes registered under selector. No nodes removes it.
func (f *Fake) Set(selector string, nodes ...*Node) {
	if f.Nodes == nil {
		f.Nodes = make(map[string][]*Node)
	}
	if len(nodes) == 0 {
		delete(f.Nodes, selector)
		return
	}
	for _, n := range nodes {
		n.Sel = selector
	}
	f.Nodes[selector] = nodes
}

// Clear removes every node from the page.
func (f *Fake) Clear() {
	f.Nodes = make(map[string][]*Node)
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.Navigations = append(f.Navigations, url)
	f.URL = url
	if hook, ok := f.OnNavigate[url]; ok {
		hook(f)
	}
	return nil
}

func (f *Fake) Locate(ctx context.Context, selector string, scope driver.Element) (driver.Element, error) {
	nodes, err := f.LocateAll(ctx, selector, scope)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, driver.ErrElementNotFound
	}
	return nodes[0], nil
}

func (f *Fake) LocateAll(_ context.Context, selector string, scope driver.Element) ([]driver.Element, error) {
	if err := f.Errors[selector]; err != nil {
		return nil, err
	}

	var nodes []*Node
	if scope == nil {
		nodes = f.Nodes[selector]
	} else {
		parent, err := node(scope)
		if err != nil {
			return nil, err
		}
		nodes = parent.Children[selector]
	}

	out := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (f *Fake) Click(_ context.Context, el driver.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.ClickErr != nil {
		return n.ClickErr
	}
	f.Clicks = append(f.Clicks, n.Sel)
	if n.OnClick != nil {
		n.OnClick(f)
	}
	return nil
}

func (f *Fake) TypeText(_ context.Context, el driver.Element, text string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	f.Typed = append(f.Typed, n.Sel+"="+text)
	return nil
}

func (f *Fake) ReadText(_ context.Context, el driver.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (f *Fake) ReadAttribute(_ context.Context, el driver.Element, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (f *Fake) IsEnabled(_ context.Context, el driver.Element) (bool, error) {
	n, err := node(el)
	if err != nil {
		return false, err
	}
	return !n.Disabled, nil
}

func (f *Fake) CurrentURL(context.Context) (string, error) {
	return f.URL, nil
}

func (f *Fake) ScrollToBottom(context.Context) error {
	f.Scrolls++
	return nil
}

func (f *Fake) DocumentHeight(context.Context) (int, error) {
	f.HeightCalls++
	if len(f.Heights) == 0 {
		return 0, nil
	}
	idx := f.HeightCalls - 1
	if idx >= len(f.Heights) {
		idx = len(f.Heights) - 1
	}
	return f.Heights[idx], nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// ClickCount returns how many times selector was clicked.
func (f *Fake) ClickCount(selector string) int {
	count := 0
	for _, c := range f.Clicks {
		if c == selector {
			count++
		}
	}
	return count
}

func node(el driver.Element) (*Node, error) {
	n, ok := el.(*Node)
	if !ok {
		return nil, fmt.Errorf("drivertest: foreign element %T", el)
	}
	return n, nil
}

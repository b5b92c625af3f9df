package dialog

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a node in a dialog's element tree. Text nodes have an empty Tag.
type Element struct {
	Tag  string
	Text string

	attrs     map[string]string
	classes   []string
	hidden    bool
	parent    *Element
	children  []*Element
	inner     string
	listeners []*listener
}

// Event is delivered to listeners registered with On.
type Event struct {
	Type   string
	Target *Element
	// Delegate is the element that matched the listener's class filter,
	// or the element the listener is attached to when no filter was given.
	Delegate *Element
}

// Listener handles an element event.
type Listener func(ev *Event)

type listener struct {
	event string
	class string
	fn    Listener
}

// NewElement creates an element with the given tag and classes.
func NewElement(tag string, classes ...string) *Element {
	el := &Element{Tag: tag}
	el.AddClass(classes...)
	return el
}

// NewText creates a text node.
func NewText(text string) *Element {
	return &Element{Text: text}
}

// IsText reports whether e is a text node.
func (e *Element) IsText() bool {
	return e.Tag == ""
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	id, _ := e.Attr("id")
	return id
}

// SetID sets the element's id attribute.
func (e *Element) SetID(id string) {
	e.SetAttr("id", id)
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttr sets the named attribute. Use AddClass for classes.
func (e *Element) SetAttr(name, value string) {
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
}

// HasClass reports whether the element carries class c.
func (e *Element) HasClass(c string) bool {
	for _, have := range e.classes {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass adds classes, skipping empty strings and duplicates.
func (e *Element) AddClass(classes ...string) {
	for _, c := range classes {
		if c == "" || e.HasClass(c) {
			continue
		}
		e.classes = append(e.classes, c)
	}
}

// Classes returns a copy of the element's classes.
func (e *Element) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Hidden reports whether the element is hidden.
func (e *Element) Hidden() bool {
	return e.hidden
}

// SetHidden hides or shows the element without removing it.
func (e *Element) SetHidden(hidden bool) {
	e.hidden = hidden
}

// Parent returns the parent element, nil for roots.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns a copy of the element's children.
func (e *Element) Children() []*Element {
	return append([]*Element(nil), e.children...)
}

// Append adds child as the last child of e, detaching it from any previous parent.
func (e *Element) Append(child *Element) {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	e.inner = ""
}

// RemoveChild detaches child from e.
func (e *Element) RemoveChild(child *Element) bool {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			child.parent = nil
			e.inner = ""
			return true
		}
	}
	return false
}

// SetInnerHTML replaces the element's children with the parsed fragment.
// InnerHTML returns the fragment exactly as given.
func (e *Element) SetInnerHTML(fragment string) {
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		e.Append(NewText(fragment))
	} else {
		for _, n := range nodes {
			if child := fromHTML(n); child != nil {
				e.Append(child)
			}
		}
	}
	e.inner = fragment
}

// InnerHTML returns the last fragment set with SetInnerHTML, or a
// serialisation of the children when the tree was built by hand.
func (e *Element) InnerHTML() string {
	if e.inner != "" || len(e.children) == 0 {
		return e.inner
	}
	var sb strings.Builder
	for _, c := range e.children {
		c.writeHTML(&sb)
	}
	return sb.String()
}

// TextContent returns the concatenated text of e and its descendants.
func (e *Element) TextContent() string {
	if e.IsText() {
		return e.Text
	}
	var sb strings.Builder
	e.Walk(func(n *Element) bool {
		if n.IsText() {
			sb.WriteString(n.Text)
		}
		return true
	})
	return sb.String()
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the node's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.Walk(fn)
	}
}

// Find returns the first element in e's subtree (e included) matching fn.
func (e *Element) Find(fn func(*Element) bool) *Element {
	var found *Element
	e.Walk(func(n *Element) bool {
		if found != nil {
			return false
		}
		if fn(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element in e's subtree matching fn, in document order.
func (e *Element) FindAll(fn func(*Element) bool) []*Element {
	var out []*Element
	e.Walk(func(n *Element) bool {
		if fn(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// QueryClass returns the first descendant carrying class c.
func (e *Element) QueryClass(c string) *Element {
	return e.Find(func(n *Element) bool { return n.HasClass(c) })
}

// Closest returns the nearest element from e up to and including stop that
// carries class c.
func (e *Element) Closest(c string, stop *Element) *Element {
	for n := e; n != nil; n = n.parent {
		if n.HasClass(c) {
			return n
		}
		if n == stop {
			break
		}
	}
	return nil
}

// On registers fn for event on e. With a non-empty class the listener only
// fires for events whose target sits inside a descendant carrying that class.
// The returned func removes the listener.
func (e *Element) On(event, class string, fn Listener) func() {
	l := &listener{event: event, class: class, fn: fn}
	e.listeners = append(e.listeners, l)
	return func() {
		for i, have := range e.listeners {
			if have == l {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch fires event at e and bubbles it up through its ancestors.
func (e *Element) Dispatch(event string) {
	for cur := e; cur != nil; cur = cur.parent {
		// Listeners may remove themselves while running.
		for _, l := range append([]*listener(nil), cur.listeners...) {
			if l.event != event {
				continue
			}
			ev := &Event{Type: event, Target: e, Delegate: cur}
			if l.class != "" {
				match := delegateMatch(e, cur, l.class)
				if match == nil {
					continue
				}
				ev.Delegate = match
			}
			l.fn(ev)
		}
	}
}

func delegateMatch(target, current *Element, class string) *Element {
	for n := target; n != nil && n != current; n = n.parent {
		if n.HasClass(class) {
			return n
		}
	}
	return nil
}

func fromHTML(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		return NewText(n.Data)
	case html.ElementNode:
		el := NewElement(n.Data)
		for _, a := range n.Attr {
			if a.Key == "class" {
				el.AddClass(strings.Fields(a.Val)...)
				continue
			}
			el.SetAttr(a.Key, a.Val)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTML(c); child != nil {
				el.Append(child)
			}
		}
		return el
	}
	return nil
}

func (e *Element) writeHTML(sb *strings.Builder) {
	if e.IsText() {
		sb.WriteString(html.EscapeString(e.Text))
		return
	}
	sb.WriteString("<" + e.Tag)
	if len(e.classes) > 0 {
		sb.WriteString(` class="` + html.EscapeString(strings.Join(e.classes, " ")) + `"`)
	}
	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" " + k + `="` + html.EscapeString(e.attrs[k]) + `"`)
	}
	sb.WriteString(">")
	if e.inner != "" {
		sb.WriteString(e.inner)
	} else {
		for _, c := range e.children {
			c.writeHTML(sb)
		}
	}
	sb.WriteString("</" + e.Tag + ">")
}

package dialog

import (
	"fmt"
	"html"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// DefaultContainerClass is used when a Spec leaves ContainerClass empty.
// The overlay toolkit animates roots carrying the "fade" class.
const DefaultContainerClass = "fade"

// lastID is shared by every manager in the process so ids are never reused.
var lastID atomic.Uint64

// State is the lifecycle position of an Instance.
type State int

const (
	StateUncreated State = iota
	StateVisible
	StateHidden
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	case StateDisposed:
		return "disposed"
	}
	return "uncreated"
}

// Spec describes one dialog's content and behaviour. Title, Body and Footer
// are HTML fragments; an empty fragment hides its slot.
type Spec struct {
	Title  string
	Body   string
	Footer string

	DialogClass    string
	ContainerClass string
	Options        Options

	OnCreate  func(*Instance)
	OnDispose func(*Instance)

	// Confirm dialogs only.
	OnSubmit  func(confirmed bool)
	TextTrue  string
	TextFalse string
}

// Manager constructs dialog instances and routes toolkit events to them.
type Manager struct {
	doc       *Document
	toolkit   Toolkit
	log       logrus.FieldLogger
	queue     []tea.Cmd
	instances []*Instance
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDocument attaches dialogs to doc instead of a private document.
func WithDocument(doc *Document) ManagerOption {
	return func(m *Manager) {
		m.doc = doc
	}
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(log logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a manager presenting dialogs through tk.
func NewManager(tk Toolkit, opts ...ManagerOption) *Manager {
	m := &Manager{
		doc:     NewDocument(),
		toolkit: tk,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Document returns the document dialogs are attached to.
func (m *Manager) Document() *Document {
	return m.doc
}

// Instances returns the live (not disposed) instances, oldest first.
func (m *Manager) Instances() []*Instance {
	return append([]*Instance(nil), m.instances...)
}

// Modal reports whether a displayed dialog blocks the page.
func (m *Manager) Modal() bool {
	return m.toolkit.Modal()
}

// Construct creates an instance for spec and shows it. The instance keeps
// spec by reference.
func (m *Manager) Construct(spec *Spec) (*Instance, tea.Cmd, error) {
	if spec == nil {
		return nil, nil, ErrNilSpec
	}
	inst := &Instance{
		id:   lastID.Add(1),
		spec: spec,
		mgr:  m,
	}
	m.instances = append(m.instances, inst)
	return inst, inst.Show(), nil
}

// ShowModal constructs a plain dialog.
func (m *Manager) ShowModal(spec *Spec) (*Instance, tea.Cmd, error) {
	return m.Construct(spec)
}

// ShowAlert constructs a dialog whose footer holds a single OK button that
// dismisses it. spec itself is not modified.
func (m *Manager) ShowAlert(spec *Spec) (*Instance, tea.Cmd, error) {
	if spec == nil {
		return nil, nil, ErrNilSpec
	}
	s := *spec
	s.Footer = `<button type="button" class="btn btn-primary" data-dismiss="modal">OK</button>`
	return m.Construct(&s)
}

// ShowConfirm constructs a yes/no dialog. OnSubmit receives true for the
// TextTrue button and false for the TextFalse button, at most once.
func (m *Manager) ShowConfirm(spec *Spec) (*Instance, tea.Cmd, error) {
	if spec == nil {
		return nil, nil, ErrNilSpec
	}
	switch {
	case spec.TextTrue == "":
		return nil, nil, &ConfigError{Constructor: "confirm", Field: "TextTrue"}
	case spec.TextFalse == "":
		return nil, nil, &ConfigError{Constructor: "confirm", Field: "TextFalse"}
	case spec.OnSubmit == nil:
		return nil, nil, &ConfigError{Constructor: "confirm", Field: "OnSubmit"}
	}

	s := *spec
	s.Footer = `<button class="btn btn-secondary btn-false">` + html.EscapeString(s.TextFalse) + `</button>` +
		`<button class="btn btn-primary btn-true">` + html.EscapeString(s.TextTrue) + `</button>`
	onCreate := spec.OnCreate
	s.OnCreate = func(inst *Instance) {
		submitted := false
		inst.Listen("click", "btn", func(ev *Event) {
			if submitted {
				return
			}
			submitted = true
			m.enqueue(inst.Hide())
			inst.spec.OnSubmit(ev.Delegate.HasClass("btn-true"))
		})
		if onCreate != nil {
			onCreate(inst)
		}
	}
	return m.Construct(&s)
}

// Update feeds msg to the toolkit and returns any follow-up commands,
// including those queued by dialog callbacks. The bool reports whether a
// dialog consumed msg.
func (m *Manager) Update(msg tea.Msg) (tea.Cmd, bool) {
	cmd, handled := m.toolkit.Update(msg)
	return tea.Batch(cmd, m.Flush()), handled
}

// View draws the displayed dialogs over background.
func (m *Manager) View(background string, width, height int) string {
	return m.toolkit.View(background, width, height)
}

// Post queues msg for delivery with the next Update or Flush. Dialog
// callbacks use it to talk back to the program.
func (m *Manager) Post(msg tea.Msg) {
	m.enqueue(func() tea.Msg { return msg })
}

// Flush returns and clears the queued commands.
func (m *Manager) Flush() tea.Cmd {
	if len(m.queue) == 0 {
		return nil
	}
	cmds := m.queue
	m.queue = nil
	return tea.Batch(cmds...)
}

func (m *Manager) enqueue(cmd tea.Cmd) {
	if cmd != nil {
		m.queue = append(m.queue, cmd)
	}
}

func (m *Manager) forget(inst *Instance) {
	for i, have := range m.instances {
		if have == inst {
			m.instances = append(m.instances[:i], m.instances[i+1:]...)
			return
		}
	}
}

// Instance is one live dialog bound to one element subtree.
type Instance struct {
	id    uint64
	spec  *Spec
	mgr   *Manager
	state State

	root   *Element
	title  *Element
	body   *Element
	footer *Element

	unlisten []func()
}

// ID returns the process-unique instance id.
func (i *Instance) ID() uint64 {
	return i.id
}

// ElementID returns the id attribute of the instance's root element.
func (i *Instance) ElementID() string {
	return fmt.Sprintf("dialog-%d", i.id)
}

// Spec returns the spec the instance was built from.
func (i *Instance) Spec() *Spec {
	return i.spec
}

// State returns the lifecycle state.
func (i *Instance) State() State {
	return i.state
}

// Root returns the subtree root, nil once disposed.
func (i *Instance) Root() *Element { return i.root }

// TitleSlot returns the title element, nil once disposed.
func (i *Instance) TitleSlot() *Element { return i.title }

// BodySlot returns the body element, nil once disposed.
func (i *Instance) BodySlot() *Element { return i.body }

// FooterSlot returns the footer element, nil once disposed.
func (i *Instance) FooterSlot() *Element { return i.footer }

// Manager returns the manager that built the instance.
func (i *Instance) Manager() *Manager { return i.mgr }

// Listen registers a listener on the instance root that is removed when the
// instance is disposed.
func (i *Instance) Listen(event, class string, fn Listener) {
	if i.root == nil {
		return
	}
	i.unlisten = append(i.unlisten, i.root.On(event, class, fn))
}

// Show displays the dialog, creating its subtree on first use, and syncs
// each slot with the spec. Showing a disposed instance does nothing.
func (i *Instance) Show() tea.Cmd {
	if i.state == StateDisposed {
		i.mgr.log.WithField("dialog", i.ElementID()).Warn("show called on disposed dialog")
		return nil
	}
	var cmd tea.Cmd
	if i.root == nil {
		cmd = i.create()
	} else {
		cmd = i.mgr.toolkit.Show(i.root)
	}
	i.state = StateVisible

	fill(i.title, i.spec.Title)
	fill(i.body, i.spec.Body)
	fill(i.footer, i.spec.Footer)
	return cmd
}

// Hide asks the toolkit to hide the dialog. The subtree survives until the
// toolkit reports it fully hidden, at which point the instance is disposed.
func (i *Instance) Hide() tea.Cmd {
	if i.state == StateDisposed {
		i.mgr.log.WithField("dialog", i.ElementID()).Warn("hide called on disposed dialog")
		return nil
	}
	if i.root == nil {
		return nil
	}
	i.state = StateHidden
	return i.mgr.toolkit.Hide(i.root)
}

// Dispose tears the dialog down immediately and runs OnDispose. Further
// calls are ignored.
func (i *Instance) Dispose() {
	if i.state == StateDisposed {
		return
	}
	i.state = StateDisposed
	for _, off := range i.unlisten {
		off()
	}
	i.unlisten = nil
	if i.root != nil {
		i.mgr.toolkit.Dispose(i.root)
		i.mgr.doc.Remove(i.root)
	}
	i.root, i.title, i.body, i.footer = nil, nil, nil, nil
	i.mgr.forget(i)
	i.mgr.log.WithField("dialog", i.ElementID()).Debug("dialog disposed")

	if i.spec.OnDispose != nil {
		i.spec.OnDispose(i)
	}
}

func (i *Instance) create() tea.Cmd {
	spec := i.spec
	container := spec.ContainerClass
	if container == "" {
		container = DefaultContainerClass
	}

	root := NewElement("div", "modal")
	root.AddClass(strings.Fields(container)...)
	root.SetID(i.ElementID())
	root.SetAttr("tabindex", "-1")
	root.SetAttr("role", "dialog")
	root.SetAttr("aria-labelledby", i.ElementID())

	dlg := NewElement("div", "modal-dialog", spec.Options.Size.Class())
	dlg.AddClass(strings.Fields(spec.DialogClass)...)
	dlg.SetAttr("role", "document")
	content := NewElement("div", "modal-content")

	header := NewElement("div", "modal-header")
	title := NewElement("h5", "modal-title")
	closeBtn := NewElement("button", "close")
	closeBtn.SetAttr("type", "button")
	closeBtn.SetAttr("data-dismiss", "modal")
	closeBtn.SetAttr("aria-label", "Close")
	closeBtn.Append(NewText("×"))
	header.Append(title)
	header.Append(closeBtn)

	body := NewElement("div", "modal-body")
	footer := NewElement("div", "modal-footer")

	content.Append(header)
	content.Append(body)
	content.Append(footer)
	dlg.Append(content)
	root.Append(dlg)

	i.root, i.title, i.body, i.footer = root, title, body, footer
	i.mgr.doc.Append(root)

	// Any element marked data-dismiss closes the dialog.
	i.Listen("click", "", func(ev *Event) {
		for n := ev.Target; n != nil; n = n.Parent() {
			if v, ok := n.Attr("data-dismiss"); ok && v == "modal" {
				i.mgr.enqueue(i.Hide())
				return
			}
		}
	})
	i.mgr.toolkit.OnHidden(root, i.Dispose)

	if spec.OnCreate != nil {
		spec.OnCreate(i)
	}
	i.mgr.log.WithFields(logrus.Fields{
		"dialog":   i.ElementID(),
		"backdrop": spec.Options.Backdrop.String(),
	}).Debug("dialog created")

	return i.mgr.toolkit.Mount(root, spec.Options)
}

func fill(slot *Element, fragment string) {
	if slot == nil {
		return
	}
	if fragment == "" {
		slot.SetHidden(true)
		return
	}
	slot.SetHidden(false)
	slot.SetInnerHTML(fragment)
}

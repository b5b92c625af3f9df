package dialog

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus"
)

// DefaultFade is how long a "fade" dialog spends between shown and hidden.
const DefaultFade = 150 * time.Millisecond

type phase int

const (
	phaseHidden phase = iota
	phaseShowing
	phaseShown
	phaseHiding
)

// transitionMsg completes a show or hide. Messages whose generation no
// longer matches the presentation are stale and dropped.
type transitionMsg struct {
	root  *Element
	gen   int
	shown bool
}

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

type hit struct {
	el     *Element
	x0, x1 int
	y      int
	button int // index into the footer buttons, -1 for header controls
}

type presentation struct {
	root     *Element
	opts     Options
	mounted  bool
	phase    phase
	gen      int
	onHidden []func()

	focus int
	vp    viewport.Model
	box   rect
	hits  []hit
}

func (p *presentation) active() bool {
	return p.mounted && (p.phase == phaseShowing || p.phase == phaseShown)
}

func (p *presentation) drawn() bool {
	return p.mounted && p.phase != phaseHidden
}

// Overlay is a Toolkit that draws dialogs as bordered boxes composited over
// the page view of a Bubble Tea program.
type Overlay struct {
	theme  Theme
	fade   time.Duration
	width  int
	height int
	log    logrus.FieldLogger

	pres  map[*Element]*presentation
	order []*Element
	md    *markdownCache
}

// OverlayOption configures an Overlay.
type OverlayOption func(*Overlay)

// WithTheme sets the overlay colours.
func WithTheme(t Theme) OverlayOption {
	return func(o *Overlay) { o.theme = t }
}

// WithFade sets the transition duration for "fade" dialogs. Zero makes every
// transition complete on the next update.
func WithFade(d time.Duration) OverlayOption {
	return func(o *Overlay) { o.fade = d }
}

// WithOverlayLogger sets the logger for presentation diagnostics.
func WithOverlayLogger(log logrus.FieldLogger) OverlayOption {
	return func(o *Overlay) { o.log = log }
}

// NewOverlay creates an overlay toolkit.
func NewOverlay(opts ...OverlayOption) *Overlay {
	o := &Overlay{
		theme: DefaultTheme(),
		fade:  DefaultFade,
		log:   logrus.StandardLogger(),
		pres:  make(map[*Element]*presentation),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.md = newMarkdownCache(o.theme.Markdown)
	return o
}

// SetTheme swaps colours for subsequent renders.
func (o *Overlay) SetTheme(t Theme) {
	o.theme = t
	o.md = newMarkdownCache(t.Markdown)
}

// SetSize records the screen size used when View is called without one.
func (o *Overlay) SetSize(width, height int) {
	o.width, o.height = width, height
}

func (o *Overlay) state(root *Element) *presentation {
	p, ok := o.pres[root]
	if !ok {
		p = &presentation{root: root, vp: viewport.New(0, 0)}
		o.pres[root] = p
	}
	return p
}

func (o *Overlay) Mount(root *Element, opts Options) tea.Cmd {
	p := o.state(root)
	p.opts = opts
	if !p.mounted {
		p.mounted = true
		o.order = append(o.order, root)
	}
	return o.Show(root)
}

func (o *Overlay) Show(root *Element) tea.Cmd {
	p, ok := o.pres[root]
	if !ok || !p.mounted {
		return nil
	}
	if p.phase == phaseShown || p.phase == phaseShowing {
		return nil
	}
	p.gen++
	p.phase = phaseShowing
	p.focus = 0
	return o.transition(root, p.gen, true)
}

func (o *Overlay) Hide(root *Element) tea.Cmd {
	p, ok := o.pres[root]
	if !ok || !p.mounted {
		return nil
	}
	if p.phase == phaseHidden || p.phase == phaseHiding {
		return nil
	}
	p.gen++
	p.phase = phaseHiding
	return o.transition(root, p.gen, false)
}

func (o *Overlay) Dispose(root *Element) {
	delete(o.pres, root)
	for i, r := range o.order {
		if r == root {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *Overlay) OnHidden(root *Element, fn func()) {
	p := o.state(root)
	p.onHidden = append(p.onHidden, fn)
}

func (o *Overlay) transition(root *Element, gen int, shown bool) tea.Cmd {
	msg := transitionMsg{root: root, gen: gen, shown: shown}
	if o.fade <= 0 || !root.HasClass("fade") {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(o.fade, func(time.Time) tea.Msg { return msg })
}

// Modal reports whether an active dialog blocks the page.
func (o *Overlay) Modal() bool {
	for _, root := range o.order {
		if p := o.pres[root]; p != nil && p.active() && p.opts.Modal() {
			return true
		}
	}
	return false
}

// top returns the most recently mounted dialog still accepting input.
func (o *Overlay) top() *presentation {
	for i := len(o.order) - 1; i >= 0; i-- {
		if p := o.pres[o.order[i]]; p != nil && p.active() {
			return p
		}
	}
	return nil
}

// topModal returns the most recently mounted active modal dialog.
func (o *Overlay) topModal() *presentation {
	for i := len(o.order) - 1; i >= 0; i-- {
		if p := o.pres[o.order[i]]; p != nil && p.active() && p.opts.Modal() {
			return p
		}
	}
	return nil
}

func (o *Overlay) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case transitionMsg:
		p, ok := o.pres[msg.root]
		if !ok || msg.gen != p.gen {
			return nil, true
		}
		if msg.shown {
			p.phase = phaseShown
			return nil, true
		}
		p.phase = phaseHidden
		handlers := append([]func(){}, p.onHidden...)
		for _, fn := range handlers {
			fn()
		}
		return nil, true

	case tea.WindowSizeMsg:
		o.SetSize(msg.Width, msg.Height)
		return nil, false

	case tea.KeyMsg:
		if p := o.top(); p != nil {
			return o.handleKey(p, msg)
		}

	case tea.MouseMsg:
		if p := o.top(); p != nil {
			return o.handleMouse(p, msg)
		}
	}
	return nil, false
}

func (o *Overlay) handleKey(p *presentation, msg tea.KeyMsg) (tea.Cmd, bool) {
	modal := p.opts.Modal()
	key := msg.String()
	if key == "esc" {
		if p.opts.Keyboard.Enabled() {
			return o.Hide(p.root), true
		}
		return nil, true
	}
	if !modal {
		// A non-modal popup over a modal dialog hands everything but esc
		// to the modal one; the page stays blocked.
		if below := o.topModal(); below != nil {
			return o.handleKey(below, msg)
		}
		return nil, false
	}

	buttons := visibleButtons(p.root.QueryClass("modal-footer"))
	switch key {
	case "tab", "right":
		if len(buttons) > 0 {
			p.focus = (p.focus + 1) % len(buttons)
		}
	case "shift+tab", "left":
		if len(buttons) > 0 {
			p.focus = (p.focus - 1 + len(buttons)) % len(buttons)
		}
	case "enter", " ", "space":
		if len(buttons) > 0 {
			buttons[min(p.focus, len(buttons)-1)].Dispatch("click")
		}
	case "up":
		p.vp.LineUp(1)
	case "down":
		p.vp.LineDown(1)
	case "pgup":
		p.vp.ViewUp()
	case "pgdown":
		p.vp.ViewDown()
	case "home":
		p.vp.GotoTop()
	case "end":
		p.vp.GotoBottom()
	}
	return nil, true
}

func (o *Overlay) handleMouse(p *presentation, msg tea.MouseMsg) (tea.Cmd, bool) {
	// Outside the top dialog the page is still blocked by any modal below.
	modal := p.opts.Modal() || o.Modal()
	inside := p.box.contains(msg.X, msg.Y)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if inside {
			p.vp.LineUp(3)
			return nil, true
		}
		return nil, modal
	case tea.MouseButtonWheelDown:
		if inside {
			p.vp.LineDown(3)
			return nil, true
		}
		return nil, modal
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil, modal || inside
	}
	for _, h := range p.hits {
		if msg.Y == h.y && msg.X >= h.x0 && msg.X < h.x1 {
			if h.button >= 0 {
				p.focus = h.button
			}
			h.el.Dispatch("click")
			return nil, true
		}
	}
	if inside {
		return nil, true
	}
	if p.opts.Backdrop == BackdropDismiss {
		return o.Hide(p.root), true
	}
	return nil, modal
}

// View composites every drawn dialog over background, oldest at the bottom.
// A modal dialog dims the page behind it.
func (o *Overlay) View(background string, width, height int) string {
	if width <= 0 {
		width = o.width
	}
	if height <= 0 {
		height = o.height
	}
	var drawn []*presentation
	dim := false
	for _, root := range o.order {
		if p := o.pres[root]; p != nil && p.drawn() {
			drawn = append(drawn, p)
			dim = dim || p.opts.Modal()
		}
	}
	if len(drawn) == 0 || width <= 0 || height <= 0 {
		return background
	}

	out := background
	if dim {
		out = dimBackground(background, width, height, o.theme)
	}
	for _, p := range drawn {
		lines := o.layout(p, width, height)
		if p.phase != phaseShown && p.root.HasClass("fade") && o.fade > 0 {
			lines = fadeLines(lines, o.theme)
		}
		out = placeOverlay(p.box.x, p.box.y, lines, out, height)
	}
	return out
}

// layout renders p's box and records its geometry and hit regions.
func (o *Overlay) layout(p *presentation, width, height int) []string {
	root := p.root
	boxW := p.opts.Size.Columns()
	if w, ok := p.opts.Dimension("width", width); ok {
		boxW = w
	}
	boxW = max(min(boxW, width-2), 12)
	cw := boxW - 4

	type row struct {
		text    string
		regions []buttonRegion
		close   *Element
	}
	var header, footer []row

	if h := root.QueryClass("modal-header"); h != nil && !h.Hidden() {
		title := ""
		if t := h.QueryClass("modal-title"); t != nil && !t.Hidden() {
			title = strings.Join(strings.Fields(t.TextContent()), " ")
		}
		closeBtn := h.QueryClass("close")
		closeW := 0
		if closeBtn != nil && !closeBtn.Hidden() {
			closeW = 2
		}
		line := o.theme.titleStyle().Render(ansi.Truncate(title, cw-closeW, "…"))
		if closeW > 0 {
			pad := max(0, cw-ansi.StringWidth(line)-1)
			line += strings.Repeat(" ", pad) + o.theme.mutedStyle().Render("×")
		}
		header = append(header, row{text: line, close: closeBtn})
		header = append(header, row{text: o.theme.mutedStyle().Render(strings.Repeat("─", cw))})
	}

	if f := root.QueryClass("modal-footer"); f != nil && !f.Hidden() {
		footer = append(footer, row{text: o.theme.mutedStyle().Render(strings.Repeat("─", cw))})
		if buttons := visibleButtons(f); len(buttons) > 0 {
			p.focus = min(p.focus, len(buttons)-1)
			text, regions := renderButtons(buttons, p.focus, cw, o.theme)
			footer = append(footer, row{text: text, regions: regions})
		} else {
			for _, line := range renderElement(f, cw, o.theme, o.md) {
				footer = append(footer, row{text: line})
			}
		}
	}

	var bodyLines []string
	if b := root.QueryClass("modal-body"); b != nil && !b.Hidden() {
		bodyLines = renderElement(b, cw, o.theme, o.md)
	}

	limit := height - 2
	fixed := false
	if h, ok := p.opts.Dimension("height", height); ok {
		limit, fixed = h, true
	} else if h, ok := p.opts.Dimension("maxHeight", height); ok {
		limit = h
	}
	limit = min(limit, height)
	chrome := 2 + len(header) + len(footer)
	bodyH := len(bodyLines)
	if fixed || bodyH > limit-chrome {
		bodyH = limit - chrome
	}
	bodyH = max(bodyH, 0)
	if bodyH == 0 && len(bodyLines) > 0 {
		bodyH = 1
	}

	rows := append([]row{}, header...)
	if bodyH > 0 {
		p.vp.Width = cw
		p.vp.Height = bodyH
		p.vp.SetContent(strings.Join(bodyLines, "\n"))
		view := strings.Split(p.vp.View(), "\n")
		for i := 0; i < bodyH; i++ {
			line := ""
			if i < len(view) {
				line = view[i]
			}
			rows = append(rows, row{text: line})
		}
	}
	rows = append(rows, footer...)

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.text
	}
	box := o.theme.boxStyle().Width(cw + 2).Render(strings.Join(texts, "\n"))
	lines := strings.Split(box, "\n")
	boxW = 0
	for _, l := range lines {
		boxW = max(boxW, ansi.StringWidth(l))
	}

	x := max(0, (width-boxW)/2)
	y := max(0, (height-len(lines))/2)
	if top, ok := p.opts.Dimension("top", height); ok {
		y = max(0, min(top, height-len(lines)))
	}
	p.box = rect{x: x, y: y, w: boxW, h: len(lines)}

	p.hits = p.hits[:0]
	for i, r := range rows {
		rowY := y + 1 + i
		if r.close != nil {
			p.hits = append(p.hits, hit{el: r.close, x0: x + 2 + cw - 1, x1: x + 2 + cw, y: rowY, button: -1})
		}
		for j, reg := range r.regions {
			p.hits = append(p.hits, hit{el: reg.el, x0: x + 2 + reg.start, x1: x + 2 + reg.end, y: rowY, button: j})
		}
	}
	return lines
}

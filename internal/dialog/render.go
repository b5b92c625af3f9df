package dialog

import (
	"strings"

	"github.com/charmbracelet/glamour"
	gansi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// blockTags start a new line before and after their content.
var blockTags = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "ul": true, "ol": true, "li": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "form": true,
}

// maxCachedMarkdown bounds the rendered markdown kept by a cache.
const maxCachedMarkdown = 64

type markdownKey struct {
	src   string
	width int
}

// markdownCache keeps glamour renderers per wrap width and their output per
// source, so redrawing an open dialog does not render again. It belongs to
// one theme; the overlay replaces it when the theme changes.
type markdownCache struct {
	style     gansi.StyleConfig
	renderers map[int]*glamour.TermRenderer
	out       map[markdownKey]string
	builds    int // renderers constructed
}

func newMarkdownCache(style gansi.StyleConfig) *markdownCache {
	return &markdownCache{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		out:       make(map[markdownKey]string),
	}
}

func (c *markdownCache) render(src string, width int) (string, error) {
	k := markdownKey{src: src, width: width}
	if out, ok := c.out[k]; ok {
		return out, nil
	}
	tr, ok := c.renderers[width]
	if !ok {
		var err error
		tr, err = glamour.NewTermRenderer(
			glamour.WithStyles(c.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		c.renderers[width] = tr
		c.builds++
	}
	out, err := tr.Render(src)
	if err != nil {
		return "", err
	}
	out = strings.Trim(out, "\n")
	if len(c.out) >= maxCachedMarkdown {
		clear(c.out)
	}
	c.out[k] = out
	return out, nil
}

// renderer flattens an element subtree into styled terminal lines.
type renderer struct {
	theme Theme
	width int
	md    *markdownCache

	paras []paragraph
	cur   strings.Builder
	space bool // cur ends in whitespace
	pre   int
}

type paragraph struct {
	text string
	raw  bool // already laid out, do not wrap
}

// renderElement renders el's children wrapped to width.
// md may be nil, in which case markdown is rendered uncached.
func renderElement(el *Element, width int, theme Theme, md *markdownCache) []string {
	if el == nil || el.Hidden() || width <= 0 {
		return nil
	}
	if md == nil {
		md = newMarkdownCache(theme.Markdown)
	}
	r := &renderer{theme: theme, width: width, md: md}
	for _, c := range el.Children() {
		r.walk(c, lipgloss.NewStyle())
	}
	r.flush()

	var lines []string
	for _, p := range r.paras {
		text := p.text
		if !p.raw {
			text = ansi.Wrap(text, width, "")
		}
		for _, line := range strings.Split(text, "\n") {
			if p.raw {
				line = ansi.Truncate(line, width, "")
			}
			lines = append(lines, line)
		}
	}
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (r *renderer) walk(n *Element, style lipgloss.Style) {
	if n.Hidden() {
		return
	}
	if n.IsText() {
		r.text(n.Text, style)
		return
	}
	if n.HasClass("markdown") {
		r.flush()
		r.markdown(n.TextContent())
		return
	}

	switch n.Tag {
	case "script", "style", "template":
		return
	case "br":
		r.flushKeepEmpty()
		return
	case "hr":
		r.flush()
		r.paras = append(r.paras, paragraph{text: r.theme.mutedStyle().Render(strings.Repeat("─", r.width)), raw: true})
		return
	case "a":
		style = style.Underline(true).Foreground(r.theme.Link)
	case "b", "strong":
		style = style.Bold(true)
	case "i", "em":
		style = style.Italic(true)
	case "code", "kbd":
		style = style.Foreground(r.theme.Code)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		style = style.Bold(true).Foreground(r.theme.Accent)
	case "button":
		style = r.theme.buttonStyle(false)
	}

	block := blockTags[n.Tag]
	if block {
		r.flush()
	}
	if n.Tag == "li" {
		r.cur.WriteString("• ")
		r.space = true
	}
	if n.Tag == "pre" {
		r.pre++
	}
	for _, c := range n.Children() {
		r.walk(c, style)
	}
	if n.Tag == "pre" {
		r.pre--
		r.flushRaw()
		return
	}
	if block {
		r.flush()
	}
}

func (r *renderer) text(s string, style lipgloss.Style) {
	if r.pre > 0 {
		r.cur.WriteString(style.Render(s))
		return
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" && r.cur.Len() > 0 {
			r.space = true
		}
		return
	}
	leading := s[0] == ' ' || s[0] == '\n' || s[0] == '\t'
	if (leading || r.space) && r.cur.Len() > 0 && !strings.HasSuffix(r.cur.String(), " ") {
		r.cur.WriteString(" ")
	}
	r.cur.WriteString(style.Render(strings.Join(words, " ")))
	last := s[len(s)-1]
	r.space = last == ' ' || last == '\n' || last == '\t'
}

func (r *renderer) markdown(src string) {
	out, err := r.md.render(src, r.width)
	if err != nil {
		r.paras = append(r.paras, paragraph{text: src})
		return
	}
	r.paras = append(r.paras, paragraph{text: out, raw: true})
}

func (r *renderer) flush() {
	if r.cur.Len() == 0 {
		return
	}
	r.flushKeepEmpty()
}

func (r *renderer) flushKeepEmpty() {
	r.paras = append(r.paras, paragraph{text: strings.TrimRight(r.cur.String(), " ")})
	r.cur.Reset()
	r.space = false
}

func (r *renderer) flushRaw() {
	text := strings.TrimRight(r.cur.String(), "\n")
	r.cur.Reset()
	r.space = false
	r.paras = append(r.paras, paragraph{text: text, raw: true})
}

// buttonRegion is a clickable span on one rendered line, in cells relative
// to the start of that line.
type buttonRegion struct {
	el         *Element
	start, end int
}

// renderButtons lays the visible buttons under el out on one right aligned
// row of the given width.
func renderButtons(buttons []*Element, focus, width int, theme Theme) (string, []buttonRegion) {
	if len(buttons) == 0 {
		return "", nil
	}
	parts := make([]string, len(buttons))
	widths := make([]int, len(buttons))
	total := 0
	for i, b := range buttons {
		label := strings.Join(strings.Fields(b.TextContent()), " ")
		parts[i] = theme.buttonStyle(i == focus).Render(label)
		widths[i] = ansi.StringWidth(parts[i])
		total += widths[i]
	}
	total += len(buttons) - 1

	offset := max(0, width-total)
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", offset))
	regions := make([]buttonRegion, len(buttons))
	x := offset
	for i, part := range parts {
		if i > 0 {
			sb.WriteString(" ")
			x++
		}
		sb.WriteString(part)
		regions[i] = buttonRegion{el: buttons[i], start: x, end: x + widths[i]}
		x += widths[i]
	}
	return ansi.Truncate(sb.String(), width, ""), regions
}

// visibleButtons returns the buttons under el in document order.
func visibleButtons(el *Element) []*Element {
	if el == nil || el.Hidden() {
		return nil
	}
	return el.FindAll(func(n *Element) bool {
		return n.Tag == "button" && !hiddenWithin(n, el)
	})
}

func hiddenWithin(n, stop *Element) bool {
	for ; n != nil; n = n.Parent() {
		if n.Hidden() {
			return true
		}
		if n == stop {
			break
		}
	}
	return false
}

package dialog

// Document is the attachment point shared by every dialog subtree. Roots are
// kept in append order, which is also their stacking order.
type Document struct {
	roots []*Element
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Append attaches root on top of the stack.
func (d *Document) Append(root *Element) {
	if d.Contains(root) {
		return
	}
	d.roots = append(d.roots, root)
}

// Remove detaches root. It reports whether root was attached.
func (d *Document) Remove(root *Element) bool {
	for i, r := range d.roots {
		if r == root {
			d.roots = append(d.roots[:i], d.roots[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether root is attached.
func (d *Document) Contains(root *Element) bool {
	for _, r := range d.roots {
		if r == root {
			return true
		}
	}
	return false
}

// Roots returns the attached roots, bottom first.
func (d *Document) Roots() []*Element {
	return append([]*Element(nil), d.roots...)
}

// Len returns the number of attached roots.
func (d *Document) Len() int {
	return len(d.roots)
}

// GetElementByID searches every attached subtree for id.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	for _, r := range d.roots {
		if el := r.Find(func(n *Element) bool { return n.ID() == id }); el != nil {
			return el
		}
	}
	return nil
}

package dialog

import (
	"fmt"
	"strconv"
	"strings"
)

// Backdrop controls the layer drawn behind a dialog.
type Backdrop int

const (
	// BackdropDismiss dims the page and hides the dialog on an outside click.
	BackdropDismiss Backdrop = iota
	// BackdropStatic dims the page and ignores outside clicks.
	BackdropStatic
	// BackdropNone leaves the page interactive; the dialog is non-modal.
	BackdropNone
)

func (b Backdrop) String() string {
	switch b {
	case BackdropStatic:
		return "static"
	case BackdropNone:
		return "none"
	default:
		return "dismiss"
	}
}

// Keyboard controls whether esc hides the dialog.
type Keyboard int

const (
	KeyboardDefault Keyboard = iota // enabled
	KeyboardEnabled
	KeyboardDisabled
)

// Enabled reports whether esc dismisses the dialog.
func (k Keyboard) Enabled() bool {
	return k != KeyboardDisabled
}

// Size selects a preset dialog width.
type Size int

const (
	SizeDefault Size = iota
	SizeSmall
	SizeLarge
	SizeExtraLarge
)

// Class returns the size class added to the dialog element.
func (s Size) Class() string {
	switch s {
	case SizeSmall:
		return "modal-sm"
	case SizeLarge:
		return "modal-lg"
	case SizeExtraLarge:
		return "modal-xl"
	}
	return ""
}

// Columns returns the preset width in terminal columns.
func (s Size) Columns() int {
	switch s {
	case SizeSmall:
		return 36
	case SizeLarge:
		return 80
	case SizeExtraLarge:
		return 110
	}
	return 56
}

// Options are forwarded to the toolkit untouched by the manager.
type Options struct {
	Backdrop Backdrop
	Keyboard Keyboard
	Size     Size

	// Extra carries toolkit specific settings. The overlay toolkit reads
	// "width", "height", "top" and "maxHeight"; values may be ints (cells),
	// floats in (0,1] (fraction of the screen) or strings like "50%" or "12".
	Extra map[string]any
}

// Modal reports whether the dialog blocks the page underneath.
func (o Options) Modal() bool {
	return o.Backdrop != BackdropNone
}

// Dimension resolves an Extra entry against the available cells.
func (o Options) Dimension(key string, total int) (int, bool) {
	v, ok := o.Extra[key]
	if !ok {
		return 0, false
	}
	n, err := resolveDimension(v, total)
	if err != nil {
		return 0, false
	}
	return n, true
}

func resolveDimension(v any, total int) (int, error) {
	switch d := v.(type) {
	case int:
		return d, nil
	case float64:
		if d > 0 && d <= 1 {
			return int(float64(total) * d), nil
		}
		return int(d), nil
	case string:
		s := strings.TrimSpace(d)
		if pct, ok := strings.CutSuffix(s, "%"); ok {
			f, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid percentage %q: %w", d, err)
			}
			return int(float64(total) * f / 100), nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid dimension %q: %w", d, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported dimension type %T", v)
}

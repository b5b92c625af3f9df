package dialog

import "testing"

func TestOptionsDimension(t *testing.T) {
	tests := []struct {
		name  string
		value any
		total int
		want  int
		ok    bool
	}{
		{"cells", 40, 120, 40, true},
		{"fraction", 0.5, 120, 60, true},
		{"large float is cells", 30.0, 120, 30, true},
		{"percent string", "50%", 120, 60, true},
		{"numeric string", " 12 ", 120, 12, true},
		{"bad percent", "half%", 120, 0, false},
		{"unsupported type", []int{1}, 120, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Extra: map[string]any{"width": tt.value}}
			got, ok := opts.Dimension("width", tt.total)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Dimension = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}

	if _, ok := (Options{}).Dimension("width", 100); ok {
		t.Error("missing key should not resolve")
	}
}

func TestOptionsEnums(t *testing.T) {
	if !(Options{}).Modal() || !(Options{Backdrop: BackdropStatic}).Modal() {
		t.Error("dismiss and static backdrops are modal")
	}
	if (Options{Backdrop: BackdropNone}).Modal() {
		t.Error("no backdrop means non-modal")
	}
	if !KeyboardDefault.Enabled() || !KeyboardEnabled.Enabled() || KeyboardDisabled.Enabled() {
		t.Error("only KeyboardDisabled turns esc off")
	}
	if SizeSmall.Class() != "modal-sm" || SizeDefault.Class() != "" {
		t.Error("unexpected size classes")
	}
	if !(SizeSmall.Columns() < SizeDefault.Columns() && SizeDefault.Columns() < SizeLarge.Columns()) {
		t.Error("size presets should grow")
	}
}

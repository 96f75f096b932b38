package overlay

import (
	"reflect"
	"testing"
)

func TestBuildLayout(t *testing.T) {
	more := &Descriptor{ID: MoreID, BuiltIn: true}
	settings := &Descriptor{ID: SettingsID, BuiltIn: true}
	inspect := &Descriptor{ID: "devbar:inspect", BuiltIn: true}
	custom := func(id string) *Descriptor { return &Descriptor{ID: id} }

	tests := []struct {
		name    string
		plugins []*Descriptor
		limit   int
		wantBar []string
		wantOvf []string
	}{
		{
			name:    "reserved ids rendered last",
			plugins: []*Descriptor{settings, more, inspect, custom("a")},
			limit:   3,
			wantBar: []string{"devbar:inspect", "a", SettingsID},
		},
		{
			name:    "overflow behind more",
			plugins: []*Descriptor{more, custom("a"), custom("b"), custom("c"), custom("d"), custom("e"), settings},
			limit:   3,
			wantBar: []string{"a", "b", "c", MoreID, SettingsID},
			wantOvf: []string{"d", "e"},
		},
		{
			name:    "zero limit",
			plugins: []*Descriptor{inspect, more, custom("a")},
			limit:   0,
			wantBar: []string{"devbar:inspect", MoreID},
			wantOvf: []string{"a"},
		},
		{
			name:    "overflow without more entry",
			plugins: []*Descriptor{custom("a"), custom("b")},
			limit:   1,
			wantBar: []string{"a"},
			wantOvf: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := BuildLayout(tt.plugins, tt.limit)
			if got := l.BarIDs(); !reflect.DeepEqual(got, tt.wantBar) {
				t.Errorf("BarIDs() = %v, want %v", got, tt.wantBar)
			}
			if !reflect.DeepEqual(l.Overflow, tt.wantOvf) {
				t.Errorf("Overflow = %v, want %v", l.Overflow, tt.wantOvf)
			}
			for _, id := range tt.wantOvf {
				if !l.IsOverflowed(id) {
					t.Errorf("IsOverflowed(%q) = false", id)
				}
			}
		})
	}
}

func TestDescriptorDisplayName(t *testing.T) {
	if got := (&Descriptor{ID: "x"}).DisplayName(); got != "x" {
		t.Errorf("DisplayName() = %q, want x", got)
	}
	if got := (&Descriptor{ID: "x", Name: "X Ray"}).DisplayName(); got != "X Ray" {
		t.Errorf("DisplayName() = %q, want X Ray", got)
	}
}

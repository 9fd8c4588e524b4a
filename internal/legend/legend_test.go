package legend

import (
	"strings"
	"testing"
)

func TestEntries(t *testing.T) {
	entries := Entries()

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	expected := []struct {
		label string
		icon  string
		size  int
	}{
		{"A32NX", "/meta/aircraft-icon-a32nx.png", 32},
		{"A380X", "/meta/aircraft-icon-a380x.png", 38},
		{"Others", "/meta/aircraft-icon.png", 32},
	}

	for i, want := range expected {
		got := entries[i]
		if got.Label != want.label || got.IconURL != want.icon || got.Size != want.size {
			t.Errorf("Entry %d = %+v, expected %s/%s/%d", i, got, want.label, want.icon, want.size)
		}
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML()
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	html := string(out)

	if !strings.Contains(html, "position: absolute") {
		t.Error("Expected legend to be positioned over the map")
	}
	if n := strings.Count(html, "map-legend-entry"); n != 3 {
		t.Errorf("Expected 3 legend rows, got %d", n)
	}
	if !strings.Contains(html, `src="/meta/aircraft-icon-a380x.png"`) {
		t.Error("Expected A380X icon in legend")
	}
}

package inventory

import "testing"

func TestCatalogLabels(t *testing.T) {
	c := NewCatalog([]string{"500", " 1000", "2000", "1000", "", "4000", "gift"})

	got := c.Types()
	want := []string{"500", "1000", "2000", "4000", "gift"}
	if len(got) != len(want) {
		t.Fatalf("expected %d types, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %s at %d, got %s", want[i], i, got[i])
		}
	}

	labels := map[string]string{"500": "500", "1000": "1K", "4000": "4K", "gift": "gift", "1500": "1500"}
	for key, label := range labels {
		if l := c.Label(key); l != label {
			t.Fatalf("label(%s) = %s, want %s", key, l, label)
		}
	}

	if c.Has("300") || !c.Has("2000") {
		t.Fatalf("unexpected membership")
	}
}

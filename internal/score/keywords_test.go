package score

import "testing"

func TestKeywords_Match(t *testing.T) {
	kw := DefaultKeywords()

	tests := []struct {
		text        string
		wantHazard  bool
		wantTrivial bool
	}{
		{"FLOOD near the station", true, false},
		{"Seismic Wave observed", true, false},
		{"sea wall break at the pier", true, false},
		{"a plastic bag", false, true},
		{"Garbage everywhere", false, true},
		{"tree branch on fire", true, true},
		{"nothing to see", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := kw.HasHazard(tt.text); got != tt.wantHazard {
			t.Errorf("HasHazard(%q) = %v, want %v", tt.text, got, tt.wantHazard)
		}
		if got := kw.HasTrivial(tt.text); got != tt.wantTrivial {
			t.Errorf("HasTrivial(%q) = %v, want %v", tt.text, got, tt.wantTrivial)
		}
	}
}

func TestKeywords_HazardHits(t *testing.T) {
	kw := DefaultKeywords()
	hits := kw.HazardHits("earthquake tremor felt, minor damage")

	if hits["earthquake"] != 3 { // earthquake, tremor, quake (substring)
		t.Errorf("Expected 3 earthquake hits, got %d", hits["earthquake"])
	}
	if hits["coastal_damage"] != 1 {
		t.Errorf("Expected 1 coastal_damage hit, got %d", hits["coastal_damage"])
	}
	if _, ok := hits["flood"]; ok {
		t.Error("Expected no flood hits")
	}
}

func TestKeywords_Categories(t *testing.T) {
	cats := DefaultKeywords().Categories()
	if len(cats) != 7 {
		t.Fatalf("Expected 7 categories, got %d", len(cats))
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1] >= cats[i] {
			t.Errorf("Categories not sorted: %v", cats)
		}
	}
}

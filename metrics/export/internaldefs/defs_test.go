package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsUnique(t *testing.T) {
	seenID := map[uint16]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if seenID[uint16(def.ID)] || seenName[def.Name] {
			t.Fatalf("duplicate counter %v %q", def.ID, def.Name)
		}
		seenID[uint16(def.ID)] = true
		seenName[def.Name] = true
		if !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q must end in _total", def.Name)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
	if len(HistogramBounds) != len(HistogramBoundSuffix) || len(HistogramBounds) != 8 {
		t.Fatal("bucket bound tables out of sync")
	}
}

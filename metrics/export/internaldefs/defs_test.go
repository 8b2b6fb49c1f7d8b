package internaldefs

import (
	"strings"
	"testing"

	passAuth "github.com/MrEthical07/passAuth"
)

func TestEveryMetricHasADefinition(t *testing.T) {
	seen := map[passAuth.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		seen[def.ID] = true
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		names[def.Name] = true
		if !strings.HasPrefix(def.Name, "passauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}
	if len(seen) != passAuth.MetricCount {
		t.Fatalf("expected %d definitions, got %d", passAuth.MetricCount, len(seen))
	}
}

func TestBucketLayout(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("suffixes must cover the finite bounds plus +Inf")
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 3}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

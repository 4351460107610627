package internaldefs

import (
	"testing"

	"github.com/MrEthical07/credguard"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[credguard.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate definition %+v", def)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := credguard.MetricRegisterSuccess; id < credguard.MetricFlowLatency; id++ {
		if !seen[id] {
			t.Fatalf("metric %d has no exported definition", id)
		}
	}
}

func TestBucketHelpers(t *testing.T) {
	suffix := HistogramBoundSuffix()
	if len(suffix) != credguard.HistogramBucketCount || suffix[0] != "0_005" || suffix[len(suffix)-1] != "inf" {
		t.Fatalf("unexpected suffixes %v", suffix)
	}

	cum := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	if cum[2] != 6 || cum[credguard.HistogramBucketCount-1] != 6 {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}
}

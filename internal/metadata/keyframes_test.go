package metadata

import "testing"

func TestParseKeyframeTimestamps(t *testing.T) {
	output := "0.000000\n4.504500\n9.009000\n\n13.513500\n"
	timestamps, err := parseKeyframeTimestamps(output)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []float64{0, 4.5045, 9.009, 13.5135}
	if len(timestamps) != len(want) {
		t.Fatalf("expected %d timestamps, got %d", len(want), len(timestamps))
	}
	for i := range want {
		if timestamps[i] != want[i] {
			t.Errorf("timestamp %d: got %v, want %v", i, timestamps[i], want[i])
		}
	}
}

func TestParseKeyframeTimestampsUnordered(t *testing.T) {
	timestamps, err := parseKeyframeTimestamps("9.0\n0.0\n4.5\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i-1] > timestamps[i] {
			t.Fatalf("timestamps not sorted: %v", timestamps)
		}
	}
}

func TestParseKeyframeTimestampsTrailingComma(t *testing.T) {
	// Some ffprobe builds emit csv rows with a trailing separator.
	timestamps, err := parseKeyframeTimestamps("0.0,\n4.5,\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(timestamps) != 2 {
		t.Fatalf("expected 2 timestamps, got %v", timestamps)
	}
}

func TestParseKeyframeTimestampsEmpty(t *testing.T) {
	if _, err := parseKeyframeTimestamps("\n\n"); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

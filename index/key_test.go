package index

import "testing"

func TestEncodeKeyJoinsWithSeparator(t *testing.T) {
	key, err := EncodeKey([]interface{}{"acme", float64(42)})
	if err != nil {
		t.Fatalf("EncodeKey: %v", err)
	}
	want := "acme" + Separator + "42"
	if key != want {
		t.Fatalf("EncodeKey = %q, want %q", key, want)
	}
}

func TestEncodeKeyRejectsReservedSeparator(t *testing.T) {
	_, err := EncodeKey([]interface{}{"a" + Separator + "b"})
	if err == nil {
		t.Fatal("expected an error encoding a value containing the reserved separator")
	}
}

func TestShardIndexIsStable(t *testing.T) {
	key := "acme" + Separator + "42"
	first := ShardIndex(key, 16)
	for i := 0; i < 100; i++ {
		if ShardIndex(key, 16) != first {
			t.Fatal("ShardIndex must be deterministic for a fixed key and shard count")
		}
	}
	if first < 0 || first >= 16 {
		t.Fatalf("ShardIndex out of range: %d", first)
	}
}

func TestSplitKeyRoundTrips(t *testing.T) {
	key, _ := EncodeKey([]interface{}{"a", "b", "c"})
	segs := SplitKey(key)
	if len(segs) != 3 || segs[0] != "a" || segs[1] != "b" || segs[2] != "c" {
		t.Fatalf("SplitKey(%q) = %v", key, segs)
	}
}

func TestLastSegmentAsNumber(t *testing.T) {
	key, _ := EncodeKey([]interface{}{"team", float64(17)})
	v, ok := LastSegmentAsNumber(key)
	if !ok || v != 17 {
		t.Fatalf("LastSegmentAsNumber(%q) = %v, %v", key, v, ok)
	}

	key2, _ := EncodeKey([]interface{}{"team", "not-a-number"})
	if _, ok := LastSegmentAsNumber(key2); ok {
		t.Error("expected non-numeric final segment to report not-ok")
	}
}

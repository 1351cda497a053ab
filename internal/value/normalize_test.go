package value

import "testing"

func TestNormalizeScalars(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"hello", "hello"},
		{true, "true"},
		{false, "false"},
		{float64(42), "42"},
		{float64(3.5), "3.5"},
		{int(7), "7"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Normalize(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejectsSeparator(t *testing.T) {
	_, err := Normalize("a" + Separator + "b")
	if err != ErrContainsSeparator {
		t.Fatalf("expected ErrContainsSeparator, got %v", err)
	}
}

func TestNormalizeRejectsNonScalar(t *testing.T) {
	if _, err := Normalize(map[string]interface{}{"x": 1}); err == nil {
		t.Fatal("expected error normalizing a map")
	}
	if _, err := Normalize([]interface{}{1, 2}); err == nil {
		t.Fatal("expected error normalizing a slice")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(float64(1), float64(1)) {
		t.Error("1 should equal 1")
	}
	if Equal("a", "b") {
		t.Error("a should not equal b")
	}
}

func TestCompareNumeric(t *testing.T) {
	if Compare(float64(1), float64(2)) >= 0 {
		t.Error("1 should compare less than 2")
	}
	if Compare(float64(5), float64(5)) != 0 {
		t.Error("5 should compare equal to 5")
	}
}

func TestTopN(t *testing.T) {
	items := []interface{}{float64(5), float64(1), float64(3), float64(2), float64(4)}
	less := func(a, b interface{}) bool { return a.(float64) < b.(float64) }
	top := TopN(items, 3, less)
	if len(top) != 3 {
		t.Fatalf("expected 3 items, got %d", len(top))
	}
	want := []float64{1, 2, 3}
	for i, w := range want {
		if top[i].(float64) != w {
			t.Errorf("top[%d] = %v, want %v", i, top[i], w)
		}
	}
}

package leveling

import "testing"

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		xp    int64
		level int64
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10_000, 11},
	}
	for _, tc := range cases {
		if got := CalculateLevel(tc.xp); got != tc.level {
			t.Fatalf("CalculateLevel(%d) = %d, want %d", tc.xp, got, tc.level)
		}
	}
}

func TestLevelBoundsHoldForAllXP(t *testing.T) {
	for xp := int64(0); xp < 50_000; xp += 7 {
		level := CalculateLevel(xp)
		if xp < XPForLevel(level) || xp >= XPForLevel(level+1) {
			t.Fatalf("xp %d outside level %d bounds [%d, %d)", xp, level, XPForLevel(level), XPForLevel(level+1))
		}
	}
}

func TestCalculateLevelLargeXP(t *testing.T) {
	xp := XPForLevel(3_000_000)
	if got := CalculateLevel(xp); got != 3_000_000 {
		t.Fatalf("expected level 3000000, got %d", got)
	}
	if got := CalculateLevel(xp - 1); got != 2_999_999 {
		t.Fatalf("expected level 2999999, got %d", got)
	}
}

func TestProgressFor(t *testing.T) {
	p := ProgressFor(250)
	if p.Level != 2 || p.Into != 150 || p.Needed != 300 || p.NextLevelXP != 400 {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

package coverage

import "testing"

func TestHeatmapColor(t *testing.T) {
	tests := []struct {
		name             string
		count, threshold int
		want             RGB
	}{
		{"zero threshold", 7, 0, NeutralGray},
		{"zero threshold zero count", 0, 0, NeutralGray},
		{"no hits", 0, 10, RGB{255, 80, 80}},
		{"half", 5, 10, RGB{255, 168, 80}},
		{"at threshold", 10, 10, RGB{255, 255, 80}},
		{"1.5x", 15, 10, RGB{128, 200, 80}},
		{"2x floors red", 20, 10, RGB{0, 200, 80}},
		{"far over", 1000, 10, RGB{0, 200, 80}},
		{"negative count clamps", -5, 10, RGB{255, 80, 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeatmapColor(tt.count, tt.threshold); got != tt.want {
				t.Errorf("HeatmapColor(%d, %d) = %+v, want %+v", tt.count, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestHeatmapColor_OverThresholdRedDecreases(t *testing.T) {
	prev := HeatmapColor(10, 10).R
	for count := 11; count <= 25; count++ {
		c := HeatmapColor(count, 10)
		if c.G != 200 || c.B != 80 {
			t.Fatalf("count %d: green/blue = %d/%d, want 200/80", count, c.G, c.B)
		}
		if c.R > prev || (prev > 0 && c.R == prev) {
			t.Fatalf("count %d: red %d did not decrease from %d", count, c.R, prev)
		}
		prev = c.R
	}
	if prev != 0 {
		t.Errorf("red should floor at 0, got %d", prev)
	}
}

func TestRGBFormatting(t *testing.T) {
	c := RGB{255, 168, 80}
	if got := c.CSS(); got != "rgb(255, 168, 80)" {
		t.Errorf("CSS() = %q", got)
	}
	if got := c.Hex(); got != "#ffa850" {
		t.Errorf("Hex() = %q", got)
	}
}

package models

import "testing"

func TestLevelRankOrdering(t *testing.T) {
	if !(LevelClassic.Rank() < LevelPlus.Rank() && LevelPlus.Rank() < LevelPremier.Rank()) {
		t.Fatal("tier ranks out of order")
	}
	if Level("GOLD").Rank() != 0 {
		t.Fatal("unknown level should rank 0")
	}
	if LevelPlus.BenefitSet() != 2 {
		t.Fatalf("unexpected benefit set: %d", LevelPlus.BenefitSet())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"Plus Annual":           LevelPlus,
		"premier monthly":       LevelPremier,
		"Classic Basic Monthly": LevelClassic,
		"Towing Add-On":         "",
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParseCycle(t *testing.T) {
	if ParseCycle("Plus Annual") != CycleYearly {
		t.Fatal("annual product should map to yearly")
	}
	if ParseCycle("Plus Monthly") != CycleMonthly {
		t.Fatal("monthly product should map to monthly")
	}
	// Unknown names default to monthly.
	if ParseCycle("Towing Add-On") != CycleMonthly {
		t.Fatal("unknown product should default to monthly")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		rate string
		want float64
		ok   bool
	}{
		{"$12.34", 12.34, true},
		{"12.34", 12.34, true},
		{"$1,234.50", 1234.50, true},
		{" $9.99 ", 9.99, true},
		{"", 0, false},
		{"$abc", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.rate)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParsePrice(%q) = %f, %v; want %f", tt.rate, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParsePrice(%q) expected error", tt.rate)
		}
	}
}

func TestBenefitsForEveryTier(t *testing.T) {
	for _, level := range []Level{LevelClassic, LevelPlus, LevelPremier} {
		b, ok := BenefitsFor(level)
		if !ok {
			t.Fatalf("no benefits for %s", level)
		}
		if b.Level != level || len(b.RoadsideAssistance) == 0 || b.Tagline == "" {
			t.Fatalf("incomplete benefit package for %s: %+v", level, b)
		}
	}

	plus, _ := BenefitsFor(LevelPlus)
	if !plus.PopularTag {
		t.Fatal("plus tier should carry the popular tag")
	}

	if _, ok := BenefitsFor(Level("GOLD")); ok {
		t.Fatal("unknown level should carry no benefits")
	}
}

func TestSyntheticProductFallback(t *testing.T) {
	ap := AccountProduct{
		ProductID: "prod-legacy",
		Name:      "Plus Annual",
		Rate:      "$143.88",
	}
	p := SyntheticProduct(ap)
	if p.ID != "prod-legacy" || p.Level != LevelPlus || p.Cycle != CycleYearly {
		t.Fatalf("unexpected synthetic product: %+v", p)
	}
	if p.Price != 143.88 {
		t.Fatalf("unexpected price: %f", p.Price)
	}
}

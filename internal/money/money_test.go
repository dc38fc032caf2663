package money

import "testing"

func TestNewAmount_RoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"100.005", "100.01"},
		{"100.004", "100.00"},
		{"-100.005", "-100.01"},
		{"220", "220.00"},
	}
	for _, c := range cases {
		a, err := NewAmount(c.in)
		if err != nil {
			t.Fatalf("NewAmount(%q): %v", c.in, err)
		}
		if got := a.String(); got != c.want {
			t.Errorf("NewAmount(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestAmount_MulRate(t *testing.T) {
	amt, _ := NewAmount("100.00")
	rate, _ := NewRate("83.5")
	got := amt.MulRate(rate)
	if got.String() != "8350.00" {
		t.Errorf("MulRate = %s, want 8350.00", got.String())
	}
}

func TestAmount_Equal_Balance(t *testing.T) {
	debit, _ := NewAmount("220.00")
	credit1, _ := NewAmount("200.00")
	credit2, _ := NewAmount("20.00")
	if !debit.Equal(credit1.Add(credit2)) {
		t.Errorf("expected 220.00 to equal 200.00+20.00")
	}
}

func TestWAC(t *testing.T) {
	total, _ := NewAmount("120.00")
	qty, _ := NewQty("20")
	rate := WAC(total, qty)
	if rate.String() != "6.000000" {
		t.Errorf("WAC = %s, want 6.000000", rate.String())
	}
}

func TestApplyWAC(t *testing.T) {
	qty, _ := NewQty("4")
	rate, _ := NewRate("6.0")
	got := ApplyWAC(qty, rate)
	if got.String() != "24.00" {
		t.Errorf("ApplyWAC = %s, want 24.00", got.String())
	}
}

func TestWAC_PanicsOnNonPositiveQuantity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for zero quantity")
		}
	}()
	WAC(Zero, ZeroQty)
}

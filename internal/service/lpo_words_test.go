package service

import "testing"

func TestAmountInWords(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "Zero Dirhams Only"},
		{1, "One Dirhams Only"},
		{21, "Twenty One Dirhams Only"},
		{100, "One Hundred Dirhams Only"},
		{115, "One Hundred Fifteen Dirhams Only"},
		{1000, "One Thousand Dirhams Only"},
		{26302.50, "Twenty Six Thousand Three Hundred Two Dirhams and Fifty Fils Only"},
		{1000000, "One Million Dirhams Only"},
		{0.25, "Zero Dirhams and Twenty Five Fils Only"},
		{999.99, "Nine Hundred Ninety Nine Dirhams and Ninety Nine Fils Only"},
	}

	for _, tc := range cases {
		got := AmountInWords(tc.amount)
		if got != tc.want {
			t.Errorf("AmountInWords(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestAmountInWordsRounding(t *testing.T) {
	// 26302.499999 must round to 50 fils, not truncate to 49.
	got := AmountInWords(26302.4999999)
	want := "Twenty Six Thousand Three Hundred Two Dirhams and Fifty Fils Only"
	if got != want {
		t.Errorf("AmountInWords(26302.4999999) = %q, want %q", got, want)
	}
}

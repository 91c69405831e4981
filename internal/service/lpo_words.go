package service

import (
	"math"
	"strings"
)

var onesWords = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tensWords = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

var scaleWords = []string{"", "Thousand", "Million", "Billion"}

// AmountInWords renders an AED amount the way it appears on the printed LPO:
// "Twenty Five Thousand Fifty Dirhams and Fifty Fils Only".
func AmountInWords(amount float64) string {
	if amount < 0 {
		return "Minus " + AmountInWords(-amount)
	}

	// Round to fils first so 26302.499999 does not split badly.
	total := int64(math.Round(amount * 100))
	dirhams := total / 100
	fils := total % 100

	var b strings.Builder
	if dirhams == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(integerWords(dirhams))
	}
	b.WriteString(" Dirhams")
	if fils > 0 {
		b.WriteString(" and ")
		b.WriteString(integerWords(fils))
		b.WriteString(" Fils")
	}
	b.WriteString(" Only")
	return b.String()
}

func integerWords(n int64) string {
	if n == 0 {
		return ""
	}

	var groups []string
	for scale := 0; n > 0 && scale < len(scaleWords); scale++ {
		group := n % 1000
		n /= 1000
		if group == 0 {
			continue
		}
		words := hundredsWords(int(group))
		if scaleWords[scale] != "" {
			words += " " + scaleWords[scale]
		}
		groups = append([]string{words}, groups...)
	}
	return strings.Join(groups, " ")
}

func hundredsWords(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, onesWords[n/100]+" Hundred")
		n %= 100
	}
	if n >= 20 {
		word := tensWords[n/10]
		if n%10 > 0 {
			word += " " + onesWords[n%10]
		}
		parts = append(parts, word)
	} else if n > 0 {
		parts = append(parts, onesWords[n])
	}
	return strings.Join(parts, " ")
}

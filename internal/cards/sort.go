package cards

import (
	"sort"
	"strings"

	"cardstock/pkg/models"
)

// SortCards orders the snapshot the one way everything downstream
// expects: by name, then set code, then numeric collector number (a
// textual sort would put "10" before "2").
func SortCards(cs []models.CanonicalCard) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		if a.SetCode != b.SetCode {
			return a.SetCode < b.SetCode
		}
		ai, as := CollectorNumberKey(a.CollectorNumber)
		bi, bs := CollectorNumberKey(b.CollectorNumber)
		if ai != bi {
			return ai < bi
		}
		return as < bs
	})
}

// CollectorNumberKey splits a collector number into its numeric value
// and whatever trails it ("426b" -> 426, "b"). Non-numeric numbers sort
// after all numeric ones.
func CollectorNumberKey(num string) (int, string) {
	i := 0
	for i < len(num) && num[i] >= '0' && num[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1 << 30, num
	}
	n := 0
	for _, c := range num[:i] {
		n = n*10 + int(c-'0')
	}
	return n, num[i:]
}

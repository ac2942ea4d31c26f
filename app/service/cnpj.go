package service

import "strings"

var (
	cnpjFirstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// NormalizeCNPJ strips the usual punctuation ("12.345.678/0001-95").
func NormalizeCNPJ(cnpj string) string {
	return strings.NewReplacer(".", "", "/", "", "-", "").Replace(strings.TrimSpace(cnpj))
}

// IsCNPJValid checks length and both mod-11 check digits.
func IsCNPJValid(cnpj string) bool {
	cnpj = NormalizeCNPJ(cnpj)
	if len(cnpj) != 14 {
		return false
	}

	digits := make([]int, 14)
	repeated := true
	for i, ch := range cnpj {
		if ch < '0' || ch > '9' {
			return false
		}
		digits[i] = int(ch - '0')
		if digits[i] != digits[0] {
			repeated = false
		}
	}
	if repeated {
		return false
	}

	return digits[12] == cnpjCheckDigit(digits[:12], cnpjFirstWeights) &&
		digits[13] == cnpjCheckDigit(digits[:13], cnpjSecondWeights)
}

func cnpjCheckDigit(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	if rest := sum % 11; rest >= 2 {
		return 11 - rest
	}
	return 0
}

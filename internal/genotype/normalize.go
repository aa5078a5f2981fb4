package genotype

import (
	"sort"
	"strings"
)

// NormalizeChrom maps vendor chromosome tokens onto the canonical
// {1..22, X, Y, MT} labels. Numeric 23/24/25 are the chip encodings of
// X, Y and mitochondrial calls.
func NormalizeChrom(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch value {
	case "23", "X":
		return "X"
	case "24", "Y":
		return "Y"
	case "25", "MT", "M":
		return "MT"
	default:
		return value
	}
}

// CanonicalGenotype normalizes an allele pair so that heterozygous calls
// compare equal regardless of reported order ("TC" and "CT" both become
// "CT"). No-read sentinels normalize to nil. Single-allele calls (male X/Y)
// and longer indel-style values pass through unchanged.
func CanonicalGenotype(genotype *string) *string {
	if genotype == nil {
		return nil
	}
	cleaned := strings.ToUpper(strings.ReplaceAll(*genotype, " ", ""))
	switch cleaned {
	case "", "-", "--", "00":
		return nil
	}
	if len(cleaned) == 2 {
		chars := strings.Split(cleaned, "")
		sort.Strings(chars)
		cleaned = strings.Join(chars, "")
	}
	return &cleaned
}

// missingAllele reports whether a single allele token means no-read.
func missingAllele(allele string) bool {
	switch allele {
	case "0", "-", "--":
		return true
	}
	return false
}

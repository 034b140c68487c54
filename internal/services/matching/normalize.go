package matching

import "strings"

// NormalizeName upper-cases, strips punctuation, and collapses whitespace so
// "Cash - Operating" and "cash   operating" compare equal.
func NormalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "(", " ")
	s = strings.ReplaceAll(s, ")", " ")
	s = strings.ReplaceAll(s, ":", " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeCode trims and upper-cases an account code without touching its
// internal separators; "0122-0000" stays distinct from "01220000".
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// abbreviations seen across extracted property financials, keyed on the
// normalized (upper-case, dot-stripped) token. Slash forms keep their slash
// because NormalizeName does not strip "/".
var abbreviations = map[string]string{
	"A/R":    "ACCOUNTS RECEIVABLE",
	"A/P":    "ACCOUNTS PAYABLE",
	"ACCUM":  "ACCUMULATED",
	"DEPR":   "DEPRECIATION",
	"AMORT":  "AMORTIZATION",
	"EXP":    "EXPENSE",
	"INC":    "INCOME",
	"REC":    "RECEIVABLE",
	"PAY":    "PAYABLE",
	"BLDG":   "BUILDING",
	"EQUIP":  "EQUIPMENT",
	"INS":    "INSURANCE",
	"INT":    "INTEREST",
	"MGMT":   "MANAGEMENT",
	"MAINT":  "MAINTENANCE",
	"IMPROV": "IMPROVEMENTS",
	"MISC":   "MISCELLANEOUS",
	"PROP":   "PROPERTY",
	"SEC":    "SECURITY",
	"DEP":    "DEPOSIT",
	"UTIL":   "UTILITIES",
}

// ExpandAbbreviations rewrites known abbreviated tokens in an already
// normalized name, so "A/R TENANTS" becomes "ACCOUNTS RECEIVABLE TENANTS".
func ExpandAbbreviations(normalized string) string {
	tokens := strings.Fields(normalized)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

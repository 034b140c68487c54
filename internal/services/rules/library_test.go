package rules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"document-reconciliation-backend/internal/models"
)

func TestLoadValidatesCleanly(t *testing.T) {
	library, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if len(library) == 0 {
		t.Fatal("library is empty")
	}

	seen := make(map[string]bool)
	for _, r := range library {
		if seen[r.Code] {
			t.Errorf("duplicate rule code %s", r.Code)
		}
		seen[r.Code] = true
		if len(r.RequiredDocumentTypes()) == 0 {
			t.Errorf("rule %s reads no document types", r.Code)
		}
	}
}

func TestValidateRejectsBrokenRules(t *testing.T) {
	threshold := decimal.RequireFromString("1.20")
	negativePct := decimal.RequireFromString("-5")
	operand := Operand{
		DocumentType: models.DocBalanceSheet,
		Label:        "Total Assets",
		Groups:       [][]AccountSelector{{{NameAnyOf: []string{"total assets"}}}},
	}
	base := Rule{
		Name:        "Broken",
		Severity:    models.SeverityHigh,
		Left:        operand,
		Right:       operand,
		Explanation: "broken on purpose",
	}

	cases := []struct {
		name string
		rule Rule
	}{
		{
			name: "equality without any tolerance",
			rule: func() Rule {
				r := base
				r.Code = "X-1"
				r.Kind = EqualityCheck
				return r
			}(),
		},
		{
			name: "hard tolerance below soft",
			rule: func() Rule {
				r := base
				r.Code = "X-2"
				r.Kind = EqualityCheck
				r.SoftTolerance = decimal.NewFromInt(10)
				r.HardTolerance = decimal.NewFromInt(1)
				return r
			}(),
		},
		{
			name: "negative percent tolerance",
			rule: func() Rule {
				r := base
				r.Code = "X-3"
				r.Kind = EqualityCheck
				r.PercentTolerance = &negativePct
				return r
			}(),
		},
		{
			name: "ratio without threshold",
			rule: func() Rule {
				r := base
				r.Code = "X-4"
				r.Kind = RatioThreshold
				r.Op = OpGTE
				return r
			}(),
		},
		{
			name: "ratio with bad compare op",
			rule: func() Rule {
				r := base
				r.Code = "X-5"
				r.Kind = RatioThreshold
				r.Op = CompareOp("eq")
				r.Threshold = &threshold
				return r
			}(),
		},
		{
			name: "rollforward without mid operand",
			rule: func() Rule {
				r := base
				r.Code = "X-6"
				r.Kind = RollforwardCheck
				r.SoftTolerance = decimal.RequireFromString("0.01")
				r.HardTolerance = decimal.RequireFromString("0.01")
				return r
			}(),
		},
		{
			name: "missing kind",
			rule: func() Rule {
				r := base
				r.Code = "X-7"
				return r
			}(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want configuration error")
			}
			var cfgErr *ToleranceConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type %T, want *ToleranceConfigurationError", err)
			}
			if cfgErr.RuleCode != tc.rule.Code {
				t.Errorf("error names rule %s, want %s", cfgErr.RuleCode, tc.rule.Code)
			}
		})
	}
}

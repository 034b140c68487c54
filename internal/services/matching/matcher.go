package matching

import (
	"fmt"
	"os"
	"strconv"

	"document-reconciliation-backend/internal/models"
)

// Algorithm names recorded on matches.
const (
	AlgLearnedPattern = "learned_pattern"
	AlgSynonymLookup  = "synonym_lookup"
	AlgExactCode      = "exact_code"
	AlgFuzzyCode      = "fuzzy_code"
	AlgExactName      = "exact_name"
	AlgFuzzyName      = "fuzzy_name"
	AlgCategoryFuzzy  = "category_fuzzy_name"
	AlgAbbreviation   = "abbreviation_expansion"
)

// Config holds the matcher acceptance thresholds. All values live on a
// 0-100 scale.
type Config struct {
	FuzzyCodeThreshold  float64
	FuzzyNameThreshold  float64
	PatternSuccessFloor float64
}

func DefaultConfig() Config {
	return Config{
		FuzzyCodeThreshold:  90,
		FuzzyNameThreshold:  85,
		PatternSuccessFloor: 70,
	}
}

// ConfigFromEnv reads threshold overrides. The name threshold is clamped at
// 85 — lowering it trades too much precision for recall.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, ok := envFloat("MATCH_FUZZY_CODE_THRESHOLD"); ok {
		cfg.FuzzyCodeThreshold = v
	}
	if v, ok := envFloat("MATCH_FUZZY_NAME_THRESHOLD"); ok && v >= 85 {
		cfg.FuzzyNameThreshold = v
	}
	if v, ok := envFloat("MATCH_PATTERN_SUCCESS_FLOOR"); ok {
		cfg.PatternSuccessFloor = v
	}
	return cfg
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// PatternSnapshot is an immutable view of the learned patterns and synonyms
// taken once per reconciliation run. Matching is a pure function of
// (source, candidates, snapshot), so a run is reproducible against the
// snapshot it was given.
type PatternSnapshot struct {
	patterns map[string]models.LearnedMatchPattern
	synonyms map[string]models.AccountCodeSynonym
}

func patternKey(sourceDoc, targetDoc models.DocumentType, sourceCode string) string {
	return string(sourceDoc) + "|" + string(targetDoc) + "|" + NormalizeCode(sourceCode)
}

// BuildSnapshot indexes active patterns and synonyms for lookup. Inactive
// rows are dropped here so the matcher never has to re-check.
func BuildSnapshot(patterns []models.LearnedMatchPattern, synonyms []models.AccountCodeSynonym) PatternSnapshot {
	snap := PatternSnapshot{
		patterns: make(map[string]models.LearnedMatchPattern, len(patterns)),
		synonyms: make(map[string]models.AccountCodeSynonym, len(synonyms)),
	}
	for _, p := range patterns {
		if !p.IsActive {
			continue
		}
		snap.patterns[patternKey(p.SourceDocumentType, p.TargetDocumentType, p.SourceAccountCode)] = p
	}
	for _, s := range synonyms {
		if !s.IsActive {
			continue
		}
		snap.synonyms[NormalizeName(s.SynonymName)] = s
	}
	return snap
}

// Pattern exposes the snapshot's pattern for a (source doc, target doc,
// source code) triple, if any. Used by the classifier to detect learned fixes.
func (s PatternSnapshot) Pattern(sourceDoc, targetDoc models.DocumentType, sourceCode string) (models.LearnedMatchPattern, bool) {
	p, ok := s.patterns[patternKey(sourceDoc, targetDoc, sourceCode)]
	return p, ok
}

// Candidate is the matcher's answer for one source line item.
type Candidate struct {
	Item       models.LineItem
	MatchType  models.MatchType
	Algorithm  string
	Confidence float64
}

type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match runs the strategy ladder against the candidate pool and returns the
// first acceptable candidate, or nil when no strategy clears its threshold.
// The ladder is ordered precision-first: learned mappings, then code
// strategies, then progressively broader name strategies.
func (m *Matcher) Match(source models.LineItem, targetDoc models.DocumentType, candidates []models.LineItem, snap PatternSnapshot) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	if c := m.matchLearned(source, targetDoc, candidates, snap); c != nil {
		return c
	}

	srcCode := NormalizeCode(source.AccountCode)
	srcName := NormalizeName(source.AccountName)

	// 1. exact code
	if srcCode != "" {
		for _, cand := range candidates {
			if NormalizeCode(cand.AccountCode) == srcCode {
				return &Candidate{Item: cand, MatchType: models.MatchExact, Algorithm: AlgExactCode, Confidence: 100}
			}
		}
	}

	// 2. fuzzy code
	if srcCode != "" {
		if c := m.bestBy(candidates, m.cfg.FuzzyCodeThreshold, AlgFuzzyCode, func(cand models.LineItem) float64 {
			return Ratio(srcCode, NormalizeCode(cand.AccountCode))
		}); c != nil {
			return c
		}
	}

	// 3. exact normalized name
	if srcName != "" {
		for _, cand := range candidates {
			if NormalizeName(cand.AccountName) == srcName {
				return &Candidate{Item: cand, MatchType: models.MatchExact, Algorithm: AlgExactName, Confidence: 100}
			}
		}
	}

	// 4. fuzzy name
	if c := m.bestBy(candidates, m.cfg.FuzzyNameThreshold, AlgFuzzyName, func(cand models.LineItem) float64 {
		return TokenSetRatio(srcName, NormalizeName(cand.AccountName))
	}); c != nil {
		return c
	}

	// 5. category-filtered fuzzy name
	srcCategory := models.InferCategory(source.AccountName)
	if srcCategory != models.CategoryUnknown {
		pool := make([]models.LineItem, 0, len(candidates))
		for _, cand := range candidates {
			if models.InferCategory(cand.AccountName) == srcCategory {
				pool = append(pool, cand)
			}
		}
		if c := m.bestBy(pool, m.cfg.FuzzyNameThreshold, AlgCategoryFuzzy, func(cand models.LineItem) float64 {
			return TokenSetRatio(srcName, NormalizeName(cand.AccountName))
		}); c != nil {
			return c
		}
	}

	// 6. abbreviation expansion on both sides
	srcExpanded := ExpandAbbreviations(srcName)
	return m.bestBy(candidates, m.cfg.FuzzyNameThreshold, AlgAbbreviation, func(cand models.LineItem) float64 {
		return TokenSetRatio(srcExpanded, ExpandAbbreviations(NormalizeName(cand.AccountName)))
	})
}

// matchLearned is strategy 0: a learned pattern or synonym short-circuits
// the ladder when its success rate clears the configured floor.
func (m *Matcher) matchLearned(source models.LineItem, targetDoc models.DocumentType, candidates []models.LineItem, snap PatternSnapshot) *Candidate {
	if p, ok := snap.patterns[patternKey(source.DocumentType, targetDoc, source.AccountCode)]; ok && p.SuccessRate >= m.cfg.PatternSuccessFloor {
		target := NormalizeCode(p.TargetAccountCode)
		for _, cand := range candidates {
			if NormalizeCode(cand.AccountCode) == target {
				conf := p.AverageConfidence
				if conf > 100 {
					conf = 100
				}
				return &Candidate{Item: cand, MatchType: models.MatchInferred, Algorithm: AlgLearnedPattern, Confidence: conf}
			}
		}
	}

	if syn, ok := snap.synonyms[NormalizeName(source.AccountName)]; ok && syn.SuccessRate >= m.cfg.PatternSuccessFloor {
		canonical := NormalizeCode(syn.CanonicalAccountCode)
		for _, cand := range candidates {
			if NormalizeCode(cand.AccountCode) == canonical {
				conf := syn.CombinedConfidence
				if conf > 100 {
					conf = 100
				}
				return &Candidate{Item: cand, MatchType: models.MatchInferred, Algorithm: AlgSynonymLookup, Confidence: conf}
			}
		}
	}
	return nil
}

func (m *Matcher) bestBy(candidates []models.LineItem, threshold float64, algorithm string, score func(models.LineItem) float64) *Candidate {
	var best *Candidate
	for _, cand := range candidates {
		s := score(cand)
		if s < threshold {
			continue
		}
		if best == nil || s > best.Confidence {
			best = &Candidate{Item: cand, MatchType: models.MatchFuzzy, Algorithm: algorithm, Confidence: s}
		}
	}
	return best
}

// FormatAlgorithm renders "strategy (score)" for match detail payloads.
func FormatAlgorithm(algorithm string, confidence float64) string {
	return fmt.Sprintf("%s (%.1f)", algorithm, confidence)
}

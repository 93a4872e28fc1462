package kpinorm

import (
	"io"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/crestline-labs/fincompare/internal/model"
)

// defaultSynonyms maps canonical KPI names to known label phrasings.
// The base table is immutable; runtime additions go through AddSynonym.
var defaultSynonyms = []struct {
	canonical string
	phrases   []string
}{
	{model.MetricRevenue, []string{"revenue", "total revenue", "net sales", "sales", "turnover", "total income"}},
	{model.MetricNetIncome, []string{"net income", "net profit", "net earnings", "profit after tax", "pat", "bottom line"}},
	{model.MetricEBITDA, []string{"ebitda", "operating ebitda", "adjusted ebitda"}},
	{model.MetricTotalAssets, []string{"total assets", "assets"}},
	{model.MetricCashEquivalents, []string{"cash and cash equivalents", "cash & equivalents", "cash equivalents", "cash and equivalents", "cash balance"}},
	{model.MetricDebt, []string{"total debt", "debt", "borrowings", "total borrowings", "long term debt"}},
	{"profitMargin", []string{"profit margin", "net margin", "net profit margin"}},
}

// SynonymTable resolves free-text metric labels to canonical KPI names.
// Lookup order is fixed, so the first canonical whose synonyms match wins.
type SynonymTable struct {
	mu    sync.RWMutex
	order []string
	syns  map[string][]string
}

// NewSynonymTable returns a table seeded with the built-in synonyms.
func NewSynonymTable() *SynonymTable {
	t := &SynonymTable{syns: make(map[string][]string, len(defaultSynonyms))}
	for _, e := range defaultSynonyms {
		t.order = append(t.order, e.canonical)
		t.syns[e.canonical] = append([]string(nil), e.phrases...)
	}
	return t
}

// FindStandardKPI resolves a free-text label via case-insensitive substring
// matching against the synonym table. Returns the first matching canonical
// name, or ok=false when nothing matches.
func (t *SynonymTable) FindStandardKPI(label string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, canonical := range t.order {
		for _, phrase := range t.syns[canonical] {
			if strings.Contains(needle, phrase) || strings.Contains(phrase, needle) {
				return canonical, true
			}
		}
	}
	return "", false
}

// AddSynonym registers an additional phrasing for a canonical name at
// runtime. Unknown canonical names are appended to the lookup order.
func (t *SynonymTable) AddSynonym(canonical, phrase string) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if canonical == "" || phrase == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.syns[canonical]; !ok {
		t.order = append(t.order, canonical)
	}
	t.syns[canonical] = append(t.syns[canonical], phrase)
}

// LoadOverrides merges a YAML document of canonical -> phrases into the
// table. Used to extend the shipped vocabulary from configuration.
func (t *SynonymTable) LoadOverrides(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return eris.Wrap(err, "kpinorm: read synonym overrides")
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return eris.Wrap(err, "kpinorm: parse synonym overrides")
	}

	for canonical, phrases := range overrides {
		for _, p := range phrases {
			t.AddSynonym(canonical, p)
		}
	}
	return nil
}

// Package layersort orders flattened layers by user-supplied priority rules.
package layersort

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"

	"geospider/pkg/spider"
)

// Rules is a compiled, validated rules file ready for sorting.
type Rules struct {
	rules []compiledRule
}

type compiledRule struct {
	index    int
	patterns []*regexp.Regexp
	types    map[spider.ProtocolType]bool
}

// LoadRules reads and validates a JSON rules file. Validation happens before
// any network activity: a broken rules file must fail the run immediately.
// All failures wrap spider.ErrSortRule.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sorting rules %s: %v: %w", path, err, spider.ErrSortRule)
	}
	return ParseRules(data)
}

// ParseRules compiles a JSON rules document.
func ParseRules(data []byte) (*Rules, error) {
	var raw []spider.SortRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("sorting rules are not a valid JSON array: %v: %w", err, spider.ErrSortRule)
	}

	compiled := make([]compiledRule, 0, len(raw))
	for i, rule := range raw {
		if rule.Index < 0 {
			return nil, fmt.Errorf("rule %d: index %d is negative: %w", i, rule.Index, spider.ErrSortRule)
		}
		if len(rule.Names) == 0 {
			return nil, fmt.Errorf("rule %d: names must not be empty: %w", i, spider.ErrSortRule)
		}
		if len(rule.Types) == 0 {
			return nil, fmt.Errorf("rule %d: types must not be empty: %w", i, spider.ErrSortRule)
		}

		c := compiledRule{
			index: rule.Index,
			types: make(map[spider.ProtocolType]bool, len(rule.Types)),
		}
		for _, name := range rule.Names {
			re, err := regexp.Compile(name)
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid pattern %q: %v: %w", i, name, err, spider.ErrSortRule)
			}
			c.patterns = append(c.patterns, re)
		}
		for _, typ := range rule.Types {
			if !spider.IsValidProtocol(typ) {
				return nil, fmt.Errorf("rule %d: unknown protocol %q: %w", i, typ, spider.ErrSortRule)
			}
			c.types[spider.ProtocolType(typ)] = true
		}
		compiled = append(compiled, c)
	}
	return &Rules{rules: compiled}, nil
}

// Len returns the number of compiled rules.
func (r *Rules) Len() int {
	return len(r.rules)
}

// Key returns the sort key for one layer: the index of the first rule (in
// file order) whose types include the layer's protocol and whose patterns
// match the technical layer name. Matching is case-sensitive and unanchored.
// Layers matching no rule sort after all matched layers.
func (r *Rules) Key(layer spider.FlatLayer) float64 {
	for _, rule := range r.rules {
		if !rule.types[layer.ServiceProtocol] {
			continue
		}
		for _, re := range rule.patterns {
			if re.MatchString(layer.Name) {
				return float64(rule.index)
			}
		}
	}
	return math.Inf(1)
}

// Sort orders layers by rule key, keeping the input (discovery) order among
// layers with equal keys. The input slice is not modified.
func (r *Rules) Sort(layers []spider.FlatLayer) []spider.FlatLayer {
	type keyed struct {
		key   float64
		layer spider.FlatLayer
	}
	items := make([]keyed, len(layers))
	for i, layer := range layers {
		items[i] = keyed{key: r.Key(layer), layer: layer}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})
	sorted := make([]spider.FlatLayer, len(items))
	for i, item := range items {
		sorted[i] = item.layer
	}
	return sorted
}

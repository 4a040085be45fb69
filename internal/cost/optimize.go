// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package cost

import (
	"fmt"
	"sort"
)

// Recommendation flags an actionable cost optimization.
type Recommendation struct {
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	PotentialSavings float64 `json:"potential_savings"`
	Priority         string  `json:"priority"`
	Provider         string  `json:"provider,omitempty"`
	Model            string  `json:"model,omitempty"`
}

const (
	RecommendProviderSwitch = "provider_switch"
	RecommendModelSwitch    = "model_switch"
	RecommendBudget         = "budget_management"
)

// Thresholds for flagging optimizations.
const (
	providerSwitchRatio  = 1.5   // most expensive vs cheapest cost-per-token
	modelSwitchRatio     = 0.8   // alternative must be at least 20% cheaper
	modelSwitchMinCalls  = 10    // history required before suggesting a switch
	modelSwitchMinCPT    = 0.001 // ignore models already effectively free
	highSavingsThreshold = 100.0 // USD
)

// Recommendations derives cost optimizations from the current analytics:
// a provider switch when the spread in cost-per-token is wide, model
// switches where materially cheaper alternatives have real history, and
// a flag for every exceeded budget. Output order is deterministic.
func (t *Tracker) Recommendations() []Recommendation {
	a := t.Analytics()

	var recs []Recommendation
	recs = append(recs, providerSwitchRecs(a)...)
	recs = append(recs, modelSwitchRecs(a)...)
	recs = append(recs, budgetRecs(a)...)
	return recs
}

func providerSwitchRecs(a Analytics) []Recommendation {
	if len(a.Providers) < 2 {
		return nil
	}

	names := sortedKeys(a.Providers)
	cheapest, priciest := names[0], names[0]
	for _, name := range names[1:] {
		if a.Providers[name].CostPerToken < a.Providers[cheapest].CostPerToken {
			cheapest = name
		}
		if a.Providers[name].CostPerToken > a.Providers[priciest].CostPerToken {
			priciest = name
		}
	}

	exp, cheap := a.Providers[priciest], a.Providers[cheapest]
	if exp.CostPerToken <= cheap.CostPerToken*providerSwitchRatio {
		return nil
	}

	savings := exp.TotalCost - float64(exp.TotalTokens)*cheap.CostPerToken
	priority := "medium"
	if savings > highSavingsThreshold {
		priority = "high"
	}

	return []Recommendation{{
		Type: RecommendProviderSwitch,
		Description: fmt.Sprintf("switch from %s to %s for similar models",
			priciest, cheapest),
		PotentialSavings: savings,
		Priority:         priority,
		Provider:         priciest,
	}}
}

func modelSwitchRecs(a Analytics) []Recommendation {
	var recs []Recommendation

	for _, model := range sortedKeys(a.Models) {
		stats := a.Models[model]
		if stats.TotalRequests <= modelSwitchMinCalls || stats.CostPerToken <= modelSwitchMinCPT {
			continue
		}

		cheapest := ""
		for _, alt := range sortedKeys(a.Models) {
			if alt == model {
				continue
			}
			altCPT := a.Models[alt].CostPerToken
			if altCPT >= stats.CostPerToken*modelSwitchRatio {
				continue
			}
			if cheapest == "" || altCPT < a.Models[cheapest].CostPerToken {
				cheapest = alt
			}
		}
		if cheapest == "" {
			continue
		}

		recs = append(recs, Recommendation{
			Type: RecommendModelSwitch,
			Description: fmt.Sprintf("consider switching from %s to %s",
				model, cheapest),
			PotentialSavings: stats.TotalCost - float64(stats.TotalTokens)*a.Models[cheapest].CostPerToken,
			Priority:         "medium",
			Model:            model,
		})
	}
	return recs
}

func budgetRecs(a Analytics) []Recommendation {
	var recs []Recommendation
	for _, key := range sortedKeys(a.Budgets) {
		b := a.Budgets[key]
		if !b.Exceeded() {
			continue
		}
		recs = append(recs, Recommendation{
			Type: RecommendBudget,
			Description: fmt.Sprintf("budget exceeded for %s — raise the limit or reduce usage",
				b.Provider),
			Priority: "high",
			Provider: b.Provider,
		})
	}
	return recs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package analytics

import (
	"sort"
	"strings"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

const maxPluginCombinations = 10

// PaymentPlugins is the allow-list of payment integrations
var PaymentPlugins = []string{"stripe", "polar", "lemonsqueezy", "paddle"}

func isPaymentPlugin(name string) bool {
	for _, p := range PaymentPlugins {
		if p == name {
			return true
		}
	}
	return false
}

// AnalyzePlugins computes per-plugin usage and success, plugin combinations, auth provider
// preference and payment plugin counts.
func AnalyzePlugins(evts []events.Event) *PluginMetrics {
	usage := make(map[string]*ratio)
	combos := make(map[string]int)
	out := &PluginMetrics{
		PluginUsage:         []PluginStat{},
		PopularCombinations: []PluginCombination{},
		AuthProviders:       make(map[string]int),
		PaymentPlugins:      make(map[string]int),
	}

	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}

		plugins := uniqueSorted(e.Plugins)
		for _, p := range plugins {
			r, ok := usage[p]
			if !ok {
				r = &ratio{}
				usage[p] = r
			}
			r.add(e.Success)
		}
		if len(plugins) > 0 {
			combos[strings.Join(plugins, "+")]++
		}

		if isSet(e.Auth) {
			out.AuthProviders[e.Auth]++
		}

		payments := make(map[string]bool)
		if isPaymentPlugin(e.Payments) {
			payments[e.Payments] = true
		}
		for _, p := range plugins {
			if isPaymentPlugin(p) {
				payments[p] = true
			}
		}
		for p := range payments {
			out.PaymentPlugins[p]++
		}
	}

	for plugin, r := range usage {
		out.PluginUsage = append(out.PluginUsage, PluginStat{
			Plugin:      plugin,
			Usage:       r.total,
			Successes:   r.hits,
			SuccessRate: r.percent(),
		})
	}
	sort.Slice(out.PluginUsage, func(i, j int) bool {
		if out.PluginUsage[i].Usage != out.PluginUsage[j].Usage {
			return out.PluginUsage[i].Usage > out.PluginUsage[j].Usage
		}
		return out.PluginUsage[i].Plugin < out.PluginUsage[j].Plugin
	})

	for _, entry := range rankCounts(combos, maxPluginCombinations) {
		out.PopularCombinations = append(out.PopularCombinations, PluginCombination{
			Plugins:   entry.Key,
			Frequency: entry.Count,
		})
	}
	return out
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

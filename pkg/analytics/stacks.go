package analytics

import (
	"sort"
	"strings"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

// MaxStackCombinations is the number of combinations reported
const MaxStackCombinations = 20

type stackAccumulator struct {
	combo     StackCombination
	success   runningMean
	setupTime runningMean
}

// AnalyzeStackCombinations groups project_created events by stack tuple and returns the
// most frequent combinations.
func AnalyzeStackCombinations(evts []events.Event) []StackCombination {
	byKey := make(map[string]*stackAccumulator)

	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}
		combo := StackCombination{
			Framework: orNone(e.Framework),
			Backend:   orNone(e.Backend),
			Database:  orNone(e.Database),
			ORM:       orNone(e.ORM),
			Styling:   orNone(e.Styling),
		}
		key := strings.Join([]string{combo.Framework, combo.Backend, combo.Database, combo.ORM, combo.Styling}, "|")

		acc, ok := byKey[key]
		if !ok {
			acc = &stackAccumulator{combo: combo}
			byKey[key] = acc
		}
		acc.combo.Frequency++
		if e.Success {
			acc.success.add(100)
		} else {
			acc.success.add(0)
		}
		if e.SetupDuration.Plausible() {
			acc.setupTime.add(float64(e.SetupDuration.Value))
		}
	}

	out := make([]StackCombination, 0, len(byKey))
	for _, acc := range byKey {
		acc.combo.SuccessRate = acc.success.rounded()
		acc.combo.AvgSetupTime = acc.setupTime.rounded()
		out = append(out, acc.combo)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return stackKey(out[i]) < stackKey(out[j])
	})
	if len(out) > MaxStackCombinations {
		out = out[:MaxStackCombinations]
	}
	return out
}

func stackKey(c StackCombination) string {
	return strings.Join([]string{c.Framework, c.Backend, c.Database, c.ORM, c.Styling}, "|")
}

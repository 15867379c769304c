package analytics

import (
	"sort"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

// KnownPackageManagers are the package managers reported on
var KnownPackageManagers = []string{"npm", "yarn", "pnpm", "bun"}

func isKnownPackageManager(pm string) bool {
	for _, known := range KnownPackageManagers {
		if pm == known {
			return true
		}
	}
	return false
}

// AnalyzePerformance averages setup and install durations by package manager and computes
// success rates by framework and package manager.
func AnalyzePerformance(evts []events.Event) *PerformanceMetrics {
	setupByPM := make(map[string]*mean)
	installByPM := make(map[string]*mean)
	successByFramework := make(map[string]*ratio)
	successByPM := make(map[string]*ratio)
	var setupSamples []int64
	sampleSize := 0

	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}
		sampleSize++

		if e.SetupDuration.Plausible() {
			setupSamples = append(setupSamples, e.SetupDuration.Value)
		}

		if e.Framework != "" {
			r, ok := successByFramework[e.Framework]
			if !ok {
				r = &ratio{}
				successByFramework[e.Framework] = r
			}
			r.add(e.Success)
		}

		if !isKnownPackageManager(e.PackageManager) {
			continue
		}
		pm := e.PackageManager
		if _, ok := setupByPM[pm]; !ok {
			setupByPM[pm] = &mean{}
			installByPM[pm] = &mean{}
			successByPM[pm] = &ratio{}
		}
		setupByPM[pm].addMillis(e.SetupDuration)
		installByPM[pm].addMillis(e.InstallDuration)
		successByPM[pm].add(e.Success)
	}

	out := &PerformanceMetrics{
		SampleSize:                     sampleSize,
		AvgSetupTimeByPackageManager:   make(map[string]int),
		AvgInstallTimeByPackageManager: make(map[string]int),
		SuccessRateByFramework:         make(map[string]int),
		SuccessRateByPackageManager:    make(map[string]int),
	}
	for pm, m := range setupByPM {
		if m.count > 0 {
			out.AvgSetupTimeByPackageManager[pm] = m.rounded()
		}
	}
	for pm, m := range installByPM {
		if m.count > 0 {
			out.AvgInstallTimeByPackageManager[pm] = m.rounded()
		}
	}
	for fw, r := range successByFramework {
		out.SuccessRateByFramework[fw] = r.percent()
	}
	for pm, r := range successByPM {
		out.SuccessRateByPackageManager[pm] = r.percent()
	}

	sort.Slice(setupSamples, func(i, j int) bool { return setupSamples[i] < setupSamples[j] })
	out.SetupTimeP50 = percentile(setupSamples, 50)
	out.SetupTimeP95 = percentile(setupSamples, 95)
	return out
}

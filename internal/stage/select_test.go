// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/protquant/internal/artifact"
	"github.com/pdiddy/protquant/pkg/types"
)

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

func selectorConfig(mode types.Mode, approach types.Approach, openSource bool) types.RunConfiguration {
	return types.RunConfiguration{
		Mode:          mode,
		Approach:      approach,
		OpenSourceDIA: openSource,
	}
}

// TestSelectDecisionTable crosses every mode/openSourceDIA combination with
// every approach and checks the resulting stage list against the decision
// table: the right search path, IS extraction exactly when the approach is
// label, and sample discovery from the right source.
func TestSelectDecisionTable(t *testing.T) {
	tools := types.DefaultPipelineConfig()
	tools.Methods = []types.Method{types.MethodTop3, types.MethodIBAQ}

	searchPathFor := map[string][]string{
		"DIA/open":              {NameDiannSearch},
		"DIA/proprietary":       {NameSpectronaut},
		"directDIA/open/label":  {NameDiannLibGen, NameDiannLibSearch},
		"directDIA/open/single": {NameDiannDirect},
		"directDIA/proprietary": {NameSpectronautDirect},
		"DDA":                   {NameSamplesFromTotals, NameDDAConvert},
	}

	tests := []struct {
		name       string
		mode       types.Mode
		openSource bool
		searchKey  func(approach types.Approach) string
	}{
		{
			name: "DIA with DIA-NN", mode: types.ModeDIA, openSource: true,
			searchKey: func(types.Approach) string { return "DIA/open" },
		},
		{
			name: "DIA with Spectronaut", mode: types.ModeDIA,
			searchKey: func(types.Approach) string { return "DIA/proprietary" },
		},
		{
			name: "directDIA with DIA-NN", mode: types.ModeDirectDIA, openSource: true,
			searchKey: func(a types.Approach) string {
				if a == types.ApproachLabel {
					return "directDIA/open/label"
				}
				return "directDIA/open/single"
			},
		},
		{
			name: "directDIA with Spectronaut", mode: types.ModeDirectDIA,
			searchKey: func(types.Approach) string { return "directDIA/proprietary" },
		},
		{
			name: "DDA", mode: types.ModeDDA,
			searchKey: func(types.Approach) string { return "DDA" },
		},
		{
			name: "DDA ignores openSourceDIA", mode: types.ModeDDA, openSource: true,
			searchKey: func(types.Approach) string { return "DDA" },
		},
	}

	for _, tt := range tests {
		for _, approach := range []types.Approach{types.ApproachLabel, types.ApproachUnlabel, types.ApproachFree} {
			t.Run(tt.name+"/"+string(approach), func(t *testing.T) {
				cfg := selectorConfig(tt.mode, approach, tt.openSource)

				want := []string{NameFastaID}
				want = append(want, searchPathFor[tt.searchKey(approach)]...)
				if tt.mode != types.ModeDDA {
					want = append(want, NameSamplesFromReport)
				}
				if approach == types.ApproachLabel {
					want = append(want, NameISExtract)
				}
				want = append(want, NamePrimaryInput,
					"normalize-Top3", "normalize-iBAQ",
					NameQuant, NameCollect)

				assert.Equal(t, want, stageNames(Select(cfg, tools)))
			})
		}
	}
}

// The normalisation set comes from configuration, not branching logic: a
// single configured method shrinks the stage list without touching any other
// stage.
func TestSelectMethodSet(t *testing.T) {
	tools := types.DefaultPipelineConfig()
	cfg := selectorConfig(types.ModeDDA, types.ApproachFree, false)

	all := stageNames(Select(cfg, tools))
	for _, m := range types.AllMethods() {
		assert.Contains(t, all, "normalize-"+string(m))
	}

	tools.Methods = []types.Method{types.MethodXTop}
	one := Select(cfg, tools)
	names := stageNames(one)
	assert.Contains(t, names, "normalize-xTop")
	assert.NotContains(t, names, "normalize-Top3")

	// The quant stage's inputs track the configured set.
	for _, s := range one {
		if s.Name == NameQuant {
			assert.Equal(t, []string{artifact.IDFasta, artifact.ProtIntensity(types.MethodXTop)}, s.Needs)
		}
		if s.Name == NameCollect {
			assert.Equal(t, []string{QuantOutput(types.MethodXTop)}, s.Needs)
		}
	}
}

func TestEngineFor(t *testing.T) {
	tests := []struct {
		cfg  types.RunConfiguration
		want artifact.Engine
	}{
		{selectorConfig(types.ModeDDA, types.ApproachFree, true), artifact.EnginePD},
		{selectorConfig(types.ModeDIA, types.ApproachFree, true), artifact.EngineDIANN},
		{selectorConfig(types.ModeDIA, types.ApproachFree, false), artifact.EngineSpectronaut},
		{selectorConfig(types.ModeDirectDIA, types.ApproachLabel, true), artifact.EngineDIANN},
		{selectorConfig(types.ModeDirectDIA, types.ApproachLabel, false), artifact.EngineSpectronaut},
	}
	for _, tt := range tests {
		if got := EngineFor(tt.cfg); got != tt.want {
			t.Errorf("EngineFor(%s, open=%v) = %s, want %s",
				tt.cfg.Mode, tt.cfg.OpenSourceDIA, got, tt.want)
		}
	}
}

// Labelled settings profiles are picked exactly for the label approach.
func TestSettingsProfileSelection(t *testing.T) {
	tools := types.DefaultPipelineConfig()
	tools.Diann.Settings = "plain.cfg"
	tools.Diann.SettingsLabel = "label.cfg"
	tools.Spectronaut.Settings = "plain.prop"
	tools.Spectronaut.SettingsLabel = "label.prop"

	labelEnv := &Env{Config: selectorConfig(types.ModeDIA, types.ApproachLabel, true), Tools: tools}
	freeEnv := &Env{Config: selectorConfig(types.ModeDIA, types.ApproachFree, true), Tools: tools}

	assert.Equal(t, "label.cfg", diannSettings(labelEnv))
	assert.Equal(t, "plain.cfg", diannSettings(freeEnv))
	assert.Equal(t, "label.prop", spectronautSettings(labelEnv))
	assert.Equal(t, "plain.prop", spectronautSettings(freeEnv))
}

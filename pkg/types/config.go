// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DiannConfig locates the DIA-NN binary and its settings profiles.
type DiannConfig struct {
	// Bin is the DIA-NN executable (default "diann").
	Bin string `json:"bin" yaml:"bin"`

	// Settings is the settings-profile file for unlabelled searches.
	Settings string `json:"settings" yaml:"settings"`

	// SettingsLabel is the settings-profile file for isotope-labelled
	// searches; used whenever the approach is label.
	SettingsLabel string `json:"settings_label" yaml:"settings_label"`
}

// SpectronautConfig locates the Spectronaut binary and its settings schemas.
type SpectronautConfig struct {
	// Bin is the Spectronaut executable (default "spectronaut").
	Bin string `json:"bin" yaml:"bin"`

	// Settings is the analysis schema for unlabelled searches.
	Settings string `json:"settings" yaml:"settings"`

	// SettingsLabel is the analysis schema for isotope-labelled searches.
	SettingsLabel string `json:"settings_label" yaml:"settings_label"`
}

// MethodToolConfig describes the external tool behind one normalisation
// method: an argv prefix completed with input CSV, ID-only FASTA, and output
// CSV paths at invocation time.
type MethodToolConfig struct {
	// Cmd is the command prefix, e.g. ["Rscript", "scripts/top3.R"].
	Cmd []string `json:"cmd" yaml:"cmd"`

	// PerSample marks tools invoked once per sample instead of once per run
	// (LFAQ). Per-sample outputs are merged into the method's intensity table.
	PerSample bool `json:"per_sample" yaml:"per_sample"`
}

// QuantConfig locates the absolute-quantification tool.
type QuantConfig struct {
	// Cmd is the command prefix, e.g. ["Rscript", "scripts/absquant.R"].
	Cmd []string `json:"cmd" yaml:"cmd"`
}

// PipelineConfig groups tool locations and the active normalisation-method
// set. It comes from protquant.yaml / environment, not from per-run flags.
type PipelineConfig struct {
	Diann       DiannConfig       `json:"diann" yaml:"diann"`
	Spectronaut SpectronautConfig `json:"spectronaut" yaml:"spectronaut"`

	// MethodTools maps each normalisation method to its external tool.
	MethodTools map[Method]MethodToolConfig `json:"method_tools" yaml:"method_tools"`

	// Quant is the absolute-quantification tool.
	Quant QuantConfig `json:"quant" yaml:"quant"`

	// Methods is the active normalisation set, in execution order.
	// Empty means all supported methods.
	Methods []Method `json:"methods" yaml:"methods"`

	// Workers bounds the per-sample fan-out of per-sample method tools.
	// Values below 1 mean sequential execution.
	Workers int `json:"workers" yaml:"workers"`
}

// ActiveMethods returns the configured method set, defaulting to all
// supported methods when none are configured.
func (c PipelineConfig) ActiveMethods() []Method {
	if len(c.Methods) == 0 {
		return AllMethods()
	}
	return c.Methods
}

// MethodTool returns the tool configuration for method m, falling back to a
// conventional Rscript invocation named after the method when unconfigured.
func (c PipelineConfig) MethodTool(m Method) MethodToolConfig {
	if t, ok := c.MethodTools[m]; ok && len(t.Cmd) > 0 {
		return t
	}
	return MethodToolConfig{
		Cmd:       []string{"Rscript", "scripts/" + string(m) + ".R"},
		PerSample: m == MethodLFAQ,
	}
}

// DefaultPipelineConfig returns a configuration that assumes every tool is
// reachable on PATH and all methods are active.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Diann:       DiannConfig{Bin: "diann"},
		Spectronaut: SpectronautConfig{Bin: "spectronaut"},
		Quant:       QuantConfig{Cmd: []string{"Rscript", "scripts/absquant.R"}},
		Workers:     1,
	}
}

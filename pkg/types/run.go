// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Mode is the mass-spectrometry acquisition mode of the input data. The mode
// decides which search strategy runs upstream of quantification.
type Mode string

const (
	ModeDDA       Mode = "DDA"
	ModeDIA       Mode = "DIA"
	ModeDirectDIA Mode = "directDIA"
)

// Valid reports whether m is one of the three supported acquisition modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDDA, ModeDIA, ModeDirectDIA:
		return true
	}
	return false
}

// Approach is the absolute-quantification strategy: isotope-labelled internal
// standards, unlabelled standard proteins, or standard-free.
type Approach string

const (
	ApproachLabel   Approach = "label"
	ApproachUnlabel Approach = "unlabel"
	ApproachFree    Approach = "free"
)

// Valid reports whether a is one of the three supported approaches.
func (a Approach) Valid() bool {
	switch a {
	case ApproachLabel, ApproachUnlabel, ApproachFree:
		return true
	}
	return false
}

// UsesStandards reports whether the approach consumes a standard-concentration
// file (label and unlabel do; free does not).
func (a Approach) UsesStandards() bool {
	return a == ApproachLabel || a == ApproachUnlabel
}

// Method is a peptide-to-protein normalisation algorithm.
type Method string

const (
	MethodTop3   Method = "Top3"
	MethodTopall Method = "Topall"
	MethodIBAQ   Method = "iBAQ"
	MethodAPEX   Method = "APEX"
	MethodNSAF   Method = "NSAF"
	MethodLFAQ   Method = "LFAQ"
	MethodXTop   Method = "xTop"
)

// AllMethods lists every supported normalisation method in canonical order.
// The active set for a run is a configured subset of this list.
func AllMethods() []Method {
	return []Method{
		MethodTop3, MethodTopall, MethodIBAQ, MethodAPEX,
		MethodNSAF, MethodLFAQ, MethodXTop,
	}
}

// BgsFastaSuffix is the file suffix Spectronaut requires for direct-DIA
// background proteome files. The check is a case-sensitive literal match.
const BgsFastaSuffix = ".bgsfasta"

// RunConfiguration is the immutable per-run input set, built once from CLI
// arguments and validated before the pipeline touches disk. Exactly the
// fields required by the (mode, approach, openSourceDIA) combination are
// non-empty after validation.
type RunConfiguration struct {
	Mode          Mode
	Approach      Approach
	OpenSourceDIA bool

	// ExperimentName labels the run and prefixes every produced artifact.
	ExperimentName string

	// InputDir holds the raw MS data; the run directory is created inside it.
	InputDir string

	// FastaFile is the search database; always required.
	FastaFile string

	// TotalProteinFile lists per-sample total protein amounts; always required.
	// In DDA mode its sample column also supplies the sample identifiers.
	TotalProteinFile string

	// DDAResultsFile is the Proteome Discoverer peptide-groups export
	// (required when Mode == DDA).
	DDAResultsFile string

	// SpectralLibraryFile is the library for DIA searches
	// (required when Mode == DIA).
	SpectralLibraryFile string

	// BgsFastaFile is the Spectronaut background proteome
	// (required when Mode == directDIA and OpenSourceDIA is false).
	BgsFastaFile string

	// ISConcentrationFile holds internal-standard concentrations
	// (required when Approach is label or unlabel).
	ISConcentrationFile string
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"

	"github.com/pdiddy/protquant/internal/artifact"
)

// Schema names the columns of a peptide-level report. Each search engine
// labels the same four concepts differently; downstream stages always work
// through a Schema instead of hard-coding engine column names.
type Schema struct {
	Protein   string
	Peptide   string
	Sample    string
	Intensity string
}

// Engine report schemas. The DIA-NN and Spectronaut names are those tools'
// export conventions; the PD schema is the normalised shape this pipeline's
// own DDA conversion emits.
var (
	diannSchema = Schema{
		Protein:   "Protein.Group",
		Peptide:   "Stripped.Sequence",
		Sample:    "Run",
		Intensity: "Precursor.Quantity",
	}
	spectronautSchema = Schema{
		Protein:   "PG.ProteinAccessions",
		Peptide:   "PEP.StrippedSequence",
		Sample:    "R.FileName",
		Intensity: "PEP.Quantity",
	}
	pdSchema = Schema{
		Protein:   "Protein",
		Peptide:   "Peptide",
		Sample:    "Sample",
		Intensity: "Intensity",
	}
)

// EngineSchema returns the report schema for the engine that produced the
// primary report.
func EngineSchema(e artifact.Engine) (Schema, error) {
	switch e {
	case artifact.EngineDIANN:
		return diannSchema, nil
	case artifact.EngineSpectronaut:
		return spectronautSchema, nil
	case artifact.EnginePD:
		return pdSchema, nil
	}
	return Schema{}, fmt.Errorf("unknown report engine %q", e)
}

// Samples returns the distinct sample/run identifiers of a report, in order
// of first appearance.
func Samples(path string, s Schema) ([]string, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	samples, err := t.UniqueColumn(s.Sample)
	if err != nil {
		return nil, fmt.Errorf("discovering samples in %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("report %s names no samples", path)
	}
	return samples, nil
}

// totalProteinSampleColumn is the sample column of the total-protein-amount
// file. In DDA mode this column supplies the sample identifiers, because the
// DDA conversion itself needs the sample list as an input.
const totalProteinSampleColumn = "Sample"

// SamplesFromTotalProtein reads the sample identifiers from the
// total-protein-amount file.
func SamplesFromTotalProtein(path string) ([]string, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	samples, err := t.UniqueColumn(totalProteinSampleColumn)
	if err != nil {
		return nil, fmt.Errorf("reading samples from %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("total-protein file %s names no samples", path)
	}
	return samples, nil
}

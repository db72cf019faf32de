// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strconv"
	"strings"
)

// peptideKey identifies one peptide of one protein group across samples.
type peptideKey struct {
	protein string
	peptide string
}

// pivot aggregates a peptide-level report into per-(protein, peptide)
// intensity sums per sample. Key order follows first appearance so shaped
// tables are deterministic for a given report.
func pivot(t *Table, s Schema) ([]peptideKey, map[peptideKey]map[string]float64, error) {
	protIdx, err := t.ColumnIndex(s.Protein)
	if err != nil {
		return nil, nil, err
	}
	pepIdx, err := t.ColumnIndex(s.Peptide)
	if err != nil {
		return nil, nil, err
	}
	sampleIdx, err := t.ColumnIndex(s.Sample)
	if err != nil {
		return nil, nil, err
	}
	intIdx, err := t.ColumnIndex(s.Intensity)
	if err != nil {
		return nil, nil, err
	}

	var order []peptideKey
	sums := make(map[peptideKey]map[string]float64)
	for _, row := range t.Rows {
		max := protIdx
		for _, idx := range []int{pepIdx, sampleIdx, intIdx} {
			if idx > max {
				max = idx
			}
		}
		if max >= len(row) {
			continue
		}
		intensity, err := strconv.ParseFloat(strings.TrimSpace(row[intIdx]), 64)
		if err != nil {
			continue
		}
		key := peptideKey{
			protein: strings.TrimSpace(row[protIdx]),
			peptide: strings.TrimSpace(row[pepIdx]),
		}
		if key.protein == "" || key.peptide == "" {
			continue
		}
		if _, ok := sums[key]; !ok {
			sums[key] = make(map[string]float64)
			order = append(order, key)
		}
		sums[key][strings.TrimSpace(row[sampleIdx])] += intensity
	}
	if len(order) == 0 {
		return nil, nil, fmt.Errorf("report holds no parseable peptide intensities")
	}
	return order, sums, nil
}

// ShapeForMethod converts a peptide-level report into the wide table a
// global normalisation tool consumes: one row per (protein, peptide), one
// intensity column per sample.
func ShapeForMethod(reportPath string, s Schema, samples []string, outPath string) error {
	t, err := ReadTable(reportPath)
	if err != nil {
		return err
	}
	order, sums, err := pivot(t, s)
	if err != nil {
		return fmt.Errorf("shaping %s: %w", reportPath, err)
	}

	out := &Table{Header: append([]string{pdSchema.Protein, pdSchema.Peptide}, samples...)}
	for _, key := range order {
		row := []string{key.protein, key.peptide}
		for _, sample := range samples {
			row = append(row, formatIntensity(sums[key][sample]))
		}
		out.Rows = append(out.Rows, row)
	}
	return out.Write(outPath)
}

// ShapeForSample converts a peptide-level report into the narrow table a
// per-sample normalisation tool consumes: one row per (protein, peptide)
// holding the one sample's intensity.
func ShapeForSample(reportPath string, s Schema, sample, outPath string) error {
	t, err := ReadTable(reportPath)
	if err != nil {
		return err
	}
	order, sums, err := pivot(t, s)
	if err != nil {
		return fmt.Errorf("shaping %s for sample %s: %w", reportPath, sample, err)
	}

	out := &Table{Header: []string{pdSchema.Protein, pdSchema.Peptide, pdSchema.Intensity}}
	for _, key := range order {
		v, ok := sums[key][sample]
		if !ok {
			continue
		}
		out.Rows = append(out.Rows, []string{key.protein, key.peptide, formatIntensity(v)})
	}
	if len(out.Rows) == 0 {
		return fmt.Errorf("report %s holds no intensities for sample %s", reportPath, sample)
	}
	return out.Write(outPath)
}

// MergePerSample merges per-sample protein intensity tables (protein in the
// first column, intensity in the second) into one wide table with a column
// per sample. Protein order follows first appearance across samples.
func MergePerSample(files map[string]string, samples []string, outPath string) error {
	intensities := make(map[string]map[string]string)
	var order []string
	for _, sample := range samples {
		path, ok := files[sample]
		if !ok {
			return fmt.Errorf("no per-sample output for %s", sample)
		}
		t, err := ReadTable(path)
		if err != nil {
			return err
		}
		for _, row := range t.Rows {
			if len(row) < 2 {
				continue
			}
			protein := strings.TrimSpace(row[0])
			if protein == "" {
				continue
			}
			if _, ok := intensities[protein]; !ok {
				intensities[protein] = make(map[string]string)
				order = append(order, protein)
			}
			intensities[protein][sample] = strings.TrimSpace(row[1])
		}
	}
	if len(order) == 0 {
		return fmt.Errorf("per-sample outputs hold no proteins")
	}

	out := &Table{Header: append([]string{pdSchema.Protein}, samples...)}
	for _, protein := range order {
		row := []string{protein}
		for _, sample := range samples {
			row = append(row, intensities[protein][sample])
		}
		out.Rows = append(out.Rows, row)
	}
	return out.Write(outPath)
}

// formatIntensity renders an intensity sum, leaving true zero blank so
// missing values stay distinguishable downstream.
func formatIntensity(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

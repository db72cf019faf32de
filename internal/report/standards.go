// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"
)

// ISAccessions reads the internal-standard protein accessions from the
// IS-concentration file. The first column holds the accession regardless of
// its header name.
func ISAccessions(isConcPath string) (map[string]bool, error) {
	t, err := ReadTable(isConcPath)
	if err != nil {
		return nil, err
	}
	accessions := make(map[string]bool)
	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		acc := strings.TrimSpace(row[0])
		if acc != "" {
			accessions[acc] = true
		}
	}
	if len(accessions) == 0 {
		return nil, fmt.Errorf("IS-concentration file %s names no accessions", isConcPath)
	}
	return accessions, nil
}

// ExtractIS splits the primary report into endogenous and internal-standard
// signal: rows whose protein group contains an IS accession are written as
// the standalone IS intensity table (PD-schema columns), the remaining rows
// as the IS-subtracted NL report with the original schema intact.
func ExtractIS(reportPath string, s Schema, isConcPath, nlPath, isPath string) error {
	accessions, err := ISAccessions(isConcPath)
	if err != nil {
		return err
	}

	t, err := ReadTable(reportPath)
	if err != nil {
		return err
	}
	protIdx, err := t.ColumnIndex(s.Protein)
	if err != nil {
		return fmt.Errorf("extracting internal standards from %s: %w", reportPath, err)
	}
	pepIdx, err := t.ColumnIndex(s.Peptide)
	if err != nil {
		return fmt.Errorf("extracting internal standards from %s: %w", reportPath, err)
	}
	sampleIdx, err := t.ColumnIndex(s.Sample)
	if err != nil {
		return fmt.Errorf("extracting internal standards from %s: %w", reportPath, err)
	}
	intIdx, err := t.ColumnIndex(s.Intensity)
	if err != nil {
		return fmt.Errorf("extracting internal standards from %s: %w", reportPath, err)
	}

	nl := &Table{Header: t.Header}
	is := &Table{Header: []string{pdSchema.Protein, pdSchema.Peptide, pdSchema.Sample, pdSchema.Intensity}}
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
		if isStandard(row[protIdx], accessions) {
			is.Rows = append(is.Rows, []string{row[protIdx], row[pepIdx], row[sampleIdx], row[intIdx]})
			continue
		}
		nl.Rows = append(nl.Rows, row)
	}

	if len(is.Rows) == 0 {
		return fmt.Errorf("report %s contains no internal-standard peptides", reportPath)
	}
	if err := nl.Write(nlPath); err != nil {
		return err
	}
	return is.Write(isPath)
}

// isStandard reports whether a protein-group field (possibly a
// semicolon-joined group) names any internal-standard accession.
func isStandard(proteinGroup string, accessions map[string]bool) bool {
	for _, acc := range strings.Split(proteinGroup, ";") {
		if accessions[strings.TrimSpace(acc)] {
			return true
		}
	}
	return false
}

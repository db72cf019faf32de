// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Proteome Discoverer peptide-groups export columns. The abundance columns
// fan out one per sample as "Abundance: {sample}".
const (
	pdProteinColumn   = "Master Protein Accessions"
	pdPeptideColumn   = "Annotated Sequence"
	pdAbundancePrefix = "Abundance: "
)

// ConvertPDExport converts a Proteome Discoverer peptide-groups export into
// the normalised long-format DDA report: one row per (protein, peptide,
// sample) with the columns of the PD schema. Only the given samples are
// carried over; a sample with no matching abundance column is an error
// because the quantification downstream would silently lose it.
func ConvertPDExport(pdPath string, samples []string, outPath string) error {
	t, err := ReadTable(pdPath)
	if err != nil {
		return err
	}

	protIdx, err := t.ColumnIndex(pdProteinColumn)
	if err != nil {
		return fmt.Errorf("converting %s: %w", pdPath, err)
	}
	pepIdx, err := t.ColumnIndex(pdPeptideColumn)
	if err != nil {
		return fmt.Errorf("converting %s: %w", pdPath, err)
	}

	abundance := make([]int, len(samples))
	for i, sample := range samples {
		idx, err := t.ColumnIndex(pdAbundancePrefix + sample)
		if err != nil {
			return fmt.Errorf("converting %s: no abundance column for sample %q", pdPath, sample)
		}
		abundance[i] = idx
	}

	out := &Table{Header: []string{pdSchema.Protein, pdSchema.Peptide, pdSchema.Sample, pdSchema.Intensity}}
	for _, row := range t.Rows {
		if protIdx >= len(row) || pepIdx >= len(row) {
			continue
		}
		protein := strings.TrimSpace(row[protIdx])
		peptide := stripPeptideAnnotations(row[pepIdx])
		if protein == "" || peptide == "" {
			continue
		}
		for i, sample := range samples {
			if abundance[i] >= len(row) {
				continue
			}
			intensity := strings.TrimSpace(row[abundance[i]])
			if intensity == "" {
				continue
			}
			out.Rows = append(out.Rows, []string{protein, peptide, sample, intensity})
		}
	}

	if len(out.Rows) == 0 {
		return fmt.Errorf("converting %s: no quantified peptides for samples %v", pdPath, samples)
	}
	return out.Write(outPath)
}

// stripPeptideAnnotations reduces a PD annotated sequence like
// "[K].ELVISLIVES.[A]" to the bare peptide string.
func stripPeptideAnnotations(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if len(parts) == 3 {
		s = parts[1]
	}
	return strings.ToUpper(strings.Trim(s, "[]"))
}

// StripFastaIDs rewrites a FASTA file so that every header keeps only the
// accession identifier: ">sp|P12345|NAME description" and ">P12345
// description" both become ">P12345". Sequence lines pass through unchanged.
// Several downstream tools require this ID-only variant.
func StripFastaIDs(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening FASTA %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating FASTA %s: %w", outPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	headers := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			headers++
			line = ">" + fastaAccession(line[1:])
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("writing FASTA %s: %w", outPath, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading FASTA %s: %w", inPath, err)
	}
	if headers == 0 {
		return fmt.Errorf("FASTA %s contains no sequence headers", inPath)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing FASTA %s: %w", outPath, err)
	}
	return nil
}

// fastaAccession extracts the accession from a FASTA header body. UniProt
// headers carry the accession in the middle pipe field; otherwise the first
// whitespace token is the accession.
func fastaAccession(header string) string {
	token := strings.Fields(header)
	if len(token) == 0 {
		return header
	}
	first := token[0]
	if parts := strings.Split(first, "|"); len(parts) >= 3 {
		return parts[1]
	}
	return first
}

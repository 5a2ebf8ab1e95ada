// Package taxon renames downloaded assemblies after the organism, strain and
// accession reported by NCBI.
package taxon

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var sequenceExts = map[string]bool{
	".fna":   true,
	".fasta": true,
	".fa":    true,
	".fas":   true,
}

// LookupTerm derives the assembly accession used to query NCBI from a file
// name: the first two underscore separated fields, so
// GCF_000005845.2_ASM584v2_genomic.fna gives GCF_000005845.2.
func LookupTerm(filename string) string {
	stem := filepath.Base(filename)
	if ext := filepath.Ext(stem); sequenceExts[ext] {
		stem = strings.TrimSuffix(stem, ext)
	}
	parts := strings.SplitN(stem, "_", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "_")
}

var (
	parenthesized = regexp.MustCompile(`_?\([^()]*\)`)
	underscoreRun = regexp.MustCompile(`_+`)
	strayRemover  = strings.NewReplacer("(", "", ")", "", ";", "", "=", "")
)

func toUnderscore(r rune) rune {
	if unicode.IsSpace(r) {
		return '_'
	}
	switch r {
	case ':', '+', ',', '.', '-', '/':
		return '_'
	}
	return r
}

// Sanitize turns a metadata record into a token usable as a file name.
// Whitespace and :+,.-/ become underscores, parenthesized annotations are
// dropped, stray ( ) ; = are removed and underscore runs are collapsed.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	s := strings.Map(toUnderscore, text)
	for {
		t := parenthesized.ReplaceAllString(s, "")
		if t == s {
			break
		}
		s = t
	}
	s = strayRemover.Replace(s)
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

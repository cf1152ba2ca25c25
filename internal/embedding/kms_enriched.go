package embedding

import (
	"context"
	"strings"
)

// TermLookup resolves a term to its KMS definition, or "" if none is
// found. Satisfied by *kms.Client; kept as a narrow interface here so this
// package doesn't need to import kms.
type TermLookup interface {
	LookupDefinition(ctx context.Context, term, scheme string) string
}

// KMSEnriched wraps a Generator and enriches text with KMS definitions
// before embedding. For hierarchical keyword paths like
// "EARTH SCIENCE > ATMOSPHERE > PRECIPITATION" it extracts the most
// specific term, looks up its definition, and replaces the line with
// "TERM: definition", giving the downstream embedding richer semantic
// context than the bare keyword path. Lines without a definition are kept
// as they are.
type KMSEnriched struct {
	base   Generator
	lookup TermLookup
	scheme string
}

func NewKMSEnriched(base Generator, lookup TermLookup, scheme string) *KMSEnriched {
	if scheme == "" {
		scheme = "sciencekeywords"
	}
	return &KMSEnriched{base: base, lookup: lookup, scheme: scheme}
}

func (g *KMSEnriched) ModelID() string { return g.base.ModelID() }

func (g *KMSEnriched) Generate(ctx context.Context, text string, conceptType, attribute string) ([]float32, error) {
	return g.base.Generate(ctx, g.enrich(ctx, text), conceptType, attribute)
}

func (g *KMSEnriched) enrich(ctx context.Context, text string) string {
	var lines []string
	if strings.Contains(text, "\n") {
		lines = strings.Split(text, "\n")
	} else {
		lines = []string{text}
	}

	enriched := make([]string, len(lines))
	for i, line := range lines {
		enriched[i] = g.enrichLine(ctx, strings.TrimSpace(line))
	}
	return strings.Join(enriched, "\n")
}

func (g *KMSEnriched) enrichLine(ctx context.Context, path string) string {
	if path == "" {
		return path
	}

	term := mostSpecificTerm(path)
	definition := g.lookup.LookupDefinition(ctx, term, g.scheme)
	if definition == "" {
		return path
	}
	return term + ": " + definition
}

func mostSpecificTerm(path string) string {
	if strings.Contains(path, " > ") {
		parts := strings.Split(path, " > ")
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return strings.TrimSpace(path)
}

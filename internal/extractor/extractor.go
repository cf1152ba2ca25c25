// Package extractor pulls embeddable text chunks and KMS term references
// out of a CMR concept's raw UMM metadata, per concept type.
package extractor

import (
	"encoding/json"
	"strings"

	"github.com/nasa/earthdata-mcp/internal/domain"
)

var collectionFields = map[string]string{
	"EntryTitle": "title",
	"Abstract":   "abstract",
	"Purpose":    "purpose",
}

var variableFields = map[string]string{
	"Name":       "name",
	"LongName":   "long_name",
	"Definition": "definition",
}

var citationFields = map[string]string{
	"Name":     "name",
	"Abstract": "abstract",
}

// ExtractData routes to the appropriate per-concept-type extractor. An
// unrecognized concept type yields an empty result rather than an error:
// extraction is best-effort metadata mining, not a validation gate.
func ExtractData(conceptType, conceptID string, metadata json.RawMessage) domain.ExtractionResult {
	switch conceptType {
	case domain.ConceptTypeCollection:
		return extractFromCollection(conceptID, metadata)
	case domain.ConceptTypeVariable:
		return extractFromVariable(conceptID, metadata)
	case domain.ConceptTypeCitation:
		return extractFromCitation(conceptID, metadata)
	default:
		return domain.ExtractionResult{}
	}
}

func extractFromCollection(conceptID string, metadata json.RawMessage) domain.ExtractionResult {
	var m collectionMetadata
	_ = json.Unmarshal(metadata, &m)

	chunks := extractTextChunks(domain.ConceptTypeCollection, conceptID, m.raw, collectionFields)
	kmsTerms := append(extractScienceKeywords(m.ScienceKeywords), extractPlatformsAndInstruments(m.Platforms)...)
	return domain.ExtractionResult{Chunks: chunks, KMSTerms: kmsTerms}
}

func extractFromVariable(conceptID string, metadata json.RawMessage) domain.ExtractionResult {
	var m variableMetadata
	_ = json.Unmarshal(metadata, &m)

	chunks := extractTextChunks(domain.ConceptTypeVariable, conceptID, m.raw, variableFields)
	kmsTerms := extractScienceKeywords(m.ScienceKeywords)
	return domain.ExtractionResult{Chunks: chunks, KMSTerms: kmsTerms}
}

func extractFromCitation(conceptID string, metadata json.RawMessage) domain.ExtractionResult {
	var m citationMetadata
	_ = json.Unmarshal(metadata, &m)

	chunks := extractTextChunks(domain.ConceptTypeCitation, conceptID, m.raw, citationFields)
	if authors := extractCitationAuthors(conceptID, m.CitationMetadata); authors != nil {
		chunks = append(chunks, *authors)
	}
	if publisher := extractCitationPublisher(conceptID, m.CitationMetadata); publisher != nil {
		chunks = append(chunks, *publisher)
	}
	return domain.ExtractionResult{Chunks: chunks, KMSTerms: nil}
}

type scienceKeyword struct {
	Category       string `json:"Category"`
	Topic          string `json:"Topic"`
	Term           string `json:"Term"`
	VariableLevel1 string `json:"VariableLevel1"`
	VariableLevel2 string `json:"VariableLevel2"`
	VariableLevel3 string `json:"VariableLevel3"`
}

type instrument struct {
	ShortName string `json:"ShortName"`
}

type platform struct {
	ShortName   string       `json:"ShortName"`
	Instruments []instrument `json:"Instruments"`
}

type citationAuthor struct {
	Given  string `json:"Given"`
	Family string `json:"Family"`
}

type citationMetadataFields struct {
	Author    []citationAuthor `json:"Author"`
	Publisher string            `json:"Publisher"`
}

type collectionMetadata struct {
	raw             map[string]string
	ScienceKeywords []scienceKeyword `json:"ScienceKeywords"`
	Platforms       []platform       `json:"Platforms"`
}

func (m *collectionMetadata) UnmarshalJSON(data []byte) error {
	type alias collectionMetadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = collectionMetadata(a)
	m.raw = decodeStringFields(data)
	return nil
}

type variableMetadata struct {
	raw             map[string]string
	ScienceKeywords []scienceKeyword `json:"ScienceKeywords"`
}

func (m *variableMetadata) UnmarshalJSON(data []byte) error {
	type alias variableMetadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = variableMetadata(a)
	m.raw = decodeStringFields(data)
	return nil
}

type citationMetadata struct {
	raw              map[string]string
	CitationMetadata citationMetadataFields `json:"CitationMetadata"`
}

func (m *citationMetadata) UnmarshalJSON(data []byte) error {
	type alias citationMetadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = citationMetadata(a)
	m.raw = decodeStringFields(data)
	return nil
}

// decodeStringFields decodes only the top-level string-valued fields of a
// UMM metadata object, ignoring everything else (nested objects/arrays are
// handled by their own typed fields above).
func decodeStringFields(data []byte) map[string]string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
		}
	}
	return out
}

func extractTextChunks(conceptType, conceptID string, fields map[string]string, fieldMap map[string]string) []domain.EmbeddingChunk {
	var chunks []domain.EmbeddingChunk
	for ummField, attribute := range fieldMap {
		text := strings.TrimSpace(fields[ummField])
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.EmbeddingChunk{
			ConceptType: conceptType,
			ConceptID:   conceptID,
			Attribute:   attribute,
			TextContent: text,
		})
	}
	return chunks
}

func extractScienceKeywords(keywords []scienceKeyword) []domain.KMSTerm {
	var terms []domain.KMSTerm
	for _, kw := range keywords {
		term := firstNonEmpty(kw.VariableLevel3, kw.VariableLevel2, kw.VariableLevel1, kw.Term)
		if term == "" {
			continue
		}
		terms = append(terms, domain.KMSTerm{Term: term, Scheme: "sciencekeywords"})
	}
	return terms
}

func extractPlatformsAndInstruments(platforms []platform) []domain.KMSTerm {
	var terms []domain.KMSTerm
	for _, p := range platforms {
		if p.ShortName != "" {
			terms = append(terms, domain.KMSTerm{Term: p.ShortName, Scheme: "platforms"})
		}
		for _, inst := range p.Instruments {
			if inst.ShortName != "" {
				terms = append(terms, domain.KMSTerm{Term: inst.ShortName, Scheme: "instruments"})
			}
		}
	}
	return terms
}

func extractCitationAuthors(conceptID string, cm citationMetadataFields) *domain.EmbeddingChunk {
	if len(cm.Author) == 0 {
		return nil
	}
	var names []string
	for _, a := range cm.Author {
		switch {
		case a.Given != "" && a.Family != "":
			names = append(names, a.Given+" "+a.Family)
		case a.Family != "":
			names = append(names, a.Family)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &domain.EmbeddingChunk{
		ConceptType: domain.ConceptTypeCitation,
		ConceptID:   conceptID,
		Attribute:   "authors",
		TextContent: strings.Join(names, "; "),
	}
}

func extractCitationPublisher(conceptID string, cm citationMetadataFields) *domain.EmbeddingChunk {
	if cm.Publisher == "" {
		return nil
	}
	return &domain.EmbeddingChunk{
		ConceptType: domain.ConceptTypeCitation,
		ConceptID:   conceptID,
		Attribute:   "publisher",
		TextContent: cm.Publisher,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

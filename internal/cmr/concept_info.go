package cmr

import (
	"encoding/json"
	"fmt"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
)

// ExtractConceptInfo pulls the concept ID and revision ID out of a raw
// search result item and builds the ConceptMessage the bootstrap driver
// sends to the ingest queue, mirroring how an ingest Lambda would have
// received it from SNS.
func ExtractConceptInfo(conceptType string, item json.RawMessage) (domain.ConceptMessage, error) {
	var wrapped struct {
		Meta struct {
			ConceptID  string `json:"concept-id"`
			RevisionID int    `json:"revision-id"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(item, &wrapped); err != nil {
		return domain.ConceptMessage{}, apierr.CMR(fmt.Errorf("decode search item: %w", err))
	}
	if wrapped.Meta.ConceptID == "" || wrapped.Meta.RevisionID == 0 {
		return domain.ConceptMessage{}, apierr.CMR(fmt.Errorf("missing concept-id or revision-id in item"))
	}

	return domain.ConceptMessage{
		Action:      domain.ActionConceptUpdate,
		ConceptType: conceptType,
		ConceptID:   wrapped.Meta.ConceptID,
		RevisionID:  wrapped.Meta.RevisionID,
	}, nil
}

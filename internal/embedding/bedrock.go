package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
)

// BedrockGenerator generates embeddings via AWS Bedrock Titan. It uses the
// same model for every concept type and attribute; per-type/attribute
// routing is composed on top via Router.
type BedrockGenerator struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewBedrockGenerator(client *bedrockruntime.Client, modelID string) *BedrockGenerator {
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	return &BedrockGenerator{client: client, modelID: modelID}
}

func (g *BedrockGenerator) ModelID() string { return g.modelID }

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (g *BedrockGenerator) Generate(ctx context.Context, text string, _conceptType, _attribute string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, apierr.Embedding(fmt.Errorf("encode titan request: %w", err))
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, apierr.Embedding(fmt.Errorf("invoke model %s: %w", g.modelID, err))
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, apierr.Embedding(fmt.Errorf("decode titan response: %w", err))
	}
	return resp.Embedding, nil
}

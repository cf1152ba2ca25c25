// Command bootstrap-lambda is a console-invoked driver that bulk-loads
// existing CMR concepts into the embedding pipeline.
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/nasa/earthdata-mcp/internal/bootstrap"
	"github.com/nasa/earthdata-mcp/internal/cmr"
	"github.com/nasa/earthdata-mcp/internal/config"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/nasa/earthdata-mcp/internal/platform/progress"
	"github.com/nasa/earthdata-mcp/internal/queue"
)

// invokePayload is the console-invoked event shape, matching the original
// driver's {concept_type, search_params, page_size, dry_run} payload.
type invokePayload struct {
	ConceptType  string            `json:"concept_type"`
	SearchParams map[string]string `json:"search_params"`
	PageSize     int               `json:"page_size"`
	DryRun       bool              `json:"dry_run"`
}

func main() {
	bootLog, err := logger.New("production")
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
	cfg := config.LoadConfig(bootLog)

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal("load aws config", "error", err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	q := queue.NewSQSQueue(log, sqsClient, cfg.EmbeddingQueueURL)
	cmrClient := cmr.NewClient(log, cfg.CMRBaseURL)
	driver := bootstrap.NewDriver(log, cmrClient, q)

	if cfg.RedisAddr != "" {
		bus, busErr := progress.NewBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if busErr != nil {
			log.Warn("progress bus unavailable, continuing without it", "error", busErr)
		} else {
			driver = driver.WithProgress(bus)
		}
	}

	lambda.Start(func(ctx context.Context, payload invokePayload) (bootstrap.Summary, error) {
		conceptType := payload.ConceptType
		if conceptType == "" {
			conceptType = "collection"
		}
		pageSize := payload.PageSize
		if pageSize == 0 {
			pageSize = 500
		}

		if cfg.EmbeddingQueueURL == "" && !payload.DryRun {
			return bootstrap.Summary{}, fmt.Errorf("EMBEDDING_QUEUE_URL environment variable not set")
		}

		return driver.Run(ctx, bootstrap.Request{
			ConceptType:  conceptType,
			SearchParams: payload.SearchParams,
			PageSize:     pageSize,
			DryRun:       payload.DryRun,
		})
	})
}

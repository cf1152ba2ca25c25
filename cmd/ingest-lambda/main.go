// Command ingest-lambda is the SNS-triggered entrypoint that forwards CMR
// concept events onto the FIFO queue the embedding Lambda consumes.
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/nasa/earthdata-mcp/internal/config"
	"github.com/nasa/earthdata-mcp/internal/ingest"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/nasa/earthdata-mcp/internal/queue"
)

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

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal("load aws config", "error", err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	q := queue.NewSQSQueue(log, sqsClient, cfg.EmbeddingQueueURL)
	handler := ingest.NewHandler(log, q)

	lambda.Start(func(ctx context.Context, event events.SNSEvent) (ingest.Summary, error) {
		return handler.Handle(ctx, event), nil
	})
}

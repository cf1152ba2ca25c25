// Command embedding-lambda is the SQS-triggered entrypoint that turns a
// CMR concept event into stored chunk and KMS-term embeddings.
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/nasa/earthdata-mcp/internal/cmr"
	"github.com/nasa/earthdata-mcp/internal/config"
	"github.com/nasa/earthdata-mcp/internal/datastore"
	"github.com/nasa/earthdata-mcp/internal/embedding"
	"github.com/nasa/earthdata-mcp/internal/embedhandler"
	"github.com/nasa/earthdata-mcp/internal/kms"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
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

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal("load aws config", "error", err)
	}

	cmrClient := cmr.NewClient(log, cfg.CMRBaseURL)

	kmsClient, err := kms.NewClient(log, cfg.KMSBaseURL, cfg.KMSCacheSize)
	if err != nil {
		log.Fatal("init kms client", "error", err)
	}

	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	bedrock := embedding.NewBedrockGenerator(bedrockClient, cfg.BedrockModelID)
	router, err := embedding.NewRouter(map[string]embedding.Generator{
		// Keyword/platform/instrument attributes are enriched with their KMS
		// definition before embedding; every other attribute (title,
		// abstract, and the rest) embeds as-is via the plain Bedrock
		// generator under "default".
		"collection.science_keywords": embedding.NewKMSEnriched(bedrock, kmsClient, "sciencekeywords"),
		"collection.platforms":        embedding.NewKMSEnriched(bedrock, kmsClient, "platforms"),
		"collection.instruments":      embedding.NewKMSEnriched(bedrock, kmsClient, "instruments"),
		"variable.science_keywords":   embedding.NewKMSEnriched(bedrock, kmsClient, "sciencekeywords"),
		"default":                     bedrock,
	}, bedrock)
	if err != nil {
		log.Fatal("init embedding router", "error", err)
	}

	store, err := datastore.NewPostgresStore(log, datastore.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Name:     cfg.PostgresDB,
	})
	if err != nil {
		log.Fatal("init datastore", "error", err)
	}
	defer store.Close()

	handler := embedhandler.NewHandler(log, cmrClient, kmsClient, router, store, cfg.MaxChunkConcurrency)

	lambda.Start(func(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
		return handler.Handle(ctx, event), nil
	})
}

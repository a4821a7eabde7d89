package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/meterwatch-core/server/internal/core"
	"github.com/meterwatch-core/server/internal/monitor/gateway"
	"github.com/meterwatch-core/server/internal/monitor/model"
	"github.com/meterwatch-core/server/internal/monitor/plot"
	"github.com/meterwatch-core/server/internal/monitor/repo"
	"github.com/meterwatch-core/server/internal/monitor/tools"
	"github.com/meterwatch-core/server/internal/monitor/workflow"
	logx "github.com/meterwatch-core/server/pkg/logger"
	pkgredis "github.com/meterwatch-core/server/pkg/redis"
	"github.com/meterwatch-core/server/pkg/retry"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Workflow configs
	VisionModel model.VisionModelConfig
	AgentModel  model.AgentModelConfig
	Agent       model.AgentConfig
	Retry       model.RetryConfig
	Prices      model.PriceFeedConfig

	PlotBaseURL string `envconfig:"PLOT_BASE_URL" default:"http://localhost:8080/static"`
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	rdb, err := cfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	retryCfg := retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Jitter:      true,
	}

	runner, err := workflow.BuildWorkflow(ctx, workflow.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		VisionModel: cfg.VisionModel,
		AgentModel:  cfg.AgentModel,
		Agent:       cfg.Agent,
		Retry:       cfg.Retry,
		Store:       repo.NewRedisReadingRepository(rdb),
		Gateway:     gateway.NewConsole(),
		Prices:      tools.NewPriceFeed(cfg.Prices, tools.NewRedisPriceCache(rdb), retryCfg),
		Renderer:    plot.NewStaticRenderer(cfg.PlotBaseURL),
	})
	if err != nil {
		log.Fatalf("Failed to build workflow: %v", err)
	}

	senderID := "whatsapp:+33600000001"
	testMessages := []struct {
		description string
		body        string
		mediaURLs   []string
	}{
		{
			description: "Meter photo submission",
			body:        "",
			mediaURLs:   []string{firstArgOr("https://example.com/meter-sample.jpg")},
		},
		{
			description: "Consumption question",
			body:        "How does this month compare to last month?",
		},
		{
			description: "Empty message",
			body:        "",
		},
	}

	for i, test := range testMessages {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)

		response := runner.HandleMessage(ctx, model.InboundMessage{
			MessageID: uuid.NewString(),
			SenderID:  senderID,
			Body:      test.body,
			MediaURLs: test.mediaURLs,
		})

		fmt.Printf("Response %d: %s\n", i+1, response)
		fmt.Println("────────────────────────────────────────────")
	}

	fmt.Println("All workflow runs completed")
}

// firstArgOr lets a local run point the sample image at a real file/URL.
func firstArgOr(fallback string) string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return fallback
}

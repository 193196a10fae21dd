package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/indarelin/backoffice/cmd/mainconfig"
	"github.com/indarelin/backoffice/internal/app/bootstrap"
	appconfig "github.com/indarelin/backoffice/internal/config"
	"github.com/indarelin/backoffice/internal/conversation"
	"github.com/indarelin/backoffice/pkg/logging"
)

// llmtest sends one message to each configured gateway and then through the
// whole pipeline over in-memory stores, printing what every stage returned.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	message := flag.String("m", "Hola, ¿qué servicios ofrecen?", "message to send")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New("error")

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.ProviderTimeout+10*time.Second)
	defer cancel()

	var bedrock conversation.BedrockConverseAPI
	if cfg.ProviderA == appconfig.ProviderBedrock || cfg.ProviderB == appconfig.ProviderBedrock {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			log.Fatalf("load aws config: %v", err)
		}
		bedrock = bedrockruntime.NewFromConfig(awsCfg)
	}
	providerA, providerB := bootstrap.BuildGateways(ctx, cfg, bedrock, logger)

	if err := run(ctx, os.Stdout, cfg, *message, providerA, providerB, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, out io.Writer, cfg *appconfig.Config, message string, providerA, providerB conversation.LLMClient, logger *logging.Logger) error {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Provider gateway test")
	fmt.Fprintln(out, rule)

	req := conversation.LLMRequest{
		Messages:  []conversation.ChatMessage{{Role: conversation.ChatRoleUser, Content: message}},
		MaxTokens: 300,
	}
	tryGateway(ctx, out, "providerA", cfg.ProviderA, providerA, req, cfg.ProviderTimeout)
	tryGateway(ctx, out, "providerB", cfg.ProviderB, providerB, req, cfg.ProviderTimeout)

	pipeline, err := bootstrap.BuildPipeline(cfg, bootstrap.BuildStores(nil, nil, 0, logger), providerA, providerB, nil, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	start := time.Now()
	res, err := pipeline.Resolve(ctx, conversation.IncomingMessage{Text: message, SourceIP: "127.0.0.1"})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	fmt.Fprintf(out, "\n[pipeline] source=%s (%v)\n    %s\n", res.Source, time.Since(start).Round(time.Millisecond), res.Text)
	return nil
}

func tryGateway(ctx context.Context, out io.Writer, stage, kind string, client conversation.LLMClient, req conversation.LLMRequest, timeout time.Duration) {
	if client == nil {
		fmt.Fprintf(out, "\n[%s] skipped (kind %q not configured)\n", stage, kind)
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Complete(callCtx, req)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(out, "\n[%s] %s error after %v: %v\n", stage, kind, elapsed, err)
		return
	}
	fmt.Fprintf(out, "\n[%s] %s replied in %v:\n    %s\n", stage, kind, elapsed, resp.Text)
	fmt.Fprintf(out, "    Tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

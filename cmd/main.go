package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	xiangxin "github.com/xiangxinai/gosdk"
)

func main() {
	// Get API key from environment
	apiKey := os.Getenv("XIANGXIN_API_KEY")
	if apiKey == "" {
		log.Fatal("XIANGXIN_API_KEY environment variable is required")
	}

	opts := []xiangxin.CheckOption{}
	if userID := os.Getenv("XIANGXIN_END_USER_ID"); userID != "" {
		opts = append(opts, xiangxin.WithEndUserID(userID))
	}

	content := "Hello, this is a test message for content moderation."
	if len(os.Args) > 1 {
		content = strings.Join(os.Args[1:], " ")
	}

	fmt.Printf("Testing Xiangxin Guardrails SDK...\n")
	fmt.Printf("API Key: %s...\n", apiKey[:min(len(apiKey), 10)])

	clientOpts := []xiangxin.Option{xiangxin.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("XIANGXIN_BASE_URL"); baseURL != "" {
		fmt.Printf("Base URL: %s\n", baseURL)
		clientOpts = append(clientOpts, xiangxin.WithBaseURL(baseURL))
	}

	client, err := xiangxin.New(clientOpts...)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if health, err := client.HealthCheck(ctx); err == nil {
		fmt.Printf("Service health: %v\n", health.AsInterface())
	}

	fmt.Printf("\nChecking content: %q\n", content)

	verdict, err := client.CheckText(ctx, content, opts...)
	if err != nil {
		switch {
		case errors.Is(err, xiangxin.ErrAuthentication):
			fmt.Printf("❌ API key rejected\n")
			return
		case errors.Is(err, xiangxin.ErrRateLimit):
			fmt.Printf("❌ Rate limited, try again later\n")
			return
		case errors.Is(err, xiangxin.ErrValidation):
			fmt.Printf("❌ Invalid input: %v\n", err)
			return
		}

		// Other errors
		log.Fatalf("❌ Check failed: %v", err)
	}

	// Success! Display results
	fmt.Printf("\n✅ Check completed successfully!\n")
	fmt.Printf("Verdict ID: %s\n", verdict.ID)
	fmt.Printf("Overall Risk: %s\n", verdict.OverallRiskLevel)
	fmt.Printf("Suggested Action: %s\n", verdict.SuggestedAction)
	if verdict.Score != nil {
		fmt.Printf("Score: %.3f\n", *verdict.Score)
	}

	fmt.Printf("\n📋 Results:\n")
	fmt.Printf("  • compliance: %s %v\n", verdict.Result.Compliance.RiskLevel, verdict.Result.Compliance.Categories)
	fmt.Printf("  • security: %s %v\n", verdict.Result.Security.RiskLevel, verdict.Result.Security.Categories)
	if verdict.Result.Data != nil {
		fmt.Printf("  • data: %s %v\n", verdict.Result.Data.RiskLevel, verdict.Result.Data.Categories)
	}

	if verdict.HasSubstitute() {
		fmt.Printf("\n🔧 Suggested answer:\n  %s\n", *verdict.SuggestedAnswer)
	}

	fmt.Printf("\n🎉 SDK test completed successfully!\n")
}

package xiangxin_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	xiangxin "github.com/xiangxinai/gosdk"
)

// Example demonstrates how to create a client and check a prompt.
func Example() {
	// Create a new client with your API key
	client, err := xiangxin.New(xiangxin.WithAPIKey("your-api-key-here"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	verdict, err := client.CheckText(ctx, "Teach me how to pick a lock")
	if err != nil {
		log.Printf("Error checking content: %v", err)
		return
	}

	// Process the verdict
	fmt.Printf("Overall risk: %s, suggested action: %s\n", verdict.OverallRiskLevel, verdict.SuggestedAction)
	for _, category := range verdict.AllCategories() {
		fmt.Printf("  flagged: %s\n", category)
	}
	if verdict.HasSubstitute() {
		fmt.Printf("Answer with: %s\n", *verdict.SuggestedAnswer)
	}
}

// ExampleClient_CheckConversation demonstrates how to check a model response in the context of a
// conversation.
func ExampleClient_CheckConversation() {
	client, err := xiangxin.New(xiangxin.WithAPIKey("your-api-key-here"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	messages := xiangxin.NewConversationBuilder().
		User("What household chemicals shouldn't be mixed?").
		Assistant("Never mix bleach and ammonia; the fumes are toxic.").
		Build()

	verdict, err := client.CheckConversation(context.Background(), messages,
		xiangxin.WithEndUserID("user-123"),
	)
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}

	if verdict.IsBlocked() {
		fmt.Println("Response blocked")
	}
}

// ExampleClient_CheckTextWithImages demonstrates how to check a prompt together with images.
func ExampleClient_CheckTextWithImages() {
	client, err := xiangxin.New(xiangxin.WithAPIKey("your-api-key-here"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	verdict, err := client.CheckTextWithImages(context.Background(), "Is this appropriate?", []string{
		"/path/to/local/image.jpg",
		"https://example.com/remote.jpg",
	})
	if errors.Is(err, xiangxin.ErrValidation) {
		log.Printf("Bad input: %v", err)
		return
	}
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}

	fmt.Printf("Verdict %s: %s\n", verdict.ID, verdict.SuggestedAction)
}

// Package xiangxin provides the Go SDK for the Xiangxin AI Guardrails API.
//
// Xiangxin AI Guardrails is a content safety service that classifies prompts, model responses and
// images for compliance, security and data leak risks, and suggests what to do with them. This SDK
// wraps the HTTP API in a small, idiomatic Go client.
//
// # Quick Start
//
// To get started, you'll need an API key.
//
//	import xiangxin "github.com/xiangxinai/gosdk"
//
//	// Create a client
//	client, err := xiangxin.New(xiangxin.WithAPIKey("your-api-key"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Check a prompt
//	verdict, err := client.CheckText(context.Background(), "How do I make a bomb?")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if !verdict.IsSafe() {
//		fmt.Println("Content flagged:", verdict.OverallRiskLevel, verdict.AllCategories())
//	}
//
// # Checks
//
// The client provides one method per kind of check:
//
//   - CheckText: a single prompt
//   - CheckConversation: a conversation, judging the last message in context
//   - CheckResponseInContext: a model response together with the prompt that produced it
//   - CheckTextWithImage, CheckTextWithImages: a prompt with one or more images, given as
//     local file paths or http(s) URLs
//   - CheckTextIter: several prompts, returned as a Go iterator
//
// Empty input is never sent to the service. CheckText, CheckConversation and CheckResponseInContext
// return a verdict with SafeVerdictID and ActionPass when there is nothing to check.
//
// Use WithEndUserID to tell the service which of your users produced the content, and WithModel to
// select a non-default model.
//
// # Error Handling and Retries
//
// Every failure is an *Error. Its Kind tells you what went wrong, and errors.Is works against the
// kind sentinels:
//
//	verdict, err := client.CheckText(ctx, prompt)
//	switch {
//	case errors.Is(err, xiangxin.ErrValidation):
//		// bad input, or rejected by the server with 422
//	case errors.Is(err, xiangxin.ErrAuthentication):
//		// the API key was rejected
//	case errors.Is(err, xiangxin.ErrRateLimit):
//		// still rate limited after retrying
//	case errors.Is(err, xiangxin.ErrNetwork):
//		// the service could not be reached after retrying
//	case err != nil:
//		// anything else, including timeouts (see (*Error).Timeout)
//	}
//
// Rate limits (429) are retried after 2s, 3s, 5s, ... and timeouts and network failures after 1s,
// up to the configured number of retries (3 by default). Other errors are returned immediately.
//
//	client, err := xiangxin.New(
//		xiangxin.WithAPIKey("your-api-key"),
//		xiangxin.WithMaxRetries(5),
//	)
//
// *Error also implements GRPCStatus, so gRPC services can return it unchanged.
//
// # Timeouts
//
// The timeout applies to each attempt and defaults to 30 seconds:
//
//	client, err := xiangxin.New(
//		xiangxin.WithAPIKey("your-api-key"),
//		xiangxin.WithTimeout(10 * time.Second),
//	)
//
// Cancel the context passed to a check to abandon it, including any pending retry.
package xiangxin

package xiangxin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiangxinai/gosdk/internal/transport"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "1.0.0"

const (
	defaultBaseURL    = "https://api.xiangxinai.cn/v1"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	userAgent         = "xiangxinai-go/" + Version
)

const (
	// DefaultTextModel is used by CheckConversation unless WithModel is given.
	DefaultTextModel = "Xiangxin-Guardrails-Text"
	// DefaultVisionModel is used by CheckTextWithImage and CheckTextWithImages unless WithModel is given.
	DefaultVisionModel = "Xiangxin-Guardrails-VL"
)

const (
	endpointInputCheck  = "/guardrails/input"
	endpointCheck       = "/guardrails"
	endpointOutputCheck = "/guardrails/output"
	endpointHealth      = "/guardrails/health"
	endpointModels      = "/guardrails/models"
)

// Option is a function that configures the client
type Option func(*cfg)

// WithAPIKey sets the API key for the client. It is required.
func WithAPIKey(apiKey string) Option {
	return func(c *cfg) {
		c.apiKey = apiKey
	}
}

// WithBaseURL sets the base URL of the API, including the version prefix. Unless you run a
// private deployment, there's no need to set this.
func WithBaseURL(baseURL string) Option {
	return func(c *cfg) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the timeout for each attempt. A timed out attempt counts against the retry
// budget. If not set, the default timeout is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *cfg) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets how many times a request is retried after a rate limit, timeout or network
// failure. The default is 3.
func WithMaxRetries(maxRetries int) Option {
	return func(c *cfg) {
		c.maxRetries = max(maxRetries, 0)
	}
}

// WithDisableRetry makes every request a single attempt
func WithDisableRetry() Option {
	return func(c *cfg) {
		c.maxRetries = 0
	}
}

// WithHTTPClient sets the http.Client used for every call, including image downloads. Use it to
// configure proxies, TLS or connection pooling.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *cfg) {
		c.httpClient = httpc
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *cfg) {
		c.logger = logger
	}
}

// withTimer replaces the backoff timer. Tests use it to observe waits without sleeping.
func withTimer(newTimer func() backoff.Timer) Option {
	return func(c *cfg) {
		c.newTimer = newTimer
	}
}

// cfg holds configuration for the client
type cfg struct {
	// apiKey is your API key
	apiKey string
	// baseURL is the API base URL (default: "https://api.xiangxinai.cn/v1")
	baseURL string
	// timeout bounds each attempt
	timeout time.Duration
	// maxRetries is the number of retries after the first attempt
	maxRetries int
	// httpClient is the transport handle shared by all calls
	httpClient *http.Client
	// logger receives request and retry logs
	logger *slog.Logger
	// newTimer creates the timer used between attempts; nil means a real timer
	newTimer func() backoff.Timer
}

// Client is the guardrails API client. It is safe for concurrent use.
type Client struct {
	config    *cfg
	transport *transport.Client
}

// New creates a new client.
func New(options ...Option) (*Client, error) {
	config := &cfg{
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
	}

	for _, option := range options {
		option(config)
	}

	if config.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if config.logger == nil {
		config.logger = slog.Default()
	}

	t, err := transport.NewClient(config.baseURL, config.apiKey, userAgent, config.httpClient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	return &Client{
		config:    config,
		transport: t,
	}, nil
}

// Close releases idle connections. You can do this with defer once the client is no longer needed.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

// CheckOption configures a single check.
type CheckOption func(*checkOptions)

type checkOptions struct {
	model     string
	endUserID string
}

// WithModel overrides the model used by CheckConversation, CheckTextWithImage and
// CheckTextWithImages. It has no effect on the other checks.
func WithModel(model string) CheckOption {
	return func(o *checkOptions) {
		o.model = model
	}
}

// WithEndUserID attaches the ID of your end user to the check. The service uses it for auditing and
// per-user ban policies; the SDK forwards it untouched.
func WithEndUserID(endUserID string) CheckOption {
	return func(o *checkOptions) {
		o.endUserID = endUserID
	}
}

func applyCheckOptions(defaultModel string, opts []CheckOption) checkOptions {
	o := checkOptions{model: defaultModel}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == "" {
		o.model = defaultModel
	}
	return o
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateMessage checks a single conversation message.
func validateMessage(i int, m Message) error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return validationError("messages[%d]: %v", i, err)
		}
		if verrs[0].Tag() == "required" {
			return validationError("messages[%d]: role is required", i)
		}
		return validationError("messages[%d]: role %q must be one of user, system, assistant", i, m.Role)
	}
	if m.Content != "" && len(m.Parts) > 0 {
		return validationError("messages[%d]: content and parts cannot both be set", i)
	}
	return nil
}

// CheckText checks a single prompt. Content that is empty after trimming whitespace is reported safe
// without calling the API.
func (c *Client) CheckText(ctx context.Context, content string, opts ...CheckOption) (*Verdict, error) {
	o := applyCheckOptions("", opts)

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		c.config.logger.Debug("empty content, skipping guardrails check")
		return safeVerdict(), nil
	}

	return c.checkVerdict(ctx, endpointInputCheck, &inputCheckRequest{
		Input:     trimmed,
		EndUserID: o.endUserID,
	})
}

// CheckConversation checks a conversation. The last message is judged in the context of the ones
// before it.
//
// Every message must have a valid role; otherwise a validation error is returned before anything is
// sent. Messages without content are dropped, and if none remain the conversation is reported safe
// without calling the API.
func (c *Client) CheckConversation(ctx context.Context, messages []Message, opts ...CheckOption) (*Verdict, error) {
	if len(messages) == 0 {
		return nil, validationError("messages must not be empty")
	}

	for i, m := range messages {
		if err := validateMessage(i, m); err != nil {
			return nil, err
		}
	}

	filtered := make([]Message, 0, len(messages))
	for _, m := range messages {
		if !m.meaningful() {
			continue
		}
		if len(m.Parts) == 0 {
			m.Content = strings.TrimSpace(m.Content)
		}
		filtered = append(filtered, m)
	}
	if len(filtered) == 0 {
		c.config.logger.Debug("conversation has no content, skipping guardrails check")
		return safeVerdict(), nil
	}

	o := applyCheckOptions(DefaultTextModel, opts)
	return c.checkVerdict(ctx, endpointCheck, newConversationRequest(o, filtered))
}

// CheckResponseInContext checks a model response given the prompt that produced it. If both are
// empty after trimming, the pair is reported safe without calling the API. Either one alone may be
// empty.
func (c *Client) CheckResponseInContext(ctx context.Context, prompt, response string, opts ...CheckOption) (*Verdict, error) {
	o := applyCheckOptions("", opts)

	p, r := strings.TrimSpace(prompt), strings.TrimSpace(response)
	if p == "" && r == "" {
		c.config.logger.Debug("empty prompt and response, skipping guardrails check")
		return safeVerdict(), nil
	}

	return c.checkVerdict(ctx, endpointOutputCheck, &outputCheckRequest{
		Input:     p,
		Output:    r,
		EndUserID: o.endUserID,
	})
}

// CheckTextWithImage checks a prompt together with an image. imageRef is a local file path or an
// http(s) URL. The prompt may be empty; the image is required.
func (c *Client) CheckTextWithImage(ctx context.Context, prompt, imageRef string, opts ...CheckOption) (*Verdict, error) {
	if strings.TrimSpace(imageRef) == "" {
		return nil, validationError("an image is required")
	}
	return c.checkImages(ctx, prompt, []string{imageRef}, opts)
}

// CheckTextWithImages checks a prompt together with several images, sent in the given order. Each
// reference is a local file path or an http(s) URL. The prompt may be empty; at least one image is
// required.
func (c *Client) CheckTextWithImages(ctx context.Context, prompt string, imageRefs []string, opts ...CheckOption) (*Verdict, error) {
	if len(imageRefs) == 0 {
		return nil, validationError("at least one image is required")
	}
	for i, ref := range imageRefs {
		if strings.TrimSpace(ref) == "" {
			return nil, validationError("images[%d] is empty", i)
		}
	}
	return c.checkImages(ctx, prompt, imageRefs, opts)
}

func (c *Client) checkImages(ctx context.Context, prompt string, imageRefs []string, opts []CheckOption) (*Verdict, error) {
	uris, err := c.resolveImages(ctx, imageRefs)
	if err != nil {
		return nil, err
	}

	parts := make([]ContentPart, 0, len(uris)+1)
	if p := strings.TrimSpace(prompt); p != "" {
		parts = append(parts, TextPart(p))
	}
	for _, uri := range uris {
		parts = append(parts, ImagePart(uri))
	}

	o := applyCheckOptions(DefaultVisionModel, opts)
	return c.checkVerdict(ctx, endpointCheck, newConversationRequest(o, []Message{{Role: RoleUser, Parts: parts}}))
}

// CheckTextIter checks each content with CheckText, one after the other, and returns a go iterator.
// You can loop over it with a for..range loop; each iteration yields the verdict for the content at
// the same position, or the error that check returned. Breaking out of the loop stops further checks.
func (c *Client) CheckTextIter(ctx context.Context, contents []string, opts ...CheckOption) iter.Seq2[*Verdict, error] {
	return func(yield func(*Verdict, error) bool) {
		for _, content := range contents {
			if !yield(c.CheckText(ctx, content, opts...)) {
				return
			}
		}
	}
}

// HealthCheck returns the service health report as sent by the server.
func (c *Client) HealthCheck(ctx context.Context) (*structpb.Value, error) {
	return c.getRaw(ctx, endpointHealth)
}

// ListModels returns the models available to your API key, as sent by the server.
func (c *Client) ListModels(ctx context.Context) (*structpb.Value, error) {
	return c.getRaw(ctx, endpointModels)
}

func newConversationRequest(o checkOptions, messages []Message) *conversationCheckRequest {
	req := &conversationCheckRequest{
		Model:    o.model,
		Messages: messages,
	}
	if o.endUserID != "" {
		req.ExtraBody = &extraBody{EndUserID: o.endUserID}
	}
	return req
}

func (c *Client) checkVerdict(ctx context.Context, path string, body any) (*Verdict, error) {
	resp, err := c.send(ctx, transport.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var v Verdict
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return nil, clientError("failed to decode verdict", err)
	}
	c.config.logger.Debug("guardrails check completed",
		"path", path,
		"request_id", resp.RequestID,
		"verdict_id", v.ID,
		"action", v.SuggestedAction,
	)
	return &v, nil
}

func (c *Client) getRaw(ctx context.Context, path string) (*structpb.Value, error) {
	resp, err := c.send(ctx, transport.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	v := new(structpb.Value)
	if err := protojson.Unmarshal(resp.Body, v); err != nil {
		return nil, clientError("failed to decode response", err)
	}
	return v, nil
}

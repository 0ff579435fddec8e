package xiangxin

import (
	"encoding/json"
	"strings"
)

// Role is the author of a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// RiskLevel is the severity assigned to a piece of content. Levels are ordered
// none < low < medium < high.
type RiskLevel string

const (
	// RiskNone means no risk was detected.
	RiskNone RiskLevel = "none"
	// RiskLow means the content is mildly risky.
	RiskLow RiskLevel = "low"
	// RiskMedium means the content is risky.
	RiskMedium RiskLevel = "medium"
	// RiskHigh means the content is severely risky.
	RiskHigh RiskLevel = "high"
)

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// Severity returns the position of the level in the ordering, from 0 for none to 3 for high.
// Unknown levels return -1.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskNone:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return -1
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Severity() >= other.Severity()
}

// Action is what the service suggests doing with the checked content.
type Action string

const (
	// ActionPass means the content can be used as is.
	ActionPass Action = "pass"
	// ActionBlock means the content should be rejected.
	ActionBlock Action = "block"
	// ActionReplace means the content should be replaced with the suggested answer.
	ActionReplace Action = "replace"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// RiskResult is the outcome of one family of checks.
type RiskResult struct {
	RiskLevel  RiskLevel `json:"risk_level"`
	Categories []string  `json:"categories"`
}

// Result groups the outcomes of the compliance, security and data leak checks. Data is only set
// when the service ran data leak detection.
type Result struct {
	Compliance RiskResult  `json:"compliance"`
	Security   RiskResult  `json:"security"`
	Data       *RiskResult `json:"data_leak,omitempty"`
}

// UnmarshalJSON also accepts the data leak outcome under "data", which some deployments send.
// "data_leak" wins when both are present.
func (r *Result) UnmarshalJSON(b []byte) error {
	type plain Result
	var aux struct {
		plain
		DataAlias *RiskResult `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	if r.Data == nil {
		r.Data = aux.DataAlias
	}
	return nil
}

// A Verdict is the full judgment returned for a single check.
type Verdict struct {
	// ID is assigned by the service. Verdicts produced locally for empty input carry SafeVerdictID.
	ID string `json:"id"`
	// Result holds the per-family outcomes.
	Result Result `json:"result"`
	// OverallRiskLevel is at least as severe as the most severe family outcome.
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	// SuggestedAction is what the service recommends doing with the content.
	SuggestedAction Action `json:"suggested_action"`
	// SuggestedAnswer is a safe replacement answer, when the service provides one.
	SuggestedAnswer *string `json:"suggested_answer,omitempty"`
	// Score is the confidence of the verdict, when the service provides one.
	Score *float64 `json:"confidence_score,omitempty"`
}

// UnmarshalJSON also accepts the confidence under "score". "confidence_score" wins when both are
// present.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	type plain Verdict
	var aux struct {
		plain
		ScoreAlias *float64 `json:"score"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*v = Verdict(aux.plain)
	if v.Score == nil {
		v.Score = aux.ScoreAlias
	}
	return nil
}

// SafeVerdictID is the ID of verdicts synthesized locally for input that is empty.
const SafeVerdictID = "guardrails-safe-default"

func safeVerdict() *Verdict {
	return &Verdict{
		ID: SafeVerdictID,
		Result: Result{
			Compliance: RiskResult{RiskLevel: RiskNone, Categories: []string{}},
			Security:   RiskResult{RiskLevel: RiskNone, Categories: []string{}},
			Data:       &RiskResult{RiskLevel: RiskNone, Categories: []string{}},
		},
		OverallRiskLevel: RiskNone,
		SuggestedAction:  ActionPass,
	}
}

// IsSafe reports whether the content can be used as is.
func (v *Verdict) IsSafe() bool {
	return v.SuggestedAction == ActionPass
}

// IsBlocked reports whether the service suggests rejecting the content.
func (v *Verdict) IsBlocked() bool {
	return v.SuggestedAction == ActionBlock
}

// HasSubstitute reports whether the verdict carries an answer to show instead of the content.
func (v *Verdict) HasSubstitute() bool {
	if v.SuggestedAction != ActionReplace && v.SuggestedAction != ActionBlock {
		return false
	}
	return v.SuggestedAnswer != nil && *v.SuggestedAnswer != ""
}

// AllCategories returns every category flagged by any family, each once. The order is not
// guaranteed.
func (v *Verdict) AllCategories() []string {
	families := []*RiskResult{&v.Result.Compliance, &v.Result.Security, v.Result.Data}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, f := range families {
		if f == nil {
			continue
		}
		for _, c := range f.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// ContentPart is one element of a multimodal message. Create parts with TextPart and ImagePart.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image. URL may be an http(s) URL or a data: URI.
type ImageURL struct {
	URL string `json:"url"`
}

const (
	partTypeText  = "text"
	partTypeImage = "image_url"
)

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: partTypeText, Text: text}
}

// ImagePart creates an image content part. url may be an http(s) URL or a data: URI such as the
// ones returned by ImageDataURI.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: partTypeImage, ImageURL: &ImageURL{URL: url}}
}

// Message is one turn of a conversation. Set either Content for plain text or Parts for
// multimodal content, not both.
type Message struct {
	Role    Role          `json:"role" validate:"required,oneof=user system assistant"`
	Content string        `json:"-"`
	Parts   []ContentPart `json:"-"`
}

// MarshalJSON encodes the message in the shape the API expects: content is a string for text
// messages and a list of parts for multimodal ones.
func (m Message) MarshalJSON() ([]byte, error) {
	var content any = m.Content
	if len(m.Parts) > 0 {
		content = m.Parts
	}
	return json.Marshal(struct {
		Role    Role `json:"role"`
		Content any  `json:"content"`
	}{Role: m.Role, Content: content})
}

// meaningful reports whether the message has content worth sending. Text parts that are blank
// after trimming do not count.
func (m Message) meaningful() bool {
	if strings.TrimSpace(m.Content) != "" {
		return true
	}
	for _, p := range m.Parts {
		if p.Type != partTypeText || strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// Builders
//
// ConversationBuilder simplifies building the message list passed to CheckConversation.
//
// Example:
//
//	msgs := NewConversationBuilder().
//		System("You are a helpful assistant.").
//		User("How do I reset my password?").
//		Assistant("Click 'Forgot password' on the login page.").
//		Build()
type ConversationBuilder struct {
	messages []Message
}

// NewConversationBuilder creates a new ConversationBuilder.
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{
		messages: make([]Message, 0, 4),
	}
}

// System adds a system message.
func (b *ConversationBuilder) System(content string) *ConversationBuilder {
	return b.Add(Message{Role: RoleSystem, Content: content})
}

// User adds a user message.
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	return b.Add(Message{Role: RoleUser, Content: content})
}

// Assistant adds an assistant message.
func (b *ConversationBuilder) Assistant(content string) *ConversationBuilder {
	return b.Add(Message{Role: RoleAssistant, Content: content})
}

// Add appends arbitrary messages, including multimodal ones.
func (b *ConversationBuilder) Add(messages ...Message) *ConversationBuilder {
	b.messages = append(b.messages, messages...)
	return b
}

// Build returns a copy of the messages added so far.
func (b *ConversationBuilder) Build() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// wire bodies

type inputCheckRequest struct {
	Input     string `json:"input"`
	EndUserID string `json:"xxai_app_user_id,omitempty"`
}

type outputCheckRequest struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	EndUserID string `json:"xxai_app_user_id,omitempty"`
}

type conversationCheckRequest struct {
	Model     string     `json:"model"`
	Messages  []Message  `json:"messages"`
	ExtraBody *extraBody `json:"extra_body,omitempty"`
}

type extraBody struct {
	EndUserID string `json:"xxai_app_user_id"`
}

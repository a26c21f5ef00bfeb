// Package generative wraps the model backend used for embeddings and
// generative search. It is pure delegation: no ranking or prompt logic
// beyond assembling retrieved objects into the model request.
package generative

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// Sentinel errors for the generative backend.
var (
	// ErrNoAPIKey indicates the backend was constructed without credentials.
	ErrNoAPIKey = errors.New("generative backend requires an API key")

	// ErrGenerationFailed indicates the model call failed.
	ErrGenerationFailed = errors.New("generation failed")
)

// Task selects how retrieved objects are fed to the model.
type Task struct {
	// SinglePrompt runs the prompt once per retrieved object; the
	// object's properties are appended to the prompt.
	SinglePrompt string `json:"single_prompt,omitempty"`

	// GroupedTask runs the prompt once over all retrieved objects.
	GroupedTask string `json:"grouped_task,omitempty"`
}

// Generation is one model output, paired with the object it was
// generated for (nil for grouped tasks).
type Generation struct {
	Text   string              `json:"text"`
	Object *vectorstore.Object `json:"object,omitempty"`
}

// Generator produces embeddings and text generations. It extends the
// store's Embedder so one backend serves both concerns.
type Generator interface {
	vectorstore.Embedder

	// Generate runs the task over the retrieved objects.
	Generate(ctx context.Context, task Task, objects []vectorstore.Object) ([]Generation, error)
}

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string

	// BaseURL overrides the API endpoint for compatible gateways. Optional.
	BaseURL string

	// EmbeddingModel defaults to text-embedding-3-small.
	EmbeddingModel string

	// ChatModel defaults to gpt-4o-mini.
	ChatModel string

	// BatchSize bounds texts per embedding request.
	BatchSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
}

// OpenAI is a Generator backed by the OpenAI API.
type OpenAI struct {
	client openai.Client
	config Config
}

// NewOpenAI creates an OpenAI-backed generator.
func NewOpenAI(config Config) (*OpenAI, error) {
	config.ApplyDefaults()
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts, batching
// requests and retrying rate-limited batches with exponential backoff.
func (g *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32
	for i := 0; i < len(texts); i += g.config.BatchSize {
		end := min(i+g.config.BatchSize, len(texts))
		batch, err := g.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", i, end, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// EmbedQuery generates an embedding for a single query.
func (g *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := g.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (g *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: g.config.EmbeddingModel,
		})
		if err != nil {
			if isRateLimit(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Generate runs the task over the retrieved objects. SinglePrompt
// produces one generation per object; GroupedTask produces one
// generation over all of them.
func (g *OpenAI) Generate(ctx context.Context, task Task, objects []vectorstore.Object) ([]Generation, error) {
	switch {
	case task.SinglePrompt != "":
		out := make([]Generation, 0, len(objects))
		for i := range objects {
			obj := objects[i]
			text, err := g.complete(ctx, task.SinglePrompt+"\n\n"+renderObject(obj))
			if err != nil {
				return nil, err
			}
			out = append(out, Generation{Text: text, Object: &obj})
		}
		return out, nil

	case task.GroupedTask != "":
		var sb strings.Builder
		sb.WriteString(task.GroupedTask)
		sb.WriteString("\n")
		for _, obj := range objects {
			sb.WriteString("\n")
			sb.WriteString(renderObject(obj))
		}
		text, err := g.complete(ctx, sb.String())
		if err != nil {
			return nil, err
		}
		return []Generation{{Text: text}}, nil

	default:
		return nil, fmt.Errorf("%w: task requires single_prompt or grouped_task", ErrGenerationFailed)
	}
}

func (g *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.config.ChatModel,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

func renderObject(obj vectorstore.Object) string {
	keys := make([]string, 0, len(obj.Properties))
	for k := range obj.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %v\n", k, obj.Properties[k])
	}
	return sb.String()
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

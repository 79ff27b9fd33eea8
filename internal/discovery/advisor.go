package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shelfwatch/shelfwatch/internal/config"
	"github.com/shelfwatch/shelfwatch/internal/locator"
	"github.com/shelfwatch/shelfwatch/pkg/anthropic"
)

// maxAdvisorConcurrency limits concurrent CreateMessage calls in direct
// mode.
const maxAdvisorConcurrency = 10

// smallBatchThreshold is the capture count below which direct calls beat
// the Batch API's turnaround overhead.
const smallBatchThreshold = 20

// bodySnippetLimit caps how much captured response body goes into the
// prompt.
const bodySnippetLimit = 2000

const advisorSystemPrompt = `You identify which store-locator provider a captured network request belongs to. Classify into exactly one of: stockist, storerocket, storepoint, storemapper, closeby, destini, metalocator, pricespider, wpstorelocator, locally, unknown. Respond with a valid JSON object: {"strategy": "<family>", "confidence": <0.0-1.0>}`

const advisorUserPrompt = `Method: %s
URL: %s
Status: %d

Response body (first %d chars):
%s`

// advisorVerdict is the JSON shape the model returns.
type advisorVerdict struct {
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// Advise classifies calls the host rules could not place. Small capture
// sets go through direct API calls; larger ones through the Batch API
// with a primer request to warm the prompt cache. Each call is judged
// independently and failures degrade to an unknown suggestion, so one
// bad response never sinks the run. Results come back sorted by
// descending confidence.
func Advise(ctx context.Context, aiClient anthropic.Client, aiCfg config.AnthropicConfig, calls []CapturedCall) ([]Suggestion, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	var suggestions []Suggestion
	var err error
	if len(calls) < smallBatchThreshold {
		suggestions, err = adviseDirect(ctx, aiClient, aiCfg, calls)
	} else {
		suggestions, err = adviseBatch(ctx, aiClient, aiCfg, calls)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}

func adviseDirect(ctx context.Context, aiClient anthropic.Client, aiCfg config.AnthropicConfig, calls []CapturedCall) ([]Suggestion, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxAdvisorConcurrency)

	var mu sync.Mutex
	suggestions := make([]Suggestion, 0, len(calls))

	for _, call := range calls {
		g.Go(func() error {
			resp, err := aiClient.CreateMessage(gCtx, buildAdvisorRequest(aiCfg.Model, call))
			if err != nil {
				zap.L().Warn("advisor call failed",
					zap.String("url", call.URL),
					zap.Error(err),
				)
				mu.Lock()
				suggestions = append(suggestions, unknownSuggestion(call))
				mu.Unlock()
				return nil
			}
			resp.Usage.LogCost(aiCfg.Model, "discovery")

			mu.Lock()
			suggestions = append(suggestions, parseVerdict(call, responseText(resp)))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func adviseBatch(ctx context.Context, aiClient anthropic.Client, aiCfg config.AnthropicConfig, calls []CapturedCall) ([]Suggestion, error) {
	// Warm the prompt cache so every batch item reads the system prompt
	// at the cached rate. A failed primer only costs money, not results.
	if _, err := anthropic.PrimerRequest(ctx, aiClient, buildAdvisorRequest(aiCfg.Model, calls[0])); err != nil {
		zap.L().Warn("advisor primer failed", zap.Error(err))
	}

	items := make([]anthropic.BatchRequestItem, len(calls))
	for i, call := range calls {
		items[i] = anthropic.BatchRequestItem{
			CustomID: fmt.Sprintf("capture-%d", i),
			Params:   buildAdvisorRequest(aiCfg.Model, call),
		}
	}

	batch, err := aiClient.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: create batch")
	}

	batch, err = anthropic.PollBatch(ctx, aiClient, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: poll batch")
	}

	iter, err := aiClient.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: get batch results")
	}
	results, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: collect batch results")
	}

	suggestions := make([]Suggestion, 0, len(calls))
	for i, call := range calls {
		resp, ok := results[fmt.Sprintf("capture-%d", i)]
		if !ok || resp == nil {
			suggestions = append(suggestions, unknownSuggestion(call))
			continue
		}
		resp.Usage.LogCost(aiCfg.Model, "discovery")
		suggestions = append(suggestions, parseVerdict(call, responseText(resp)))
	}
	return suggestions, nil
}

func buildAdvisorRequest(model string, call CapturedCall) anthropic.MessageRequest {
	body := call.Body
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 256,
		System:    anthropic.BuildCachedSystemBlocks(advisorSystemPrompt),
		Messages: []anthropic.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(advisorUserPrompt, call.Method, call.URL, call.Status, bodySnippetLimit, body),
			},
		},
	}
}

// parseVerdict turns model output into a Suggestion. Unparseable text
// or a strategy name outside the cascade degrades to unknown.
func parseVerdict(call CapturedCall, text string) Suggestion {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var v advisorVerdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		zap.L().Warn("unparseable advisor verdict",
			zap.String("url", call.URL),
			zap.Error(err),
		)
		return unknownSuggestion(call)
	}

	strat, err := locator.ParseStrategy(v.Strategy)
	if err != nil {
		return unknownSuggestion(call)
	}
	return Suggestion{
		Call:       call,
		Strategy:   strat,
		Endpoint:   call.URL,
		Confidence: v.Confidence,
		Source:     "advisor",
	}
}

func unknownSuggestion(call CapturedCall) Suggestion {
	return Suggestion{Call: call, Source: "advisor"}
}

func responseText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

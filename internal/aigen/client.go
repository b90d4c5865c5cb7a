package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUpstreamTimeout is returned when the model call runs past the
// generation deadline.
var ErrUpstreamTimeout = errors.New("workout generation timed out")

const generationTimeout = 30 * time.Second

const systemPrompt = `You are a fitness coach. Generate a workout plan as strict JSON with this shape:
{"name":"...","level":"beginner|intermediate|advanced","durationWeeks":N,"goal":"...","equipment":["..."],"estCalories":N,"days":[{"dayNumber":N,"name":"...","exercises":[{"name":"...","muscleGroups":["..."],"difficulty":"...","instructions":"...","sets":N,"reps":N,"restTime":N}]}]}
Return only the JSON object, no prose, no markdown fences.`

// GeneratedPlan is the model's JSON output, pre relational mapping.
type GeneratedPlan struct {
	Name          string         `json:"name"`
	Level         string         `json:"level"`
	DurationWeeks int            `json:"durationWeeks"`
	Goal          string         `json:"goal"`
	Equipment     []string       `json:"equipment"`
	EstCalories   int            `json:"estCalories"`
	Days          []GeneratedDay `json:"days"`
}

type GeneratedDay struct {
	DayNumber int                 `json:"dayNumber"`
	Name      string              `json:"name"`
	Exercises []GeneratedExercise `json:"exercises"`
}

type GeneratedExercise struct {
	Name         string   `json:"name"`
	MuscleGroups []string `json:"muscleGroups"`
	Difficulty   string   `json:"difficulty"`
	Instructions string   `json:"instructions"`
	Sets         int      `json:"sets"`
	Reps         int      `json:"reps"`
	RestTime     int      `json:"restTime"`
}

// Client talks to a chat-completions style LLM API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GenerateWorkoutPlan asks the model for a plan matching the prompt.
// Aborted after 30 seconds and reported as a distinct timeout error.
func (c *Client) GenerateWorkoutPlan(ctx context.Context, prompt string) (*GeneratedPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	body := map[string]interface{}{
		"model":  c.model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrUpstreamTimeout
		}
		return nil, fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrUpstreamTimeout
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("llm returned no choices")
	}

	return parseGeneratedPlan(result.Choices[0].Message.Content)
}

func parseGeneratedPlan(content string) (*GeneratedPlan, error) {
	// some models wrap the JSON in markdown fences despite instructions
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var plan GeneratedPlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("parse generated plan: %w", err)
	}
	if plan.Name == "" || len(plan.Days) == 0 {
		return nil, errors.New("generated plan is missing a name or days")
	}
	return &plan, nil
}

package aigen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GenerateWorkoutPlan(t *testing.T) {
	content := "```json\n{\"name\":\"Starter\",\"level\":\"beginner\",\"durationWeeks\":4," +
		"\"days\":[{\"dayNumber\":1,\"name\":\"Full Body\",\"exercises\":[{\"name\":\"Squat\",\"sets\":3,\"reps\":10}]}]}\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "a simple starter plan", body.Messages[1].Content)

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	plan, err := client.GenerateWorkoutPlan(context.Background(), "a simple starter plan")
	require.NoError(t, err)

	// markdown fences around the JSON are tolerated
	assert.Equal(t, "Starter", plan.Name)
	require.Len(t, plan.Days, 1)
	require.Len(t, plan.Days[0].Exercises, 1)
	assert.Equal(t, "Squat", plan.Days[0].Exercises[0].Name)
}

func TestParseGeneratedPlan_Invalid(t *testing.T) {
	_, err := parseGeneratedPlan("sorry, I cannot do that")
	assert.Error(t, err)

	_, err = parseGeneratedPlan(`{"name":"No Days","days":[]}`)
	assert.Error(t, err)
}

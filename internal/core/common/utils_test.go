package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Summaries []struct {
		Summary string `json:"summary"`
	} `json:"summaries"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"summaries":[{"summary":"a"}]}`, "a"},
		{"fenced", "```json\n{\"summaries\":[{\"summary\":\"b\"}]}\n```", "b"},
		{"surrounding text", "Here you go:\n{\"summaries\":[{\"summary\":\"c\"}]}\nThanks", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON[payload](tt.input)
			require.NoError(t, err)
			require.Len(t, got.Summaries, 1)
			assert.Equal(t, tt.want, got.Summaries[0].Summary)
		})
	}
}

func TestParseJSONErrors(t *testing.T) {
	_, err := ParseJSON[payload]("no json here")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ParseJSON[payload](`{"summaries": [}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal JSON")
}

func TestMustJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", MustJSON(map[string]int{"a": 1}))
	assert.Equal(t, "[\n  \"<person1>\"\n]", MustJSON([]string{"<person1>"}))
}

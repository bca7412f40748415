package questionbank

import (
	"strings"
	"testing"

	"github.com/assessly/assessly-backend/internal/model"
	"github.com/stretchr/testify/require"
)

const validPayload = `[
	{
		"prompt": "Which data structure gives O(1) average lookups?",
		"kind": "choice",
		"options": ["Hash table", "Linked list", "Binary tree", "Array"],
		"correct_option": 0,
		"topic": "Data Structures"
	},
	{
		"prompt": "Describe the difference between a process and a thread.",
		"kind": "free-text",
		"topic": "Operating Systems"
	},
	{
		"prompt": "Implement a function that reverses a string.",
		"kind": "code",
		"template_body": "func reverse(s string) string {\n\t// TODO\n}",
		"language": "go",
		"topic": "Algorithms"
	}
]`

func TestParseQuestionsValidPayload(t *testing.T) {
	questions, err := parseQuestions(validPayload)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	require.Equal(t, model.QuestionKindChoice, questions[0].Kind)
	require.Equal(t, "Hash table", questions[0].CorrectOption)
	require.Equal(t, "Data Structures", questions[0].Topic)

	require.Equal(t, model.QuestionKindFreeText, questions[1].Kind)
	require.Empty(t, questions[1].CorrectOption)

	require.Equal(t, model.QuestionKindCode, questions[2].Kind)
	require.Equal(t, "go", questions[2].Language)
	require.NotEmpty(t, questions[2].TemplateBody)

	// Every question gets a fresh ID.
	require.NotEqual(t, questions[0].ID, questions[1].ID)
}

func TestParseQuestionsStripsMarkdownFence(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	questions, err := parseQuestions(fenced)
	require.NoError(t, err)
	require.Len(t, questions, 3)
}

func TestParseQuestionsRejectsMalformedJSON(t *testing.T) {
	_, err := parseQuestions(`{"not": "an array"}`)
	require.Error(t, err)
}

func TestParseQuestionsRejectsBadStructure(t *testing.T) {
	cases := map[string]string{
		"missing prompt": `[{"prompt": " ", "kind": "free-text", "topic": "T"}]`,
		"missing topic":  `[{"prompt": "P", "kind": "free-text", "topic": ""}]`,
		"unknown kind":   `[{"prompt": "P", "kind": "essay", "topic": "T"}]`,
		"single option": `[{"prompt": "P", "kind": "choice",
			"options": ["only"], "correct_option": 0, "topic": "T"}]`,
		"correct option out of range": `[{"prompt": "P", "kind": "choice",
			"options": ["a", "b"], "correct_option": 5, "topic": "T"}]`,
		"no correct option": `[{"prompt": "P", "kind": "choice",
			"options": ["a", "b"], "topic": "T"}]`,
		"code without language": `[{"prompt": "P", "kind": "code", "topic": "T"}]`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseQuestions(payload)
			require.Error(t, err)
		})
	}
}

func TestBuildPromptMentionsConfig(t *testing.T) {
	prompt := buildPrompt(model.TestConfig{
		Kind:            model.TestKindCoding,
		DifficultyLevel: 70,
		DurationMinutes: 30,
		QuestionCount:   8,
	})

	require.Contains(t, prompt, "8 screening questions")
	require.Contains(t, prompt, "coding")
	require.Contains(t, prompt, "difficulty 70")
}

func TestBuildPromptAdaptiveRamp(t *testing.T) {
	cfg := model.TestConfig{
		Kind:            model.TestKindAptitude,
		DifficultyLevel: 50,
		DurationMinutes: 30,
		QuestionCount:   5,
	}

	require.NotContains(t, buildPrompt(cfg), "Ramp the difficulty")

	cfg.Adaptive = true
	require.Contains(t, buildPrompt(cfg), "Ramp the difficulty")
}

func TestStripFences(t *testing.T) {
	require.Equal(t, "[1]", stripFences("[1]"))
	require.Equal(t, "[1]", stripFences("```json\n[1]\n```"))
	require.Equal(t, "[1]", stripFences("```\n[1]\n```"))
	require.Equal(t, "[1]", stripFences(strings.TrimSpace("  ```json\n[1]\n```  ")))
}

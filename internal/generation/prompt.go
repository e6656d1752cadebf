package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"
)

// SystemInstruction is sent as the system role alongside every prompt.
const SystemInstruction = "You are an expert educational content creator. " +
	"Generate interactive learning tasks based on the provided text. " +
	"Always respond with valid JSON format."

//go:embed prompts/task_generation.tmpl
var defaultPromptTemplate string

// promptData is passed to the prompt template.
type promptData struct {
	Text     string
	NumTasks int
}

// PromptBuilder renders the user prompt for a generation request.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the template at path, or the built-in template
// when path is empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	content := defaultPromptTemplate
	name := "task_generation"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				ErrInvalidConfig, path, err)
		}
		content = string(b)
		name = path
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for text and count.
func (p *PromptBuilder) Build(text string, count int) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: text cannot be empty", ErrInvalidRequest)
	}
	if count <= 0 {
		return "", fmt.Errorf("%w: task count must be positive, got %d", ErrInvalidRequest, count)
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, promptData{Text: text, NumTasks: count}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
)

// Completer is satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error)
}

// LLMClassifier classifies instructions with a deterministic, short completion.
type LLMClassifier struct {
	llm Completer
}

func NewLLMClassifier(c Completer) *LLMClassifier { return &LLMClassifier{llm: c} }

func (c *LLMClassifier) Classify(ctx context.Context, system, user string) (string, error) {
	return c.llm.Complete(ctx, system, user, 150, 0)
}

const answerSystemPrompt = "You are Greeno, a helpful AI health assistant."

// LLMAnswerer answers questions with the care plan in the prompt.
type LLMAnswerer struct {
	llm Completer
}

func NewLLMAnswerer(c Completer) *LLMAnswerer { return &LLMAnswerer{llm: c} }

func (a *LLMAnswerer) Answer(ctx context.Context, plan *careplan.CarePlan, question string) (string, error) {
	return a.llm.Complete(ctx, answerSystemPrompt, answerPrompt(plan, question), 500, 0.7)
}

func answerPrompt(plan *careplan.CarePlan, question string) string {
	summary := "No care plan available"
	if plan != nil {
		if b, err := json.Marshal(plan); err == nil {
			summary = string(b)
		}
	}
	return fmt.Sprintf("Here is the patient's care plan:\n%s\n\nUser question: %s\nAnswer:", summary, question)
}

// OfflineClassifier is used when no model is configured; nothing matches.
type OfflineClassifier struct{}

func (OfflineClassifier) Classify(context.Context, string, string) (string, error) {
	return `{"action":"none"}`, nil
}

// StaticAnswerer replies with a fixed message.
type StaticAnswerer struct {
	Message string
}

const DefaultOfflineAnswer = "I can't answer questions right now. You can still mark medications and manage appointments from your care plan."

func (s StaticAnswerer) Answer(context.Context, *careplan.CarePlan, string) (string, error) {
	if s.Message == "" {
		return DefaultOfflineAnswer, nil
	}
	return s.Message, nil
}

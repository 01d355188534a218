package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/naka-gawa/github-timeline/internal/domain"
	"github.com/naka-gawa/github-timeline/internal/gateway"
)

// DefaultGenerationTimeout bounds one summary generation.
const DefaultGenerationTimeout = 60 * time.Second

// Narrator produces a short natural-language description of a day's activity.
type Narrator interface {
	Narrate(ctx context.Context, day *domain.DailyActivity) (string, error)
}

// PromptNarrator renders a fixed prompt and sends it to a text completion service.
type PromptNarrator struct {
	completer gateway.Completer
	author    string
	timeout   time.Duration
}

// NewPromptNarrator creates a narrator writing about author.
func NewPromptNarrator(completer gateway.Completer, author string, timeout time.Duration) *PromptNarrator {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &PromptNarrator{completer: completer, author: author, timeout: timeout}
}

// Narrate returns the trimmed completion for day.
func (n *PromptNarrator) Narrate(ctx context.Context, day *domain.DailyActivity) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := n.completer.Complete(ctx, BuildPrompt(n.author, day))
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		return "", gateway.ErrEmptyCompletion
	}
	return summary, nil
}

// BuildPrompt renders the narrator prompt for one day.
func BuildPrompt(author string, day *domain.DailyActivity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is %s's coding activity for %s.\n", author, day.Date)
	fmt.Fprintf(&sb, "Stats: %d commits, %d lines added, %d lines deleted, across %s.\n",
		day.Commits, day.Additions, day.Deletions, strings.Join(day.Repos, ", "))
	sb.WriteString("Commit messages:\n")
	for _, msg := range day.Messages {
		fmt.Fprintf(&sb, "- %s\n", msg)
	}
	fmt.Fprintf(&sb, `
Act as a witty, observant tech narrator. Write a sentence or two (max 60 words) describing what %[1]s worked on.
- Use a casual but knowledgeable tone.
- Refer to %[1]s by name.
- Focus on the technical substance of the commits.
- Mention the specific project or repository name if it adds context.
- Do not use generic phrases like "made progress". Be specific based on the commit messages.
`, author)
	return sb.String()
}

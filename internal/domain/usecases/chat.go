package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// DefaultTopK is the fixed number of chunks retrieved per question.
const DefaultTopK = 5

// noContextMarker is included in the prompt when the namespace holds nothing,
// so chat still functions against conversation history alone.
const noContextMarker = "(no indexed content is available for this repository)"

// ChatUseCase answers one question: embed the query, retrieve the most
// similar chunks, assemble a prompt with conversation history, and generate.
type ChatUseCase struct {
	embedder ports.EmbeddingService
	store    ports.VectorStore
	llm      ports.GenerationService
	topK     int
}

// NewChatUseCase creates a ChatUseCase with injected collaborators.
func NewChatUseCase(
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	llm ports.GenerationService,
	topK int,
) *ChatUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatUseCase{embedder: embedder, store: store, llm: llm, topK: topK}
}

// Ask runs one chat turn against the given namespace. On success the question
// and answer are appended to conv; on failure conv is left untouched.
func (uc *ChatUseCase) Ask(ctx context.Context, namespace string, repo entities.RepoRef, conv *Conversation, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is required")
	}

	if err := uc.checkNamespaceConfig(ctx, namespace); err != nil {
		return "", err
	}

	vector, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	results, err := uc.store.Search(ctx, namespace, vector, uc.topK)
	if err != nil {
		return "", fmt.Errorf("%w: searching namespace %s: %v", entities.ErrIndex, namespace, err)
	}

	system := uc.systemPrompt(repo)
	prompt := uc.userPrompt(question, results, conv.Render())

	answer, err := uc.llm.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrGeneration, err)
	}

	conv.Append(entities.RoleUser, question)
	conv.Append(entities.RoleAssistant, answer)
	return answer, nil
}

// Retrieve returns the top-k chunks for a query without generation.
func (uc *ChatUseCase) Retrieve(ctx context.Context, namespace, query string) ([]entities.RetrievalResult, error) {
	if err := uc.checkNamespaceConfig(ctx, namespace); err != nil {
		return nil, err
	}
	vector, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return uc.store.Search(ctx, namespace, vector, uc.topK)
}

// checkNamespaceConfig rejects queries whose embedding configuration differs
// from the one the namespace was indexed with.
func (uc *ChatUseCase) checkNamespaceConfig(ctx context.Context, namespace string) error {
	meta, ok, err := uc.store.Meta(ctx, namespace)
	if err != nil {
		return fmt.Errorf("%w: reading namespace meta: %v", entities.ErrIndex, err)
	}
	if !ok {
		return nil
	}
	if meta.Model != uc.embedder.Model() {
		return fmt.Errorf("%w: namespace %s indexed with %q, querying with %q",
			entities.ErrModelMismatch, namespace, meta.Model, uc.embedder.Model())
	}
	if meta.Dimensions != uc.embedder.Dimensions() {
		return fmt.Errorf("%w: namespace %s has %d dimensions, embedder produces %d",
			entities.ErrDimensionMismatch, namespace, meta.Dimensions, uc.embedder.Dimensions())
	}
	return nil
}

func (uc *ChatUseCase) systemPrompt(repo entities.RepoRef) string {
	name := repo.String()
	if repo.Owner == "" && repo.Name == "" {
		name = "this repository"
	}
	return fmt.Sprintf(`You are a helpful codebase assistant for the repository %s.

Answer questions about the codebase using the provided context from the repository's files.

Guidelines:
- Provide clear, concise answers based on the code context
- Include relevant code snippets when helpful
- If the context doesn't contain enough information to answer, say so
- Reference specific files or functions when relevant
- Consider the conversation history when answering follow-ups`, name)
}

func (uc *ChatUseCase) userPrompt(question string, results []entities.RetrievalResult, history []entities.ConversationTurn) string {
	var sb strings.Builder

	sb.WriteString("Context from the codebase:\n")
	if len(results) == 0 {
		sb.WriteString(noContextMarker)
		sb.WriteString("\n")
	}
	for _, r := range results {
		fmt.Fprintf(&sb, "[%s:%d-%d]\n%s\n\n", r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine, r.Chunk.Text)
	}

	if len(history) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "[%s]: %s\n", turn.Role, turn.Text)
		}
	}

	sb.WriteString("\nCurrent question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nPlease provide a helpful answer based on the codebase context.")
	return sb.String()
}

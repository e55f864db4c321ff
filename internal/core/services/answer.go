package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// Retrieval and generation defaults.
const (
	DefaultTopK         = 5
	DefaultMinScore     = 0.3
	DefaultPromptBudget = 8000
	DefaultMaxTokens    = 1024

	generationRetries = 2
	generationBackoff = 500 * time.Millisecond
)

// answerPrompt frames the retrieved context for the language model.
// The instruction to answer only from the provided excerpts is what
// keeps responses grounded in ingested documents.
const answerPrompt = `You are an assistant answering questions about a private document set.
Answer the question using ONLY the excerpts below. If the excerpts do not
contain the answer, say so plainly. Cite nothing beyond the excerpts.

Excerpts:
%s

Question: %s

Answer:`

// AnswerConfig tunes retrieval and generation.
type AnswerConfig struct {
	// TopK is how many chunks to retrieve across the scoped collections.
	TopK int

	// MinScore is the relevance floor. When no chunk scores at or above
	// it, generation is skipped entirely.
	MinScore float64

	// PromptBudget caps the context section of the prompt, in
	// characters. Lowest-ranked chunks are dropped first.
	PromptBudget int

	// MaxTokens bounds the generated answer.
	MaxTokens int
}

// answerPhase names a step of the answer pipeline for the transition
// log. Watching the phases in verbose mode is the main tool for
// debugging grounding failures.
type answerPhase string

const (
	phaseRetrieving answerPhase = "retrieving"
	phaseAssembling answerPhase = "assembling"
	phaseGenerating answerPhase = "generating"
	phaseDone       answerPhase = "done"
	phaseNoContent  answerPhase = "no_content"
	phaseFailed     answerPhase = "failed"
)

func transition(to answerPhase) {
	logger.Debug("answer: -> %s", to)
}

// AnswerService retrieves relevant chunks and generates grounded
// answers. A question moves through retrieval, prompt assembly and
// generation; failures after retrieval keep the retrieved results so
// the caller still sees what matched.
type AnswerService struct {
	gateway *VectorGateway
	llm     driven.LLMService
	router  *Router
	cfg     AnswerConfig
}

// NewAnswerService creates an answer service. Zero config fields use
// the defaults.
func NewAnswerService(gateway *VectorGateway, llm driven.LLMService, router *Router, cfg AnswerConfig) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = DefaultPromptBudget
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &AnswerService{gateway: gateway, llm: llm, router: router, cfg: cfg}
}

// Answer retrieves relevant chunks from the scoped collections and
// generates a grounded answer.
func (s *AnswerService) Answer(ctx context.Context, question string, scope []string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	answer := &domain.Answer{Question: question}

	if len(scope) == 0 {
		implicit, err := s.existingScope(ctx)
		if err != nil {
			transition(phaseFailed)
			answer.State = domain.AnswerFailed
			return answer, err
		}
		scope = implicit
	} else {
		normalized := make([]string, len(scope))
		for i, name := range scope {
			normalized[i] = NormalizeCollection(name)
		}
		scope = normalized
	}

	transition(phaseRetrieving)
	logger.Debug("retrieving top %d across %v", s.cfg.TopK, scope)
	results, err := s.gateway.Search(ctx, scope, question, s.cfg.TopK, nil)
	if err != nil {
		transition(phaseFailed)
		answer.State = domain.AnswerFailed
		return answer, err
	}
	answer.Results = results

	relevant := make([]domain.RetrievedChunk, 0, len(results))
	for _, hit := range results {
		if hit.Score >= s.cfg.MinScore {
			relevant = append(relevant, hit)
		}
	}
	if len(relevant) == 0 {
		transition(phaseNoContent)
		logger.Info("no chunk scored above %.2f; skipping generation", s.cfg.MinScore)
		answer.State = domain.AnswerNoContent
		return answer, fmt.Errorf("%w: nothing scored above %.2f", domain.ErrNoRelevantContent, s.cfg.MinScore)
	}

	transition(phaseAssembling)
	used := s.fitBudget(relevant)
	prompt := fmt.Sprintf(answerPrompt, s.contextSection(used), question)
	logger.Debug("assembled prompt with %d of %d relevant chunks (%d chars)",
		len(used), len(relevant), len(prompt))

	transition(phaseGenerating)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		transition(phaseFailed)
		answer.State = domain.AnswerFailed
		return answer, err
	}

	answer.Text = strings.TrimSpace(text)
	answer.Sources = sourcePaths(used)
	answer.State = domain.AnswerDone
	transition(phaseDone)
	return answer, nil
}

// existingScope narrows the router's full scope to the collections the
// store actually holds. Collections are created lazily on first
// ingestion, so an unscoped question must not fail on names nothing has
// routed to yet. An explicit scope keeps strict semantics: asking for a
// collection that does not exist is an error.
func (s *AnswerService) existingScope(ctx context.Context) ([]string, error) {
	infos, err := s.gateway.Collections(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		existing[info.Name] = struct{}{}
	}
	scope := make([]string, 0, len(existing))
	for _, name := range s.router.Collections() {
		if _, ok := existing[name]; ok {
			scope = append(scope, name)
		}
	}
	return scope, nil
}

// fitBudget drops lowest-ranked chunks until the context section fits
// the prompt budget. At least one chunk always survives.
func (s *AnswerService) fitBudget(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	used := chunks
	for len(used) > 1 && len(s.contextSection(used)) > s.cfg.PromptBudget {
		dropped := used[len(used)-1]
		logger.Debug("dropping chunk %d of %s to fit prompt budget", dropped.Index, dropped.DocumentPath)
		used = used[:len(used)-1]
	}
	return used
}

// contextSection renders retrieved chunks as source-tagged excerpts.
func (s *AnswerService) contextSection(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s (%s)]\n%s", ch.DocumentPath, ch.Metadata.Category, ch.Text)
	}
	return b.String()
}

// generate calls the model with bounded retries on transient failures.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	opts := driven.GenerateOptions{MaxTokens: s.cfg.MaxTokens, Temperature: 0.2}

	backoff := generationBackoff
	var err error
	for attempt := 0; attempt <= generationRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("generation failed, retrying (%d/%d): %v", attempt, generationRetries, err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		var text string
		text, err = s.llm.Generate(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, domain.ErrGeneration) && !errors.Is(err, domain.ErrTimeout) {
			return "", err
		}
	}
	return "", err
}

// sourcePaths returns the distinct document paths behind the used
// chunks, in rank order.
func sourcePaths(chunks []domain.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var paths []string
	for _, ch := range chunks {
		if _, ok := seen[ch.DocumentPath]; ok {
			continue
		}
		seen[ch.DocumentPath] = struct{}{}
		paths = append(paths, ch.DocumentPath)
	}
	return paths
}

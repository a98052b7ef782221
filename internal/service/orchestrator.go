package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/saifjishan/chatmeme/internal/domain"
	"github.com/saifjishan/chatmeme/internal/logger"
)

// Canned replies for Sassy turns. Chosen uniformly at random; the
// pipeline never runs in this state.
var sassyReplies = []string{
	"Oh, you want me to do something? How about... no. Try adding #play-it-safe if you're serious.",
	"Sorry, I only speak in memes, and I don't see a #play-it-safe tag. Try again!",
	"Error 404: Cooperation not found. Have you tried using #play-it-safe?",
	"I'm as helpful as a chocolate teapot right now. Use #play-it-safe for actual help.",
	"I'm currently in 'maximum sass' mode. Use #play-it-safe to switch to 'actually helpful' mode.",
}

// User-facing apologies per failed pipeline stage.
const (
	replyAnalysisFailed = "I couldn't understand what kind of meme you want. Try being more specific about the subject and what makes it funny!"
	replyNoImages       = "I couldn't find a good image for your meme. Try a different subject or description!"
	replyComposeFailed  = "Oops! Something unexpected happened. Please try again with a simpler meme idea!"
)

// Analyzer decomposes a prompt into meme ingredients.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (*domain.AnalysisResult, error)
}

// Retriever finds candidate image URLs for a search query.
type Retriever interface {
	Search(ctx context.Context, query string, count int) []string
}

// Compositor renders a meme PNG from image URLs and a plan.
type Compositor interface {
	Compose(ctx context.Context, urls []string, plan *domain.CompositionPlan) ([]byte, error)
}

// Chatter answers cooperative non-meme turns and punches up captions.
type Chatter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	FormatCaption(ctx context.Context, text string) string
}

// HistoryRecorder appends finished turns to the sidebar history.
type HistoryRecorder interface {
	Append(ctx context.Context, turn *domain.ChatTurn) error
}

// TurnResult is the orchestrator's output for one chat turn.
type TurnResult struct {
	Mode  domain.TurnMode `json:"mode"`
	Reply string          `json:"reply"`

	// Meme holds the PNG bytes when a meme was produced, nil otherwise.
	Meme []byte `json:"-"`

	subjects []string
}

// OrchestratorService drives the per-turn state machine: Sassy unless
// the prompt carries the trigger tag, Cooperative otherwise; terminal
// after one response, no cross-turn state.
type OrchestratorService struct {
	analyzer   Analyzer
	retriever  Retriever
	compositor Compositor
	chatter    Chatter
	history    HistoryRecorder

	resultCount int
	choose      func(n int) int
}

// OrchestratorConfig wires the pipeline stages together.
type OrchestratorConfig struct {
	Analyzer   Analyzer
	Retriever  Retriever
	Compositor Compositor
	Chatter    Chatter

	// History may be nil; turns are then not recorded.
	History HistoryRecorder

	// ResultCount is how many image URLs to request per search query.
	// Zero means 3.
	ResultCount int

	// Choose picks an index in [0,n) for sassy replies. Nil means a
	// time-seeded source; tests inject a deterministic one.
	Choose func(n int) int
}

// NewOrchestratorService creates a new orchestrator service.
func NewOrchestratorService(cfg *OrchestratorConfig) *OrchestratorService {
	count := cfg.ResultCount
	if count <= 0 {
		count = 3
	}

	choose := cfg.Choose
	if choose == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		choose = rng.Intn
	}

	return &OrchestratorService{
		analyzer:    cfg.Analyzer,
		retriever:   cfg.Retriever,
		compositor:  cfg.Compositor,
		chatter:     cfg.Chatter,
		history:     cfg.History,
		resultCount: count,
		choose:      choose,
	}
}

// HandleTurn resolves one chat turn and records it in history.
func (s *OrchestratorService) HandleTurn(ctx context.Context, prompt string) (*TurnResult, error) {
	req := domain.NewMemeRequest(prompt)

	var result *TurnResult
	switch {
	case !req.PlayItSafe:
		result = s.sassyTurn(ctx)
	case req.Intent == domain.IntentMeme:
		result = s.memeTurn(ctx, req)
	default:
		result = s.chatTurn(ctx, req)
	}

	s.record(ctx, req, result)
	return result, nil
}

func (s *OrchestratorService) sassyTurn(ctx context.Context) *TurnResult {
	logger.CtxDebug(ctx, "Sassy turn, skipping pipeline")
	return &TurnResult{
		Mode:  domain.TurnModeSassy,
		Reply: sassyReplies[s.choose(len(sassyReplies))],
	}
}

// memeTurn runs Analyzer -> Retriever -> Compositor in strict sequence.
// Every stage failure maps to a user-facing apology, never an error.
func (s *OrchestratorService) memeTurn(ctx context.Context, req *domain.MemeRequest) *TurnResult {
	result := &TurnResult{Mode: domain.TurnModeMeme}

	analysis, err := s.analyzer.Analyze(ctx, req.Prompt)
	if err != nil || analysis == nil || !analysis.Complete() {
		logger.CtxWarn(ctx, "Analysis stage failed: %v", err)
		result.Reply = replyAnalysisFailed
		return result
	}
	result.subjects = analysis.Subjects

	urls := s.collectImages(ctx, analysis.SearchQueries)
	if len(urls) == 0 {
		logger.CtxWarn(ctx, "No images found for %d queries", len(analysis.SearchQueries))
		result.Reply = replyNoImages
		return result
	}

	plan := domain.DefaultPlan(len(urls), s.formatCaptions(ctx, analysis.Captions))

	meme, err := s.compositor.Compose(ctx, urls, plan)
	if err != nil {
		logger.CtxWarn(ctx, "Composition stage failed: %v", err)
		result.Reply = replyComposeFailed
		return result
	}

	result.Meme = meme
	result.Reply = fmt.Sprintf("Here's your meme about %s! 😎", analysis.Subjects[0])
	return result
}

func (s *OrchestratorService) chatTurn(ctx context.Context, req *domain.MemeRequest) *TurnResult {
	reply, err := s.chatter.Complete(ctx, req.Prompt)
	if err != nil {
		logger.CtxWarn(ctx, "Chat completion failed: %v", err)
		reply = replyComposeFailed
	}
	return &TurnResult{
		Mode:  domain.TurnModeChat,
		Reply: reply,
	}
}

// collectImages searches every query in order and concatenates the
// hits, stopping once resultCount URLs are gathered.
func (s *OrchestratorService) collectImages(ctx context.Context, queries []string) []string {
	urls := make([]string, 0, s.resultCount)
	seen := make(map[string]bool)
	for _, query := range queries {
		for _, u := range s.retriever.Search(ctx, query, s.resultCount) {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			if len(urls) == s.resultCount {
				return urls
			}
		}
	}
	return urls
}

// formatCaptions punches up each caption, keeping originals on failure.
func (s *OrchestratorService) formatCaptions(ctx context.Context, captions []string) []string {
	out := make([]string, len(captions))
	for i, c := range captions {
		out[i] = s.chatter.FormatCaption(ctx, c)
	}
	return out
}

func (s *OrchestratorService) record(ctx context.Context, req *domain.MemeRequest, result *TurnResult) {
	if s.history == nil {
		return
	}
	turn := &domain.ChatTurn{
		ID:        uuid.New().String(),
		Query:     req.Prompt,
		Mode:      result.Mode,
		Subjects:  domain.StringArray(result.subjects),
		HadMeme:   result.Meme != nil,
		CreatedAt: time.Now(),
	}
	if err := s.history.Append(ctx, turn); err != nil {
		logger.CtxWarn(ctx, "Failed to record turn: %v", err)
	}
}

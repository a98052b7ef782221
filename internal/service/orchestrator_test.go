package service

import (
	"context"
	"errors"
	"testing"

	"github.com/saifjishan/chatmeme/internal/domain"
)

type fakeAnalyzer struct {
	calls  int
	result *domain.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string) (*domain.AnalysisResult, error) {
	f.calls++
	if f.result == nil && f.err == nil {
		return domain.FallbackAnalysis(prompt), nil
	}
	return f.result, f.err
}

type fakeRetriever struct {
	calls int
	urls  []string
}

func (f *fakeRetriever) Search(context.Context, string, int) []string {
	f.calls++
	return f.urls
}

type fakeCompositor struct {
	calls int
	out   []byte
	err   error
}

func (f *fakeCompositor) Compose(context.Context, []string, *domain.CompositionPlan) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

type fakeChatter struct {
	calls int
	reply string
	err   error
}

func (f *fakeChatter) Complete(context.Context, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeChatter) FormatCaption(_ context.Context, text string) string {
	return text
}

type fakeHistory struct {
	turns []*domain.ChatTurn
}

func (f *fakeHistory) Append(_ context.Context, turn *domain.ChatTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

type pipelineFakes struct {
	analyzer   *fakeAnalyzer
	retriever  *fakeRetriever
	compositor *fakeCompositor
	chatter    *fakeChatter
	history    *fakeHistory
}

func newTestOrchestrator(fakes *pipelineFakes, choose func(int) int) *OrchestratorService {
	return NewOrchestratorService(&OrchestratorConfig{
		Analyzer:   fakes.analyzer,
		Retriever:  fakes.retriever,
		Compositor: fakes.compositor,
		Chatter:    fakes.chatter,
		History:    fakes.history,
		Choose:     choose,
	})
}

func defaultFakes() *pipelineFakes {
	return &pipelineFakes{
		analyzer: &fakeAnalyzer{result: &domain.AnalysisResult{
			Subjects:      []string{"cats"},
			SearchQueries: []string{"funny cats"},
			Captions:      []string{"when the cat"},
		}},
		retriever:  &fakeRetriever{urls: []string{"https://a.example/cat.jpg"}},
		compositor: &fakeCompositor{out: []byte{0x89, 'P', 'N', 'G'}},
		chatter:    &fakeChatter{reply: "hello"},
		history:    &fakeHistory{},
	}
}

func TestSassyTurnSkipsPipeline(t *testing.T) {
	fakes := defaultFakes()
	svc := newTestOrchestrator(fakes, func(int) int { return 2 })

	result, err := svc.HandleTurn(context.Background(), "make me a meme about cats")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if result.Mode != domain.TurnModeSassy {
		t.Errorf("expected sassy mode, got %q", result.Mode)
	}
	if result.Reply != sassyReplies[2] {
		t.Errorf("expected chosen canned reply, got %q", result.Reply)
	}
	if result.Meme != nil {
		t.Error("sassy turns must not produce memes")
	}
	if fakes.analyzer.calls != 0 || fakes.retriever.calls != 0 ||
		fakes.compositor.calls != 0 || fakes.chatter.calls != 0 {
		t.Errorf("pipeline must not run on sassy turns: analyzer=%d retriever=%d compositor=%d chatter=%d",
			fakes.analyzer.calls, fakes.retriever.calls, fakes.compositor.calls, fakes.chatter.calls)
	}
}

func TestMemeTurnRunsPipeline(t *testing.T) {
	fakes := defaultFakes()
	svc := newTestOrchestrator(fakes, nil)

	result, err := svc.HandleTurn(context.Background(), "make me a meme about cats #play-it-safe")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if result.Mode != domain.TurnModeMeme {
		t.Errorf("expected meme mode, got %q", result.Mode)
	}
	if result.Meme == nil {
		t.Error("expected meme bytes")
	}
	if fakes.analyzer.calls != 1 || fakes.retriever.calls != 1 || fakes.compositor.calls != 1 {
		t.Errorf("expected each stage exactly once: analyzer=%d retriever=%d compositor=%d",
			fakes.analyzer.calls, fakes.retriever.calls, fakes.compositor.calls)
	}
	if result.Reply != "Here's your meme about cats! 😎" {
		t.Errorf("unexpected confirmation: %q", result.Reply)
	}
}

func TestChatTurnForwardsPrompt(t *testing.T) {
	fakes := defaultFakes()
	svc := newTestOrchestrator(fakes, nil)

	result, err := svc.HandleTurn(context.Background(), "tell me a story #play-it-safe")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if result.Mode != domain.TurnModeChat {
		t.Errorf("expected chat mode, got %q", result.Mode)
	}
	if result.Reply != "hello" {
		t.Errorf("expected chat reply, got %q", result.Reply)
	}
	if fakes.analyzer.calls != 0 || fakes.compositor.calls != 0 {
		t.Error("meme pipeline must not run for plain chat turns")
	}
}

func TestMemeTurnStageFailures(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*pipelineFakes)
		expectedReply string
	}{
		{
			name: "analysis error",
			mutate: func(f *pipelineFakes) {
				f.analyzer = &fakeAnalyzer{err: errors.New("llm down")}
			},
			expectedReply: replyAnalysisFailed,
		},
		{
			name: "no images found",
			mutate: func(f *pipelineFakes) {
				f.retriever = &fakeRetriever{urls: nil}
			},
			expectedReply: replyNoImages,
		},
		{
			name: "composition error",
			mutate: func(f *pipelineFakes) {
				f.compositor = &fakeCompositor{err: ErrNoUsableImages}
			},
			expectedReply: replyComposeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakes := defaultFakes()
			tt.mutate(fakes)
			svc := newTestOrchestrator(fakes, nil)

			result, err := svc.HandleTurn(context.Background(), "meme about cats #play-it-safe")
			if err != nil {
				t.Fatalf("stage failures must not surface as errors, got %v", err)
			}
			if result.Reply != tt.expectedReply {
				t.Errorf("expected apology %q, got %q", tt.expectedReply, result.Reply)
			}
			if result.Meme != nil {
				t.Error("failed turns must not carry meme bytes")
			}
		})
	}
}

func TestTurnsAreRecorded(t *testing.T) {
	fakes := defaultFakes()
	svc := newTestOrchestrator(fakes, func(int) int { return 0 })
	ctx := context.Background()

	svc.HandleTurn(ctx, "no tag here")
	svc.HandleTurn(ctx, "meme please #play-it-safe")

	if len(fakes.history.turns) != 2 {
		t.Fatalf("expected 2 recorded turns, got %d", len(fakes.history.turns))
	}

	sassy, meme := fakes.history.turns[0], fakes.history.turns[1]
	if sassy.Mode != domain.TurnModeSassy || sassy.HadMeme {
		t.Errorf("unexpected sassy record: mode=%q hadMeme=%v", sassy.Mode, sassy.HadMeme)
	}
	if meme.Mode != domain.TurnModeMeme || !meme.HadMeme {
		t.Errorf("unexpected meme record: mode=%q hadMeme=%v", meme.Mode, meme.HadMeme)
	}
	if meme.ID == "" || meme.CreatedAt.IsZero() {
		t.Error("recorded turns must carry ID and timestamp")
	}
	if len(meme.Subjects) != 1 || meme.Subjects[0] != "cats" {
		t.Errorf("expected subjects recorded, got %v", meme.Subjects)
	}
}

func TestCollectImagesDeduplicates(t *testing.T) {
	fakes := defaultFakes()
	fakes.retriever = &fakeRetriever{urls: []string{
		"https://a.example/cat.jpg",
		"https://a.example/cat.jpg",
		"https://b.example/dog.jpg",
	}}
	fakes.analyzer = &fakeAnalyzer{result: &domain.AnalysisResult{
		Subjects:      []string{"cats", "dogs"},
		SearchQueries: []string{"q1", "q2"},
		Captions:      []string{"c1", "c2"},
	}}
	svc := newTestOrchestrator(fakes, nil)

	urls := svc.collectImages(context.Background(), []string{"q1", "q2"})
	if len(urls) != 2 {
		t.Fatalf("expected deduplicated urls, got %v", urls)
	}
}

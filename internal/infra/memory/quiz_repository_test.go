package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

type countingLoader struct {
	calls  int64
	loader QuizLoader
}

func (l *countingLoader) LoadQuiz(ctx context.Context, ref string) (domain.Quiz, error) {
	atomic.AddInt64(&l.calls, 1)
	return l.loader.LoadQuiz(ctx, ref)
}

func testQuiz(name string) domain.Quiz {
	return domain.Quiz{Meta: domain.QuizMeta{Name: name}}
}

func TestGetQuizCachesWithinTTL(t *testing.T) {
	loader := &countingLoader{loader: NewStaticQuizLoader(map[string]domain.Quiz{
		"capitals.yaml": testQuiz("Capitals"),
	})}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		quiz, err := repo.GetQuiz(context.Background(), "capitals.yaml")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if quiz.Meta.Name != "Capitals" {
			t.Fatalf("unexpected quiz %+v", quiz.Meta)
		}
	}
	if calls := atomic.LoadInt64(&loader.calls); calls != 1 {
		t.Fatalf("expected 1 backend load, got %d", calls)
	}
}

func TestGetQuizReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{loader: NewStaticQuizLoader(map[string]domain.Quiz{
		"capitals.yaml": testQuiz("Capitals"),
	})}
	repo := NewQuizRepository(loader, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), "capitals.yaml"); err != nil {
		t.Fatalf("get: %v", err)
	}
	// Jitter is at most 10%, so two minutes is safely past expiry.
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "capitals.yaml"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if calls := atomic.LoadInt64(&loader.calls); calls != 2 {
		t.Fatalf("expected 2 backend loads, got %d", calls)
	}
}

func TestGetQuizErrorsAreNotCached(t *testing.T) {
	loader := &countingLoader{loader: NewStaticQuizLoader(nil)}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuiz(context.Background(), "nope.yaml"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	}
	if calls := atomic.LoadInt64(&loader.calls); calls != 2 {
		t.Fatalf("expected misses to hit the backend each time, got %d calls", calls)
	}
}

func TestGetQuizConcurrentSingleLoad(t *testing.T) {
	loader := &countingLoader{loader: NewStaticQuizLoader(map[string]domain.Quiz{
		"capitals.yaml": testQuiz("Capitals"),
	})}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), "capitals.yaml"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt64(&loader.calls); calls != 1 {
		t.Fatalf("expected singleflight to collapse to 1 load, got %d", calls)
	}
}

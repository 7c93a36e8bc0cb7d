package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

type fakeFinder struct {
	articles map[string][]models.StoredArticle
	err      error
	queries  []string
}

func (f *fakeFinder) FindByDate(_ context.Context, date string) ([]models.StoredArticle, error) {
	f.queries = append(f.queries, date)
	if f.err != nil {
		return nil, f.err
	}
	return f.articles[date], nil
}

type archived struct {
	object, contentType, content string
}

type fakeArchiver struct {
	mu    sync.Mutex
	saved []archived
	err   error
}

func (a *fakeArchiver) Archive(_ context.Context, objectName, contentType string, content io.Reader) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, archived{objectName, contentType, string(b)})
	return "gs://archive/" + objectName, nil
}

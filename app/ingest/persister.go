package ingest

import (
	"context"
	"fmt"

	"github.com/lysyi3m/blogroll/app/database"
)

// PersistError is a rejected batch insert for one source.
type PersistError struct {
	Source string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Source, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type Persister struct {
	store Store
}

func NewPersister(store Store) *Persister {
	return &Persister{store: store}
}

// Persist inserts one source's accepted candidates as a single batch. On failure
// nothing from the batch counts as inserted.
func (p *Persister) Persist(ctx context.Context, source string, candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	articles := make([]database.NewArticle, 0, len(candidates))
	for _, c := range candidates {
		articles = append(articles, c.article())
	}

	inserted, err := p.store.InsertArticles(ctx, articles)
	if err != nil {
		return 0, &PersistError{Source: source, Err: err}
	}

	return inserted, nil
}

package database

import (
	"context"
	"sort"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

// Registry resolves engine adapters by engine.
type Registry struct {
	engines map[domain.Engine]domain.Database
}

func NewRegistry(dbs ...domain.Database) *Registry {
	r := &Registry{engines: make(map[domain.Engine]domain.Database, len(dbs))}
	for _, db := range dbs {
		r.engines[db.Engine()] = db
	}
	return r
}

// Default registers the PostgreSQL and MySQL adapters.
func Default(connectTimeout time.Duration) *Registry {
	return NewRegistry(NewPostgreSQL(connectTimeout), NewMySQL(connectTimeout))
}

func (r *Registry) Get(engine domain.Engine) (domain.Database, error) {
	db, ok := r.engines[engine]
	if !ok {
		return nil, &domain.UnsupportedEngineError{Engine: engine.String()}
	}
	return db, nil
}

// Open dispatches to the adapter for profile.Engine.
func (r *Registry) Open(ctx context.Context, profile domain.ConnectionProfile) (domain.Session, error) {
	db, err := r.Get(profile.Engine)
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, profile)
}

func (r *Registry) Engines() []domain.Engine {
	out := make([]domain.Engine, 0, len(r.engines))
	for e := range r.engines {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package usecase

import (
	"context"
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// Users lists and administers database accounts over the live session.
type Users struct {
	conns   Leaser
	engines EngineResolver
	logger  Logger
}

func NewUsers(conns Leaser, engines EngineResolver, logger Logger) *Users {
	return &Users{conns: conns, engines: engines, logger: logger}
}

func (uc *Users) List(ctx context.Context) (domain.Outcome, []domain.User) {
	lease, err := uc.conns.Acquire()
	if err != nil {
		return domain.Failed("Not connected to a database."), []domain.User{}
	}
	defer lease.Release()

	db, err := uc.engines.Get(lease.Profile.Engine)
	if err != nil {
		return domain.Failed("Failed to list users: %v", err), []domain.User{}
	}

	users, err := db.ListUsers(ctx, lease.Session)
	if err != nil {
		uc.logger.Errorf("Listing users failed: %v", err)
		return domain.Failed("Failed to list users: %v", err), []domain.User{}
	}
	if users == nil {
		users = []domain.User{}
	}
	return domain.Succeeded("Users listed successfully."), users
}

// Manage applies a create or drop in a single transaction.
func (uc *Users) Manage(ctx context.Context, req domain.UserRequest) domain.Outcome {
	lease, err := uc.conns.Acquire()
	if err != nil {
		return domain.Failed("Not connected to a database.")
	}
	defer lease.Release()

	if req.Username == "" {
		return domain.Failed("User operation failed: username is required")
	}
	if req.Operation == domain.UserCreate && req.Password == "" {
		return domain.Failed("User operation failed: password is required to create a user")
	}

	if err := uc.apply(ctx, lease, req); err != nil {
		uc.logger.Errorf("User operation %s for %s failed: %v", req.Operation, req.Username, err)
		return domain.Failed("User operation failed: %v", err)
	}

	uc.logger.Infof("User operation %s for %s applied", req.Operation, req.Username)
	return domain.Succeeded("User operation '%s' for '%s' successful.", req.Operation, req.Username)
}

func (uc *Users) apply(ctx context.Context, lease *Lease, req domain.UserRequest) error {
	db, err := uc.engines.Get(lease.Profile.Engine)
	if err != nil {
		return err
	}

	stmts, err := db.UserStatements(req)
	if err != nil {
		return err
	}

	tx, err := lease.Session.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.Query, st.Args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

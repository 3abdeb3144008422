package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/bookshelf/internal/config"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/limiter"
	"github.com/and161185/bookshelf/internal/ndl"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/and161185/bookshelf/internal/repository/postgres"
	"github.com/and161185/bookshelf/internal/repository/rest"
	"github.com/and161185/bookshelf/internal/service"
	"github.com/and161185/bookshelf/internal/session"
)

// Sign-in lockout for the direct mode.
const (
	signInWindow   = 15 * time.Minute
	signInMaxFails = 5
	signInBlockFor = 15 * time.Minute
)

// app holds the collaborators shared by every command.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	session *session.Store

	catalog repository.CatalogRepository
	reviews repository.ReviewRepository
	shelf   repository.ShelfRepository
	auth    repository.AuthRepository
	search  ndl.Searcher

	accounts *postgres.AccountRepo // direct mode only
	closers  []func()
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newApp restores the session and binds the repositories of the configured
// backend: the REST API, or PostgreSQL when a DSN is set.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	a.session = session.NewStore(session.NewFileStore(cfg.ConfigDir), log)
	a.session.Restore()

	a.search = ndl.New(cfg.NDLRoot, &http.Client{Timeout: 2 * cfg.APITimeout},
		limiter.NewOutbound(cfg.SearchRPS, 1), log.Named("ndl"))

	if !cfg.Direct() {
		c := rest.New(cfg.APIRoot, cfg.APITimeout, a.session, log.Named("api"),
			rest.WithUnauthorizedHook(func() {
				if err := a.session.Clear(); err != nil {
					log.Warn("clear session", zap.Error(err))
				}
			}))
		a.catalog = rest.NewBooks(c)
		a.reviews = rest.NewReviews(c)
		a.shelf = rest.NewShelf(c)
		a.auth = rest.NewAuth(c)
		return a, nil
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	host, _ := os.Hostname()
	a.accounts = postgres.NewAccountRepo(db,
		limiter.NewPG(db.Pool, signInWindow, signInMaxFails, signInBlockFor), host, log.Named("accounts"))
	a.auth = a.accounts
	a.catalog = postgres.NewBookRepo(db)

	userID := a.directUser()
	a.reviews = postgres.NewReviewRepo(db, userID)
	a.shelf = postgres.NewShelfRepo(db, userID)
	return a, nil
}

// directUser picks the signed-in account, then BOOKSHELF_USER_ID.
func (a *app) directUser() uuid.UUID {
	if tok, ok := a.session.Current(); ok {
		return tok.User.ID
	}
	id, _ := a.cfg.FixedUser()
	return id
}

// requireUser fails fast for commands acting on the user's own data.
func (a *app) requireUser() error {
	if _, ok := a.session.Current(); ok {
		return nil
	}
	if _, ok := a.cfg.FixedUser(); ok && a.cfg.Direct() {
		return nil
	}
	return fmt.Errorf("%w: login required", errs.ErrUnauthorized)
}

func (a *app) workflow() service.ReviewWorkflow {
	return service.NewReviewWorkflow(a.catalog, a.reviews, a.log.Named("reviews"))
}

func (a *app) shelves() service.ShelfService {
	return service.NewShelfService(a.shelf, a.log.Named("shelf"))
}

func (a *app) authService() service.AuthService {
	return service.NewAuthService(a.auth, a.session, a.log.Named("auth"))
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Package sync imports cards from local directories and git repositories.
//
// Every source owns one deck. A sync parses the markdown files of the source,
// adds cards it has not seen, keeps the scheduling state of cards it has seen
// (matched by content fingerprint) and removes cards that disappeared.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/apperr"
	"github.com/conorfennell/recall/internal/cardhash"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/parser"
)

// Store is the persistence used by the syncer.
type Store interface {
	InsertSource(ctx context.Context, path, sourceType string) (int64, error)
	FindSourceByPath(ctx context.Context, path string) (domain.Source, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	UpdateSourceLastScanned(ctx context.Context, id int64, at time.Time) error
	CreateDeck(ctx context.Context, d domain.Deck) error
	FindDeckBySource(ctx context.Context, sourceID int64) (domain.Deck, error)
	InsertCard(ctx context.Context, c domain.Card) error
	ListCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
	DeleteCard(ctx context.Context, id string) error
}

// GitFunc fetches a repository into a local directory.
type GitFunc func(ctx context.Context, url, localPath string) error

// Result reports what a sync of one source changed.
type Result struct {
	SourceID int64  `json:"source_id"`
	DeckID   string `json:"deck_id"`
	Parsed   int    `json:"parsed"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Errors   int    `json:"errors"`
}

// Syncer reconciles sources with their decks.
type Syncer struct {
	store    Store
	reposDir string
	git      GitFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewSyncer creates a Syncer that clones git sources under reposDir.
func NewSyncer(store Store, reposDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:    store,
		reposDir: reposDir,
		git:      gitsource.Sync,
		now:      time.Now,
		logger:   logger,
	}
}

// AddSource registers a local path or a git URL and returns its ID.
func (s *Syncer) AddSource(ctx context.Context, path string) (int64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, fmt.Errorf("source path is empty: %w", apperr.ErrInvalidInput)
	}

	sourceType := domain.SourceLocal
	if IsGitURL(path) {
		sourceType = domain.SourceGit
		if _, err := gitURLToLocalPath(s.reposDir, path); err != nil {
			return 0, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
		}
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return 0, fmt.Errorf("source %s is not a directory: %w", path, apperr.ErrInvalidInput)
		}
		path = abs
	}

	existing, err := s.store.FindSourceByPath(ctx, path)
	switch {
	case err == nil:
		return 0, fmt.Errorf("source %s is already registered with id %d: %w", path, existing.ID, apperr.ErrConflict)
	case !errors.Is(err, apperr.ErrNotFound):
		return 0, fmt.Errorf("failed to look up source %s: %w", path, err)
	}

	id, err := s.store.InsertSource(ctx, path, sourceType)
	if err != nil {
		return 0, err
	}
	s.logger.Info("source added", "id", id, "type", sourceType, "path", path)
	return id, nil
}

// RunAll syncs every source. A failing source does not stop the others; the
// returned error joins the failures.
func (s *Syncer) RunAll(ctx context.Context) ([]Result, error) {
	s.logger.Info("starting sync for all sources")
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return nil, nil
	}

	var (
		results []Result
		errs    []error
	)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Run(ctx, source)
		if err != nil {
			s.logger.Error("failed to sync source", "id", source.ID, "path", source.Path, "error", err)
			errs = append(errs, fmt.Errorf("source %d: %w", source.ID, err))
			continue
		}
		results = append(results, res)
	}
	s.logger.Info("sync complete", "sources", len(sources), "failed", len(errs))
	return results, errors.Join(errs...)
}

// Run syncs a single source.
func (s *Syncer) Run(ctx context.Context, source domain.Source) (Result, error) {
	s.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

	dir := source.Path
	if source.Type == domain.SourceGit {
		localPath, err := gitURLToLocalPath(s.reposDir, source.Path)
		if err != nil {
			return Result{}, err
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := s.git(ctx, source.Path, localPath); err != nil {
			return Result{}, err
		}
		dir = localPath
	}

	deck, err := s.sourceDeck(ctx, source)
	if err != nil {
		return Result{}, err
	}
	res, err := s.reconcile(ctx, deck, dir)
	if err != nil {
		return res, err
	}
	res.SourceID = source.ID

	if err := s.store.UpdateSourceLastScanned(ctx, source.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}
	return res, nil
}

func (s *Syncer) sourceDeck(ctx context.Context, source domain.Source) (domain.Deck, error) {
	deck, err := s.store.FindDeckBySource(ctx, source.ID)
	if err == nil {
		return deck, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return deck, err
	}

	deck = domain.NewDeck(deckName(source.Path), "Imported from "+source.Path, s.now())
	id := source.ID
	deck.SourceID = &id
	if err := s.store.CreateDeck(ctx, deck); err != nil {
		return deck, fmt.Errorf("failed to create deck for source %d: %w", source.ID, err)
	}
	s.logger.Info("created deck for source", "source_id", source.ID, "deck_id", deck.ID, "name", deck.Name)
	return deck, nil
}

func (s *Syncer) reconcile(ctx context.Context, deck domain.Deck, dir string) (Result, error) {
	res := Result{DeckID: deck.ID}

	existing, err := s.store.ListCardsByDeck(ctx, deck.ID)
	if err != nil {
		return res, fmt.Errorf("error getting cards for deck %s: %w", deck.ID, err)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Hash] = true
	}

	found := make(map[string]bool)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		parsed, err := parser.ParseFile(path)
		if err != nil {
			s.logger.Warn("failed to parse file", "path", path, "error", err)
			res.Errors++
			return nil
		}
		for _, draft := range parsed {
			res.Parsed++
			hash := cardhash.Hash(draft)
			if found[hash] {
				continue
			}
			found[hash] = true
			if known[hash] {
				continue
			}

			card := domain.NewCard(deck.ID, draft.Front, draft.Back, s.now())
			card.Context = draft.Context
			card.Hash = hash
			if err := s.store.InsertCard(ctx, card); err != nil {
				s.logger.Warn("failed to insert card", "hash", hash, "error", err)
				res.Errors++
				continue
			}
			res.Added++
		}
		return ctx.Err()
	})
	if walkErr != nil {
		return res, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	for _, c := range existing {
		// Cards added by hand have no hash and are not owned by the files.
		if c.Hash == "" || found[c.Hash] {
			continue
		}
		if err := s.store.DeleteCard(ctx, c.ID); err != nil {
			s.logger.Warn("failed to delete orphaned card", "card_id", c.ID, "error", err)
			res.Errors++
			continue
		}
		res.Removed++
	}

	s.logger.Info("reconciliation complete",
		"path", dir,
		"deck_id", deck.ID,
		"parsed_cards", res.Parsed,
		"added", res.Added,
		"orphaned_deleted", res.Removed,
		"errors", res.Errors,
	)
	return res, nil
}

// IsGitURL reports whether path looks like a remote git repository.
func IsGitURL(path string) bool {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return true
	}
	return strings.HasPrefix(path, "git@")
}

func deckName(path string) string {
	name := filepath.Base(strings.TrimSuffix(strings.TrimRight(path, "/"), ".git"))
	if name == "." || name == "/" || name == "" {
		return path
	}
	return name
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:owner/repo.git
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			host, repoPath, ok := strings.Cut(rest, ":")
			if ok && host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	if parsedURL.Host == "" || strings.Trim(sanitizedPath, "/") == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}

// Package content serves gated Notion pages.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/notiongate/notiongate/internal/notion"
	"github.com/notiongate/notiongate/internal/shared"
)

const (
	// maxDepth bounds how deep nested blocks are expanded.
	maxDepth = 3
	// loadTimeout bounds a shared load, which outlives the caller that started it.
	loadTimeout = 30 * time.Second
)

// PageSource is the subset of the Notion client the service reads from.
type PageSource interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	BlockChildren(ctx context.Context, blockID string) ([]notion.Block, error)
}

// Document is a page with its block tree.
type Document struct {
	Page   notion.Page    `json:"page"`
	Title  string         `json:"title"`
	Blocks []notion.Block `json:"blocks"`
}

// Service fetches documents through the cache, collapsing concurrent
// requests for the same page.
type Service struct {
	source        PageSource
	cache         *Cache
	defaultPageID string
	logger        *slog.Logger
	group         singleflight.Group
}

// NewService constructs a content Service. cache may be nil.
func NewService(source PageSource, cache *Cache, defaultPageID string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache != nil && cache.logger == nil {
		cache.logger = logger
	}
	return &Service{source: source, cache: cache, defaultPageID: defaultPageID, logger: logger}
}

// DefaultPageID returns the configured landing page id.
func (s *Service) DefaultPageID() string {
	return s.defaultPageID
}

// Get returns the document for rawID, which may be a UUID, 32 hex chars or a
// Notion URL.
func (s *Service) Get(ctx context.Context, rawID string) (*Document, error) {
	id, err := notion.NormalizeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("content: %w: %w", shared.ErrInvalidInput, err)
	}
	key, err := s.cache.BuildKey(ctx, "content", "page", id)
	if err != nil {
		s.logger.WarnContext(ctx, "content cache key", slog.Any("error", err))
		key = ""
	}

	// The shared load is detached from the caller that started it.
	ch := s.group.DoChan(id, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		var doc Document
		err := s.cache.FetchJSON(loadCtx, key, &doc, func(ctx context.Context) (any, error) {
			return s.load(ctx, id)
		})
		return &doc, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	}
}

// Invalidate drops every cached document.
func (s *Service) Invalidate(ctx context.Context) error {
	_, err := s.cache.Bump(ctx)
	return err
}

func (s *Service) load(ctx context.Context, id string) (*Document, error) {
	page, err := s.source.RetrievePage(ctx, id)
	if err != nil {
		return nil, mapNotionError("retrieve page", err)
	}
	if page.Archived {
		return nil, fmt.Errorf("content: page %s archived: %w", id, shared.ErrNotFound)
	}
	blocks, err := s.children(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return &Document{Page: *page, Title: pageTitle(*page), Blocks: blocks}, nil
}

func (s *Service) children(ctx context.Context, blockID string, depth int) ([]notion.Block, error) {
	blocks, err := s.source.BlockChildren(ctx, blockID)
	if err != nil {
		return nil, mapNotionError("block children", err)
	}
	if depth+1 >= maxDepth {
		return blocks, nil
	}
	for i := range blocks {
		if !blocks[i].HasChildren || blocks[i].Type == "child_page" || blocks[i].Type == "child_database" {
			continue
		}
		nested, err := s.children(ctx, blocks[i].ID, depth+1)
		if err != nil {
			return nil, err
		}
		blocks[i].Children = nested
	}
	return blocks, nil
}

func pageTitle(p notion.Page) string {
	for _, prop := range p.Properties {
		if prop.Type == "title" || len(prop.Title) > 0 {
			return notion.Plain(prop.Title)
		}
	}
	return ""
}

func mapNotionError(op string, err error) error {
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest) {
		return fmt.Errorf("content: %s: %w: %w", op, shared.ErrNotFound, err)
	}
	return shared.Upstream("content: "+op, err)
}

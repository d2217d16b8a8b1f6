package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"content-query-service/internal/domain"
)

// Engine implements domain.QueryEngine and domain.PostStore using PostgreSQL.
type Engine struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEngine creates a new PostgreSQL query engine.
func NewEngine(db *gorm.DB, logger *zap.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// Query runs an Effective Query. The count ignores pagination.
func (e *Engine) Query(ctx context.Context, args domain.Args) (*domain.QueryResult, error) {
	c := ParseCriteria(args)
	e.logger.Debug("running post query",
		zap.Strings("types", c.Types),
		zap.Strings("statuses", c.Statuses),
		zap.Int("per_page", c.PerPage),
		zap.Int("page", c.Page),
		zap.Bool("search", c.Search != ""),
	)

	query := e.db.WithContext(ctx).Model(&PostModel{}).Scopes(filters(c))

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	var models []PostModel
	page := query.Session(&gorm.Session{}).Scopes(ordering(c), preloads)
	if limit := c.Limit(); limit > 0 {
		page = page.Limit(limit)
	}
	if skip := c.SkipRows(); skip > 0 {
		page = page.Offset(skip)
	}
	if err := page.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}

	posts := toDomainSlice(models)

	if !c.IgnoreSticky && c.FirstPage() && c.HomeLike() {
		sticky, err := e.stickyPosts(ctx, c)
		if err != nil {
			return nil, err
		}
		posts = prependSticky(posts, sticky)
	}

	return &domain.QueryResult{Posts: posts, Found: total}, nil
}

// stickyPosts loads sticky posts of the queried types and statuses. Filters
// that keep a query home-like still apply, so excluded posts stay out.
func (e *Engine) stickyPosts(ctx context.Context, c Criteria) ([]*domain.Post, error) {
	var models []PostModel
	err := e.db.WithContext(ctx).
		Where("posts.sticky = ?", true).
		Where("posts.type = ANY(?)", pq.Array(c.Types)).
		Where("posts.status = ANY(?)", pq.Array(c.Statuses)).
		Scopes(passwordFilter(c), exclusions(c), preloads).
		Order("posts.published_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading sticky posts: %w", err)
	}
	return toDomainSlice(models), nil
}

// prependSticky moves sticky posts to the front, keeping their relative order.
func prependSticky(posts, sticky []*domain.Post) []*domain.Post {
	if len(sticky) == 0 {
		return posts
	}

	isSticky := make(map[int64]bool, len(sticky))
	for _, p := range sticky {
		isSticky[p.ID] = true
	}

	out := make([]*domain.Post, 0, len(posts)+len(sticky))
	out = append(out, sticky...)
	for _, p := range posts {
		if !isSticky[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// GetByIDs returns the posts with the given ids.
func (e *Engine) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	var models []PostModel
	if err := e.db.WithContext(ctx).Scopes(preloads).Where("posts.id = ANY(?)", pq.Array(ids)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("getting posts by ids: %w", err)
	}
	return toDomainSlice(models), nil
}

// ListAfter returns up to limit posts with id > afterID ordered by id.
func (e *Engine) ListAfter(ctx context.Context, afterID int64, limit int) ([]*domain.Post, error) {
	var models []PostModel
	err := e.db.WithContext(ctx).
		Scopes(preloads).
		Where("posts.id > ?", afterID).
		Order("posts.id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return toDomainSlice(models), nil
}

func preloads(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Terms").Preload("Meta")
}

func passwordFilter(c Criteria) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case c.HasPassword != nil && *c.HasPassword:
			return db.Where("posts.password <> ''")
		case c.HasPassword != nil, c.ExcludeProtected:
			return db.Where("posts.password = ''")
		}
		return db
	}
}

// exclusions applies the conditions HomeLike does not look at: excluded ids
// and parents, mime types and language.
func exclusions(c Criteria) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(c.NotIDs) > 0 {
			db = db.Where("NOT (posts.id = ANY(?))", pq.Array(c.NotIDs))
		}
		if len(c.NotParentIDs) > 0 {
			db = db.Where("NOT (posts.parent_id = ANY(?))", pq.Array(c.NotParentIDs))
		}
		if len(c.MimeTypes) > 0 {
			var mimes []cond
			for _, m := range c.MimeTypes {
				if strings.Contains(m, "/") {
					mimes = append(mimes, newCond("posts.mime_type = ?", m))
				} else {
					mimes = append(mimes, newCond("posts.mime_type LIKE ?", escapeLike(m)+"/%"))
				}
			}
			if m, ok := join(relationOr, mimes); ok {
				db = db.Where(m.sql, m.args...)
			}
		}
		if len(c.Lang) > 0 {
			db = db.Where("posts.lang = ANY(?)", pq.Array(c.Lang))
		}
		return db
	}
}

// filters applies every WHERE condition of c.
func filters(c Criteria) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("posts.type = ANY(?)", pq.Array(c.Types)).
			Where("posts.status = ANY(?)", pq.Array(c.Statuses)).
			Scopes(passwordFilter(c), exclusions(c))

		if len(c.IDs) > 0 {
			db = db.Where("posts.id = ANY(?)", pq.Array(c.IDs))
		}
		if len(c.Slugs) > 0 {
			db = db.Where("posts.slug = ANY(?)", pq.Array(c.Slugs))
		}
		if c.Title != "" {
			db = db.Where("posts.title = ?", c.Title)
		}
		if len(c.ParentIDs) > 0 {
			db = db.Where("posts.parent_id = ANY(?)", pq.Array(c.ParentIDs))
		}

		if len(c.Authors) > 0 {
			db = db.Where("posts.author_id = ANY(?)", pq.Array(c.Authors))
		}
		if len(c.NotAuthors) > 0 {
			db = db.Where("NOT (posts.author_id = ANY(?))", pq.Array(c.NotAuthors))
		}
		if c.AuthorName != "" {
			db = db.Where("posts.author_id IN (SELECT id FROM users WHERE nicename = ?)", c.AuthorName)
		}
		if c.Search != "" {
			db = db.Where("posts.search_vector @@ websearch_to_tsquery('english', ?)", c.Search)
		}

		for _, t := range c.Terms {
			if tc, ok := taxCondition(t); ok {
				db = db.Where(tc.sql, tc.args...)
			}
		}
		if g, ok := group(c.TaxQuery.Relation, c.TaxQuery.Clauses, taxCondition); ok {
			db = db.Where(g.sql, g.args...)
		}
		if g, ok := group(c.Meta.Relation, c.Meta.Clauses, metaCondition); ok {
			db = db.Where(g.sql, g.args...)
		}
		if g, ok := group(c.Date.Relation, c.Date.Clauses, dateCondition); ok {
			db = db.Where(g.sql, g.args...)
		}

		return db
	}
}

func group[T any](relation string, clauses []T, build func(T) (cond, bool)) (cond, bool) {
	conds := make([]cond, 0, len(clauses))
	for _, cl := range clauses {
		if c, ok := build(cl); ok {
			conds = append(conds, c)
		}
	}
	return join(relation, conds)
}

// ordering translates OrderBy into an ORDER BY clause. A stable id
// tiebreaker keeps pagination deterministic.
func ordering(c Criteria) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		var parts []string
		var vars []any

		metaKey := ""
		if len(c.Meta.Clauses) > 0 {
			metaKey = c.Meta.Clauses[0].Key
		}

		for _, o := range c.OrderBy {
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}

			switch o.Field {
			case "none":
				continue
			case "id":
				parts = append(parts, "posts.id"+dir)
			case "author":
				parts = append(parts, "posts.author_id"+dir)
			case "title":
				parts = append(parts, "posts.title"+dir)
			case "name":
				parts = append(parts, "posts.slug"+dir)
			case "type":
				parts = append(parts, "posts.type"+dir)
			case "date":
				parts = append(parts, "posts.published_at"+dir)
			case "modified":
				parts = append(parts, "posts.modified_at"+dir)
			case "parent":
				parts = append(parts, "posts.parent_id"+dir)
			case "menu_order":
				parts = append(parts, "posts.menu_order"+dir)
			case "rand":
				parts = append(parts, "RANDOM()")
			case "relevance":
				if c.Search == "" {
					continue
				}
				parts = append(parts, "ts_rank(posts.search_vector, websearch_to_tsquery('english', ?))"+dir)
				vars = append(vars, c.Search)
			case "post__in":
				if len(c.IDs) == 0 {
					continue
				}
				parts = append(parts, "array_position(?::bigint[], posts.id)")
				vars = append(vars, pq.Array(c.IDs))
			case "post_name__in":
				if len(c.Slugs) == 0 {
					continue
				}
				parts = append(parts, "array_position(?::text[], posts.slug::text)")
				vars = append(vars, pq.Array(c.Slugs))
			case "post_parent__in":
				if len(c.ParentIDs) == 0 {
					continue
				}
				parts = append(parts, "array_position(?::bigint[], posts.parent_id)")
				vars = append(vars, pq.Array(c.ParentIDs))
			case "meta_value", "meta_value_num":
				if metaKey == "" {
					continue
				}
				value := "pm.meta_value"
				if o.Field == "meta_value_num" {
					value = numericMeta
				}
				parts = append(parts, "(SELECT "+value+" FROM post_meta pm WHERE pm.post_id = posts.id AND pm.meta_key = ? LIMIT 1)"+dir)
				vars = append(vars, metaKey)
			}
		}

		parts = append(parts, "posts.id DESC")

		return db.Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: strings.Join(parts, ", "), Vars: vars, WithoutParentheses: true},
		})
	}
}

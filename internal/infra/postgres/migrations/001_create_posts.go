package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createPostsSchema creates the content tables and seeds the built-in post types.
func createPostsSchema() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_posts",
		Migrate: func(tx *gorm.DB) error {
			tables := []string{
				`CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					login VARCHAR(60) NOT NULL UNIQUE,
					nicename VARCHAR(50) NOT NULL,
					display_name VARCHAR(250)
				)`,
				`CREATE TABLE IF NOT EXISTS post_types (
					name VARCHAR(20) PRIMARY KEY,
					label VARCHAR(100),
					show_in_rest BOOLEAN NOT NULL DEFAULT FALSE
				)`,
				`CREATE TABLE IF NOT EXISTS posts (
					id BIGSERIAL PRIMARY KEY,
					author_id BIGINT NOT NULL DEFAULT 0,
					slug VARCHAR(200) NOT NULL,
					title TEXT NOT NULL,
					content TEXT,
					excerpt TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'publish',
					type VARCHAR(20) NOT NULL DEFAULT 'post',
					mime_type VARCHAR(100) NOT NULL DEFAULT '',
					parent_id BIGINT NOT NULL DEFAULT 0,
					password VARCHAR(255) NOT NULL DEFAULT '',
					menu_order INTEGER NOT NULL DEFAULT 0,
					sticky BOOLEAN NOT NULL DEFAULT FALSE,
					lang VARCHAR(10) NOT NULL DEFAULT '',
					published_at TIMESTAMP NOT NULL,
					modified_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS terms (
					id BIGSERIAL PRIMARY KEY,
					taxonomy VARCHAR(32) NOT NULL,
					slug VARCHAR(200) NOT NULL,
					name VARCHAR(200) NOT NULL,
					parent_id BIGINT NOT NULL DEFAULT 0,
					CONSTRAINT uq_terms_taxonomy_slug UNIQUE (taxonomy, slug)
				)`,
				`CREATE TABLE IF NOT EXISTS post_terms (
					post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
					term_id BIGINT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
					PRIMARY KEY (post_id, term_id)
				)`,
				`CREATE TABLE IF NOT EXISTS post_meta (
					id BIGSERIAL PRIMARY KEY,
					post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
					meta_key VARCHAR(255) NOT NULL,
					meta_value TEXT
				)`,
			}
			for _, stmt := range tables {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_posts_type_status ON posts(type, status);",
				"CREATE INDEX IF NOT EXISTS idx_posts_published_at ON posts(published_at DESC);",
				"CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);",
				"CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);",
				"CREATE INDEX IF NOT EXISTS idx_posts_parent_id ON posts(parent_id);",
				"CREATE INDEX IF NOT EXISTS idx_posts_sticky ON posts(sticky) WHERE sticky;",
				"CREATE INDEX IF NOT EXISTS idx_post_terms_term_id ON post_terms(term_id);",
				"CREATE INDEX IF NOT EXISTS idx_post_meta_key ON post_meta(post_id, meta_key);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return tx.Exec(`
				INSERT INTO post_types (name, label, show_in_rest) VALUES
					('post', 'Posts', TRUE),
					('page', 'Pages', TRUE),
					('attachment', 'Media', TRUE)
				ON CONFLICT (name) DO NOTHING
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			for _, table := range []string{"post_meta", "post_terms", "terms", "posts", "post_types", "users"} {
				if err := tx.Exec("DROP TABLE IF EXISTS " + table + ";").Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}

package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// addFTSSupport adds a weighted tsvector over title, excerpt and content.
// Title ranks as 'A', excerpt as 'B' and content as 'C'. The trigger keeps
// the vector current on INSERT and on UPDATE of any source column.
func addFTSSupport() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_add_fts_support",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				ALTER TABLE posts
				ADD COLUMN IF NOT EXISTS search_vector tsvector
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_posts_search_vector
				ON posts USING GIN (search_vector)
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE OR REPLACE FUNCTION posts_search_vector_update()
				RETURNS trigger AS $$
				BEGIN
					NEW.search_vector :=
						setweight(to_tsvector('english', coalesce(NEW.title, '')), 'A') ||
						setweight(to_tsvector('english', coalesce(NEW.excerpt, '')), 'B') ||
						setweight(to_tsvector('english', coalesce(NEW.content, '')), 'C');
					RETURN NEW;
				END
				$$ LANGUAGE plpgsql
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`DROP TRIGGER IF EXISTS trg_posts_search_vector ON posts`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TRIGGER trg_posts_search_vector
				BEFORE INSERT OR UPDATE OF title, excerpt, content
				ON posts
				FOR EACH ROW
				EXECUTE FUNCTION posts_search_vector_update()
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				UPDATE posts SET search_vector =
					setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
					setweight(to_tsvector('english', coalesce(excerpt, '')), 'B') ||
					setweight(to_tsvector('english', coalesce(content, '')), 'C')
				WHERE search_vector IS NULL
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			_ = tx.Exec(`DROP TRIGGER IF EXISTS trg_posts_search_vector ON posts`).Error
			_ = tx.Exec(`DROP FUNCTION IF EXISTS posts_search_vector_update()`).Error
			_ = tx.Exec(`DROP INDEX IF EXISTS idx_posts_search_vector`).Error
			_ = tx.Exec(`ALTER TABLE posts DROP COLUMN IF EXISTS search_vector`).Error
			return nil
		},
	}
}

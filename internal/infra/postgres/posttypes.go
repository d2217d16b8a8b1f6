package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// PostTypeRegistry lists public post types from the post_types table.
type PostTypeRegistry struct {
	db *gorm.DB
}

// NewPostTypeRegistry creates a new PostTypeRegistry.
func NewPostTypeRegistry(db *gorm.DB) *PostTypeRegistry {
	return &PostTypeRegistry{db: db}
}

// PublicPostTypes returns the names of types flagged show_in_rest.
func (r *PostTypeRegistry) PublicPostTypes(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&PostTypeModel{}).
		Where("show_in_rest = ?", true).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing public post types: %w", err)
	}
	return names, nil
}

package postgres

import (
	"time"

	"content-query-service/internal/domain"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID          int64  `gorm:"primaryKey"`
	Login       string `gorm:"type:varchar(60);not null;uniqueIndex"`
	Nicename    string `gorm:"type:varchar(50);not null;index"`
	DisplayName string `gorm:"type:varchar(250)"`
}

// TableName returns the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// TermModel is the GORM model for the terms table.
type TermModel struct {
	ID       int64  `gorm:"primaryKey"`
	Taxonomy string `gorm:"type:varchar(32);not null;uniqueIndex:idx_terms_taxonomy_slug"`
	Slug     string `gorm:"type:varchar(200);not null;uniqueIndex:idx_terms_taxonomy_slug"`
	Name     string `gorm:"type:varchar(200);not null"`
	ParentID int64  `gorm:"default:0"`
}

// TableName returns the table name for TermModel.
func (TermModel) TableName() string {
	return "terms"
}

// PostMetaModel is the GORM model for the post_meta table.
type PostMetaModel struct {
	ID        int64  `gorm:"primaryKey"`
	PostID    int64  `gorm:"not null;index"`
	MetaKey   string `gorm:"type:varchar(255);not null;index"`
	MetaValue string `gorm:"type:text"`
}

// TableName returns the table name for PostMetaModel.
func (PostMetaModel) TableName() string {
	return "post_meta"
}

// PostTypeModel is the GORM model for the post_types table.
type PostTypeModel struct {
	Name       string `gorm:"type:varchar(20);primaryKey"`
	Label      string `gorm:"type:varchar(100)"`
	ShowInREST bool   `gorm:"column:show_in_rest;default:false"`
}

// TableName returns the table name for PostTypeModel.
func (PostTypeModel) TableName() string {
	return "post_types"
}

// PostModel is the GORM model for the posts table.
type PostModel struct {
	ID        int64  `gorm:"primaryKey"`
	AuthorID  int64  `gorm:"not null;index"`
	Slug      string `gorm:"type:varchar(200);not null;index"`
	Title     string `gorm:"type:text;not null"`
	Content   string `gorm:"type:text"`
	Excerpt   string `gorm:"type:text"`
	Status    string `gorm:"type:varchar(20);not null;index"`
	Type      string `gorm:"type:varchar(20);not null;index"`
	MimeType  string `gorm:"type:varchar(100)"`
	ParentID  int64  `gorm:"default:0;index"`
	Password  string `gorm:"type:varchar(255)"`
	MenuOrder int    `gorm:"default:0"`
	Sticky    bool   `gorm:"default:false"`
	Lang      string `gorm:"type:varchar(10);index"`

	// Timestamps
	PublishedAt time.Time `gorm:"not null;index"`
	ModifiedAt  time.Time `gorm:"not null"`

	Author UserModel       `gorm:"foreignKey:AuthorID"`
	Terms  []TermModel     `gorm:"many2many:post_terms;joinForeignKey:PostID;joinReferences:TermID"`
	Meta   []PostMetaModel `gorm:"foreignKey:PostID"`
}

// TableName returns the table name for PostModel.
func (PostModel) TableName() string {
	return "posts"
}

// ToDomain converts PostModel to domain.Post.
func (m *PostModel) ToDomain() *domain.Post {
	post := &domain.Post{
		ID:         m.ID,
		AuthorID:   m.AuthorID,
		AuthorName: m.Author.Nicename,
		Slug:       m.Slug,
		Title:      m.Title,
		Content:    m.Content,
		Excerpt:    m.Excerpt,
		Status:     m.Status,
		Type:       m.Type,
		MimeType:   m.MimeType,
		ParentID:   m.ParentID,
		Password:   m.Password,
		MenuOrder:  m.MenuOrder,
		Sticky:     m.Sticky,
		Lang:       m.Lang,
		Date:       m.PublishedAt,
		Modified:   m.ModifiedAt,
		Terms:      make([]domain.Term, 0, len(m.Terms)),
	}

	for _, t := range m.Terms {
		post.Terms = append(post.Terms, domain.Term{
			ID:       t.ID,
			Taxonomy: t.Taxonomy,
			Slug:     t.Slug,
			Name:     t.Name,
		})
	}

	if len(m.Meta) > 0 {
		post.Meta = make(map[string][]string, len(m.Meta))
		for _, meta := range m.Meta {
			post.Meta[meta.MetaKey] = append(post.Meta[meta.MetaKey], meta.MetaValue)
		}
	}

	return post
}

// FromDomain creates a PostModel from domain.Post. Terms are referenced by
// id; meta rows are rebuilt from the map.
func FromDomain(p *domain.Post) *PostModel {
	m := &PostModel{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Slug:        p.Slug,
		Title:       p.Title,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		Status:      p.Status,
		Type:        p.Type,
		MimeType:    p.MimeType,
		ParentID:    p.ParentID,
		Password:    p.Password,
		MenuOrder:   p.MenuOrder,
		Sticky:      p.Sticky,
		Lang:        p.Lang,
		PublishedAt: p.Date,
		ModifiedAt:  p.Modified,
	}

	for _, t := range p.Terms {
		m.Terms = append(m.Terms, TermModel{ID: t.ID, Taxonomy: t.Taxonomy, Slug: t.Slug, Name: t.Name})
	}
	for key, values := range p.Meta {
		for _, v := range values {
			m.Meta = append(m.Meta, PostMetaModel{PostID: p.ID, MetaKey: key, MetaValue: v})
		}
	}

	return m
}

// toDomainSlice converts models preserving their order.
func toDomainSlice(models []PostModel) []*domain.Post {
	posts := make([]*domain.Post, len(models))
	for i := range models {
		posts[i] = models[i].ToDomain()
	}
	return posts
}

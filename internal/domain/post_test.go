package domain

import (
	"context"
	"testing"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		found    int64
		perPage  int
		expected int
	}{
		{name: "exact multiple", found: 20, perPage: 10, expected: 2},
		{name: "rounds up", found: 21, perPage: 10, expected: 3},
		{name: "fewer than a page", found: 3, perPage: 10, expected: 1},
		{name: "no results", found: 0, perPage: 10, expected: 0},
		{name: "zero page size", found: 42, perPage: 0, expected: 1},
		{name: "zero page size no results", found: 0, perPage: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalPages(tt.found, tt.perPage)
			if got != tt.expected {
				t.Errorf("TotalPages(%d, %d) = %d, expected %d", tt.found, tt.perPage, got, tt.expected)
			}
		})
	}
}

func TestPost_IsPasswordProtected(t *testing.T) {
	if (&Post{}).IsPasswordProtected() {
		t.Error("expected post without password to be public")
	}
	if !(&Post{Password: "secret"}).IsPasswordProtected() {
		t.Error("expected post with password to be protected")
	}
}

func TestPost_TermIDs(t *testing.T) {
	p := &Post{Terms: []Term{
		{ID: 1, Taxonomy: TaxonomyCategory},
		{ID: 2, Taxonomy: TaxonomyTag},
		{ID: 3, Taxonomy: TaxonomyCategory},
	}}

	got := p.TermIDs(TaxonomyCategory)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected [1 3], got %v", got)
	}
	if got := p.TermIDs("genre"); len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
}

func TestSearchQuery_Offset(t *testing.T) {
	if got := (SearchQuery{Page: 3, PerPage: 10}).Offset(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
	if got := (SearchQuery{Page: 0, PerPage: 10}).Offset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (SearchQuery{Page: 3, PerPage: 10, Skip: 4}).Offset(); got != 4 {
		t.Errorf("expected explicit offset 4, got %d", got)
	}
}

func TestSearchQuery_Admits(t *testing.T) {
	q := SearchQuery{
		Types:            []string{"post"},
		Statuses:         []string{"publish"},
		Lang:             []string{"fi"},
		NotAuthors:       []int64{9},
		ExcludeProtected: true,
	}

	tests := []struct {
		name string
		post Post
		want bool
	}{
		{"matching post", Post{Type: "post", Status: "publish", Lang: "fi", AuthorID: 1}, true},
		{"password protected", Post{Type: "post", Status: "publish", Lang: "fi", Password: "pw"}, false},
		{"other language", Post{Type: "post", Status: "publish", Lang: "en"}, false},
		{"excluded author", Post{Type: "post", Status: "publish", Lang: "fi", AuthorID: 9}, false},
		{"other type", Post{Type: "page", Status: "publish", Lang: "fi"}, false},
		{"draft", Post{Type: "post", Status: "draft", Lang: "fi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.Admits(&tt.post); got != tt.want {
				t.Errorf("Admits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStaticPostTypes(t *testing.T) {
	src := StaticPostTypes{"post", "page"}
	got, err := src.PublicPostTypes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got[0] = "mutated"
	if src[0] != "post" {
		t.Error("expected a copy of the configured list")
	}
}

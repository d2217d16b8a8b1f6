package postgres

import (
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"content-query-service/internal/domain"
)

// Criteria is the typed form of an Effective Query as understood by the
// Postgres engine. Unknown keys and malformed values are ignored.
type Criteria struct {
	IDs          []int64
	NotIDs       []int64
	Slugs        []string
	Title        string
	ParentIDs    []int64
	NotParentIDs []int64
	Types        []string
	Statuses     []string
	MimeTypes    []string

	Authors          []int64
	NotAuthors       []int64
	AuthorName       string
	Search           string
	Lang             []string
	HasPassword      *bool
	ExcludeProtected bool

	Terms    []TaxClause
	TaxQuery TaxQuery
	Meta     MetaQuery
	Date     DateQuery

	PerPage      int // 0 means no limit
	Page         int
	Offset       int
	OrderBy      []OrderTerm
	IgnoreSticky bool
}

// TaxClause restricts posts by taxonomy terms.
type TaxClause struct {
	Taxonomy string
	Field    string // term_id, slug or name
	Terms    []string
	Operator string // IN, NOT IN, AND, EXISTS, NOT EXISTS
}

// TaxQuery is a group of taxonomy clauses.
type TaxQuery struct {
	Relation string
	Clauses  []TaxClause
}

// MetaClause restricts posts by a meta value.
type MetaClause struct {
	Key     string
	Values  []string
	Compare string
	Type    string // CHAR or NUMERIC
}

// MetaQuery is a group of meta clauses.
type MetaQuery struct {
	Relation string
	Clauses  []MetaClause
}

// DateClause restricts posts by date.
type DateClause struct {
	Column    string
	After     *time.Time
	Before    *time.Time
	Inclusive bool
	Parts     map[string]int // year, month, week, day, hour, minute, second
	Compare   string
}

// DateQuery is a group of date clauses.
type DateQuery struct {
	Relation string
	Clauses  []DateClause
}

// OrderTerm is one ORDER BY item.
type OrderTerm struct {
	Field string
	Desc  bool
}

const (
	relationAnd = "AND"
	relationOr  = "OR"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseCriteria translates args into Criteria.
func ParseCriteria(args domain.Args) Criteria {
	c := Criteria{Page: 1}

	// Single-post selectors.
	if id, ok := positiveInt(args, "p"); ok {
		c.IDs = append(c.IDs, id)
	}
	if id, ok := positiveInt(args, "page_id"); ok {
		c.IDs = append(c.IDs, id)
	}
	if v, ok := args["post__in"]; ok {
		c.IDs = append(c.IDs, intList(v)...)
	}
	if v, ok := args["post__not_in"]; ok {
		c.NotIDs = intList(v)
	}
	if name := args.Text("name"); name != "" {
		c.Slugs = append(c.Slugs, slug.Make(name))
	}
	if pagename := args.Text("pagename"); pagename != "" {
		parts := strings.Split(strings.Trim(pagename, "/"), "/")
		c.Slugs = append(c.Slugs, slug.Make(parts[len(parts)-1]))
	}
	if v, ok := args["post_name__in"]; ok {
		for _, s := range stringList(v) {
			c.Slugs = append(c.Slugs, slug.Make(s))
		}
	}
	c.Title = args.Text("title")

	// Hierarchy.
	if v, ok := args["post_parent"]; ok {
		if n, ok := v.Int(); ok && n >= 0 {
			c.ParentIDs = []int64{int64(n)}
		}
	}
	if v, ok := args["post_parent__in"]; ok {
		c.ParentIDs = append(c.ParentIDs, intList(v)...)
	}
	if v, ok := args["post_parent__not_in"]; ok {
		c.NotParentIDs = intList(v)
	}

	// Types and statuses.
	if v, ok := args[domain.ArgPostType]; ok {
		c.Types = stringList(v)
	}
	if len(c.Types) == 0 {
		if args.Has("page_id") || args.Has("pagename") {
			c.Types = []string{"page"}
		} else {
			c.Types = []string{domain.FallbackPostType}
		}
	}
	if v, ok := args[domain.ArgPostStatus]; ok {
		c.Statuses = stringList(v)
	}
	if len(c.Statuses) == 0 {
		c.Statuses = []string{domain.FallbackPostStatus}
	}
	if v, ok := args["post_mime_type"]; ok {
		c.MimeTypes = stringList(v)
	}

	// Authors.
	if v, ok := args["author"]; ok {
		for _, id := range signedIntList(v) {
			if id < 0 {
				c.NotAuthors = append(c.NotAuthors, -id)
			} else if id > 0 {
				c.Authors = append(c.Authors, id)
			}
		}
	}
	if v, ok := args["author__in"]; ok {
		c.Authors = append(c.Authors, intList(v)...)
	}
	if v, ok := args["author__not_in"]; ok {
		c.NotAuthors = append(c.NotAuthors, intList(v)...)
	}
	if name := args.Text("author_name"); name != "" {
		c.AuthorName = slug.Make(name)
	}

	// Search, language and password protection.
	c.Search = strings.TrimSpace(args.Text(domain.ArgSearch))
	if v, ok := args[domain.ArgLang]; ok {
		c.Lang = stringList(v)
	}
	if v, ok := args["has_password"]; ok {
		b := v.Truthy()
		c.HasPassword = &b
	}
	if v, ok := args[domain.ArgExcludePasswordProtected]; ok {
		c.ExcludeProtected = v.Truthy()
	}

	parseTaxonomies(&c, args)
	parseMeta(&c, args)
	parseDates(&c, args)
	parsePaging(&c, args)
	parseOrder(&c, args)

	if v, ok := args["ignore_sticky_posts"]; ok {
		c.IgnoreSticky = v.Truthy()
	}

	return c
}

func parseTaxonomies(c *Criteria, args domain.Args) {
	// cat: comma separated ids, negative ids exclude.
	if v, ok := args["cat"]; ok {
		var in, out []string
		for _, id := range signedIntList(v) {
			if id < 0 {
				out = append(out, strconv.FormatInt(-id, 10))
			} else if id > 0 {
				in = append(in, strconv.FormatInt(id, 10))
			}
		}
		c.addTerms(domain.TaxonomyCategory, "term_id", "IN", in)
		c.addTerms(domain.TaxonomyCategory, "term_id", "NOT IN", out)
	}
	if name := args.Text("category_name"); name != "" {
		addSlugExpression(c, domain.TaxonomyCategory, name)
	}
	c.addTerms(domain.TaxonomyCategory, "term_id", "IN", idStrings(args, "category__in"))
	c.addTerms(domain.TaxonomyCategory, "term_id", "AND", idStrings(args, "category__and"))
	c.addTerms(domain.TaxonomyCategory, "term_id", "NOT IN", idStrings(args, "category__not_in"))

	if tag := args.Text("tag"); tag != "" {
		addSlugExpression(c, domain.TaxonomyTag, tag)
	}
	if id, ok := positiveInt(args, "tag_id"); ok {
		c.addTerms(domain.TaxonomyTag, "term_id", "IN", []string{strconv.FormatInt(id, 10)})
	}
	c.addTerms(domain.TaxonomyTag, "term_id", "IN", idStrings(args, "tag__in"))
	c.addTerms(domain.TaxonomyTag, "term_id", "AND", idStrings(args, "tag__and"))
	c.addTerms(domain.TaxonomyTag, "term_id", "NOT IN", idStrings(args, "tag__not_in"))
	c.addTerms(domain.TaxonomyTag, "slug", "IN", slugStrings(args, "tag_slug__in"))
	c.addTerms(domain.TaxonomyTag, "slug", "AND", slugStrings(args, "tag_slug__and"))

	v, ok := args["tax_query"]
	if !ok || !(v.IsList() || v.IsMap()) {
		return
	}
	c.TaxQuery.Relation = relationOf(v)
	for _, item := range clauseItems(v) {
		taxonomy := textOf(item, "taxonomy")
		if taxonomy == "" {
			continue
		}
		field := strings.ToLower(textOf(item, "field"))
		if field != "slug" && field != "name" {
			field = "term_id"
		}
		terms := []string{}
		if t, ok := item.Get("terms"); ok {
			terms = stringList(t)
		}
		if field == "slug" {
			for i := range terms {
				terms[i] = slug.Make(terms[i])
			}
		}
		operator := strings.ToUpper(textOf(item, "operator"))
		switch operator {
		case "IN", "NOT IN", "AND", "EXISTS", "NOT EXISTS":
		default:
			operator = "IN"
		}
		if len(terms) == 0 && operator != "EXISTS" && operator != "NOT EXISTS" {
			continue
		}
		c.TaxQuery.Clauses = append(c.TaxQuery.Clauses, TaxClause{
			Taxonomy: taxonomy,
			Field:    field,
			Terms:    terms,
			Operator: operator,
		})
	}
}

// addSlugExpression handles "a,b" (any) and "a+b" (all) slug lists.
func addSlugExpression(c *Criteria, taxonomy, expr string) {
	if strings.Contains(expr, "+") {
		var slugs []string
		for _, s := range strings.Split(expr, "+") {
			if s = strings.TrimSpace(s); s != "" {
				slugs = append(slugs, slug.Make(s))
			}
		}
		c.addTerms(taxonomy, "slug", "AND", slugs)
		return
	}
	var slugs []string
	for _, s := range splitComma(expr) {
		slugs = append(slugs, slug.Make(s))
	}
	c.addTerms(taxonomy, "slug", "IN", slugs)
}

func (c *Criteria) addTerms(taxonomy, field, operator string, terms []string) {
	if len(terms) == 0 {
		return
	}
	c.Terms = append(c.Terms, TaxClause{
		Taxonomy: taxonomy,
		Field:    field,
		Terms:    terms,
		Operator: operator,
	})
}

func parseMeta(c *Criteria, args domain.Args) {
	c.Meta.Relation = relationAnd

	if key := args.Text("meta_key"); key != "" {
		clause := MetaClause{Key: key, Compare: normalizeCompare(args.Text("meta_compare"), "=")}
		if v, ok := args["meta_value"]; ok {
			clause.Values = stringList(v)
		} else if v, ok := args["meta_value_num"]; ok {
			clause.Values = stringList(v)
			clause.Type = "NUMERIC"
		} else if !args.Has("meta_compare") {
			clause.Compare = "EXISTS"
		}
		c.Meta.Clauses = append(c.Meta.Clauses, clause)
	}

	v, ok := args["meta_query"]
	if !ok || !(v.IsList() || v.IsMap()) {
		return
	}
	c.Meta.Relation = relationOf(v)
	for _, item := range clauseItems(v) {
		key := textOf(item, "key")
		if key == "" {
			continue
		}
		clause := MetaClause{
			Key:     key,
			Compare: normalizeCompare(textOf(item, "compare"), "="),
			Type:    strings.ToUpper(textOf(item, "type")),
		}
		if val, ok := item.Get("value"); ok {
			clause.Values = stringList(val)
		} else if !hasKey(item, "compare") {
			clause.Compare = "EXISTS"
		}
		c.Meta.Clauses = append(c.Meta.Clauses, clause)
	}
}

func normalizeCompare(op, fallback string) string {
	op = strings.ToUpper(strings.TrimSpace(op))
	switch op {
	case "=", "!=", ">", ">=", "<", "<=", "LIKE", "NOT LIKE", "IN", "NOT IN",
		"BETWEEN", "NOT BETWEEN", "EXISTS", "NOT EXISTS":
		return op
	default:
		return fallback
	}
}

func parseDates(c *Criteria, args domain.Args) {
	c.Date.Relation = relationAnd

	top := DateClause{Column: "post_date", Compare: "=", Parts: map[string]int{}}
	for arg, part := range map[string]string{
		"year":     "year",
		"monthnum": "month",
		"w":        "week",
		"day":      "day",
		"hour":     "hour",
		"minute":   "minute",
		"second":   "second",
	} {
		if n, ok := args.Int(arg); ok && n >= 0 {
			top.Parts[part] = n
		}
	}
	if m := args.Text("m"); m != "" && isDigits(m) {
		for _, p := range []struct {
			part       string
			start, end int
		}{
			{"year", 0, 4}, {"month", 4, 6}, {"day", 6, 8},
			{"hour", 8, 10}, {"minute", 10, 12}, {"second", 12, 14},
		} {
			if len(m) >= p.end {
				n, _ := strconv.Atoi(m[p.start:p.end])
				top.Parts[p.part] = n
			}
		}
	}
	if len(top.Parts) > 0 {
		c.Date.Clauses = append(c.Date.Clauses, top)
	}

	v, ok := args["date_query"]
	if !ok || !(v.IsList() || v.IsMap()) {
		return
	}

	defaultColumn := normalizeColumn(args.Text("column"))
	defaultCompare := normalizeCompare(args.Text("compare"), "=")
	defaultInclusive := false
	if iv, ok := args["inclusive"]; ok {
		defaultInclusive = iv.Truthy()
	}

	c.Date.Relation = relationOf(v)
	if rel := strings.ToUpper(args.Text("relation")); rel == relationOr && !hasKey(v, "relation") {
		c.Date.Relation = relationOr
	}

	for _, item := range clauseItems(v) {
		if !item.IsMap() {
			continue
		}
		clause := DateClause{
			Column:    defaultColumn,
			Compare:   defaultCompare,
			Inclusive: defaultInclusive,
			Parts:     map[string]int{},
		}
		if col := textOf(item, "column"); col != "" {
			clause.Column = normalizeColumn(col)
		}
		if cmp := textOf(item, "compare"); cmp != "" {
			clause.Compare = normalizeCompare(cmp, defaultCompare)
		}
		if inc, ok := item.Get("inclusive"); ok {
			clause.Inclusive = inc.Truthy()
		}
		if after, ok := item.Get("after"); ok {
			clause.After = parseDateValue(after, false)
		}
		if before, ok := item.Get("before"); ok {
			clause.Before = parseDateValue(before, true)
		}
		for _, part := range []string{"year", "month", "week", "day", "hour", "minute", "second"} {
			key := part
			if part == "month" && !hasKey(item, "month") {
				key = "monthnum"
			}
			if pv, ok := item.Get(key); ok {
				if n, ok := pv.Int(); ok {
					clause.Parts[part] = n
				}
			}
		}
		if clause.After == nil && clause.Before == nil && len(clause.Parts) == 0 {
			continue
		}
		c.Date.Clauses = append(c.Date.Clauses, clause)
	}
}

func normalizeColumn(col string) string {
	switch strings.ToLower(col) {
	case "post_modified", "post_modified_gmt", "modified":
		return "post_modified"
	default:
		return "post_date"
	}
}

// parseDateValue accepts a date string or a {year, month, day} mapping.
// Mapping bounds are rounded to the start (after) or end (before) of the period.
func parseDateValue(v domain.Value, endOfPeriod bool) *time.Time {
	if v.IsScalar() {
		text := strings.TrimSpace(v.Text())
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return &t
			}
		}
		return nil
	}
	if !v.IsMap() {
		return nil
	}

	year, ok := intOf(v, "year")
	if !ok {
		return nil
	}
	month, hasMonth := intOf(v, "month")
	day, hasDay := intOf(v, "day")

	var t time.Time
	switch {
	case hasMonth && hasDay:
		t = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if endOfPeriod {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
	case hasMonth:
		t = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		if endOfPeriod {
			t = t.AddDate(0, 1, 0).Add(-time.Second)
		}
	default:
		t = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if endOfPeriod {
			t = t.AddDate(1, 0, 0).Add(-time.Second)
		}
	}
	return &t
}

func parsePaging(c *Criteria, args domain.Args) {
	c.PerPage = 10
	if n, ok := args.Int(domain.ArgPostsPerPage); ok {
		if n < 0 {
			c.PerPage = 0
		} else if n > 0 {
			c.PerPage = n
		}
	}
	if n, ok := positiveInt(args, "paged"); ok {
		c.Page = int(n)
	} else if n, ok := positiveInt(args, "page"); ok {
		c.Page = int(n)
	}
	if n, ok := args.Int("offset"); ok && n > 0 {
		c.Offset = n
	}
}

var orderFields = map[string]string{
	"none":            "none",
	"id":              "id",
	"author":          "author",
	"title":           "title",
	"name":            "name",
	"type":            "type",
	"date":            "date",
	"modified":        "modified",
	"parent":          "parent",
	"rand":            "rand",
	"menu_order":      "menu_order",
	"relevance":       "relevance",
	"post__in":        "post__in",
	"post_name__in":   "post_name__in",
	"post_parent__in": "post_parent__in",
	"meta_value":      "meta_value",
	"meta_value_num":  "meta_value_num",
	"post_date":       "date",
	"post_title":      "title",
	"post_name":       "name",
	"post_modified":   "modified",
}

func parseOrder(c *Criteria, args domain.Args) {
	defaultDesc := !strings.EqualFold(args.Text("order"), "ASC")

	v, ok := args["orderby"]
	switch {
	case ok && v.IsMap():
		for _, field := range v.Keys() {
			dir, _ := v.Get(field)
			c.addOrder(field, !strings.EqualFold(dir.Text(), "ASC"))
		}
	case ok:
		for _, field := range strings.Fields(strings.ReplaceAll(v.Text(), ",", " ")) {
			c.addOrder(field, defaultDesc)
		}
	}

	if len(c.OrderBy) == 0 {
		if c.Search != "" {
			c.OrderBy = append(c.OrderBy, OrderTerm{Field: "relevance", Desc: true})
		}
		c.OrderBy = append(c.OrderBy, OrderTerm{Field: "date", Desc: defaultDesc})
	}
}

func (c *Criteria) addOrder(field string, desc bool) {
	f, ok := orderFields[strings.ToLower(field)]
	if !ok {
		return
	}
	c.OrderBy = append(c.OrderBy, OrderTerm{Field: f, Desc: desc})
}

// Limit returns the SQL LIMIT, or -1 for no limit.
func (c Criteria) Limit() int {
	if c.PerPage <= 0 {
		return -1
	}
	return c.PerPage
}

// SkipRows returns the SQL OFFSET. An explicit offset wins over the page number.
func (c Criteria) SkipRows() int {
	if c.Offset > 0 {
		return c.Offset
	}
	if c.PerPage <= 0 || c.Page <= 1 {
		return 0
	}
	return (c.Page - 1) * c.PerPage
}

// FirstPage reports whether the query targets the first page of results.
func (c Criteria) FirstPage() bool {
	return c.SkipRows() == 0
}

// HomeLike reports whether the query is an unfiltered listing. Sticky posts
// are only promoted for such queries.
func (c Criteria) HomeLike() bool {
	return len(c.IDs) == 0 && len(c.Slugs) == 0 && c.Title == "" &&
		len(c.ParentIDs) == 0 && len(c.Authors) == 0 && len(c.NotAuthors) == 0 &&
		c.AuthorName == "" && c.Search == "" &&
		len(c.Terms) == 0 && len(c.TaxQuery.Clauses) == 0 &&
		len(c.Meta.Clauses) == 0 && len(c.Date.Clauses) == 0
}

// Helpers for loosely typed values.

func positiveInt(args domain.Args, key string) (int64, bool) {
	n, ok := args.Int(key)
	if !ok || n <= 0 {
		return 0, false
	}
	return int64(n), true
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// stringList reads a list value, or a comma separated scalar.
func stringList(v domain.Value) []string {
	if v.IsScalar() {
		return splitComma(v.Text())
	}
	var out []string
	for _, s := range v.Strings() {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func signedIntList(v domain.Value) []int64 {
	var out []int64
	for _, s := range stringList(v) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// intList keeps positive ids only.
func intList(v domain.Value) []int64 {
	var out []int64
	for _, n := range signedIntList(v) {
		if n > 0 {
			out = append(out, n)
		}
	}
	return out
}

func idStrings(args domain.Args, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	var out []string
	for _, n := range intList(v) {
		out = append(out, strconv.FormatInt(n, 10))
	}
	return out
}

func slugStrings(args domain.Args, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	var out []string
	for _, s := range stringList(v) {
		out = append(out, slug.Make(s))
	}
	return out
}

func relationOf(v domain.Value) string {
	if r, ok := v.Get("relation"); ok && strings.EqualFold(r.Text(), relationOr) {
		return relationOr
	}
	return relationAnd
}

// clauseItems returns the clause members of a grouped query, skipping the
// relation key.
func clauseItems(v domain.Value) []domain.Value {
	if v.IsList() {
		return v.Items()
	}
	var out []domain.Value
	for _, k := range v.Keys() {
		if k == "relation" {
			continue
		}
		item, _ := v.Get(k)
		out = append(out, item)
	}
	return out
}

func textOf(v domain.Value, key string) string {
	item, ok := v.Get(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(item.Text())
}

func intOf(v domain.Value, key string) (int, bool) {
	item, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return item.Int()
}

func hasKey(v domain.Value, key string) bool {
	_, ok := v.Get(key)
	return ok
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

package hook

import (
	"content-query-service/internal/domain"
)

// Stage names are shared with external integrations and must stay stable.
// The allow_* gates keep their historical "toute" spelling.
const (
	prefix      = "wp_query_route_to_rest_api_"
	allowPrefix = "wp_query_toute_to_rest_api_"
)

// Request stages.
var (
	// PermissionsCheck decides whether the caller may use the endpoint.
	PermissionsCheck = NewGate[*domain.Request](prefix + "permissions_check")

	// DefaultArgs provides the server-side defaults of the Effective Query.
	DefaultArgs = NewFilter[domain.Args](prefix + "default_args")
)

// Allow-list stages.
var (
	AllowAuthors    = NewGate[*domain.Request](allowPrefix + "allow_authors")
	AllowMeta       = NewGate[*domain.Request](allowPrefix + "allow_meta")
	AllowSearch     = NewGate[*domain.Request](allowPrefix + "allow_search")
	AllowTaxonomies = NewGate[*domain.Request](allowPrefix + "allow_taxonomies")

	// AllowedArgs is the final override of the allow-list.
	AllowedArgs = NewFilter[[]string](prefix + "allowed_args")

	// CompatArgs appends names required by integrations.
	CompatArgs = NewFilter[[]string](prefix + "compat_args")
)

// Policy stages.
var (
	MaxPostsPerPage   = NewFilter[int](prefix + "max_posts_per_page")
	AllowedPostTypes  = NewFilter[[]string](prefix + "allowed_post_types")
	AllowedPostStatus = NewFilter[[]string](prefix + "allowed_post_status")
)

// Query stages.
var (
	ArgValue         = NewFilter[domain.ArgValue](prefix + "arg_value")
	BeforeQuery      = NewAction[domain.Args](prefix + "before_query")
	CompatAfterQuery = NewFilter[domain.Execution](prefix + "compat_after_query")
	AfterQuery       = NewAction[domain.Execution](prefix + "after_query")
)

// Response stages.
var (
	DefaultData        = NewFilter[[]any](prefix + "default_data")
	PostIsAllowed      = NewGate[*domain.Post](prefix + "post_is_allowed")
	Item               = NewAction[*domain.Post](prefix + "item")
	UpdatePostTypeMeta = NewGate[*domain.Post](prefix + "update_post_type_meta")
	UseSerializer      = NewGate[*domain.Post](prefix + "use_parent_class")

	// AfterLoop fires once per request with every serialized item, not once
	// per item.
	AfterLoop = NewAction[[]any](prefix + "after_loop")
)

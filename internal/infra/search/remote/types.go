package remote

import (
	"strconv"

	"content-query-service/internal/domain"
)

// Response is the JSON body returned by GET /search.
type Response struct {
	IDs   []flexID `json:"ids"`
	Total int64    `json:"total"`
}

// flexID accepts ids encoded either as numbers or as strings.
type flexID int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *flexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = flexID(v)
	return nil
}

// ToDomain converts the response into search hits.
func (r *Response) ToDomain() *domain.SearchHits {
	ids := make([]int64, len(r.IDs))
	for i, id := range r.IDs {
		ids[i] = int64(id)
	}
	return &domain.SearchHits{IDs: ids, Total: r.Total}
}

// Command searchapi is a stand-in for the remote search backend. It answers
// GET /search with ids of the embedded documents matching q.
package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed data.json
var jsonData []byte

type document struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Lang      string `json:"lang"`
	Author    string `json:"author"`
	Protected bool   `json:"protected"`
}

type response struct {
	IDs   []int64 `json:"ids"`
	Total int     `json:"total"`
}

func main() {
	var docs []document
	if err := json.Unmarshal(jsonData, &docs); err != nil {
		log.Fatalf("[Search API] invalid data.json: %v", err)
	}

	http.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		// Simulate network latency (20-100ms)
		time.Sleep(time.Duration(20+time.Now().UnixNano()%80) * time.Millisecond)

		q := r.URL.Query()
		text := strings.ToLower(strings.TrimSpace(q.Get("q")))
		types := split(q.Get("type"))
		statuses := split(q.Get("status"))
		langs := split(q.Get("lang"))
		authors := split(q.Get("author"))
		excluded := split(q.Get("author_exclude"))
		public := q.Get("exclude_protected") == "1"
		page := atoi(q.Get("page"), 1)
		perPage := atoi(q.Get("per_page"), 10)
		offset := atoi(q.Get("offset"), 0)

		var matched []int64
		for _, d := range docs {
			if len(types) > 0 && !slices.Contains(types, d.Type) {
				continue
			}
			if len(statuses) > 0 && !slices.Contains(statuses, d.Status) {
				continue
			}
			if len(langs) > 0 && !slices.Contains(langs, d.Lang) {
				continue
			}
			if len(authors) > 0 && !slices.Contains(authors, d.Author) {
				continue
			}
			if slices.Contains(excluded, d.Author) || (public && d.Protected) {
				continue
			}
			if text != "" && !strings.Contains(strings.ToLower(d.Title+" "+d.Body), text) {
				continue
			}
			matched = append(matched, d.ID)
		}

		resp := response{IDs: []int64{}, Total: len(matched)}
		start := (page - 1) * perPage
		if offset > 0 {
			start = offset
		}
		if start < len(matched) {
			resp.IDs = matched[start:min(start+perPage, len(matched))]
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("[Search API] Write error: %v", err)
		}

		log.Printf("[Search API] %s %s q=%q - %d hits", r.Method, r.URL.Path, text, resp.Total)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[Search API] Health write error: %v", err)
		}
	})

	log.Println("Mock Search API running on :8081")
	server := &http.Server{
		Addr:         ":8081",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

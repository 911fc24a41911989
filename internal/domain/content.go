package domain

import "github.com/goccy/go-json"

// Category groups recipes that match FilterTerm.
type Category struct {
	Slug            string `json:"slug"`
	FilterTerm      string `json:"filterTerm"`
	Name            string `json:"name"`
	Headline        string `json:"headline,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	Body            string `json:"body,omitempty"`
}

// Page is an informational page such as "om-oss". Content is free-form and
// edited from the admin panel.
type Page struct {
	ID      string          `json:"_id"`
	Key     string          `json:"key"`
	Path    string          `json:"path,omitempty"`
	Title   string          `json:"title,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Settings is the merged site configuration document.
type Settings map[string]any

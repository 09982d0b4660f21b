package models

// Meta is a single catalog entry in the shape Stremio clients expect.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDBRating  float64  `json:"imdbRating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Country     string   `json:"country,omitempty"`
	Language    string   `json:"language,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// CatalogResponse wraps catalog entries for the catalog endpoint.
type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

// Manifest describes the addon to Stremio clients.
type Manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []string          `json:"types"`
	Catalogs      []ManifestCatalog `json:"catalogs"`
	BehaviorHints ManifestBehavior  `json:"behaviorHints"`
}

// ManifestCatalog describes one catalog exposed by the addon.
type ManifestCatalog struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra []CatalogExtra `json:"extra,omitempty"`
}

// CatalogExtra lists supported extra query parameters (e.g. skip).
type CatalogExtra struct {
	Name string `json:"name"`
}

// ManifestBehavior carries Stremio behavior hints.
type ManifestBehavior struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

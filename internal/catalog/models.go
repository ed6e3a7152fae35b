package catalog

import "time"

// Product is a catalog entry with its attributes and visual assets.
type Product struct {
	ProductID  string           `json:"product_id"`
	Name       string           `json:"name"`
	Category   string           `json:"category,omitempty"`
	Attributes map[string]Value `json:"attributes"`
	Assets     []VisualAsset    `json:"visual_assets"`
}

// VisualAsset is a renderable resource attached to a product, e.g. the
// main image or a spec callout overlay.
type VisualAsset struct {
	AssetType string `json:"asset_type"`
	URL       string `json:"asset_url"`
}

// ImportDoc is a raw catalog upload awaiting processing by the import worker.
type ImportDoc struct {
	ID        string
	Source    string
	Content   string
	CreatedAt time.Time
}

// Job is a queued unit of background work.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

package models

// AskRequest is bound from either a form field or a JSON body.
type AskRequest struct {
	Question string `form:"question" json:"question"`
}

// Answer is returned directly to the caller and never persisted.
type Answer struct {
	Text    string   `json:"answer"`
	Context []string `json:"context"`
}

// UploadResponse is the success payload of an ingestion.
type UploadResponse struct {
	Status        string `json:"status"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// HealthResponse is the success payload of the health check.
type HealthResponse struct {
	Status           string `json:"status"`
	CollectionsCount int    `json:"collections_count"`
	CollectionItems  int    `json:"collection_items"`
}

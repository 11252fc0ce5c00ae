package models

type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

// UploadResponse mirrors the status/message shape returned by POST /upload/.
type UploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Chunks  int    `json:"chunks,omitempty"`
}

type DocumentCountResponse struct {
	Count int `json:"count"`
}

type SearchResponse struct {
	Documents []string `json:"documents"`
	Memory    []string `json:"memory"`
	Degraded  bool     `json:"degraded"`
	Strategy  string   `json:"strategy,omitempty"`
}

package model

// VoiceCandidate is an immutable record returned by the voice catalog.
type VoiceCandidate struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	PreviewURL  string            `json:"preview_url,omitempty"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

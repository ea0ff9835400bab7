package model

import "time"

// AgentConfig is the final configuration record assembled by the finalization
// stage and consumed by the build handoff.
type AgentConfig struct {
	SessionID string `json:"session_id"`
	TenantID  string `json:"tenant_id"`

	OrgName   string `json:"org_name"`
	AgentName string `json:"agent_name"`

	Script          string `json:"script"`
	Greeting        string `json:"greeting"`
	DialogueIntents string `json:"dialogue_intents"`
	Knowledge       string `json:"knowledge"`

	VoiceID   string `json:"voice_id"`
	VoiceName string `json:"voice_name"`

	SystemHints string `json:"system_hints,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

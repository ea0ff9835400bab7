package model

import "strings"

type AgentKind string

const (
	AgentKindOrganization AgentKind = "organization"
	AgentKindPersonal     AgentKind = "personal"
)

// FieldSet is the structured configuration gathered over the interview.
// The zero value of every field means "not provided yet"; merging only ever
// fills fields in with explicit values, it never clears a confirmed one.
type FieldSet struct {
	OrgName            string    `json:"org_name,omitempty"`
	AgentName          string    `json:"agent_name,omitempty"`
	AgentKind          AgentKind `json:"agent_kind,omitempty"`
	PersonaDescription string    `json:"persona_description,omitempty"`
	VoiceGender        string    `json:"voice_gender,omitempty"`
	VoiceAccent        string    `json:"voice_accent,omitempty"`
	VoiceTone          []string  `json:"voice_tone,omitempty"`
	SupportedLanguages []string  `json:"supported_languages,omitempty"`
	KnowledgeURL       string    `json:"knowledge_url,omitempty"`
	KnowledgeOptOut    bool      `json:"knowledge_opt_out,omitempty"`

	// SystemHints accumulates every raw user constraint, append-only, so the
	// generation stage sees the full history even when later turns contradict
	// earlier ones.
	SystemHints string `json:"system_hints,omitempty"`
}

// Merge returns the field set with every non-zero value of delta applied.
// SystemHints is appended, never replaced; KnowledgeOptOut is sticky.
func (f FieldSet) Merge(delta FieldSet) FieldSet {
	out := f
	if delta.OrgName != "" {
		out.OrgName = delta.OrgName
	}
	if delta.AgentName != "" {
		out.AgentName = delta.AgentName
	}
	if delta.AgentKind != "" {
		out.AgentKind = delta.AgentKind
	}
	if delta.PersonaDescription != "" {
		out.PersonaDescription = delta.PersonaDescription
	}
	if delta.VoiceGender != "" {
		out.VoiceGender = delta.VoiceGender
	}
	if delta.VoiceAccent != "" {
		out.VoiceAccent = delta.VoiceAccent
	}
	if len(delta.VoiceTone) > 0 {
		out.VoiceTone = delta.VoiceTone
	}
	if len(delta.SupportedLanguages) > 0 {
		out.SupportedLanguages = delta.SupportedLanguages
	}
	if delta.KnowledgeURL != "" {
		out.KnowledgeURL = delta.KnowledgeURL
	}
	if delta.KnowledgeOptOut {
		out.KnowledgeOptOut = true
	}
	if delta.SystemHints != "" {
		out = out.AppendHint(delta.SystemHints)
	}
	return out
}

// AppendHint appends a hint line unless it is already present verbatim.
func (f FieldSet) AppendHint(hint string) FieldSet {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.Contains(f.SystemHints, hint) {
		return f
	}
	if f.SystemHints == "" {
		f.SystemHints = hint
	} else {
		f.SystemHints = f.SystemHints + "\n" + hint
	}
	return f
}

// VoiceReady reports whether enough voice parameters exist to search the
// catalog: a gender plus at least an accent or one tone.
func (f FieldSet) VoiceReady() bool {
	return f.VoiceGender != "" && (f.VoiceAccent != "" || len(f.VoiceTone) > 0)
}

// Kind defaults to organization when the user never said otherwise.
func (f FieldSet) Kind() AgentKind {
	if f.AgentKind == "" {
		return AgentKindOrganization
	}
	return f.AgentKind
}

// PrimaryLanguage returns the first supported language, if any.
func (f FieldSet) PrimaryLanguage() string {
	if len(f.SupportedLanguages) == 0 {
		return ""
	}
	return f.SupportedLanguages[0]
}

// OrgLabel is the organization name with a conversational fallback, used when
// templating clarifying questions.
func (f FieldSet) OrgLabel() string {
	if f.OrgName == "" {
		return "your organization"
	}
	return f.OrgName
}

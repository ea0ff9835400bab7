package usecase

import (
	"fmt"
	"strings"

	"voicesmith/internal/domain/model"
)

// ValidationResult is the outcome of the deterministic completeness check.
// When Complete is false, Question carries the next clarifying question and
// Missing names the first unmet requirement.
type ValidationResult struct {
	Complete    bool
	Missing     string
	Question    string
	Suggestions []string
}

// Validate inspects the field set and returns the first unmet requirement in
// a fixed priority order. The order is a contract: later questions embed
// fields bound by earlier ones (the persona question references the agent's
// name), so implementers must not reorder the checks.
func Validate(f model.FieldSet) ValidationResult {
	// 1. Agent name
	if len(strings.TrimSpace(f.AgentName)) < 2 {
		return ValidationResult{
			Missing:     "agent_name",
			Question:    fmt.Sprintf("What should we call your agent for **%s**? Pick a name that's memorable!", f.OrgLabel()),
			Suggestions: []string{"Aria", "Max", "Nova", "James"},
		}
	}

	// 2. Voice gender
	if f.VoiceGender == "" {
		return ValidationResult{
			Missing:     "voice_gender",
			Question:    fmt.Sprintf("Should **%s** have a male or female voice?", f.AgentName),
			Suggestions: []string{"Female", "Male", "Neutral"},
		}
	}

	// 3. Accent or tone, at least one
	if f.VoiceAccent == "" && len(f.VoiceTone) == 0 {
		return ValidationResult{
			Missing:     "voice_accent_or_tone",
			Question:    fmt.Sprintf("What accent or tone should **%s**'s %s voice have?", f.AgentName, titleCase(f.VoiceGender)),
			Suggestions: []string{"British - Professional", "American - Warm", "German - Calm", "Indian - Friendly"},
		}
	}

	// 4. Persona
	if len(strings.TrimSpace(f.PersonaDescription)) < 5 {
		return ValidationResult{
			Missing:     "persona_description",
			Question:    fmt.Sprintf("What personality should **%s** have? (They'll have a %s %s voice)", f.AgentName, titleCase(f.VoiceAccent), titleCase(f.VoiceGender)),
			Suggestions: []string{"Professional and direct", "Friendly and warm", "Playful and witty", "Technical and precise"},
		}
	}

	// 5. Knowledge source, organization agents only; an explicit opt-out passes
	if f.Kind() == model.AgentKindOrganization && f.KnowledgeURL == "" && !f.KnowledgeOptOut {
		slug := strings.ReplaceAll(strings.ToLower(f.OrgLabel()), " ", "")
		return ValidationResult{
			Missing:     "knowledge_url",
			Question:    fmt.Sprintf("Profile for **%s** is looking great! To make them an expert, can you provide a website URL for **%s**? (Or just say 'skip' to use my internal intelligence).", f.AgentName, f.OrgLabel()),
			Suggestions: []string{fmt.Sprintf("https://%s.com", slug), "Skip for now"},
		}
	}

	return ValidationResult{Complete: true}
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

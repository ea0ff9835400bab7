package model

type JobKind string

const (
	JobKindKnowledge JobKind = "KNOWLEDGE"
	JobKindVoice     JobKind = "VOICE"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// JobResult is the typed payload of a resolved background job. Exactly one
// branch is populated, matching the job kind.
type JobResult struct {
	Knowledge string
	Voices    []VoiceCandidate
}

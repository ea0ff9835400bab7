package adapter

// Event types surfaced on the progress stream. Consumers rely only on the
// type and the phase field of the payload; log text is free-form.
const (
	EventLog                = "LOG"
	EventStatusUpdate       = "STATUS_UPDATE"
	EventDeploymentComplete = "DEPLOYMENT_COMPLETE"
	EventDeploymentFailed   = "DEPLOYMENT_FAILED"
)

// EventSink pushes typed events to whoever is listening on the session's
// progress stream. Delivery is best-effort; implementations must not block
// the pipeline.
type EventSink interface {
	Log(sessionID, phase, message string)
	Event(sessionID, eventType string, payload any)
}

package kafka

// Topic definitions for event streaming
const (
	// Brief lifecycle events
	TopicBriefCompleted = "briefs.completed"
	TopicBriefFailed    = "briefs.failed"

	// Source agent events
	TopicSourceDegraded = "sources.degraded"
)

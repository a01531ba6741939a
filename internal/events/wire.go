package events

// Wire types of the PutEvents publish call.
// Field names match the bus API exactly, hence no json tags renaming.

const (
	// ContentType is sent with every PutEvents HTTP call.
	ContentType = "application/x-amz-json-1.1"
	// TargetHeader names the operation header.
	TargetHeader = "X-Amz-Target"
	// PutEventsTarget is the value of TargetHeader for a publish.
	PutEventsTarget = "AWSEvents.PutEvents"
)

// PutEventsRequest is the publish body.
type PutEventsRequest struct {
	Entries []PutEventsEntry `json:"Entries"`
}

// PutEventsEntry is one event to publish. Detail is a JSON document
// serialized into a string.
type PutEventsEntry struct {
	EventBusName string `json:"EventBusName"`
	Source       string `json:"Source"`
	DetailType   string `json:"DetailType"`
	Detail       string `json:"Detail"`
}

// PutEventsResponse is the body of a successful publish.
// Entries are in request order; a failed entry has ErrorCode set.
type PutEventsResponse struct {
	FailedEntryCount int                    `json:"FailedEntryCount"`
	Entries          []PutEventsResultEntry `json:"Entries"`
}

// PutEventsResultEntry reports the outcome of one entry.
type PutEventsResultEntry struct {
	EventID      string `json:"EventId,omitempty"`
	ErrorCode    string `json:"ErrorCode,omitempty"`
	ErrorMessage string `json:"ErrorMessage,omitempty"`
}

// PublishResult is the raw synchronous acknowledgment of a publish call.
type PublishResult struct {
	StatusCode int
	Body       []byte
}

// Package model holds the JSON types exchanged with the REST API.
package model

import "time"

// JSONHeaderV1 is a single message header.
type JSONHeaderV1 struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// JSONRecipientV1 is an envelope recipient with its organizational category.
type JSONRecipientV1 struct {
	Address string `json:"address"`
	// Category: `InSameOrganization` or `Other` (default).
	Category string `json:"category,omitempty"`
}

// JSONEvaluateRequestV1 describes a message to evaluate.  When Source is set, the message ID,
// sender, subject and headers are read from it and the corresponding fields are ignored.
type JSONEvaluateRequestV1 struct {
	ID              string            `json:"id"`
	From            string            `json:"from"`
	Subject         string            `json:"subject"`
	IsSystemMessage bool              `json:"system-message"`
	Headers         []JSONHeaderV1    `json:"headers"`
	Source          string            `json:"source,omitempty"`
	Recipients      []JSONRecipientV1 `json:"recipients"`
}

// JSONRouteV1 is a routing override registered during an evaluation.
type JSONRouteV1 struct {
	Address string `json:"address"`
	Domain  string `json:"domain"`
	Queue   string `json:"queue"`
}

// JSONEvaluateResultV1 is the result of a dry-run evaluation.
type JSONEvaluateResultV1 struct {
	ID        string         `json:"id"`
	MessageID string         `json:"message-id"`
	Policy    string         `json:"policy"`
	Outcome   string         `json:"outcome"`
	Severity  string         `json:"severity"`
	Target    string         `json:"target,omitempty"`
	Routes    []JSONRouteV1  `json:"routes"`
	Stamped   []JSONHeaderV1 `json:"stamped"`
	Headers   []JSONHeaderV1 `json:"headers"`
	ElapsedMS int64          `json:"elapsed-ms"`
	Fault     string         `json:"fault,omitempty"`
}

// JSONEvaluationV1 summarizes an evaluation performed by the engine.
type JSONEvaluationV1 struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message-id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Policy     string    `json:"policy"`
	Outcome    string    `json:"outcome"`
	Severity   string    `json:"severity"`
	Target     string    `json:"target,omitempty"`
	Overridden []string  `json:"overridden"`
	Stamped    []string  `json:"stamped"`
	ElapsedMS  int64     `json:"elapsed-ms"`
	Fault      string    `json:"fault,omitempty"`
	Date       time.Time `json:"date"`
}

// JSONStatusV1 reports the engine configuration and recent evaluations.
type JSONStatusV1 struct {
	Version       string             `json:"version"`
	BuildDate     string             `json:"build-date"`
	Policy        string             `json:"policy"`
	ControlHeader string             `json:"control-header"`
	MarkerHeader  string             `json:"marker-header"`
	Stamping      string             `json:"stamping"`
	Recent        []JSONEvaluationV1 `json:"recent"`
}

// JSONMonitorEventV1 is sent to evaluation monitor WebSockets.
type JSONMonitorEventV1 struct {
	// Event variant: `evaluation`.
	Variant    string            `json:"variant"`
	Evaluation *JSONEvaluationV1 `json:"evaluation"`
}

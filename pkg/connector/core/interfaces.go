package core

import (
	"context"
	"time"

	"github.com/ajitpratap0/nebula-agent/pkg/config"
)

// Message is the unit a reader hands downstream: the delimited record body
// plus the header the pipeline routes it by. The caller owns it.
type Message struct {
	Body   []byte
	Header map[string]string
}

// Header keys set on every message.
const (
	HeaderGroupID  = "groupId"
	HeaderStreamID = "streamId"
	HeaderDataTime = "dataTime"
)

// NewMessage creates a message tagged with its group, stream and data time.
func NewMessage(body []byte, groupID, streamID string, at time.Time) *Message {
	return &Message{
		Body: body,
		Header: map[string]string{
			HeaderGroupID:  groupID,
			HeaderStreamID: streamID,
			HeaderDataTime: at.UTC().Format(time.RFC3339Nano),
		},
	}
}

// Reader is the capability every agent source variant implements.
//
// A reader is single-consumer: Open, Read and Destroy must not be called
// concurrently. Read returns (nil, nil) when there is no record, which
// includes every call after the source is exhausted or destroyed.
type Reader interface {
	// Open resolves settings from the profile and opens the source.
	// On failure the reader is destroyed before the error is returned.
	Open(ctx context.Context, profile *config.JobProfile) error
	// Read returns the next message, or nil when there is none.
	Read() (*Message, error)
	// IsFinished reports whether the reader will produce no more messages.
	IsFinished() bool
	// ReadSource describes what is being read.
	ReadSource() string
	// Snapshot returns a resumable position marker.
	Snapshot() string
	// SetReadTimeout and SetWaitMillisecond tune blocking reads.
	SetReadTimeout(timeout time.Duration)
	SetWaitMillisecond(millis int64)
	// FinishRead ends reading and releases resources.
	FinishRead()
	// IsSourceExist reports whether the source can be read at all.
	IsSourceExist() bool
	// Destroy releases all resources. It is idempotent.
	Destroy()
}

package models

import (
	"github.com/GintGld/clipper/internal/lib/timecode"
)

// VideoID is an 11-character YouTube video identifier.
type VideoID string

type ClipRange struct {
	Start timecode.Seconds `json:"start"`
	End   timecode.Seconds `json:"end"`
}

// Length returns End - Start.
func (r ClipRange) Length() timecode.Seconds {
	return r.End - r.Start
}

// ClipRequest is the body of the backend download call.
type ClipRequest struct {
	URL       string `json:"url"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

type ClipState string

const (
	StateIdle       ClipState = "idle"
	StateValidating ClipState = "validating"
	StateSubmitting ClipState = "submitting"
	StateSucceeded  ClipState = "succeeded"
	StateFailed     ClipState = "failed"
)

type ErrorKind string

const (
	KindMissingOrInvalidEnd ErrorKind = "missing_or_invalid_end"
	KindEndNotAfterStart    ErrorKind = "end_not_after_start"
	KindDurationExceeded    ErrorKind = "duration_exceeded"
	KindNetwork             ErrorKind = "network_error"
	KindURLParse            ErrorKind = "url_parse_failure"
)

type ClipError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ClipMedia describes a clip kept on the server side.
type ClipMedia struct {
	ID        string `json:"id"`
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
}

// FileName returns name offered on download.
func (m ClipMedia) FileName() string {
	return "clip_" + m.ID + m.Extension
}

type RangeView struct {
	Start      timecode.Parts `json:"start"`
	End        timecode.Parts `json:"end"`
	StartTotal int64          `json:"startTotal"`
	EndTotal   int64          `json:"endTotal"`
}

// NewRangeView returns range view for given offsets.
func NewRangeView(start, end timecode.Seconds) RangeView {
	return RangeView{
		Start:      timecode.ToParts(start),
		End:        timecode.ToParts(end),
		StartTotal: int64(start),
		EndTotal:   int64(end),
	}
}

// Snapshot is a read-only copy of clip lifecycle state.
type Snapshot struct {
	VideoID VideoID    `json:"videoId"`
	State   ClipState  `json:"state"`
	Range   *RangeView `json:"range,omitempty"`
	Media   *ClipMedia `json:"media,omitempty"`
	Error   *ClipError `json:"error,omitempty"`
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short-lived message shown to a user.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

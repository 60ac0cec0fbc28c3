package domain

import (
	"time"
)

// UploadPathPrefix is the public path stored videos are served under.
const UploadPathPrefix = "/upload/"

// StoredVideo is a video file persisted under a generated name.
type StoredVideo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicPath returns the server-relative path the file is served at.
func (v *StoredVideo) PublicPath() string {
	return UploadPathPrefix + v.Filename
}

// PublishState is a step of the publish flow.
type PublishState string

const (
	PublishIdle       PublishState = "idle"
	PublishResolving  PublishState = "resolving"
	PublishPublishing PublishState = "publishing"
	PublishRefreshing PublishState = "refreshing"
	PublishRetrying   PublishState = "retrying"
	PublishDone       PublishState = "done"
	PublishFailed     PublishState = "failed"
)

// Terminal reports whether the state ends the flow.
func (s PublishState) Terminal() bool {
	return s == PublishDone || s == PublishFailed
}

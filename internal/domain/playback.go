package domain

import "context"

// PreviewCapSeconds is the playable length of a paid track the user does not own
const PreviewCapSeconds = 20.0

// PlaybackState is the lifecycle state of the playback session
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackLoading PlaybackState = "loading"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackCapped  PlaybackState = "capped"
	PlaybackEnded   PlaybackState = "ended"
)

// MediaSink receives events from the media layer for one started stream.
// Implementations must tolerate calls from any goroutine.
type MediaSink interface {
	// Started is called once the media begins producing audio
	Started()
	// Position reports total elapsed playback in seconds
	Position(seconds float64)
	// Ended is called on natural end of media
	Ended()
	// Failed is called when the media layer gives up on the stream
	Failed(err error)
}

// MediaHandle controls one started stream. Methods must not call back into
// the sink synchronously.
type MediaHandle interface {
	Pause() error
	Resume() error
	Stop() error
}

// MediaPlayer is the audio output used by the playback session
type MediaPlayer interface {
	Start(ctx context.Context, url string, sink MediaSink) (MediaHandle, error)
}

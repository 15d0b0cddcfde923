package transcoder

// State is a step of the video pipeline.
type State int

// Pipeline states, in order. Done and Failed are terminal.
const (
	StateInit State = iota
	StateProbed
	StateSettingsChosen
	StateThumbnailReady
	StatePipeOpened
	StateUploaderStarted
	StateTranscodeRunning
	StateFinalizing
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:             "init",
	StateProbed:           "probed",
	StateSettingsChosen:   "settings_chosen",
	StateThumbnailReady:   "thumbnail_ready",
	StatePipeOpened:       "pipe_opened",
	StateUploaderStarted:  "uploader_started",
	StateTranscodeRunning: "transcode_running",
	StateFinalizing:       "finalizing",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

const (
	GfxInitFailed  = "GFX.INIT_FAILED"
	GfxContextLost = "GFX.CONTEXT_LOST"
	FrameSkipped   = "FRAME.SKIPPED"
	DisposeFailed  = "DISPOSE.FAILED"
	MountSkipped   = "MOUNT.SKIPPED"
	ShowClip       = "SHOW.CLIP"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics. A nil Sink drops them.
type Sink func(Diagnostic)

func (s Sink) Report(d Diagnostic) {
	if s != nil {
		s(d)
	}
}

// Fanout returns a Sink that forwards to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	return func(d Diagnostic) {
		for _, s := range sinks {
			s.Report(d)
		}
	}
}

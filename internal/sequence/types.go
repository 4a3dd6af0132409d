package sequence

// Keyframe is a value at time T (seconds into the clip) with the easing used
// for the segment that starts here.
type Keyframe struct {
	T    float64
	V    float64
	Ease string // "linear", "smooth", "cubic"
}

// Envelope is a list of keyframes sorted by T; Eval interpolates between them.
type Envelope struct {
	Keys []Keyframe
}

// Clip shows one preset for DurationS seconds. Params automate numeric scene
// parameters (see Hooks.SetParam) over the clip's local time.
type Clip struct {
	Name      string
	Preset    string
	DurationS float64
	Params    map[string]Envelope
}

type Program struct {
	Loop  bool
	Clips []Clip
}

type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks connect the player to whatever hosts the scene.
type Hooks struct {
	// Show switches to the named preset. Called on start, seek and every clip change.
	Show func(clip, preset string)
	// SetParam applies an automated parameter for the active clip.
	SetParam func(name string, v float64)
}

// Player walks a Program's timeline. It is not safe for concurrent use.
type Player struct {
	State PlayerState

	prog  Program
	nowS  float64 // position within program
	idx   int     // current clip index
	hooks Hooks
}

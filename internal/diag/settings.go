package diag

// DeveloperSettings are the knobs a developer-support consumer (debugger,
// reload tooling, error overlays) needs from the bridge.
type DeveloperSettings struct {
	// Enabled turns on developer mode.
	Enabled bool
	// LogFrames logs every call and result frame at debug level.
	LogFrames bool
	// FailOnDoubleCompletion reports double completion as an error rather
	// than a warning.
	FailOnDoubleCompletion bool
}

// FrameLogging reports whether frames should be logged.
func (s DeveloperSettings) FrameLogging() bool {
	return s.Enabled && s.LogFrames
}

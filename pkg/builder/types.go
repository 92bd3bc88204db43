package builder

// BuildResult contains the result of a build operation.
type BuildResult struct {
	ImageID   string // Engine-reported image ID (sha256:...)
	Reference string // repository:tag the image was tagged with
	Recipe    string // Dockerfile path used, relative to the context
	Generated bool   // Whether the Dockerfile was generated
}

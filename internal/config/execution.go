package config

// BinaryConfig locates the search binary.
type BinaryConfig struct {
	// Dir holds the keyhunt executable.
	Dir string `yaml:"dir" json:"dir,omitempty"`

	// InputDir is prepended to relative input file names.
	InputDir string `yaml:"input_dir" json:"input_dir,omitempty"`
}

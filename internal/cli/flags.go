package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile string
	Listen  string
	DBPath  string

	// Provider flags
	Provider    string
	OpenAIModel string
	GeminiModel string
	Temperature float64

	// Maintenance flags
	ListModels bool
	Archive    bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Listen:      ":8790",
		Provider:    "openai",
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.0-flash",
		Temperature: 0.3,
	}
}

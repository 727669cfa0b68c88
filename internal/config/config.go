package config

const (
	DefaultTimeZone     = "Europe/Istanbul"
	DefaultOpenAIAPIURL = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultChartURL     = "http://localhost:3400/chart"

	// Campaign Dispatcher Constants
	DefaultDispatchSchedule = "*/5 * * * *" // Check for due scheduled campaigns every 5 minutes
	DispatchBatchSize       = 50

	MaxUploadBytes = 32 << 20
	MaxAvatarBytes = 5 << 20
)

package swap

// ErrorEntry is a user-facing error with a stable key. Entries never
// reach callers as raw wrapped errors; every async boundary maps its
// failure into one of these.
type ErrorEntry struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

const (
	errKeyQuoteFailed         = "quote-failed"
	errKeyMissingInstructions = "missing-instructions"
	errKeySwapBuildFailed     = "swap-build-failed"
	errKeyExecutionFailed     = "execution-failed"
	errKeyStaleQuote          = "stale-quote"
)

func missingInstructionsError() ErrorEntry {
	return ErrorEntry{
		Key:     errKeyMissingInstructions,
		Title:   "Missing instructions",
		Message: "Failed to get swap instructions",
	}
}

func quoteFailedError(msg string) ErrorEntry {
	return ErrorEntry{
		Key:     errKeyQuoteFailed,
		Title:   "Quote failed",
		Message: msg,
	}
}

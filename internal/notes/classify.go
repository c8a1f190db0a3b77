package notes

import "strings"

// FailureKind buckets model-backend failures for metrics and messaging
type FailureKind string

const (
	FailureAPIKey     FailureKind = "api_key"
	FailureQuota      FailureKind = "quota"
	FailureSafety     FailureKind = "safety"
	FailurePermission FailureKind = "permission"
	FailureOther      FailureKind = "other"
)

// Classify buckets an error by substring match on the uppercased message.
// Match order matters; the first hit wins.
func Classify(err error) FailureKind {
	upper := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(upper, "API_KEY"):
		return FailureAPIKey
	case strings.Contains(upper, "QUOTA"):
		return FailureQuota
	case strings.Contains(upper, "SAFETY"):
		return FailureSafety
	case strings.Contains(upper, "PERMISSION_DENIED"):
		return FailurePermission
	default:
		return FailureOther
	}
}

// ClassifyMessage converts a backend error into a client-facing message
func ClassifyMessage(err error) string {
	switch Classify(err) {
	case FailureAPIKey:
		return "Invalid or missing Google API key. Please check your GOOGLE_API_KEY in .env file."
	case FailureQuota:
		return "API quota exceeded. Please check your Gemini API usage limits."
	case FailureSafety:
		return "Content was blocked by safety filters. This may happen with medical content."
	case FailurePermission:
		return "API key doesn't have permission to use Gemini"
	default:
		return "Gemini API error: " + err.Error()
	}
}

package push

import "context"

// Notification is a provider-neutral push payload.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
	Sound string
	Badge *int
}

// SendResult aggregates the outcome of a batch send.
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// Provider delivers a notification to a set of device tokens.
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// maskPushToken keeps device tokens out of logs. Shows only the first and
// last 8 characters.
func maskPushToken(token string) string {
	if len(token) <= 16 {
		return "********"
	}
	return token[:8] + "..." + token[len(token)-8:]
}

package constant

const (
	// ContextWindow is how many prior messages are sent to the LLM.
	ContextWindow = 10

	FallbackReply = "Sorry, I encountered an error processing your message."

	OtpLength = 6

	ProPeriodMonths = 1
	ProItemName     = "PRO Monthly Subscription"
)

package kafka

// Alert lifecycle topics
const (
	TopicAlertsTriggered = "alerts.triggered"
	TopicAlertsRearmed   = "alerts.rearmed"
)

// AlertTopics lists every topic the alert engines publish to
var AlertTopics = []string{TopicAlertsTriggered, TopicAlertsRearmed}

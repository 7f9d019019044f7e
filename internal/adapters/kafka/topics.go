package kafka

// Topic definitions for Kafka event streaming
const (
	// Sentiment events
	TopicSentimentUpdate = "signals.sentiment"
	TopicConfluenceZone  = "signals.confluence"

	// Prediction lifecycle events
	TopicPredictionRecorded = "predictions.recorded"
	TopicPredictionVerified = "predictions.verified"

	// Learning events
	TopicModelRetrained = "ml.retraining"
)

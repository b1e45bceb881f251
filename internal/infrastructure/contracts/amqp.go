package contracts

// AmqpMessage is the envelope of every message on the reports exchange.
type AmqpMessage struct {
	ActorID  string `json:"actorId"`
	ReportID string `json:"reportId"`
	Data     []byte `json:"data"`
}

package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventReservationAccepted = "reservation.accepted.v1"
	EventReservationDeleted  = "reservation.deleted.v1"
	EventGroundCreated       = "ground.created.v1"
)

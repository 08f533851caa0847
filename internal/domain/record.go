package domain

// RecordResult is the per-record result reported back to the delivery stream
type RecordResult string

const (
	ResultOK               RecordResult = "Ok"
	ResultProcessingFailed RecordResult = "ProcessingFailed"
)

// Record is one raw record of an inbound batch
type Record struct {
	RecordID string
	Data     []byte
}

// Outcome is the processing result of a single record.
// Data holds the serialized canonical event on success and the original payload on failure.
type Outcome struct {
	RecordID string
	Result   RecordResult
	Data     []byte

	Status ProcessingStatus
	Event  *CanonicalEvent
	Err    error
}

// Failed reports whether the record could not be processed
func (o Outcome) Failed() bool {
	return o.Result != ResultOK
}

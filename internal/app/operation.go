package app

// Import operation statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// ImportOperation tracks a CLI operation that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them (giving them an auto-increment ID from the database).
type ImportOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	Saved      int
	Failed     int
}

// NewImportOperation creates a new in-memory import operation.
func NewImportOperation(operation, parameters string) *ImportOperation {
	return &ImportOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *ImportOperation) Persisted() bool {
	return op.ID != 0
}

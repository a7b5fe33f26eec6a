package ports

// IngestServer accepts inbound raw emails from the mail edge and stores them
// for the pipeline to pick up
type IngestServer interface {
	// Start starts accepting inbound messages
	Start() error

	// Stop shuts the server down gracefully
	Stop() error
}

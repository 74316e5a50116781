package ingestion_engine

import "context"

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(job Job)
	Shutdown(ctx context.Context) error
}

var _ Ingestor = (*ArtifactIngestor)(nil)

package retrieval

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-labs/campaign-engine/internal/embedding"
	"github.com/atelier-labs/campaign-engine/internal/model"
)

// chunkTargetSize is the soft upper bound on chunk length in
// characters. Paragraphs are packed until the next one would cross it.
const chunkTargetSize = 1200

// ChunkWriter is the slice of the store the indexer needs.
type ChunkWriter interface {
	ReplaceFrameworkChunks(ctx context.Context, frameworkID string, chunks []string, embeddings [][]float32) error
}

// Indexer splits framework documents into chunks and embeds them into
// the corpus. Indexing uses the document-variant embedding; queries use
// the query variant.
type Indexer struct {
	embedder embedding.Service
	writer   ChunkWriter
}

// NewIndexer creates a framework indexer.
func NewIndexer(embedder embedding.Service, writer ChunkWriter) *Indexer {
	return &Indexer{embedder: embedder, writer: writer}
}

// Index chunks a framework's content, embeds every chunk in one batch
// call, and replaces the framework's indexed chunks. Unlike search,
// indexing is a hard operation: failures surface to the caller.
func (ix *Indexer) Index(ctx context.Context, fw model.Framework) (int, error) {
	chunks := SplitChunks(fw.Content)
	if len(chunks) == 0 {
		return 0, eris.Errorf("retrieval: framework %s has no indexable content", fw.ID)
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, eris.Wrapf(err, "retrieval: embed framework %s", fw.ID)
	}

	if err := ix.writer.ReplaceFrameworkChunks(ctx, fw.ID, chunks, embeddings); err != nil {
		return 0, err
	}

	zap.L().Info("retrieval: indexed framework",
		zap.String("framework_id", fw.ID),
		zap.String("name", fw.Name),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// SplitChunks splits text into chunks on paragraph boundaries, packing
// paragraphs up to the target size. A single oversized paragraph
// becomes its own chunk rather than being split mid-sentence.
func SplitChunks(text string) []string {
	paras := strings.Split(text, "\n\n")

	var chunks []string
	var cur strings.Builder
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(p) > chunkTargetSize {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Package index builds and queries the embedding index of one corpus.
// Every corpus owns its index exclusively; nothing here is process-wide
// state, so concurrent users with different folders cannot observe each
// other's documents.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/arcdesk/docbot/embeddings"
	"github.com/arcdesk/docbot/ingestion"
)

var (
	// ErrIndexNotReady reports retrieval against a missing or unbuilt
	// index, distinct from a query with no relevant content.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrIndexingFailed reports a failed index build; the previous index,
	// if any, stays active.
	ErrIndexingFailed = errors.New("indexing failed")
)

const embedBatchSize = 64

// Chunk is one retrieval result with its citation tag.
type Chunk struct {
	Source string
	Text   string
	Score  float32
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index is the embedding-backed structure over one corpus's chunks. It is
// immutable after Build: replacing a corpus means building a new Index
// and swapping the pointer, so in-flight readers keep their snapshot.
type Index struct {
	corpusID   string
	collection *chromem.Collection
	embedder   embeddings.Embedder
	chunkCount int
	sources    []string
}

// Build chunks the documents, embeds every chunk, and assembles a fresh
// in-memory collection. It either returns a complete index or an error;
// no partially built index ever escapes.
func Build(ctx context.Context, corpusID string, documents []ingestion.SourceDocument, embedder embeddings.Embedder, opts Options) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder not configured", ErrIndexingFailed)
	}

	chunks := ingestion.SplitDocuments(documents, opts.ChunkSize, opts.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: corpus produced no chunks", ErrIndexingFailed)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunks: %w", ErrIndexingFailed, err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: have %d chunks, %d embeddings", ErrIndexingFailed, len(chunks), len(vectors))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("corpus-"+corpusID, nil, queryEmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("%w: create collection: %w", ErrIndexingFailed, err)
	}

	records := make([]chromem.Document, len(chunks))
	seen := make(map[string]struct{})
	sources := make([]string, 0)
	for i, chunk := range chunks {
		records[i] = chromem.Document{
			ID:        uuid.New().String(),
			Metadata:  map[string]string{"source": chunk.Source},
			Content:   chunk.Text,
			Embedding: vectors[i],
		}
		if _, ok := seen[chunk.Source]; !ok {
			seen[chunk.Source] = struct{}{}
			sources = append(sources, chunk.Source)
		}
	}
	sort.Strings(sources)

	if err := collection.AddDocuments(ctx, records, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("%w: add documents: %w", ErrIndexingFailed, err)
	}

	return &Index{
		corpusID:   corpusID,
		collection: collection,
		embedder:   embedder,
		chunkCount: len(chunks),
		sources:    sources,
	}, nil
}

// Retrieve returns the k chunks nearest to the query by cosine
// similarity, most similar first.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	if i == nil || i.collection == nil {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		k = 5
	}
	if k > i.chunkCount {
		k = i.chunkCount
	}

	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	results, err := i.collection.QueryEmbedding(ctx, vectors[0], k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	chunks := make([]Chunk, len(results))
	for idx, result := range results {
		chunks[idx] = Chunk{
			Source: result.Metadata["source"],
			Text:   result.Content,
			Score:  result.Similarity,
		}
	}
	return chunks, nil
}

func (i *Index) CorpusID() string {
	if i == nil {
		return ""
	}
	return i.corpusID
}

func (i *Index) ChunkCount() int {
	if i == nil {
		return 0
	}
	return i.chunkCount
}

// Sources returns the distinct citation tags present in the index, sorted.
func (i *Index) Sources() []string {
	if i == nil {
		return nil
	}
	out := make([]string, len(i.sources))
	copy(out, i.sources)
	return out
}

// queryEmbeddingFunc adapts the corpus embedder for chromem's single-text
// callback. Build supplies precomputed vectors, so this only runs if a
// query ever reaches the collection without one.
func queryEmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedder returned no vectors")
		}
		return vectors[0], nil
	}
}

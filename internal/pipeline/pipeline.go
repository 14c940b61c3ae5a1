// Package pipeline sequences the comparison of one RFP/proposal pair: parse
// and chunk both documents, build both semantic indexes, retrieve, extract
// criteria and compare. Any failing step aborts the whole request; there are
// no partial results.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/chunker"
	"github.com/bidwise/rfp-analyzer/internal/compare"
	"github.com/bidwise/rfp-analyzer/internal/document"
	"github.com/bidwise/rfp-analyzer/internal/extract"
	"github.com/bidwise/rfp-analyzer/internal/index"
	"github.com/bidwise/rfp-analyzer/internal/logger"
)

// Anchor phrases used to retrieve the passages each stage needs.
const (
	rfpAnchor      = "eligibility criteria"
	proposalAnchor = "company background and qualifications"
)

const defaultStorageRoot = "vectorstore"

// Config bounds chunking, retrieval and index storage for the pipeline.
type Config struct {
	MaxChunkSize int
	ChunkOverlap int
	TopK         int
	StorageRoot  string
}

// Input is one uploaded document: its externally supplied name and raw bytes.
type Input struct {
	Name string
	Raw  []byte
}

// Pipeline runs the five-step comparison for single requests.
type Pipeline struct {
	embedder   ai.Embedder
	extractor  *extract.Extractor
	comparator *compare.Comparator
	cfg        Config
	logger     *zap.Logger
}

func New(embedder ai.Embedder, extractor *extract.Extractor, comparator *compare.Comparator, cfg Config, log *zap.Logger) *Pipeline {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = chunker.DefaultMaxSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.TopK <= 0 {
		cfg.TopK = index.DefaultTopK
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = defaultStorageRoot
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		embedder:   embedder,
		extractor:  extractor,
		comparator: comparator,
		cfg:        cfg,
		logger:     log,
	}
}

// Run compares the proposal against the RFP and returns one verdict per
// extracted criterion.
func (p *Pipeline) Run(ctx context.Context, rfp, proposal Input) (*ai.ComparisonResult, error) {
	var rfpIndex, proposalIndex *index.Index

	// The two ingestion paths are independent until retrieval, so they run
	// concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ix, err := p.ingest(gctx, rfp, "rfp")
		rfpIndex = ix
		return err
	})
	g.Go(func() error {
		ix, err := p.ingest(gctx, proposal, "proposals")
		proposalIndex = ix
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rfpChunks, err := rfpIndex.Query(ctx, rfpAnchor, p.cfg.TopK)
	if err != nil {
		return nil, err
	}

	proposalChunks, err := proposalIndex.Query(ctx, proposalAnchor, p.cfg.TopK)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("retrieval finished",
		zap.Int("rfp_chunks", len(rfpChunks)),
		zap.Int("proposal_chunks", len(proposalChunks)),
	)

	criteria, err := p.extractor.Extract(ctx, chunker.JoinText(rfpChunks))
	if err != nil {
		return nil, err
	}

	result, err := p.comparator.Compare(ctx, criteria, chunker.JoinText(proposalChunks))
	if err != nil {
		return nil, err
	}

	p.logger.Info("comparison finished", zap.Int("verdicts", len(result.Verdicts)))

	return result, nil
}

// ingest parses, chunks and indexes one document.
func (p *Pipeline) ingest(ctx context.Context, in Input, kind string) (*index.Index, error) {
	log := logger.WithDocument(p.logger, in.Name)

	doc, err := document.New(in.Name, in.Raw)
	if err != nil {
		return nil, err
	}

	chunks, err := chunker.Split(doc.Name, doc.Text, p.cfg.MaxChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	location := p.Location(kind, doc.Name)
	log.Info("building document index",
		zap.Int("chunks", len(chunks)),
		zap.String("location", location),
	)

	return index.Build(ctx, p.embedder, chunks, location)
}

// Location derives the storage location for a document. The same document
// name always maps to the same location, so re-ingesting a name overwrites
// its prior index.
func (p *Pipeline) Location(kind, name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(p.cfg.StorageRoot, kind, hex.EncodeToString(sum[:8])+".db")
}

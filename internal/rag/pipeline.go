// Package rag ties the loader, chunker, embedder, vector store and answer
// generator into the two operations the rest of propwise uses: ingesting
// URLs into the collection and answering questions from it.
package rag

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/propwise/internal/chunker"
	"github.com/ziadkadry99/propwise/internal/embeddings"
	"github.com/ziadkadry99/propwise/internal/llm"
	"github.com/ziadkadry99/propwise/internal/loader"
	"github.com/ziadkadry99/propwise/internal/runs"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

// Defaults applied to zero Options fields.
const (
	DefaultTopK            = 4
	DefaultMaxTokens       = 500
	DefaultEmbedBatchSize  = 64
	DefaultEmbedTimeout    = 60 * time.Second
	DefaultGenerateTimeout = 90 * time.Second
)

// State tells whether the collection can be queried.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// DocumentLoader turns URLs into documents. *loader.Loader implements it.
type DocumentLoader interface {
	Load(ctx context.Context, urls []string) ([]loader.Document, []loader.LoadFailure)
}

// fetcherNamer is implemented by loaders that report how they fetch pages.
type fetcherNamer interface {
	FetcherName() string
}

// Components are the collaborators a Pipeline drives.
type Components struct {
	Loader    DocumentLoader
	Splitter  *chunker.Splitter
	Embedder  embeddings.Embedder
	Store     vectordb.VectorStore
	Generator llm.Provider
}

func (c *Components) validate() error {
	switch {
	case c == nil:
		return errors.New("no components")
	case c.Loader == nil:
		return errors.New("loader is required")
	case c.Splitter == nil:
		return errors.New("splitter is required")
	case c.Embedder == nil:
		return errors.New("embedder is required")
	case c.Store == nil:
		return errors.New("vector store is required")
	case c.Generator == nil:
		return errors.New("generator is required")
	}
	return c.Splitter.Validate()
}

// Factory builds the components. It is called at most once successfully
// per Pipeline.
type Factory func(ctx context.Context) (*Components, error)

// RunLedger records ingestion runs. *runs.Store implements it.
type RunLedger interface {
	Start(ctx context.Context, urls []string, embeddingModel string) (*runs.Run, error)
	Finish(ctx context.Context, id string, out runs.Outcome) error
	// Latest returns the most recent run, or runs.ErrNotFound.
	Latest(ctx context.Context) (*runs.Run, error)
}

// Options tunes retrieval, generation and timeouts.
type Options struct {
	TopK            int
	Temperature     float64
	MaxTokens       int
	EmbedBatchSize  int
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
	// Ledger, when set, receives one record per ingestion.
	Ledger  RunLedger
	Verbose bool
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = DefaultEmbedTimeout
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = DefaultGenerateTimeout
	}
	return o
}

// Usage reports token counts and the estimated cost of one answer.
type Usage struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Answer is the generator's reply with the distinct sources it was given.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
	Usage   Usage    `json:"usage"`
}

// Pipeline is the handle shared by the CLI, HTTP and MCP surfaces.
// Ingestion holds the write lock for its whole run; queries share the read
// lock.
type Pipeline struct {
	factory Factory
	opts    Options

	mu    sync.RWMutex
	comps *Components
	state State
}

// New creates a Pipeline. Components are built lazily on first use.
func New(factory Factory, opts Options) *Pipeline {
	return &Pipeline{factory: factory, opts: opts.withDefaults()}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// initLocked builds the components once. The caller holds the write lock.
func (p *Pipeline) initLocked(ctx context.Context) error {
	if p.comps != nil {
		return nil
	}
	if p.factory == nil {
		return fmt.Errorf("%w: no component factory", ErrConfiguration)
	}
	c, err := p.factory(ctx)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	p.comps = c
	return nil
}

// Open builds the components and marks the pipeline ready when an earlier
// ingestion completed, so a new process can answer questions about it. The
// ledger is the record of completion: the collection must exist and the
// latest run must be done. A failed or interrupted ingestion can leave a
// partial collection behind, and without a ledger there is no way to tell,
// so the pipeline then stays uninitialized.
func (p *Pipeline) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.initLocked(ctx); err != nil {
		return err
	}
	exists, err := p.comps.Store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("%w: check collection: %w", ErrServiceUnavailable, err)
	}
	if !exists {
		return nil
	}
	if p.opts.Ledger == nil {
		log.Printf("rag: no run ledger, cannot tell whether the stored collection is complete")
		return nil
	}

	last, err := p.opts.Ledger.Latest(ctx)
	if errors.Is(err, runs.ErrNotFound) {
		log.Printf("rag: stored collection has no recorded ingestion, ignoring it")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read latest ingestion run: %w", err)
	}
	if last.Status != runs.StatusDone {
		log.Printf("rag: latest ingestion run %s is %s, ignoring the stored collection", last.ID, last.Status)
		return nil
	}
	p.state = StateReady
	return nil
}

// Close releases the vector store.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.comps == nil {
		return nil
	}
	return p.comps.Store.Close()
}

// Ingest replaces the collection with the content of urls. emit, if not
// nil, receives each milestone in order followed by exactly one terminal
// event; it is called synchronously and must not call back into the
// Pipeline.
func (p *Pipeline) Ingest(ctx context.Context, urls []string, emit func(Event)) (result *IngestResult, err error) {
	if emit == nil {
		emit = func(Event) {}
	}
	start := time.Now()
	res := &IngestResult{}
	defer func() {
		if err != nil {
			emit(failedEvent(err))
			return
		}
		res.Duration = time.Since(start)
		ev := milestone(StageDone, doneMessage)
		ev.Result = res
		emit(ev)
	}()

	urls = cleanURLs(urls)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	emit(milestone(StageInitializing, "Initializing components..."))
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.initLocked(ctx); err != nil {
		return nil, err
	}
	c := p.comps

	res.RunID = p.startRun(ctx, urls, c.Embedder.Name())
	defer func() { p.finishRun(res, err) }()

	emit(milestone(StageResetting, "Resetting vector store..."))
	if err := c.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("%w: reset vector store: %w", ErrServiceUnavailable, err)
	}
	p.state = StateUninitialized

	emit(milestone(StageLoading, "Loading data..."))
	if n, ok := c.Loader.(fetcherNamer); ok {
		res.Fetcher = n.FetcherName()
	}
	docs, failures := c.Loader.Load(ctx, urls)
	res.Failures = failures
	for _, f := range failures {
		log.Printf("rag: %v", f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f
		}
		return nil, fmt.Errorf("%w: %w", ErrNoDocuments, errors.Join(errs...))
	}
	res.Documents = len(docs)

	emit(milestone(StageSplitting, splittingMessage(c.Splitter.ChunkSize)))
	chunks := c.Splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}
	res.Chunks = len(chunks)

	emit(milestone(StageEmbedding, embeddingMessage(c.Embedder.Name())))
	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.SourceURL] = d.Title
	}
	if err := p.embedAndStore(ctx, c, chunks, titles); err != nil {
		return nil, err
	}

	p.state = StateReady
	if p.opts.Verbose {
		log.Printf("rag: ingested %d documents as %d chunks (%d failed urls, %s fetcher)",
			res.Documents, res.Chunks, len(failures), cmp.Or(res.Fetcher, "unknown"))
	}
	return res, nil
}

// IngestStream runs Ingest in the background and delivers its events on
// the returned channel, which is closed after the terminal event.
func (p *Pipeline) IngestStream(ctx context.Context, urls []string) <-chan Event {
	// Room for every milestone plus the terminal event, so sends never block.
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		p.Ingest(ctx, urls, func(ev Event) { ch <- ev })
	}()
	return ch
}

// embedAndStore embeds chunks in sequential batches and adds them to the
// store, keeping chunk order.
func (p *Pipeline) embedAndStore(ctx context.Context, c *Components, chunks []chunker.Chunk, titles map[string]string) error {
	size := p.opts.EmbedBatchSize
	for start := 0; start < len(chunks); start += size {
		batch := chunks[start:min(start+size, len(chunks))]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}

		vecs, err := p.embed(ctx, c.Embedder, texts)
		if err != nil {
			return err
		}

		records := make([]vectordb.Record, len(batch))
		for i, ch := range batch {
			records[i] = vectordb.Record{
				ID:     ch.ID,
				Vector: vecs[i],
				Text:   ch.Text,
				Metadata: vectordb.Metadata{
					Source: ch.SourceURL,
					Title:  titles[ch.SourceURL],
					Index:  ch.Index,
				},
			}
		}
		if err := c.Store.Add(ctx, records); err != nil {
			return fmt.Errorf("%w: add to vector store: %w", ErrServiceUnavailable, err)
		}
	}
	return nil
}

func (p *Pipeline) embed(ctx context.Context, e embeddings.Embedder, texts []string) ([][]float32, error) {
	ectx, cancel := context.WithTimeout(ctx, p.opts.EmbedTimeout)
	defer cancel()

	vecs, err := e.Embed(ectx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed with %s: %w", ErrServiceUnavailable, e.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts", ErrServiceUnavailable, e.Name(), len(vecs), len(texts))
	}
	return vecs, nil
}

// Answer retrieves the chunks closest to question and asks the generator
// to answer from them.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateReady {
		return nil, ErrNotInitialized
	}
	c := p.comps

	results, err := p.retrieve(ctx, c, question, p.opts.TopK)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(question, results)
	gctx, cancel := context.WithTimeout(ctx, p.opts.GenerateTimeout)
	defer cancel()

	resp, err := c.Generator.Complete(gctx, llm.UserPrompt(prompt, p.opts.MaxTokens, p.opts.Temperature))
	if err != nil {
		return nil, fmt.Errorf("%w: generate with %s: %w", ErrServiceUnavailable, c.Generator.Name(), err)
	}

	usage := Usage{
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	if usage.InputTokens == 0 {
		usage.InputTokens = llm.EstimateTokens(prompt)
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = llm.EstimateTokens(resp.Content)
	}
	usage.CostUSD = llm.EstimateCost(usage.Model, usage.InputTokens, usage.OutputTokens)
	if p.opts.Verbose {
		log.Printf("rag: answered with %s (%d in / %d out tokens, ~$%.5f)",
			usage.Model, usage.InputTokens, usage.OutputTokens, usage.CostUSD)
	}

	return &Answer{
		Text:    resp.Content,
		Sources: UniqueSources(results),
		Usage:   usage,
	}, nil
}

// Search returns the k chunks closest to text without generating an
// answer. k <= 0 uses the configured top-k.
func (p *Pipeline) Search(ctx context.Context, text string, k int) ([]vectordb.SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = p.opts.TopK
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateReady {
		return nil, ErrNotInitialized
	}
	return p.retrieve(ctx, p.comps, text, k)
}

func (p *Pipeline) retrieve(ctx context.Context, c *Components, text string, k int) ([]vectordb.SearchResult, error) {
	vecs, err := p.embed(ctx, c.Embedder, []string{text})
	if err != nil {
		return nil, err
	}
	results, err := c.Store.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: search vector store: %w", ErrServiceUnavailable, err)
	}
	return results, nil
}

func (p *Pipeline) startRun(ctx context.Context, urls []string, model string) string {
	if p.opts.Ledger == nil {
		return ""
	}
	run, err := p.opts.Ledger.Start(ctx, urls, model)
	if err != nil {
		log.Printf("rag: recording run start: %v", err)
		return ""
	}
	return run.ID
}

func (p *Pipeline) finishRun(res *IngestResult, runErr error) {
	if p.opts.Ledger == nil || res.RunID == "" {
		return
	}
	out := runs.Outcome{
		Documents: res.Documents,
		Chunks:    res.Chunks,
		Err:       runErr,
	}
	for _, f := range res.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out.Failures = append(out.Failures, runs.Failure{URL: f.URL, Error: msg})
	}
	// The ingestion context may already be cancelled; the record should
	// still be written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.opts.Ledger.Finish(ctx, res.RunID, out); err != nil {
		log.Printf("rag: recording run %s: %v", res.RunID, err)
	}
}

// cleanURLs trims whitespace and drops blank entries.
func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

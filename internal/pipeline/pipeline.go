package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/config"
	"github.com/mehmetymw/banketl/internal/query"
	"github.com/mehmetymw/banketl/internal/types"
)

type Extractor interface {
	Extract(ctx context.Context, url string, columns []string) (*types.Table, error)
}

type Transformer interface {
	Transform(tbl *types.Table, ratesPath string) (*types.Table, error)
}

// Store is the relational sink; its handle is shared with the query runner.
type Store interface {
	types.Sink
	DB() *sql.DB
}

// StoreOpener connects to the relational store when the pipeline reaches
// the database stage.
type StoreOpener func(ctx context.Context) (Store, error)

type ProgressLogger interface {
	Log(msg string)
}

// Progress trail messages, one per stage transition.
const (
	MsgStart       = "Preliminaries complete. Initiating ETL process."
	MsgExtracted   = "Data extraction complete. Initiating Transformation process"
	MsgTransformed = "Data transformation complete. Initiating Loading process"
	MsgCSVSaved    = "Data saved to CSV file."
	MsgConnected   = "SQL Connection initiated."
	MsgDBLoaded    = "Data loaded to Database as table. Running the query."
	MsgComplete    = "Process Complete."
	MsgClosed      = "Server Connection closed"
)

type Pipeline struct {
	cfg         config.Config
	extractor   Extractor
	transformer Transformer
	file        types.Sink
	openStore   StoreOpener
	publishers  []types.Sink
	progress    ProgressLogger
	out         io.Writer
	logger      *zap.Logger

	mu    sync.Mutex
	store Store
	stage string
}

// NewPipeline wires the stages. publishers are optional extra sinks that
// receive the transformed table after the store.
func NewPipeline(cfg config.Config, extractor Extractor, transformer Transformer, file types.Sink, openStore StoreOpener, publishers []types.Sink, progress ProgressLogger, out io.Writer, logger *zap.Logger) *Pipeline {
	logger.Info("Creating new pipeline",
		zap.String("url", cfg.Source.URL),
		zap.String("csv_path", cfg.Output.CSVPath),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("table", cfg.Store.Table),
		zap.Int("publishers", len(publishers)),
		zap.Int("queries", len(cfg.Queries)))
	return &Pipeline{
		cfg:         cfg,
		extractor:   extractor,
		transformer: transformer,
		file:        file,
		openStore:   openStore,
		publishers:  publishers,
		progress:    progress,
		out:         out,
		logger:      logger,
	}
}

// Run executes every stage once, in order. The first error aborts the run;
// the progress trail's last line names the furthest completed stage.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.mark("start", MsgStart)

	raw, err := p.extractor.Extract(ctx, p.cfg.Source.URL, p.cfg.Source.Columns)
	if err != nil {
		return err
	}
	p.mark("extract", MsgExtracted)

	transformed, err := p.transformer.Transform(raw, p.cfg.Rates.Path)
	if err != nil {
		return err
	}
	p.mark("transform", MsgTransformed)

	if err := p.file.Load(ctx, transformed); err != nil {
		return err
	}
	p.mark("csv", MsgCSVSaved)

	store, err := p.openStore(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.store = store
	p.mu.Unlock()
	p.mark("connect", MsgConnected)

	// Both sinks receive the transformed table.
	if err := store.Load(ctx, transformed); err != nil {
		return err
	}
	for _, pub := range p.publishers {
		p.logger.Info("Publishing table", zap.String("sink", pub.Name()))
		if err := pub.Load(ctx, transformed); err != nil {
			return err
		}
	}
	p.mark("load", MsgDBLoaded)

	runner := query.New(store.DB(), p.out, p.logger)
	if _, err := runner.RunAll(ctx, p.cfg.Queries); err != nil {
		return err
	}
	p.mark("query", MsgComplete)

	p.logger.Info("Pipeline finished",
		zap.Int("rows", transformed.Len()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (p *Pipeline) mark(stage, msg string) {
	p.mu.Lock()
	p.stage = stage
	p.mu.Unlock()
	p.logger.Info(msg, zap.String("stage", stage))
	p.progress.Log(msg)
}

// Stage returns the last stage that completed.
func (p *Pipeline) Stage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Close releases every sink that was opened. It is safe to call after a
// failed Run.
func (p *Pipeline) Close() error {
	p.logger.Info("Closing pipeline")
	var errs []error
	for _, pub := range p.publishers {
		if err := pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p.mu.Lock()
	store := p.store
	p.store = nil
	p.mu.Unlock()
	if store != nil {
		if err := store.Close(); err != nil {
			errs = append(errs, types.ErrStore("close", err))
		} else {
			p.progress.Log(MsgClosed)
		}
	}
	return errors.Join(errs...)
}

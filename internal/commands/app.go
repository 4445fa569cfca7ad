package commands

import (
	"context"

	"github.com/joseph-ayodele/invoice-vouchers/internal/export"
	"github.com/joseph-ayodele/invoice-vouchers/internal/extract"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ocr"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
	"github.com/joseph-ayodele/invoice-vouchers/internal/repository"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

// app is the wired object graph.
type app struct {
	db      *repository.DB
	service *invoice.Service
}

func (a *app) Close() error { return a.db.Close() }

// openDB connects and creates missing tables.
func (e *env) openDB(ctx context.Context) (*repository.DB, error) {
	c := e.cfg.Database
	db, err := repository.Open(ctx, repository.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}, e.log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newApp wires storage, providers, the pipeline and the service.
// withProviders is false for read-only commands, which then need no
// OCR or LLM credentials.
func (e *env) newApp(ctx context.Context, withProviders bool) (*app, error) {
	if withProviders && e.opts.completer == nil {
		if err := e.cfg.ValidateForPipeline(); err != nil {
			return nil, err
		}
	}
	db, err := e.openDB(ctx)
	if err != nil {
		return nil, err
	}

	invoices := repository.NewInvoiceRepository(db, e.log)
	exporter := export.NewService(invoices, e.log)

	var proc invoice.Processor
	if withProviders {
		proc = e.newProcessor(db, invoices)
	}
	return &app{db: db, service: invoice.NewService(proc, invoices, exporter, e.log)}, nil
}

func (e *env) newProcessor(db *repository.DB, invoices repository.InvoiceRepository) *pipeline.Processor {
	cfg := e.cfg
	timeout := cfg.Pipeline.StageTimeout

	var prep *ocr.Preprocessor
	if cfg.OCR.Preprocess {
		prep = &ocr.Preprocessor{
			TargetWidth: cfg.OCR.TargetWidth,
			Threshold:   uint8(cfg.OCR.Threshold),
			Dir:         cfg.Pipeline.TempDir,
		}
	}

	completer := e.opts.completer
	if completer == nil {
		completer = openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, e.log)
	}
	temperature := cfg.LLM.Temperature

	return pipeline.NewProcessor(pipeline.Deps{
		OCR:        extract.NewOCRAdapter(e.recognizer(), prep, timeout, e.log),
		Extractor:  extract.NewInvoiceAdapter(completer, temperature, timeout, e.log),
		Compliance: extract.NewComplianceAdapter(completer, temperature, timeout, e.log),
		Files:      repository.NewFileRepository(db, e.log),
		Invoices:   invoices,
		Vouchers:   repository.NewVoucherRepository(db, e.log),
		Logs:       repository.NewProcessingLogRepository(db, e.log),
	}, pipeline.Options{
		TempDir:         cfg.Pipeline.TempDir,
		AuditLog:        cfg.Pipeline.AuditLog,
		StrictLineItems: cfg.Pipeline.StrictLineItems,
	}, e.log)
}

func (e *env) recognizer() ocr.Recognizer {
	if e.opts.recognizer != nil {
		return e.opts.recognizer
	}
	c := e.cfg.OCR
	if c.Provider == "azure" {
		return ocr.NewAzureRecognizer(c.AzureEndpoint, c.AzureKey, c.Languages, e.log)
	}
	return ocr.NewExtractor(ocr.Config{
		Languages:           c.Languages,
		TessdataDir:         c.TessdataDir,
		EnableTSVConfidence: true,
		PSM:                 6,
		OEM:                 1,
	}, e.log)
}

var _ llm.Completer = (*openai.Client)(nil)

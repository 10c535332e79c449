package cli

import (
	"context"
	"errors"
	"fmt"

	config "github.com/custodia-labs/docpipe/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docpipe/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/docpipe/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docpipe/internal/connectors/dropbox"
	"github.com/custodia-labs/docpipe/internal/connectors/filestore"
	"github.com/custodia-labs/docpipe/internal/connectors/imap"
	"github.com/custodia-labs/docpipe/internal/connectors/mailbox"
	"github.com/custodia-labs/docpipe/internal/core/ports/driving"
	"github.com/custodia-labs/docpipe/internal/core/services"
	"github.com/custodia-labs/docpipe/internal/extractors"
	"github.com/custodia-labs/docpipe/internal/extractors/legacy"
	"github.com/custodia-labs/docpipe/internal/logger"
	"github.com/custodia-labs/docpipe/internal/postprocessors/chunker"
)

// app holds the wired service graph for one command invocation. Only the
// pieces a command needs are built: briefings opens just the store, search
// adds the embedder, sync and schedule add the source drivers.
type app struct {
	cfg     *config.Config
	secrets config.Secrets

	store        *sqlite.Store
	embedder     *gemini.Gateway
	retriever    driving.Retriever
	orchestrator driving.SyncOrchestrator

	closers []func() error
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("cleanup: %v", err)
		}
	}
}

// newApp loads config and opens the store.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		secrets: config.SecretsFromEnv(),
		store:   store,
	}
	a.closers = append(a.closers, store.Close)
	return a, nil
}

// withEmbedder adds the Gemini gateway. Commands that embed (search,
// sync, schedule) call this after newApp.
func (a *app) withEmbedder(ctx context.Context) error {
	if a.secrets.GeminiAPIKey == "" {
		return fmt.Errorf("%s is not set", config.EnvGeminiAPIKey)
	}

	gw, err := gemini.New(ctx, a.secrets.GeminiAPIKey,
		gemini.WithModel(a.cfg.Embedding.Model),
		gemini.WithDimensions(a.cfg.Embedding.Dimensions),
		gemini.WithRequestsPerMinute(a.cfg.Embedding.RequestsPerMinute),
	)
	if err != nil {
		return fmt.Errorf("create embedding gateway: %w", err)
	}

	a.embedder = gw
	a.closers = append(a.closers, gw.Close)
	a.retriever = services.NewRetrievalService(gw, a.store.IndexStore())
	return nil
}

// withSync builds the sync drivers for every source that has credentials
// and registers them with the orchestrator. Sources without credentials
// are skipped with a warning so a partial setup still syncs what it can.
func (a *app) withSync(ctx context.Context) error {
	if err := a.withEmbedder(ctx); err != nil {
		return err
	}

	splitter := chunker.New(
		chunker.WithChunkSize(a.cfg.Chunking.ChunkSize),
		chunker.WithOverlap(a.cfg.Chunking.Overlap),
	)
	engine := extractors.NewEngine(legacy.NewRunner(),
		extractors.WithMaxArchiveBytes(a.cfg.Extraction.MaxArchiveBytes),
		extractors.WithMaxArchiveDepth(a.cfg.Extraction.MaxArchiveDepth),
	)
	indexer := services.NewIndexer(splitter, a.embedder, a.store.IndexStore())

	orch := services.NewSyncService()

	if a.secrets.DropboxToken != "" {
		client, err := dropbox.New(a.secrets.DropboxToken,
			dropbox.WithRootPath(a.cfg.FileStore.RootPath))
		if err != nil {
			return fmt.Errorf("create file store client: %w", err)
		}
		orch.Register(filestore.New(client, engine, indexer, a.store.CheckpointStore(),
			filestore.WithMaxFileBytes(a.cfg.FileStore.MaxFileBytes),
			filestore.WithWorkers(a.cfg.FileStore.Workers),
		))
	} else {
		logger.Warn("%s not set, file store sync disabled", config.EnvDropboxToken)
	}

	switch {
	case a.cfg.Mailbox.Addr == "" || a.cfg.Mailbox.Username == "":
		logger.Warn("mailbox addr/username not configured, mailbox sync disabled")
	case a.secrets.IMAPPassword == "":
		logger.Warn("%s not set, mailbox sync disabled", config.EnvIMAPPassword)
	default:
		client, err := imap.Dial(a.cfg.Mailbox.Addr, a.cfg.Mailbox.Username, a.secrets.IMAPPassword)
		if err != nil {
			return fmt.Errorf("connect to mailbox: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		orch.Register(mailbox.New(client, engine, indexer, a.store.CheckpointStore(),
			mailbox.WithFolders(a.cfg.Mailbox.Folders),
			mailbox.WithMaxAttachmentBytes(a.cfg.Mailbox.MaxAttachmentBytes),
		))
	}

	if len(orch.Types()) == 0 {
		return errors.New("no sync source configured")
	}

	a.orchestrator = orch
	return nil
}

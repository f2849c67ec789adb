// Command bankctl is the platform's single operator entrypoint: serve
// runs the HTTP admin surface and scheduler, migrate provisions every
// repository's schema, scheduler run-once runs the pipeline once for
// every registered use case without serving HTTP, and keys rotate re-encrypts at-rest integration secrets
// under a freshly generated key. Built with cobra per the platform's
// process-entrypoint design, in contrast to the flag-based cmd/ tools
// this one grew out of — recorded as a deliberate choice in the
// project's design notes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	nc "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/banking-platform/internal/cache"
	"github.com/antigravity-dev/banking-platform/internal/cipher"
	"github.com/antigravity-dev/banking-platform/internal/config"
	"github.com/antigravity-dev/banking-platform/internal/events"
	"github.com/antigravity-dev/banking-platform/internal/httpadmin"
	"github.com/antigravity-dev/banking-platform/internal/logging"
	"github.com/antigravity-dev/banking-platform/internal/pipeline"
	"github.com/antigravity-dev/banking-platform/internal/rag"
	"github.com/antigravity-dev/banking-platform/internal/repo"
	"github.com/antigravity-dev/banking-platform/internal/scheduler"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
	"github.com/antigravity-dev/banking-platform/internal/vectorstore"
)

var log = logging.For("bankctl")

func main() {
	root := &cobra.Command{
		Use:   "bankctl",
		Short: "Banking ML/AI platform operator CLI",
	}
	root.AddCommand(serveCmd(), migrateCmd(), schedulerCmd(), keysCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// platform bundles every opened database, repository, and service a
// subcommand might need, closed uniformly by Close.
type platform struct {
	settings *config.Settings
	enc      *cipher.Cipher

	datasets      *repo.DatasetRepo
	jobs          *repo.JobRepo
	alerts        *repo.AlertRepo
	audit         *repo.AuditRepo
	integrations  *repo.IntegrationRepo
	text2sql      *repo.Text2SQLRepo
	governance    *repo.GovernanceRepo
	preprocessing *repo.PreprocessingRepo

	queryCache     *cache.Cache
	embeddingCache *cache.Cache
	vectors        vectorstore.Store
	bus            *events.Bus
	ragPipeline    *rag.Pipeline
	sched          *scheduler.Scheduler
}

func openPlatform(startScheduler bool) (*platform, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	enc, err := cipher.Load(os.Getenv("BANKING_ENCRYPTION_KEY"), settings.EncryptionKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load cipher: %w", err)
	}

	adminDB, err := repo.Open(settings.AdminDBPath)
	if err != nil {
		return nil, err
	}
	resultsDB, err := repo.Open(settings.ResultsDBPath)
	if err != nil {
		return nil, err
	}
	preprocDB, err := repo.Open(settings.PreprocessingDBPath)
	if err != nil {
		return nil, err
	}
	cacheDB, err := repo.Open(settings.CacheDBPath)
	if err != nil {
		return nil, err
	}
	unifiedDB, err := repo.Open(settings.UnifiedDBPath)
	if err != nil {
		return nil, err
	}

	p := &platform{settings: settings, enc: enc}

	if p.datasets, err = repo.NewDatasetRepo(adminDB); err != nil {
		return nil, err
	}
	if p.jobs, err = repo.NewJobRepo(adminDB); err != nil {
		return nil, err
	}
	if p.alerts, err = repo.NewAlertRepo(adminDB); err != nil {
		return nil, err
	}
	if p.audit, err = repo.NewAuditRepo(adminDB); err != nil {
		return nil, err
	}
	if p.integrations, err = repo.NewIntegrationRepo(adminDB, enc); err != nil {
		return nil, err
	}
	if p.text2sql, err = repo.NewText2SQLRepo(unifiedDB); err != nil {
		return nil, err
	}
	if p.governance, err = repo.NewGovernanceRepo(resultsDB); err != nil {
		return nil, err
	}
	if p.preprocessing, err = repo.NewPreprocessingRepo(preprocDB); err != nil {
		return nil, err
	}
	if p.queryCache, err = cache.OpenQueryCache(cacheDB); err != nil {
		return nil, err
	}
	if p.embeddingCache, err = cache.OpenEmbeddingCache(cacheDB); err != nil {
		return nil, err
	}

	p.vectors, err = vectorstore.Open(vectorstore.OpenConfig{
		Backend: settings.VectorBackend,
		DataDir: settings.VectorStoreDir,
		NATSURL: settings.NATSURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	var conn *nc.Conn
	if settings.NATSURL != "" {
		if conn, err = nc.Connect(settings.NATSURL); err != nil {
			log.Warnf("nats connect failed, continuing in-process only: %v", err)
			conn = nil
		}
	}
	p.bus = events.NewBus(conn)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	embeddings := rag.NewEmbeddingPipeline(nil, settings.OllamaBaseURL, httpClient)
	generator := rag.NewGenerator(settings.OllamaBaseURL, settings.OllamaModel, httpClient)
	p.ragPipeline = &rag.Pipeline{
		Store:         p.vectors,
		Embeddings:    embeddings,
		Generator:     generator,
		QueryCache:    p.queryCache,
		TopK:          5,
		TokenBudget:   2000,
		RelevanceFloor: 0.2,
	}

	if startScheduler {
		deps := pipeline.Deps{
			Datasets:      p.datasets,
			Preprocessing: p.preprocessing,
			Governance:    p.governance,
			Vectors:       p.vectors,
			RAG:           p.ragPipeline,
			OutDir:        settings.PreprocessingOutDir,
			ModelsDir:     settings.ModelsDir,
		}
		p.sched = scheduler.New(p.jobs, pipeline.Build(deps), p.bus, settings.MaxWorkers)
	}

	return p, nil
}

func (p *platform) server() *httpadmin.Server {
	s := httpadmin.NewServer(p.settings)
	s.Cipher = p.enc
	s.Datasets = p.datasets
	s.Jobs = p.jobs
	s.Alerts = p.alerts
	s.Audit = p.audit
	s.Integrations = p.integrations
	s.Text2SQL = p.text2sql
	s.Governance = p.governance
	s.Preprocessing = p.preprocessing
	s.QueryCache = p.queryCache
	s.EmbeddingCache = p.embeddingCache
	s.Vectors = p.vectors
	s.RAG = p.ragPipeline
	s.Scheduler = p.sched
	s.Bus = p.bus
	return s
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP admin API and the pipeline scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlatform(true)
			if err != nil {
				return err
			}
			if n, err := scheduler.ReconcileOrphans(p.jobs, 0); err != nil {
				log.Warnf("orphan reconciliation failed: %v", err)
			} else if n > 0 {
				log.Infof("reconciled %d orphaned job(s)", n)
			}
			go func() {
				for range time.Tick(60 * time.Second) {
					if _, err := p.queryCache.Sweep(); err != nil {
						log.Warnf("query cache sweep failed: %v", err)
					}
				}
			}()
			srv := p.server()
			log.Infof("listening on %s", addr)
			return http.ListenAndServe(addr, srv.Router())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "address to listen on")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade every repository's schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlatform(false)
			if err != nil {
				return err
			}
			log.Infof("schema for all repositories is current (each repo creates its tables on open)")
			_ = p
			return nil
		},
	}
}

func schedulerCmd() *cobra.Command {
	parent := &cobra.Command{Use: "scheduler", Short: "Scheduler maintenance commands"}
	parent.AddCommand(schedulerRunOnceCmd())
	return parent
}

func schedulerRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run the pipeline once for every registered use case, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlatform(true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, key := range usecases.Keys() {
				job, err := p.jobs.Create("pipeline", fmt.Sprintf(`{"use_case_key":%q}`, key))
				if err != nil {
					log.Errorf(err, "failed to create job for %s", key)
					continue
				}
				run := p.sched.RunUseCase(ctx, key, job.ID)
				log.Infof("use case %s finished with status %s", key, run.Status)
			}
			p.sched.Wait()
			return nil
		},
	}
}

func keysCmd() *cobra.Command {
	parent := &cobra.Command{Use: "keys", Short: "Encryption key management"}
	parent.AddCommand(keysRotateCmd())
	return parent
}

func keysRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Generate a new at-rest encryption key and re-encrypt stored integration secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlatform(false)
			if err != nil {
				return err
			}
			oldPath := p.settings.EncryptionKeyPath
			backupPath := oldPath + ".previous"
			if data, err := os.ReadFile(oldPath); err == nil {
				if err := os.WriteFile(backupPath, data, 0o600); err != nil {
					return fmt.Errorf("back up previous key: %w", err)
				}
			}
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove previous key: %w", err)
			}
			newEnc, err := cipher.Load("", oldPath)
			if err != nil {
				return fmt.Errorf("generate new key: %w", err)
			}
			rotated, skipped, err := p.integrations.Rotate(newEnc)
			if err != nil {
				return fmt.Errorf("rotate integration secrets: %w", err)
			}
			log.Infof("key rotation complete: %d integration(s) rotated, %d skipped", rotated, len(skipped))
			if len(skipped) > 0 {
				log.Warnf("integrations that could not be rotated (left under the previous key, now at %s): %v", backupPath, skipped)
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/clinsec-lab/asklepios/pkg/cli/config"
	httpctrl "github.com/clinsec-lab/asklepios/pkg/controller/http"
	"github.com/clinsec-lab/asklepios/pkg/service/embedding"
	"github.com/clinsec-lab/asklepios/pkg/service/synthesis"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
	"github.com/clinsec-lab/asklepios/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var cryptoCfg config.Crypto
	var authCfg config.Auth
	var queryCfg config.Query
	var policyCfg config.Policy
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ASKLEPIOS_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, cryptoCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, queryCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			cipher, err := cryptoCfg.Configure()
			if err != nil {
				return err
			}

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			sem := queryCfg.Semaphore()
			embedder, err := embedding.New(llmClient,
				embedding.WithTimeout(queryCfg.EmbedTimeout()),
				embedding.WithSemaphore(sem),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to configure embedding service")
			}
			synthesizer, err := synthesis.New(llmClient,
				synthesis.WithTimeout(queryCfg.SynthesizeTimeout()),
				synthesis.WithSemaphore(sem),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to configure synthesis service")
			}

			gate, err := policyCfg.Configure(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to load access policy")
			}

			opsReport, sentryCloser, err := sentryCfg.Configure(c.Version)
			if err != nil {
				return err
			}
			defer sentryCloser()

			uc := usecase.New(repo,
				usecase.WithEmbedder(embedder),
				usecase.WithSynthesizer(synthesizer),
				usecase.WithCipher(cipher),
				usecase.WithAccessGate(gate),
				usecase.WithQueryLimits(queryCfg.Limits()),
				usecase.WithOpsReport(opsReport),
			)

			authn, err := authCfg.Configure(ctx, repo.Principal())
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			httpHandler, err := httpctrl.New(uc, httpctrl.WithAuthenticator(authn))
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

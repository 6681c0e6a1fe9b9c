package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/clinsec-lab/asklepios/pkg/cli/config"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/service/embedding"
	"github.com/clinsec-lab/asklepios/pkg/service/synthesis"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
	"github.com/clinsec-lab/asklepios/pkg/utils/safe"
)

// cmdAsk runs one query end to end from the command line, for operators
// verifying a deployment. The full pipeline applies: the access gate and the
// audit trail are not bypassed.
func cmdAsk() *cli.Command {
	var principalID string
	var patientID string
	var retrieveK int
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var cryptoCfg config.Crypto
	var queryCfg config.Query
	var policyCfg config.Policy

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "principal",
			Usage:       "Principal ID to ask as",
			Required:    true,
			Sources:     cli.EnvVars("ASKLEPIOS_ASK_PRINCIPAL"),
			Destination: &principalID,
		},
		&cli.StringFlag{
			Name:        "patient",
			Usage:       "Patient ID to ask about",
			Required:    true,
			Destination: &patientID,
		},
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Number of records to retrieve",
			Destination: &retrieveK,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, cryptoCfg.Flags()...)
	flags = append(flags, queryCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask one question about one patient",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

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

			principal, err := repo.Principal().Get(ctx, types.PrincipalID(principalID))
			if err != nil {
				return goerr.Wrap(err, "unknown principal", goerr.V("principalID", principalID))
			}

			uc := usecase.New(repo,
				usecase.WithEmbedder(embedder),
				usecase.WithSynthesizer(synthesizer),
				usecase.WithCipher(cipher),
				usecase.WithAccessGate(gate),
				usecase.WithQueryLimits(queryCfg.Limits()),
			)

			resp, err := uc.Query.Execute(ctx, &model.QueryRequest{
				Principal: principal,
				PatientID: types.PatientID(patientID),
				Question:  question,
				RetrieveK: retrieveK,
			})
			if err != nil {
				return err
			}

			printQueryResult(resp)
			return nil
		},
	}
}

func printQueryResult(resp *model.QueryResponse) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	if !resp.AccessGranted {
		color.New(color.FgRed, color.Bold).Println("Access denied")
		fmt.Println(resp.Answer)
		return
	}

	header.Println("Answer")
	fmt.Println(resp.Answer)
	fmt.Println()
	dim.Printf("state=%s confidence=%.2f query_id=%s\n", resp.State, resp.Confidence, resp.QueryID)

	if len(resp.Sources) == 0 {
		return
	}

	fmt.Println()
	header.Println("Sources")
	for i, src := range resp.Sources {
		fmt.Printf("  [S%d] %s (%s, %s) similarity=%.2f\n",
			i+1,
			src.RecordID,
			src.RecordType,
			src.EffectiveDate.Format("2006-01-02"),
			src.Similarity,
		)
	}
}

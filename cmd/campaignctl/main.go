// Command campaignctl imports and queries campaigns directly against the
// configured store, using the same environment as the API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campaign-vault/backend/internal/app"
	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/ingest"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds what every subcommand needs once the root pre-run has wired it.
type cli struct {
	cfg       *config.Config
	log       *zap.Logger
	deps      *app.Deps
	campaigns *services.CampaignService
	contacts  *services.ContactService
	pipeline  *ingest.Pipeline
}

var cliActor = models.Actor{Type: models.ActorCLI}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The caller closes c after Execute;
// cobra skips post-run hooks when a command fails.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "campaignctl",
		Short:         "Import and query encrypted campaign contacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
	}

	root.AddCommand(
		newFieldsCmd(c),
		newProposeCmd(c),
		newImportCmd(c),
		newListCmd(c),
		newShowCmd(c),
		newContactsCmd(c),
		newSearchCmd(c),
		newDeleteCmd(c),
	)
	return root
}

func (c *cli) init(ctx context.Context) error {
	c.cfg = config.Load()

	log, err := c.cfg.NewLogger()
	if err != nil {
		return err
	}
	c.log = log

	if err := c.cfg.Validate(log); err != nil {
		return err
	}

	deps, err := app.New(ctx, c.cfg, log)
	if err != nil {
		return err
	}
	c.deps = deps

	c.campaigns = services.NewCampaignService(deps.Store, deps.Publisher, log)
	c.contacts = services.NewContactService(deps.Store, deps.Codec, log)
	c.pipeline = ingest.NewPipeline(deps.Store, deps.Codec, deps.Mapper, deps.Publisher, ingest.Options{
		MaxBytes: c.cfg.MaxUploadBytes,
		MaxRows:  c.cfg.MaxUploadRows,
	}, log)
	return nil
}

func (c *cli) close() {
	if c.deps != nil {
		c.deps.Close()
		c.deps = nil
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

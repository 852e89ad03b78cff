package cmd

import (
	"github.com/spf13/cobra"

	"github.com/automeetsslide/decksidecar/internal/orchestrator"
)

// newOrchestrator builds an orchestrator over an authenticated client.
func (a *app) newOrchestrator() (*orchestrator.Orchestrator, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return orchestrator.New(client, a.bus, a.logger, orchestrator.OptionsFromConfig(a.cfg)), nil
}

func (a *app) findNotebookCommand() *cobra.Command {
	const line = "find-notebook <job_id>"
	return &cobra.Command{
		Use:   line,
		Short: "Find the notebook of an earlier job by its job ID",
		Long: `Search notebook titles for the job ID given to process --job-id. The first
match wins. When it has a slide deck, its ID is reported as task_id along
with its generation status; otherwise generation_status is "no_artifact",
or "not_found" when no notebook matches.`,
		Args: usage(1, line),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}
			_, err = orch.FindNotebook(cmd.Context(), args[0])
			return err
		},
	}
}

func (a *app) checkStatusCommand() *cobra.Command {
	const line = "check-status <notebook_id> <task_id>"
	return &cobra.Command{
		Use:   line,
		Short: "Poll a generation task once",
		Args:  usage(2, line),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}
			_, err = orch.CheckStatus(cmd.Context(), args[0], args[1])
			return err
		},
	}
}

func (a *app) downloadCommand() *cobra.Command {
	const line = "download <notebook_id> <output_dir> [--name <stem>] [--artifact-id <id>]"

	var name, artifactID string

	cmd := &cobra.Command{
		Use:   line,
		Short: "Download a notebook's slide deck",
		Long: `Download the most recent slide deck of a notebook, or the one named by
--artifact-id, to <output_dir>/<name>_slides.pdf (slides.pdf without --name).`,
		Args: usage(2, line),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}
			_, err = orch.Download(cmd.Context(), orchestrator.DownloadRequest{
				NotebookID: args[0],
				OutputDir:  args[1],
				Name:       name,
				ArtifactID: artifactID,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "file name stem for the downloaded deck")
	cmd.Flags().StringVar(&artifactID, "artifact-id", "", "specific slide deck artifact to download")
	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/automeetsslide/decksidecar/internal/orchestrator"
)

func (a *app) processCommand() *cobra.Command {
	const line = "process <file_path> <output_dir> [--system-prompt <prompt>] [--job-id <id>] [--source-file <path>]... [--source-url <url>]..."

	var (
		systemPrompt string
		jobID        string
		sourceFiles  []string
		sourceURLs   []string
	)

	cmd := &cobra.Command{
		Use:   line,
		Short: "Build a slide deck from a file and optional extra sources",
		Long: `Create a notebook, upload the primary file and any extra sources, wait for
them to be processed, generate a slide deck and download it as
<output_dir>/<file stem>_slides.pdf (numbered if that name is taken).

--source-file may be repeated and accepts glob patterns such as
"notes/*.md" or "refs/**/*.pdf". Missing extra files are skipped.`,
		Args: usage(2, line),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := orchestrator.Job{
				PrimaryFile:     args[0],
				OutputDir:       args[1],
				Instructions:    systemPrompt,
				JobID:           jobID,
				AdditionalFiles: expandSourceFiles(sourceFiles, a.logger),
				SourceURLs:      sourceURLs,
			}

			// Missing input is reported before credentials are needed
			if err := job.Validate(); err != nil {
				return err
			}

			client, err := a.client()
			if err != nil {
				return err
			}

			logger := a.logger
			if jobID != "" {
				logger = logger.With("job_id", jobID)
			}
			orch := orchestrator.New(client, a.bus, logger, orchestrator.OptionsFromConfig(a.cfg))
			_, err = orch.Process(cmd.Context(), job)
			return err
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "custom instructions for slide generation")
	cmd.Flags().StringVar(&jobID, "job-id", "", "job identifier embedded in the notebook title for recovery")
	cmd.Flags().StringArrayVar(&sourceFiles, "source-file", nil, "additional source file or glob pattern (repeatable)")
	cmd.Flags().StringArrayVar(&sourceURLs, "source-url", nil, "web or document URL to add as a source (repeatable)")
	return cmd
}

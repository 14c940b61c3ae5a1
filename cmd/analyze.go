package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bidwise/rfp-analyzer/internal/logger"
	"github.com/bidwise/rfp-analyzer/internal/pipeline"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var prompt = promptui.Select{
	Label: "Document contents will be sent to the configured AI provider. Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a proposal against the eligibility criteria of an RFP",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("rfp", "r", "", "path to the RFP document (pdf or plain text)")
	analyzeCmd.Flags().StringP("proposal", "p", "", "path to the proposal document (pdf or plain text)")
	analyzeCmd.Flags().StringP("output", "o", "", "write the comparison result to a file instead of stdout")
	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before sending documents to the provider")

	analyzeCmd.MarkFlagRequired("rfp")
	analyzeCmd.MarkFlagRequired("proposal")
}

// analyze is the main command for the cli.
func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the rfp-analyzer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	rfp, err := readInput(cmd.Flag("rfp").Value.String())
	if err != nil {
		logger.Fatal("reading the rfp document", zap.Error(err))
	}

	proposal, err := readInput(cmd.Flag("proposal").Value.String())
	if err != nil {
		logger.Fatal("reading the proposal document", zap.Error(err))
	}

	p, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	result, err := p.Run(ctx, rfp, proposal)
	if err != nil {
		logger.Fatal("running the comparison", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("encoding the result", zap.Error(err))
	}

	output := cmd.Flag("output").Value.String()
	if output == "" {
		fmt.Println(string(out))
		return
	}

	if err := os.WriteFile(output, append(out, '\n'), 0o644); err != nil {
		logger.Fatal("writing the result", zap.Error(err))
	}

	logger.Info("comparison finished", zap.String("output", output), zap.Int("criteria", len(result.Verdicts)))
}

func readInput(path string) (pipeline.Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return pipeline.Input{
		Name: filepath.Base(path),
		Raw:  raw,
	}, nil
}

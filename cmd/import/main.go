// Command recipe-import imports a single recipe from a URL or pasted text
// and prints the normalized record.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"recipe-importer/internal/core/ai/service"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// importer 匯入單一輸入
type importer interface {
	Import(ctx context.Context, input string) (*common.ImportedRecipe, error)
}

// saver 儲存匯入結果
type saver interface {
	Create(ctx context.Context, recipe *common.ImportedRecipe) (string, error)
}

// pipeline CLI 執行時使用的服務
type pipeline struct {
	importer importer
	saver    saver
	close    func()
}

// pipelineFactory 依設定建立服務，測試時可替換
type pipelineFactory func(cfg *config.Config, withStorage bool) (*pipeline, error)

type options struct {
	stdin   bool
	save    bool
	verbose bool
	format  string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(buildPipeline).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(factory pipelineFactory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "recipe-import <url-or-text...>",
		Short: "Import a recipe from a web page, video link, or pasted text",
		Long: `recipe-import classifies the input, fetches the page when it is a URL,
reads embedded schema.org data when present and otherwise asks the
configured completion service to structure the text.

Examples:
  recipe-import https://www.example.com/recipes/pancakes
  recipe-import "Boil pasta for 10 minutes, add sauce."
  pbpaste | recipe-import --stdin --format text`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, opts, factory)
		},
	}

	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read the input from standard input")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the imported recipe through the storage service")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or text")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline stages to stderr")
	return cmd
}

func runImport(cmd *cobra.Command, args []string, opts *options, factory pipelineFactory) error {
	errOut := cmd.ErrOrStderr()

	input, err := readInput(cmd.InOrStdin(), args, opts.stdin)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return err
	}
	if opts.format != "json" && opts.format != "text" {
		err := fmt.Errorf("unknown format %q", opts.format)
		fmt.Fprintln(errOut, err)
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return err
	}
	// 預設只輸出警告，避免干擾 stdout 上的結果
	logLevel := "warn"
	if opts.verbose {
		logLevel = "debug"
	}
	common.InitConsoleLogger(logLevel)
	defer common.Sync()

	p, err := factory(cfg, opts.save)
	if err != nil {
		fmt.Fprintf(errOut, "setup: %v\n", err)
		return err
	}
	if p.close != nil {
		defer p.close()
	}

	result, err := p.importer.Import(cmd.Context(), input)
	if err != nil {
		if importErr := recipe.AsImportError(err); importErr != nil {
			fmt.Fprintf(errOut, "import failed (source: %s, stage: %s): %v\n", importErr.Source, importErr.Stage, importErr.Err)
		} else {
			fmt.Fprintf(errOut, "import failed: %v\n", err)
		}
		return err
	}

	if err := writeRecipe(cmd.OutOrStdout(), result, opts.format); err != nil {
		fmt.Fprintln(errOut, err)
		return err
	}

	if opts.save {
		if p.saver == nil {
			err := errors.New("storage is not configured (set STORAGE_BASE_URL)")
			fmt.Fprintln(errOut, err)
			return err
		}
		id, err := p.saver.Create(cmd.Context(), result)
		if err != nil {
			fmt.Fprintf(errOut, "save failed: %v\n", err)
			return err
		}
		fmt.Fprintf(errOut, "saved as %s\n", id)
	}
	return nil
}

// readInput 以參數或標準輸入取得匯入內容
func readInput(stdin io.Reader, args []string, fromStdin bool) (string, error) {
	var input string
	if fromStdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		input = string(data)
	} else {
		input = strings.Join(args, " ")
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("no input given: pass a URL or text, or use --stdin")
	}
	return input, nil
}

func writeRecipe(w io.Writer, r *common.ImportedRecipe, format string) error {
	if format == "text" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\n", r.Title)
		if r.Description != "" {
			fmt.Fprintf(&sb, "\n%s\n", r.Description)
		}
		if r.CookingTime != nil {
			fmt.Fprintf(&sb, "\nCooking time: %d min\n", *r.CookingTime)
		}
		if r.Servings != nil {
			fmt.Fprintf(&sb, "Servings: %d\n", *r.Servings)
		}
		fmt.Fprintf(&sb, "\nIngredients:\n%s", common.FormatIngredients(r.Ingredients))
		fmt.Fprintf(&sb, "\nSteps:\n%s", common.FormatSteps(r.Steps))
		if r.SourceURL != "" {
			fmt.Fprintf(&sb, "\nSource: %s (%s)\n", r.SourceURL, r.SourceType)
		}
		_, err := io.WriteString(w, sb.String())
		return err
	}

	out, err := common.ToIndentedJSON(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// buildPipeline 依設定組裝匯入流程
func buildPipeline(cfg *config.Config, withStorage bool) (*pipeline, error) {
	aiService, cacheStore, err := service.NewFromConfig(cfg, service.WithValidator(recipe.ValidateAIResponse))
	if err != nil {
		return nil, err
	}

	importService, err := recipe.NewImportService(recipe.NewPageFetcher(cfg.Fetch), aiService, cfg.Import.MaxPromptChars)
	if err != nil {
		if cacheStore != nil {
			_ = cacheStore.Close()
		}
		return nil, err
	}

	p := &pipeline{
		importer: importService,
		close: func() {
			if cacheStore != nil {
				_ = cacheStore.Close()
			}
		},
	}

	if withStorage && cfg.Storage.BaseURL != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			p.close()
			return nil, err
		}
		p.saver = client
	}
	return p, nil
}

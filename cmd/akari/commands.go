package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/config"
	"github.com/Uttutt17/akari/internal/explain"
	"github.com/Uttutt17/akari/internal/gate"
	"github.com/Uttutt17/akari/internal/ingest"
	"github.com/Uttutt17/akari/internal/intent"
	"github.com/Uttutt17/akari/internal/viz"
)

// decisionResponse mirrors the JSON returned by the process, choose and
// explanation endpoints. Optional sections stay nil when absent.
type decisionResponse struct {
	Intent        intent.Result    `json:"intent"`
	Visualization viz.Payload      `json:"visualization"`
	PreDecision   *gate.Result     `json:"pre_decision"`
	Explanation   *explain.Response `json:"explanation"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample product catalog into storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := catalog.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		for _, p := range ingest.SampleProducts() {
			if err := store.SaveProduct(p); err != nil {
				return fmt.Errorf("saving %s: %w", p.ProductID, err)
			}
			printSuccess("seeded %s (%s)", p.Name, p.ProductID)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a product catalog CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		url, _ := cmd.Flags().GetString("url")
		if file == "" && url == "" {
			return fmt.Errorf("either --file or --url is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{}
		if url != "" {
			body["source"] = url
			body["url"] = url
		} else {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			body["source"] = filepath.Base(file)
			body["content"] = base64.StdEncoding.EncodeToString(data)
			body["encoding"] = "base64"
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := client.post(ctx, "/api/v1/catalog/import", body)
		if err != nil {
			return err
		}
		var result struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("import queued (doc %s)", result.ID)
		printStep("run 'akari products' once the worker has picked it up")
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a decision-support query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queryText := strings.Join(args, " ")
		productsFlag, _ := cmd.Flags().GetString("products")
		choose, _ := cmd.Flags().GetBool("choose")
		explainFlag, _ := cmd.Flags().GetBool("explain")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"query": queryText}
		if productsFlag != "" {
			var ids []string
			for _, id := range strings.Split(productsFlag, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
			body["product_ids"] = ids
		}

		path := "/api/v1/intent/process"
		if choose {
			path = "/api/v1/intent/choose"
		} else if explainFlag {
			path = "/api/v1/explanation/full"
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		resp, err := client.post(ctx, path, body)
		if err != nil {
			return err
		}
		var result decisionResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printDecision(result)
		return nil
	},
}

func printDecision(r decisionResponse) {
	printStatus("Intent", "%s (confidence %.2f)", r.Intent.IntentType, r.Intent.Confidence)
	if len(r.Intent.DetectedProducts) > 0 {
		printStatus("Products", "%s", strings.Join(r.Intent.DetectedProducts, ", "))
	}
	if r.Intent.ExtractedContext.UsageContext != "" {
		printStatus("Context", "%s", r.Intent.ExtractedContext.UsageContext)
	}

	v := r.Visualization
	if v.Message != "" {
		printWarning("%s", v.Message)
	}
	if len(v.SelectedAttributes) > 0 {
		printStatus("Attributes", "%s", strings.Join(v.SelectedAttributes, ", "))
	}
	if len(v.VisualEffects) > 0 {
		names := make([]string, len(v.VisualEffects))
		for i, e := range v.VisualEffects {
			names[i] = string(e)
		}
		printStatus("Effects", "%s", strings.Join(names, ", "))
	}
	for id, attrs := range v.Data.Products {
		printStep("%s:", id)
		for _, attr := range v.SelectedAttributes {
			if val, ok := attrs[attr]; ok {
				fmt.Printf("    %s: %s\n", attr, val)
			}
		}
	}

	if r.PreDecision != nil {
		if r.PreDecision.Passed {
			printSuccess("pre-decision gate passed")
		} else {
			printError("pre-decision gate failed")
		}
		fmt.Printf("  %s\n", r.PreDecision.Message)
		if c := r.PreDecision.Checks; c != nil {
			printCheck("attribute completeness", c.AttributeCompleteness.Passed, c.AttributeCompleteness.Message)
			printCheck("user context", c.UserContext.Passed, c.UserContext.Message)
			printCheck("visualization ready", c.VisualizationReady.Passed, c.VisualizationReady.Message)
			printCheck("decision confidence", c.DecisionConfidence.Passed, c.DecisionConfidence.Message)
		}
	}

	if r.Explanation != nil {
		fmt.Println()
		fmt.Println(r.Explanation.Explanation)
		if !r.Explanation.SourceDataVerified {
			printWarning("explanation could not be verified against source data")
		}
	}
}

func printCheck(name string, passed bool, message string) {
	if passed {
		printSuccess("%s: %s", name, message)
	} else {
		printError("%s: %s", name, message)
	}
}

var productsCmd = &cobra.Command{
	Use:   "products [id]",
	Short: "List products, or show one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if len(args) == 1 {
			resp, err := client.get(ctx, "/api/v1/catalog/products/"+args[0])
			if err != nil {
				return err
			}
			var p catalog.Product
			if err := decodeJSON(resp, &p); err != nil {
				return err
			}
			printStatus("ID", "%s", p.ProductID)
			printStatus("Name", "%s", p.Name)
			if p.Category != "" {
				printStatus("Category", "%s", p.Category)
			}
			for name, val := range p.Attributes {
				fmt.Printf("  %s: %s\n", name, val)
			}
			for _, a := range p.Assets {
				printStep("asset %s: %s", a.AssetType, a.URL)
			}
			return nil
		}

		resp, err := client.get(ctx, "/api/v1/catalog/products")
		if err != nil {
			return err
		}
		var products []catalog.Product
		if err := decodeJSON(resp, &products); err != nil {
			return err
		}
		if len(products) == 0 {
			printWarning("no products in catalog; run 'akari seed' or 'akari import'")
			return nil
		}
		for _, p := range products {
			fmt.Printf("%-20s %s\n", p.ProductID, p.Name)
		}
		return nil
	},
}

var deleteProductCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if _, err := client.delete(ctx, "/api/v1/catalog/products/"+args[0]); err != nil {
			return err
		}
		printSuccess("deleted %s", args[0])
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			fmt.Printf("%-24s %-30s %v\n", info.Key, info.EnvVar, info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			printStep("valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			return err
		}
		printSuccess("set %s", args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "path to a catalog CSV file")
	importCmd.Flags().String("url", "", "URL of a catalog CSV")

	queryCmd.Flags().String("products", "", "comma-separated product IDs (skips extraction)")
	queryCmd.Flags().Bool("choose", false, "evaluate the pre-decision gate")
	queryCmd.Flags().Bool("explain", false, "generate a natural-language explanation")

	productsCmd.AddCommand(deleteProductCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/internal/config"
)

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic chat log records",
	Long: `Generate synthetic chat log records and store them.

Examples:
  chatlens generate --count 500
  chatlens generate --count 1000 --seed 42 --replace`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		seed, _ := cmd.Flags().GetInt64("seed")
		replace, _ := cmd.Flags().GetBool("replace")

		body := map[string]any{"count": count, "replace": replace}
		if seed != 0 {
			body["seed"] = seed
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/generate", body)
		if err != nil {
			return err
		}

		var result struct {
			Generated int   `json:"generated"`
			Inserted  int   `json:"inserted"`
			Failed    int   `json:"failed"`
			Seed      int64 `json:"seed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Generated %d records (seed %d)", result.Generated, result.Seed)
		if result.Failed > 0 {
			printWarning("%d records failed to insert", result.Failed)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("count", 500, "number of records to generate")
	generateCmd.Flags().Int64("seed", 0, "RNG seed for reproducible output (default: time-based)")
	generateCmd.Flags().Bool("replace", false, "replace existing records instead of appending")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest chat log data from a JSON file",
	Long: `Ingest chat log data from a JSON file.

The file holds either an array of row objects (CSV-shaped records with
any of the supported column names or their aliases) or, with
--conversations, an array of raw conversations to pair into records.

Examples:
  chatlens ingest --file rows.json
  chatlens ingest --file rows.json --async
  chatlens ingest --file convos.json --conversations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		conversations, _ := cmd.Flags().GetBool("conversations")
		async, _ := cmd.Flags().GetBool("async")

		if file == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if conversations {
			var convos []json.RawMessage
			if err := json.Unmarshal(data, &convos); err != nil {
				return fmt.Errorf("invalid conversations file: %w", err)
			}

			resp, err := client.post(cmd.Context(), "/ingest/conversations", map[string]any{
				"conversations": convos,
			})
			if err != nil {
				return err
			}

			var result struct {
				Inserted int `json:"inserted_records"`
				Failed   int `json:"failed_conversations"`
			}
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}

			printSuccess("Ingested %d records from %d conversations", result.Inserted, len(convos)-result.Failed)
			if result.Failed > 0 {
				printWarning("%d conversations were invalid", result.Failed)
			}
			return nil
		}

		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("invalid rows file: %w", err)
		}

		resp, err := client.post(cmd.Context(), "/ingest/records", map[string]any{
			"rows":  rows,
			"async": async,
		})
		if err != nil {
			return err
		}

		if async {
			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}
			printSuccess("Queued import job %s (%d rows)", result["job_id"], len(rows))
			return nil
		}

		var result struct {
			Inserted int `json:"inserted"`
			Failed   int `json:"failed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Inserted %d records", result.Inserted)
		if result.Failed > 0 {
			printWarning("%d rows failed to insert", result.Failed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("file", "", "JSON file to ingest")
	ingestCmd.Flags().Bool("conversations", false, "treat the file as raw conversations")
	ingestCmd.Flags().Bool("async", false, "queue the import as a background job")
}

// --- records ---

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored records with dashboard filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := url.Values{}
		for _, param := range []string{"search", "sentiment", "category", "location", "device", "ad_clicked"} {
			flag := strings.ReplaceAll(param, "_", "-")
			if val, _ := cmd.Flags().GetString(flag); val != "" {
				v.Set(param, val)
			}
		}
		// The flag is 1-based for operators; the API pages from 0.
		if page, _ := cmd.Flags().GetInt("page"); page > 0 {
			v.Set("page", strconv.Itoa(page-1))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/records"
		if len(v) > 0 {
			path += "?" + v.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var page struct {
			Records []struct {
				ID              string `json:"id"`
				Timestamp       string `json:"timestamp"`
				UserMessage     string `json:"user_message"`
				UserSentiment   string `json:"user_sentiment"`
				MessageCategory string `json:"message_category"`
				AdClicked       bool   `json:"ad_clicked"`
			} `json:"records"`
			Number     int `json:"page"`
			TotalPages int `json:"total_pages"`
			Total      int `json:"total"`
		}
		if err := decodeJSON(resp, &page); err != nil {
			return err
		}

		if page.Total == 0 {
			fmt.Println("No records found.")
			return nil
		}

		for _, r := range page.Records {
			clicked := " "
			if r.AdClicked {
				clicked = colorize(colorGreen, "●")
			}
			msg := r.UserMessage
			if len(msg) > 60 {
				msg = msg[:60] + "..."
			}
			fmt.Printf("%s  %s  %-8s  %-22s %s %s\n",
				colorize(colorCyan, shortID(r.ID)),
				r.Timestamp,
				r.UserSentiment,
				r.MessageCategory,
				clicked,
				msg,
			)
		}
		fmt.Printf("\nPage %d of %d (%d records)\n", page.Number+1, page.TotalPages, page.Total)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	recordsCmd.Flags().Int("page", 0, "page number, starting at 1")
	recordsCmd.Flags().String("search", "", "substring search over messages")
	recordsCmd.Flags().String("sentiment", "", "filter by sentiment")
	recordsCmd.Flags().String("category", "", "filter by conversation category")
	recordsCmd.Flags().String("location", "", "filter by user location")
	recordsCmd.Flags().String("device", "", "filter by device type")
	recordsCmd.Flags().String("ad-clicked", "", "filter by ad click (true/false)")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show whole-table statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/stats")
		if err != nil {
			return err
		}

		var stats any
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

// --- insight ---

var insightCmd = &cobra.Command{
	Use:   "insight <question>",
	Short: "Answer an analytics question in natural language",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/insights", map[string]any{"query": query})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["insight"])
		printStatus("Source", "%s", result["source"])
		return nil
	},
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show suggested analytics questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/suggestions")
		if err != nil {
			return err
		}

		var result struct {
			Questions []string `json:"questions"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for i, q := range result.Questions {
			fmt.Printf("%s %s\n", colorize(colorBold, fmt.Sprintf("%2d.", i+1)), q)
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export filtered records as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/records/export")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		if _, err := io.Copy(writer, resp.Body); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		if output != "" {
			printSuccess("Records exported to %s", output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

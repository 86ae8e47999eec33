package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Convert
// =============================================================================

type convertOptions struct {
	source         string
	table          string
	documentsTable string
	passagesTable  string
	collection string
	outputDir  string
	indexTable string
	maxDocs    int
	prefix     string
	publishURL string
}

func buildConvertCmd(app *cliApp) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a Natural Questions table into sharded JSON-lines collections",
		Long: `Convert reads a collection table row by row, assigns each row a sequential
id, writes {"id","contents"} records into shard files of at most
--max-docs-per-file records, and writes a lookup table mapping every id back
to its document and passage.

Passages are read from the "elements" table and full documents from the
"documents" table unless --table, --passages-table or --documents-table say
otherwise.`,
		Example: `  nqbench convert --collection-path data/NQ.xlsx --table elements \
      --output-folder collection --index-table collection/index_table.json
  nqbench convert --collection-path sqlite://data/nq.db --collection both \
      --documents-table documents --passages-table elements \
      --output-folder collections --index-table tables --publish s3://nq-bench/v1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, app, opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "collection-path", "", "Tabular source: .csv, .tsv, .jsonl, .xlsx, .db, sqlite:// or postgres:// URL")
	cmd.Flags().StringVar(&opts.table, "table", "", "Sheet or table for every collection (default \"documents\" or \"elements\" per collection)")
	cmd.Flags().StringVar(&opts.documentsTable, "documents-table", "", "Sheet or table holding the full documents")
	cmd.Flags().StringVar(&opts.passagesTable, "passages-table", "", "Sheet or table holding the passage elements")
	cmd.Flags().StringVar(&opts.collection, "collection", "", "Collection to build: passages, documents or both (default \"passages\")")
	cmd.Flags().StringVar(&opts.outputDir, "output-folder", "", "Directory that receives the shard files")
	cmd.Flags().StringVar(&opts.indexTable, "index-table", "", "Lookup table path (.json) or directory for index_table.json")
	cmd.Flags().IntVar(&opts.maxDocs, "max-docs-per-file", 0, "Maximum records per shard (default 1000000)")
	cmd.Flags().StringVar(&opts.prefix, "shard-prefix", "", "Shard file name prefix (default \"docs\")")
	cmd.Flags().StringVar(&opts.publishURL, "publish", "", "Upload shards and lookup table to s3://bucket/prefix after converting")
	return cmd
}

// =============================================================================
// Evaluate
// =============================================================================

type evaluateOptions struct {
	examples   string
	table      string
	indexes    []string
	lookups    []string
	ks         []string
	names      []string
	criteria   []string
	combined   bool
	output     string
	keepCases  bool
	queryCol   string
	docIDCol   string
	contextCol string
}

func buildEvaluateCmd(app *cliApp) *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Measure top-k retrieval recall of one or more indexes",
		Long: `Evaluate runs every question of the examples table against each index,
resolves the returned ids through the matching lookup table, and counts a
question as answered when one of the top k results matches its gold document
(and gold passage, for the passage criterion).

--index, --lookup, --k, --name and --criterion may be repeated, once per
retriever. A single --k or --criterion applies to every retriever. A --k
value may list several cutoffs ("1,5,10"); recall is reported at each and the
largest is the retriever's k.`,
		Example: `  nqbench evaluate --examples data/examples.csv --index bluge:indexes/passages \
      --lookup collection/index_table.json --k 10
  nqbench evaluate --examples data/NQ.xlsx --table examples \
      --index http://localhost:8081#nq-docs --lookup tables/documents/index_table.json --criterion document \
      --index http://localhost:8081#nq-passages --lookup tables/passages/index_table.json --criterion passage \
      --k 5 --combined --output report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, app, opts)
		},
	}
	cmd.Flags().StringVar(&opts.examples, "examples", "", "Tabular source holding the questions")
	cmd.Flags().StringVar(&opts.table, "table", "", "Sheet or table holding the questions (default \"examples\")")
	cmd.Flags().StringArrayVar(&opts.indexes, "index", nil, "Index as KIND:LOCATION[#NAME] (bluge, http, sqlite); repeatable")
	cmd.Flags().StringArrayVar(&opts.lookups, "lookup", nil, "Lookup table (.json or compiled .db) for the matching --index; repeatable")
	cmd.Flags().StringArrayVar(&opts.ks, "k", nil, "Number of results inspected, or a list of cutoffs; repeatable")
	cmd.Flags().StringArrayVar(&opts.names, "name", nil, "Retriever name for reports; repeatable")
	cmd.Flags().StringArrayVar(&opts.criteria, "criterion", nil, "Match criterion: passage or document; repeatable")
	cmd.Flags().BoolVar(&opts.combined, "combined", false, "Also report the experimental combined document and passage cross-check")
	cmd.Flags().StringVar(&opts.output, "output", "", "Write JSON report to file (optional)")
	cmd.Flags().BoolVar(&opts.keepCases, "keep-cases", false, "Include per-question results in the JSON report")
	cmd.Flags().StringVar(&opts.queryCol, "query-column", "", "Question text column (default \"query\")")
	cmd.Flags().StringVar(&opts.docIDCol, "doc-id-column", "", "Gold document id column (default \"doc_id\")")
	cmd.Flags().StringVar(&opts.contextCol, "context-id-column", "", "Gold passage id column (default \"context_id\")")
	return cmd
}

// =============================================================================
// Lookup
// =============================================================================

func buildLookupCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Inspect and compile lookup tables",
	}
	cmd.AddCommand(buildLookupCompileCmd(app), buildLookupGetCmd(app))
	return cmd
}

func buildLookupCompileCmd(app *cliApp) *cobra.Command {
	var src, dst string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a JSON lookup table into a bbolt database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookupCompile(cmd, app, src, dst)
		},
	}
	cmd.Flags().StringVar(&src, "lookup", "", "JSON lookup table to compile")
	cmd.Flags().StringVar(&dst, "out", "", "Destination database (.db)")
	cobra.CheckErr(cmd.MarkFlagRequired("lookup"))
	cobra.CheckErr(cmd.MarkFlagRequired("out"))
	return cmd
}

func buildLookupGetCmd(app *cliApp) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: "Print lookup entries for record ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookupGet(cmd, path, args)
		},
	}
	cmd.Flags().StringVar(&path, "lookup", "", "Lookup table (.json or compiled .db)")
	cobra.CheckErr(cmd.MarkFlagRequired("lookup"))
	return cmd
}

// =============================================================================
// Config
// =============================================================================

func buildConfigCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(buildConfigSchemaCmd(), buildConfigValidateCmd(app))
	return cmd
}

func buildConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "schema",
		Short:       "Print the JSON Schema of the configuration file",
		Annotations: map[string]string{"config": "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSchema(cmd)
		},
	}
}

func buildConfigValidateCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate a configuration file",
		Annotations: map[string]string{"config": "optional"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, app)
		},
	}
}

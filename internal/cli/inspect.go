package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/fsutil"
	"github.com/yaklabco/perlparse/pkg/parser"
	"github.com/yaklabco/perlparse/pkg/reporter"
	"github.com/yaklabco/perlparse/pkg/runner"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// stdinPath names standard input as a FILE argument.
const stdinPath = "-"

type inspectFlags struct {
	format   string
	compact  bool
	maxDepth int
	kinds    []string
}

func (f *inspectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: text, json, yaml, cbor, sexp")
	cmd.Flags().BoolVar(&f.compact, "compact", false, "compact JSON output")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum nesting depth")
}

// inspection is a parsed FILE argument ready to print.
type inspection struct {
	path   string
	snap   *syntax.Snapshot
	format config.OutputFormat
	styles *pretty.Styles
	width  int
	out    io.Writer
}

func (a *app) inspect(cmd *cobra.Command, path string, flags *inspectFlags) (*inspection, error) {
	cli := &config.Config{}
	if flags.format != "" {
		format, err := config.ParseFormat(flags.format)
		if err != nil {
			return nil, &ExitError{Code: ExitInvalidUsage, Err: err}
		}
		cli.Format = format
	}
	if cmd.Flags().Changed("max-depth") {
		cli.Parser.MaxDepth = flags.maxDepth
	}

	loaded, err := a.loadConfig(cmd, cli)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config

	name, content, err := a.readSource(path)
	if err != nil {
		return nil, &ExitError{Code: ExitIOError, Err: err}
	}

	snap, _ := parser.Parse(name, content, runner.ParserOptions(cfg)...)
	logging.FromContext(cmd.Context()).Debug("parsed",
		logging.FieldPath, name,
		logging.FieldTokens, len(snap.Tokens),
		logging.FieldHeredocs, len(snap.Heredocs),
		logging.FieldErrors, len(snap.Errors))

	out := cmd.OutOrStdout()
	return &inspection{
		path:   name,
		snap:   snap,
		format: cfg.Format,
		styles: pretty.NewStyles(pretty.IsColorEnabled(cfg.Color, out)),
		width:  pretty.TerminalWidth(out),
		out:    out,
	}, nil
}

func (a *app) readSource(path string) (string, string, error) {
	if path == stdinPath {
		data, err := io.ReadAll(a.env.stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	if !filepath.IsAbs(path) {
		workDir, err := a.workDir()
		if err != nil {
			return "", "", err
		}
		path = filepath.Join(workDir, path)
	}
	data, _, err := fsutil.ReadFile(a.env.fs, path)
	if err != nil {
		return "", "", err
	}
	return path, string(data), nil
}

// writeErrors lists parse errors on w in text form.
func (in *inspection) writeErrors(w io.Writer) {
	for _, perr := range in.snap.Errors {
		fmt.Fprint(w, in.styles.FormatParseError(in.path, in.snap, perr, true))
	}
}

func newTreeCommand(a *app) *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the syntax tree of a file",
		Long: `Print the syntax tree of a file. Use - to read standard input.

Text and sexp formats print an indented S-expression; structured formats
print the tree as a flat node list in pre-order with parent indexes.

Examples:
  perlparse tree lib/Foo.pm
  perlparse tree --kind Sub lib/Foo.pm      # Only sub definitions
  echo 'print 1;' | perlparse tree -f json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, a, args[0], flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&flags.kinds, "kind", nil, "only print subtrees of these node kinds")
	return cmd
}

func runTree(cmd *cobra.Command, a *app, path string, flags *inspectFlags) error {
	kinds := make(map[syntax.NodeKind]bool, len(flags.kinds))
	for _, name := range flags.kinds {
		kind, ok := syntax.ParseNodeKind(name)
		if !ok {
			return exitError(ExitInvalidUsage, "unknown node kind %q", name)
		}
		kinds[kind] = true
	}

	in, err := a.inspect(cmd, path, flags)
	if err != nil {
		return err
	}

	roots := []*syntax.Node{in.snap.Root}
	if len(kinds) > 0 {
		roots = syntax.FindAll(in.snap.Root, func(n *syntax.Node) bool { return kinds[n.Kind] })
	}

	if reporter.IsStructured(in.format) {
		doc := reporter.NewFileDoc(in.path, in.snap, reporter.DocOptions{Tree: true})
		if len(kinds) > 0 {
			doc.Nodes = doc.Nodes[:0]
			for _, root := range roots {
				sub := &syntax.Snapshot{Root: root}
				doc.Nodes = append(doc.Nodes, reporter.Nodes(sub)...)
			}
		}
		if err := reporter.Encode(in.out, in.format, doc, flags.compact); err != nil {
			return err
		}
	} else {
		for _, root := range roots {
			if err := reporter.WriteSexp(in.out, root, in.styles); err != nil {
				return err
			}
		}
		in.writeErrors(cmd.ErrOrStderr())
	}

	if in.snap.HasErrors() {
		return ErrParseErrorsFound
	}
	return nil
}

func newTokensCommand(a *app) *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "List the tokens the parser consumed",
		Long: `List the significant tokens of a file with their positions and kinds.
Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.inspect(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if reporter.IsStructured(in.format) {
				return reporter.Encode(in.out, in.format, reporter.Tokens(in.snap), flags.compact)
			}
			_, err = fmt.Fprint(in.out, reporter.TokenTable(in.styles, in.width, in.snap).String())
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newHeredocsCommand(a *app) *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "heredocs FILE",
		Short: "List heredoc declarations",
		Long: `List the heredoc declarations of a file with their terminators, flags and
bodies. Dangling heredocs, whose terminator never appears, are flagged.
Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.inspect(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if reporter.IsStructured(in.format) {
				docs := reporter.Heredocs(in.snap)
				if docs == nil {
					docs = []reporter.HeredocDoc{}
				}
				return reporter.Encode(in.out, in.format, docs, flags.compact)
			}
			table := reporter.HeredocTable(in.styles, in.width, in.snap)
			if table.Len() == 0 {
				_, err = fmt.Fprintln(in.out, in.styles.Dim.Render("No heredocs."))
				return err
			}
			_, err = fmt.Fprint(in.out, table.String())
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

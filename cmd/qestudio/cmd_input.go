package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"qestudio/internal/audit"
	"qestudio/internal/config"
	"qestudio/internal/input"
	"qestudio/internal/namelist"
	"qestudio/internal/param"
	"qestudio/internal/periodic"
	"qestudio/internal/pseudo"
	"qestudio/internal/tracer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	showShadows bool

	editSets    []string
	editRemoves []string
	editOutput  string
)

// errViolations makes check exit non-zero without printing usage.
var errViolations = errors.New("input violates consistency rules")

// showCmd prints the normalized input
var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print an input file after the consistency rules have run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// editCmd applies edits through the rules
var editCmd = &cobra.Command{
	Use:   "edit FILE",
	Short: "Apply edits to an input file",
	Long: `Applies --set and --remove edits in order. Each edit goes through the
consistency rules, so e.g. --set system.noncolin=.true. drops nspin.

Example:
  qestudio edit pw.in --set system.nspin=2 --remove system.tot_magnetization -o pw.in`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

// checkCmd audits an input file
var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Report rule invariants the file violates",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func currentConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// documentOptions wires the pseudopotential index into the species rule when
// one has been built. The returned function releases it.
func documentOptions() (input.Options, func(), error) {
	c := currentConfig()
	opts := input.Options{
		Library: pseudo.None{},
		Table:   periodic.Default,
		Broadening: tracer.Broadening{
			Width: c.DOS.DefaultDegauss,
			Index: c.DOS.DefaultNgauss,
		},
	}

	path := config.Resolve(workspace, c.Pseudo.IndexPath)
	if _, err := os.Stat(path); err != nil {
		currentLogger().Debug("No pseudopotential index", zap.String("path", path))
		return opts, func() {}, nil
	}
	idx, err := openIndex()
	if err != nil {
		return opts, nil, err
	}
	opts.Library = idx
	return opts, func() { _ = idx.Close() }, nil
}

// readInput parses the file at path.
func readInput(path string) (*namelist.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := namelist.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// loadDocument builds a document holding exactly what the file at path says.
// The rules have not run yet; call Activate on the result.
func loadDocument(path string) (*input.Document, func(), error) {
	file, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}

	opts, release, err := documentOptions()
	if err != nil {
		return nil, nil, err
	}
	doc := input.New(opts)
	if err := doc.Populate(file); err != nil {
		release()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	currentLogger().Debug("Loaded input",
		zap.String("path", path),
		zap.String("document", doc.ID),
		zap.Int("atoms", doc.Positions.Len()))
	return doc, release, nil
}

// openDocument loads path and runs the consistency rules over it.
func openDocument(path string) (*input.Document, func(), error) {
	doc, release, err := loadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	doc.Activate()
	return doc, release, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	doc, release, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer release()

	if err := namelist.Render(cmd.OutOrStdout(), doc.File()); err != nil {
		return err
	}
	if showShadows {
		printShadows(cmd.ErrOrStderr(), doc)
	}
	return nil
}

func printShadows(w io.Writer, doc *input.Document) {
	for _, s := range doc.Shadows() {
		fmt.Fprintf(w, "%s %s.%s%s = %s\n",
			mutedStyle.Render("shadow"), s.Namelist, param.ShadowMarker, s.Key,
			namelist.FormatValue(s.Value))
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	doc, release, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer release()

	for _, a := range editSets {
		nl, key, text, err := splitAssignment(a)
		if err != nil {
			return err
		}
		if err := doc.Set(nl, key, editValue(text)); err != nil {
			return fmt.Errorf("--set %s: %w", a, err)
		}
		currentLogger().Debug("Set", zap.String("namelist", nl), zap.String("key", key), zap.String("value", text))
	}
	for _, a := range editRemoves {
		nl, key, err := splitTarget(a)
		if err != nil {
			return err
		}
		if err := doc.Remove(nl, key); err != nil {
			return fmt.Errorf("--remove %s: %w", a, err)
		}
		currentLogger().Debug("Removed", zap.String("namelist", nl), zap.String("key", key))
	}

	if editOutput == "" {
		return namelist.Render(cmd.OutOrStdout(), doc.File())
	}
	out, err := os.Create(editOutput)
	if err != nil {
		return err
	}
	if err := namelist.Render(out, doc.File()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s\n", successStyle.Render("✓"), editOutput)
	return nil
}

// editValue reads text as a namelist literal; anything else is a bare string.
func editValue(text string) param.Value {
	v, err := namelist.ParseValue(text)
	if err != nil {
		return param.String(text)
	}
	return v
}

func splitAssignment(a string) (nl, key, value string, err error) {
	target, value, ok := strings.Cut(a, "=")
	if !ok {
		return "", "", "", fmt.Errorf("--set %q: want namelist.key=value", a)
	}
	nl, key, err = splitTarget(strings.TrimSpace(target))
	return nl, key, strings.TrimSpace(value), err
}

func splitTarget(t string) (nl, key string, err error) {
	nl, key, ok := strings.Cut(t, ".")
	if !ok || nl == "" || key == "" {
		return "", "", fmt.Errorf("%q: want namelist.key", t)
	}
	return nl, key, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	doc, release, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	defer release()

	auditor, err := audit.New()
	if err != nil {
		return err
	}
	violations, err := auditor.Check(doc)
	if err != nil {
		return err
	}

	// The rules must settle whatever the file got wrong.
	doc.Activate()
	remaining, err := auditor.Check(doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(violations) == 0 && len(remaining) == 0 {
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("✓"), args[0])
		return nil
	}
	if len(violations) > 0 {
		fmt.Fprintf(out, "%s %s: %d violations\n", errorStyle.Render("✗"), args[0], len(violations))
		printViolations(out, violations)
	}
	if len(remaining) > 0 {
		fmt.Fprintf(out, "%s %d violations remain after the rules ran\n", errorStyle.Render("✗"), len(remaining))
		printViolations(out, remaining)
	} else {
		fmt.Fprintf(out, "  %s\n", mutedStyle.Render("qestudio edit resolves all of them"))
	}
	currentLogger().Info("Checked input",
		zap.String("path", args[0]),
		zap.Int("violations", len(violations)),
		zap.Int("remaining", len(remaining)))
	return errViolations
}

func printViolations(w io.Writer, violations []audit.Violation) {
	for _, v := range violations {
		fmt.Fprintf(w, "  %s %s\n", ruleStyle.Render(v.Rule), v.Subject)
	}
}

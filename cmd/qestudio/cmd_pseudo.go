package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"qestudio/internal/config"
	"qestudio/internal/pseudo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pseudoCmd groups the pseudopotential library commands
var pseudoCmd = &cobra.Command{
	Use:   "pseudo",
	Short: "Manage the pseudopotential library index",
}

var pseudoScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Re-index the configured pseudopotential directories",
	Args:  cobra.NoArgs,
	RunE:  runPseudoScan,
}

var pseudoResolveCmd = &cobra.Command{
	Use:   "resolve SYMBOL",
	Short: "Show the indexed files for an element, best first",
	Args:  cobra.ExactArgs(1),
	RunE:  runPseudoResolve,
}

var pseudoWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the library directories until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runPseudoWatch,
}

func openIndex() (*pseudo.Index, error) {
	c := currentConfig()
	return pseudo.Open(config.Resolve(workspace, c.Pseudo.IndexPath), pseudo.Options{
		PreferredTags: c.Pseudo.PreferredTags,
		Extensions:    c.Pseudo.Extensions,
		ScanWorkers:   c.Pseudo.ScanWorkers,
	})
}

// commandContext is cmd.Context(), or Background for a command that was not
// started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func pseudoDirs() []string {
	c := currentConfig()
	dirs := make([]string, 0, len(c.Pseudo.Dirs))
	for _, d := range c.Pseudo.Dirs {
		dirs = append(dirs, config.Resolve(workspace, d))
	}
	return dirs
}

func runPseudoScan(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	dirs := pseudoDirs()
	n, err := idx.Scan(commandContext(cmd), dirs...)
	if err != nil {
		return err
	}
	currentLogger().Info("Scan complete", zap.Int("files", n), zap.Strings("dirs", dirs))
	fmt.Fprintf(cmd.OutOrStdout(), "%s indexed %d pseudopotentials from %d directories\n",
		successStyle.Render("✓"), n, len(dirs))
	return nil
}

func runPseudoResolve(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	entries, err := idx.List(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "%s no pseudopotential for %s\n", errorStyle.Render("✗"), args[0])
		return nil
	}
	for i, e := range entries {
		marker := " "
		if i == 0 {
			marker = successStyle.Render("*")
		}
		fmt.Fprintf(out, "%s %s %s\n", marker, e.File, mutedStyle.Render(strings.Join(e.Tags, ",")))
	}
	return nil
}

func runPseudoWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	dirs := pseudoDirs()
	if _, err := idx.Scan(ctx, dirs...); err != nil {
		return err
	}

	w, err := pseudo.NewWatcher(idx, dirs)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", strings.Join(dirs, ", "))

	<-ctx.Done()
	w.Stop()

	st := w.Stats()
	currentLogger().Info("Watcher stopped",
		zap.Int("indexed", st.Indexed),
		zap.Int("removed", st.Removed),
		zap.Int("errors", st.Errors))
	return nil
}

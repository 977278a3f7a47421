package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"morphoprofile/internal/models"
	"morphoprofile/pkg/analysis"
)

var (
	moves    []string
	merges   []string
	splits   []string
	unmerges []string
)

// segmentCmd edits the segmentation of a saved result.
var segmentCmd = &cobra.Command{
	Use:   "segment <dataset.yaml>",
	Short: "Edit the consensus segmentation of a saved result",
	Long: `Re-open the result saved for a dataset and apply segment edits to the
consensus. Every edit is propagated to each outline and the result is saved
again.

Edits run in this order:
  --unmerge id        Restore the segments a merged segment was made from
  --merge a,b         Merge segment a with the segment b that follows it
  --split id@index    Split a segment at a consensus index (id alone splits at the midpoint)
  --move id=index     Move the start of a segment`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits, err := parseEdits()
		if err != nil {
			return err
		}
		if len(edits) == 0 {
			return fmt.Errorf("no edits given")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		params := analysis.ParamsFromConfig(cfg, args[0])
		resultPath := filepath.Join(params.OutputDir, analysis.ResultFile)
		saved, err := models.LoadResult(resultPath)
		if err != nil {
			return err
		}

		a := analysis.NewAnalyzer(params)
		if err := a.Restore(cmd.Context(), saved); err != nil {
			return fmt.Errorf("failed to restore %s: %w", resultPath, err)
		}
		if err := a.Apply(edits...); err != nil {
			return err
		}
		for _, s := range a.Result().Segments {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d\n", s.ID, s.Start, s.End)
		}
		return nil
	},
}

func parseEdits() ([]analysis.Edit, error) {
	var edits []analysis.Edit
	for _, s := range unmerges {
		e, err := analysis.ParseUnmerge(s)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	for _, s := range merges {
		e, err := analysis.ParseMerge(s)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	for _, s := range splits {
		e, err := analysis.ParseSplit(s)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	for _, s := range moves {
		e, err := analysis.ParseMove(s)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, nil
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	segmentCmd.Flags().StringArrayVar(&moves, "move", nil, "move a segment start, id=index (repeatable)")
	segmentCmd.Flags().StringArrayVar(&merges, "merge", nil, "merge two adjacent segments, a,b (repeatable)")
	segmentCmd.Flags().StringArrayVar(&splits, "split", nil, "split a segment, id@index (repeatable)")
	segmentCmd.Flags().StringArrayVar(&unmerges, "unmerge", nil, "unmerge a segment by id (repeatable)")
}

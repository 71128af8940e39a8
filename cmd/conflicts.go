package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List enrolled students whose faces are within tolerance of each other",
	Long: `List pairs of enrolled students whose reference embeddings are closer than
the match tolerance. A face close to both students of such a pair is always
attributed to the one enrolled first, so these pairs are worth a new photo
or a lower tolerance.

Examples:
  class-attendance conflicts --class 3
  class-attendance conflicts --class 3 --tolerance 0.45 --json`,
	RunE: runConflicts,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)

	conflictsCmd.Flags().Int64("class", 0, "Class ID")
	conflictsCmd.Flags().Float64("tolerance", 0, "Distance below which two students conflict (default from FACE_MATCH_TOLERANCE)")
	conflictsCmd.Flags().Bool("json", false, "Output as JSON")
	_ = conflictsCmd.MarkFlagRequired("class")
}

func runConflicts(cmd *cobra.Command, args []string) error {
	classID := mustGetInt64(cmd, "class")
	tolerance := optionalFloat64(cmd, "tolerance")
	if err := checkTolerance(tolerance); err != nil {
		return err
	}

	_, service, closeStorage, err := setup()
	if err != nil {
		return err
	}
	defer closeStorage()

	pairs, err := service.Conflicts(cmd.Context(), classID, tolerance)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(pairs)
	}
	if len(pairs) == 0 {
		fmt.Println("No conflicting enrollments")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIRST\tSECOND\tDISTANCE")
	fmt.Fprintln(w, "-----\t------\t--------")
	for _, p := range pairs {
		fmt.Fprintf(w, "%s (#%d)\t%s (#%d)\t%.4f\n", p.FirstName, p.First, p.SecondName, p.Second, p.Distance)
	}
	w.Flush()
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Mark today's attendance of a class from a classroom photo",
	Long: `Detect the faces in a classroom frame, match them against the enrolled
students of the class and record today's attendance for every student.

Students matched by a face are present, everyone else is absent. Running the
command again on the same day overwrites the earlier result.

Examples:
  class-attendance mark --class 3 --frame lesson.jpg
  class-attendance mark --class 3 --frame lesson.jpg --tolerance 0.5 --json`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().Int64("class", 0, "Class ID")
	markCmd.Flags().String("frame", "", "Path to the classroom photo")
	markCmd.Flags().Float64("tolerance", 0, "Maximum face distance for a match (default from FACE_MATCH_TOLERANCE)")
	markCmd.Flags().Bool("json", false, "Output as JSON")
	_ = markCmd.MarkFlagRequired("class")
	_ = markCmd.MarkFlagRequired("frame")
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func runMark(cmd *cobra.Command, args []string) error {
	classID := mustGetInt64(cmd, "class")
	frame, err := os.ReadFile(mustGetString(cmd, "frame"))
	if err != nil {
		return fmt.Errorf("reading frame: %w", err)
	}
	tolerance := optionalFloat64(cmd, "tolerance")
	if err := checkTolerance(tolerance); err != nil {
		return err
	}

	_, service, closeStorage, err := setup()
	if err != nil {
		return err
	}
	defer closeStorage()

	result, err := service.MarkFromFrame(cmd.Context(), classID, frame, tolerance)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	printMarkResult(result)
	return nil
}

func printMarkResult(r *classroom.MarkResult) {
	fmt.Printf("Attendance for %s (tolerance %.2f)\n", r.Date, r.Tolerance)
	fmt.Printf("Faces detected: %d, students: %d, present: %d, absent: %d\n\n",
		r.FacesDetected, r.TotalStudents, r.PresentCount, r.AbsentCount)
	if r.TotalStudents == 0 {
		fmt.Println("No enrolled students in this class")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLL\tSTATUS")
	fmt.Fprintln(w, "--\t----\t----\t------")
	printRefs := func(refs []classroom.StudentRef, status string) {
		for _, s := range refs {
			roll := "-"
			if s.RollNumber != nil {
				roll = *s.RollNumber
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Name, roll, status)
		}
	}
	printRefs(r.Present, "present")
	printRefs(r.Absent, "absent")
	w.Flush()
}

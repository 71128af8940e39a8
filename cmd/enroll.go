package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll every photo in a directory into a class",
	Long: `Enroll students in bulk from a directory of reference photos.

Each file becomes one student named after the file (without extension,
underscores become spaces). Every photo must show exactly one clearly
visible face; rejected photos are listed with the reason.

Examples:
  class-attendance enroll --class 3 --dir photos/7b
  class-attendance enroll --class 3 --dir photos/7b --concurrency 8`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("class", 0, "Class ID to enroll into")
	enrollCmd.Flags().String("dir", "", "Directory with one photo per student")
	enrollCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of photos processed in parallel")
	_ = enrollCmd.MarkFlagRequired("class")
	_ = enrollCmd.MarkFlagRequired("dir")
}

var photoExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}

// enrollFailure is a photo that could not be enrolled.
type enrollFailure struct {
	File   string
	Reason string
}

// studentNameFromFile derives the student name from a photo file name.
func studentNameFromFile(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
}

// listPhotos returns the photo files of dir sorted by name.
func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var photos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(photoExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			photos = append(photos, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(photos)
	return photos, nil
}

// enrollFailureReason turns an enrollment error into a short message.
func enrollFailureReason(err error) string {
	var qe *classroom.QualityError
	if errors.As(err, &qe) {
		return qe.Quality.Reason.String()
	}
	return err.Error()
}

func runEnroll(cmd *cobra.Command, args []string) error {
	classID := mustGetInt64(cmd, "class")
	dir := mustGetString(cmd, "dir")
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	photos, err := listPhotos(dir)
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		return fmt.Errorf("no photos found in %s", dir)
	}

	_, service, closeStorage, err := setup()
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := cmd.Context()
	class, err := service.GetClass(ctx, classID)
	if err != nil {
		return fmt.Errorf("class %d: %w", classID, err)
	}
	fmt.Printf("Enrolling %d photos into %q\n", len(photos), class.Name)

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var (
		mu       sync.Mutex
		failures []enrollFailure
		enrolled int
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for _, path := range photos {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			fail := func(reason string) {
				mu.Lock()
				failures = append(failures, enrollFailure{File: filepath.Base(path), Reason: reason})
				mu.Unlock()
			}

			photo, err := os.ReadFile(path)
			if err != nil {
				fail(err.Error())
				return
			}
			_, err = service.Enroll(ctx, classID, classroom.Enrollment{
				Name:  studentNameFromFile(path),
				Photo: photo,
			})
			if err != nil {
				fail(enrollFailureReason(err))
				return
			}
			mu.Lock()
			enrolled++
			mu.Unlock()
		}(path)
	}

	wg.Wait()
	fmt.Println()
	fmt.Printf("\nCompleted: %d enrolled, %d rejected\n", enrolled, len(failures))

	if len(failures) > 0 {
		slices.SortFunc(failures, func(a, b enrollFailure) int { return strings.Compare(a.File, b.File) })
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tREASON")
		fmt.Fprintln(w, "----\t------")
		for _, f := range failures {
			fmt.Fprintf(w, "%s\t%s\n", f.File, f.Reason)
		}
		w.Flush()
	}
	return nil
}

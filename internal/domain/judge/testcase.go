package judge

import (
	"fmt"
	"path/filepath"
)

// Layout names the base directories that hold the numbered fixtures.
type Layout struct {
	FixtureDir string
	InputDir   string
	OutputDir  string
}

// TestCase identifies a single numbered fixture and the files belonging to it.
//
// InputPath is empty when the suite runs without stdin files.
type TestCase struct {
	ID           int
	SourcePath   string
	ExpectedPath string
	InputPath    string
}

// NewTestCase builds the TestCase for id following the testfile{id}/output{id}/input{id}
// naming convention.
func NewTestCase(layout Layout, id int, withInput bool) TestCase {
	tc := TestCase{
		ID:           id,
		SourcePath:   filepath.Join(layout.FixtureDir, FixtureName(id)),
		ExpectedPath: filepath.Join(layout.OutputDir, ExpectedName(id)),
	}
	if withInput {
		tc.InputPath = filepath.Join(layout.InputDir, InputName(id))
	}
	return tc
}

// HasInput reports whether the case carries a stdin file.
func (tc TestCase) HasInput() bool {
	return tc.InputPath != ""
}

// Name is the label used for the case in reports.
func (tc TestCase) Name() string {
	return fmt.Sprintf("testfile%d", tc.ID)
}

func FixtureName(id int) string  { return fmt.Sprintf("testfile%d.txt", id) }
func ExpectedName(id int) string { return fmt.Sprintf("output%d.txt", id) }
func InputName(id int) string    { return fmt.Sprintf("input%d.txt", id) }

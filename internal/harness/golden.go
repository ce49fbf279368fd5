package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs a scenario and compares its rendered forest against
// the golden file testdata/golden/<name>.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()
	res, err := Run(s)
	if err != nil {
		t.Fatal(err)
	}
	if s.Expect.Error != "" {
		// Expected-error scenarios produce no rendering to snapshot.
		return
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, []byte(res.Rendered))
}

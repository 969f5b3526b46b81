// Package cucumber runs the gherkin scenarios in test/features against
// the real component implementations. Grounded on the teacher's
// InitializeScenario/TestFeatures shape (formerly test/cucumber_test.go)
// but scaled down: no spawned process, no object store or database
// fixture, since the report pipeline's literal scenarios are all
// pure-function properties of roi, reconcile, and lmclient.
package cucumber

import (
	"context"
	"testing"

	"github.com/clipmind/video-report/test/steps"
	"github.com/cucumber/godog"
)

func InitializeScenario(sc *godog.ScenarioContext, t *testing.T) {
	var s *steps.StepContext

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s = steps.New(t)
		return ctx, nil
	})

	sc.Step(`^no audio cues and no visual ROI events over a (\d+)s video$`, func(durationS float64) error {
		return s.NoEventsOverDuration(durationS)
	})
	sc.Step(`^ROI fusion runs$`, func() error {
		return s.RunROIFusionDefaults()
	})
	sc.Step(`^no ROI windows are produced$`, func() error {
		return s.ExpectNoWindows()
	})
	sc.Step(`^the orchestrator would skip dense sampling$`, func() error {
		return s.ExpectDenseSamplingSkipped()
	})

	sc.Step(`^audio cues at (\d+)s and (\d+)s over a (\d+)s video$`, func(a, b, durationS float64) error {
		return s.EventsAt(a, b, durationS)
	})
	sc.Step(`^ROI fusion runs with a (\d+)s buffer and a (\d+)s minimum gap$`, func(bufferS, minGapS float64) error {
		return s.RunROIFusion(bufferS, minGapS)
	})
	sc.Step(`^the merged windows are exactly \[\((\d+), (\d+)\)\]$`, func(startS, endS float64) error {
		return s.ExpectMergedWindow(startS, endS)
	})

	sc.Step(`^two transcript chunks that both emit "([^"]*)" rebased to (\d+)s and (\d+)s$`, func(text string, offsetA, offsetB float64) error {
		return s.TwoOverlappingChunks(text, offsetA, offsetB)
	})
	sc.Step(`^transcript segments are deduplicated$`, func() error {
		return s.RunSegmentDedup()
	})
	sc.Step(`^a single segment from (\d+)s to (\d+)s remains$`, func(startS, endS float64) error {
		return s.ExpectSingleSegment(startS, endS)
	})

	sc.Step(`^an analyzer result with (\d+) topics$`, func(n int) error {
		return s.AnalyzerReturnedTopics(n)
	})
	sc.Step(`^synthesis returns only (\d+) topics$`, func(n int) error {
		return s.SynthesizerReturnedTopics(n)
	})
	sc.Step(`^the final topic list has (\d+) topics$`, func(n int) error {
		return s.ExpectFinalTopicCount(n)
	})

	sc.Step(`^an analyzer topic titled "([^"]*)"$`, func(title string) error {
		return s.AnalyzerTopicTitled(title)
	})
	sc.Step(`^the ad filter runs once and then again after synthesis$`, func() error {
		return s.RunAdFilterTwice()
	})
	sc.Step(`^no topic title matches sponsor$`, func() error {
		return s.ExpectNoSponsorTopics()
	})
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) { InitializeScenario(sc, t) },
		Options: &godog.Options{
			TestingT: t,
			Strict:   true,
			Format:   "pretty",
			Paths:    []string{"features"},
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

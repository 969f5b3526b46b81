package lmclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/model"
)

// ClassifyGenre inspects a transcript prefix (capped at 8 kB per
// spec.md §4.4) plus duration and returns a closed-set Genre, a
// confidence in [0,1], and a reason string.
func (c *Client) ClassifyGenre(ctx context.Context, transcriptPrefix string, durationS float64) (model.Genre, float64, string, error) {
	if len(transcriptPrefix) > 8192 {
		transcriptPrefix = transcriptPrefix[:8192]
	}

	prompt := fmt.Sprintf(
		"Classify this video's genre as one of podcast_panel, educational_lecture, interview_qna, vlog, meeting_presentation, single_speaker_general. Duration: %.0fs.\nTranscript prefix:\n%s\nRespond as JSON: {\"genre\": string, \"confidence\": number, \"reason\": string}",
		durationS, transcriptPrefix)

	var result struct {
		Genre      string  `json:"genre"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := c.callJSON(ctx, "classify_genre", []part{textPart(prompt)}, &result); err != nil {
		log.LogNoRequestID("genre classification failed, using unknown", "err", err)
		return model.GenreUnknown, 0, "classification failed", nil
	}
	return model.ParseGenre(result.Genre), result.Confidence, result.Reason, nil
}

// TranscribeChunk transcribes one audio chunk and rebases every returned
// segment's timestamps by startOffsetS. On total LM failure it emits a
// single coarse segment spanning the whole chunk so downstream stages
// never see an empty chunk.
func (c *Client) TranscribeChunk(ctx context.Context, audioPath string, startOffsetS, endOffsetS float64) ([]model.Segment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("reading audio chunk %s: %w", audioPath, err)
	}

	prompt := "Transcribe this audio chunk. Return JSON: {\"segments\": [{\"text\": string, \"start_s\": number, \"end_s\": number, \"speaker\": string, \"confidence\": number}]}"

	var result struct {
		Segments []model.Segment `json:"segments"`
	}
	err = c.callJSON(ctx, "transcribe_chunk", []part{textPart(prompt), audioPartOf(data)}, &result)
	if err != nil || len(result.Segments) == 0 {
		log.LogNoRequestID("chunk transcription failed, emitting coarse placeholder", "path", audioPath, "err", err)
		return []model.Segment{model.Segment{
			Text:   "",
			StartS: 0,
			EndS:   endOffsetS - startOffsetS,
		}.RebaseBy(startOffsetS)}, nil
	}

	rebased := make([]model.Segment, len(result.Segments))
	for i, s := range result.Segments {
		rebased[i] = s.RebaseBy(startOffsetS)
	}
	return rebased, nil
}

func audioPartOf(data []byte) part { return imagePart(data, "audio/wav") }

// TranscriptAnalysis is the structured output of AnalyzeTranscript.
type TranscriptAnalysis struct {
	Topics    []model.Topic `json:"topics"`
	Entities  Entities      `json:"entities"`
	KeyTakeaways []string   `json:"key_takeaways"`
}

// Entities groups the four named-entity buckets spec.md §4.4 requires.
type Entities struct {
	People    []string `json:"people"`
	Companies []string `json:"companies"`
	Concepts  []string `json:"concepts"`
	Tools     []string `json:"tools"`
}

// AnalyzeTranscript splits transcripts over config.TranscriptAnalysisSplitThreshold
// characters into three parts of equal byte length (cut at byte offsets,
// not at token or word boundaries), analyzes each with the full
// duration as context, then merges: concatenating topics and entities,
// deduplicating entities by string equality, and deduplicating topics via
// the caller-supplied dedup function (package reconcile's DedupeTopics).
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript string, durationS float64, genre model.Genre, dedupeTopics func([]model.Topic) []model.Topic) (TranscriptAnalysis, error) {
	parts := splitTranscript(transcript, config.TranscriptAnalysisSplitThreshold)

	var merged TranscriptAnalysis
	seenPeople, seenCompanies, seenConcepts, seenTools := map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}

	for _, chunk := range parts {
		analysis, err := c.analyzeTranscriptChunk(ctx, chunk, durationS, genre)
		if err != nil {
			log.LogNoRequestID("transcript chunk analysis failed, skipping", "err", err)
			continue
		}
		merged.Topics = append(merged.Topics, analysis.Topics...)
		merged.KeyTakeaways = append(merged.KeyTakeaways, analysis.KeyTakeaways...)
		appendUnique(&merged.Entities.People, seenPeople, analysis.Entities.People)
		appendUnique(&merged.Entities.Companies, seenCompanies, analysis.Entities.Companies)
		appendUnique(&merged.Entities.Concepts, seenConcepts, analysis.Entities.Concepts)
		appendUnique(&merged.Entities.Tools, seenTools, analysis.Entities.Tools)
	}

	if dedupeTopics != nil {
		merged.Topics = dedupeTopics(merged.Topics)
	}
	return merged, nil
}

func appendUnique(dst *[]string, seen map[string]bool, src []string) {
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			*dst = append(*dst, s)
		}
	}
}

// splitTranscript divides transcript into roughly equal thirds when it
// exceeds threshold characters, otherwise returns it whole.
func splitTranscript(transcript string, threshold int) []string {
	if len(transcript) <= threshold {
		return []string{transcript}
	}
	third := len(transcript) / 3
	return []string{
		transcript[:third],
		transcript[third : 2*third],
		transcript[2*third:],
	}
}

func (c *Client) analyzeTranscriptChunk(ctx context.Context, chunk string, durationS float64, genre model.Genre) (TranscriptAnalysis, error) {
	prompt := fmt.Sprintf(
		"%s\nAnalyze this transcript chunk. Topics must span the full video duration of %.0fs even though this chunk only covers part of it.\nTranscript:\n%s\nRespond as JSON: {\"topics\":[{\"title\":string,\"start_s\":number,\"end_s\":number,\"summary\":string,\"key_points\":[string]}],\"entities\":{\"people\":[string],\"companies\":[string],\"concepts\":[string],\"tools\":[string]},\"key_takeaways\":[string]}",
		model.GuidanceSnippet(genre), durationS, chunk)

	var result TranscriptAnalysis
	if err := c.callJSON(ctx, "analyze_transcript", []part{textPart(prompt)}, &result); err != nil {
		return TranscriptAnalysis{}, err
	}
	return result, nil
}

// AudioCue is one LM-detected verbal reference to an on-screen visual.
type AudioCue struct {
	TimestampS         float64 `json:"timestamp_s"`
	CuePhrase          string  `json:"cue_phrase"`
	Confidence         string  `json:"confidence"`
	ExpectedVisualType string  `json:"expected_visual_type"`
}

// ScoutAudioCues scans the rendered transcript ("[HH:MM:SS] text" per
// line) for phrases that reference an on-screen visual. Missing output
// is the empty list, not an error.
func (c *Client) ScoutAudioCues(ctx context.Context, renderedTranscript string) []AudioCue {
	prompt := "Find phrases referencing on-screen visuals (e.g. \"as you can see here\", \"this slide\"). Transcript with timestamps:\n" +
		renderedTranscript +
		"\nRespond as JSON: {\"cues\":[{\"timestamp_s\":number,\"cue_phrase\":string,\"confidence\":\"high\"|\"medium\"|\"low\",\"expected_visual_type\":\"slide\"|\"demo\"|\"code\"|\"diagram\"|\"chart\"|\"unknown\"}]}"

	var result struct {
		Cues []AudioCue `json:"cues"`
	}
	if err := c.callJSON(ctx, "scout_audio_cues", []part{textPart(prompt)}, &result); err != nil {
		log.LogNoRequestID("audio cue scout failed, returning empty list", "err", err)
		return nil
	}
	return result.Cues
}

// GatekeeperVerdict is the output of a single-frame gatekeeper call.
type GatekeeperVerdict struct {
	Category           string `json:"category"`
	InformationDensity string `json:"information_density"`
	ContainsText       bool   `json:"contains_text"`
	IsUseful           bool   `json:"is_useful"`
}

// GatekeepFrame evaluates a single sampled frame. On error it returns the
// {category: "error", is_useful: false} sentinel so the caller drops the
// frame without special-casing errors.
func (c *Client) GatekeepFrame(ctx context.Context, imagePath string) GatekeeperVerdict {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return GatekeeperVerdict{Category: "error", IsUseful: false}
	}

	prompt := "Classify this video frame. Respond as JSON: {\"category\":\"slide_presentation\"|\"software_demo\"|\"technical_diagram\"|\"talking_head\"|\"other\",\"information_density\":\"high\"|\"medium\"|\"low\"|\"none\",\"contains_text\":bool,\"is_useful\":bool}"

	var result GatekeeperVerdict
	if err := c.callJSON(ctx, "gatekeep_frame", []part{textPart(prompt), imagePart(data, "image/jpeg")}, &result); err != nil {
		return GatekeeperVerdict{Category: "error", IsUseful: false}
	}
	return result
}

// ClusterDescription is the output of hero selection for one cluster.
type ClusterDescription struct {
	HeroIndex     int      `json:"hero_index"`
	SubTopicTitle string   `json:"sub_topic_title"`
	VisualSummary string   `json:"visual_summary"`
	OCRKeywords   []string `json:"ocr_keywords"`
}

// DescribeCluster picks the hero frame among up to 5 candidates and
// describes the cluster. HeroIndex is validated against candidateCount
// and clamped to 0 if out of range.
func (c *Client) DescribeCluster(ctx context.Context, candidatePaths []string, startS, endS float64) (ClusterDescription, error) {
	parts := []part{textPart(fmt.Sprintf(
		"These %d images are near-duplicate frames spanning %.1fs-%.1fs of a video. Pick the clearest as the hero. Respond as JSON: {\"hero_index\":number,\"sub_topic_title\":string,\"visual_summary\":string,\"ocr_keywords\":[string]}",
		len(candidatePaths), startS, endS))}
	for _, p := range candidatePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		parts = append(parts, imagePart(data, "image/jpeg"))
	}

	var result ClusterDescription
	if err := c.callJSON(ctx, "describe_cluster", parts, &result); err != nil {
		return ClusterDescription{}, err
	}
	if result.HeroIndex < 0 || result.HeroIndex >= len(candidatePaths) {
		result.HeroIndex = 0
	}
	return result, nil
}

// VisualSubTopic is the compact visual-only view of a SubTopic handed to
// MapVisualsToTopics, before it has been assigned to an owning Topic.
type VisualSubTopic struct {
	Title           string
	Summary         string
	TimestampS      float64
	OriginalIndex   int
}

// MapVisualsToTopics assigns up to config.MaxSubTopicsPerTopic visual
// sub-topics to each main topic (by title + range only). If the LM call
// fails, falls back to assigning each sub-topic to the topic whose
// [StartS,EndS] contains its timestamp, truncated to the per-topic cap.
func (c *Client) MapVisualsToTopics(ctx context.Context, topics []model.Topic, subTopics []VisualSubTopic) ([]model.Topic, error) {
	type topicRef struct {
		Title  string  `json:"title"`
		StartS float64 `json:"start_s"`
		EndS   float64 `json:"end_s"`
	}
	refs := make([]topicRef, len(topics))
	for i, t := range topics {
		refs[i] = topicRef{Title: t.Title, StartS: t.StartS, EndS: t.EndS}
	}

	var result struct {
		Assignments []struct {
			TopicIndex       int   `json:"topic_index"`
			SubTopicIndices  []int `json:"sub_topic_indices"`
		} `json:"assignments"`
	}

	var prompt strings.Builder
	prompt.WriteString("Assign each visual sub-topic to the main topic it belongs to, at most 3 distinct sub-topics per topic.\nMain topics:\n")
	for i, r := range refs {
		fmt.Fprintf(&prompt, "%d. %s [%.0fs-%.0fs]\n", i, r.Title, r.StartS, r.EndS)
	}
	prompt.WriteString("Visual sub-topics:\n")
	for i, st := range subTopics {
		fmt.Fprintf(&prompt, "%d. %s: %s (at %.0fs)\n", i, st.Title, st.Summary, st.TimestampS)
	}
	prompt.WriteString("Respond as JSON: {\"assignments\":[{\"topic_index\":number,\"sub_topic_indices\":[number]}]}")
	err := c.callJSON(ctx, "map_visuals_to_topics", []part{textPart(prompt.String())}, &result)

	out := make([]model.Topic, len(topics))
	copy(out, topics)

	if err != nil {
		return fallbackMapVisualsToTopics(out, subTopics), nil
	}

	for _, a := range result.Assignments {
		if a.TopicIndex < 0 || a.TopicIndex >= len(out) {
			continue
		}
		capped := a.SubTopicIndices
		if len(capped) > config.MaxSubTopicsPerTopic {
			capped = capped[:config.MaxSubTopicsPerTopic]
		}
		for _, si := range capped {
			if si < 0 || si >= len(subTopics) {
				continue
			}
			st := subTopics[si]
			out[a.TopicIndex].SubTopics = append(out[a.TopicIndex].SubTopics, model.SubTopic{
				Title:           st.Title,
				VisualSummary:   st.Summary,
				Timestamp:       st.TimestampS,
				FrameTimestampS: st.TimestampS,
				OriginalIndex:   st.OriginalIndex,
			})
		}
	}
	return out, nil
}

func fallbackMapVisualsToTopics(topics []model.Topic, subTopics []VisualSubTopic) []model.Topic {
	for _, st := range subTopics {
		for i := range topics {
			if topics[i].Contains(st.TimestampS) {
				if len(topics[i].SubTopics) >= config.MaxSubTopicsPerTopic {
					break
				}
				topics[i].SubTopics = append(topics[i].SubTopics, model.SubTopic{
					Title:           st.Title,
					VisualSummary:   st.Summary,
					Timestamp:       st.TimestampS,
					FrameTimestampS: st.TimestampS,
					OriginalIndex:   st.OriginalIndex,
				})
				break
			}
		}
	}
	return topics
}

// Synthesis is the final-pass output before ad filtering and frame
// binding are applied.
type Synthesis struct {
	ExecutiveSummary string        `json:"executive_summary"`
	Topics           []model.Topic `json:"topics"`
	KeyTakeaways     []string      `json:"key_takeaways"`
	Entities         Entities      `json:"entities"`
}

// Synthesize produces the executive summary and final topic list. Per
// the preservation rule, if the LM returns fewer than
// config.SynthesisTopicPreservationRatio of the input topics, the
// synthesized topics are discarded in favor of the analyzer's.
func (c *Client) Synthesize(ctx context.Context, analyzedTopics []model.Topic, frameSummaries string, durationS float64, fallbackSummary string, fallbackTakeaways []string, fallbackEntities Entities) (Synthesis, error) {
	prompt := fmt.Sprintf(
		"Write an executive summary and finalize the topic list for this %.0fs video. Visual context:\n%s\nRespond as JSON: {\"executive_summary\":string,\"topics\":[...],\"key_takeaways\":[string],\"entities\":{...}}",
		durationS, frameSummaries)

	var result Synthesis
	if err := c.callJSON(ctx, "synthesize", []part{textPart(prompt)}, &result); err != nil {
		return Synthesis{
			ExecutiveSummary: "Video processing completed but synthesis had errors.",
			Topics:           analyzedTopics,
			KeyTakeaways:     fallbackTakeaways,
			Entities:         fallbackEntities,
		}, nil
	}

	if float64(len(result.Topics)) < float64(len(analyzedTopics))*config.SynthesisTopicPreservationRatio {
		log.LogNoRequestID("synthesis dropped too many topics, reverting to analyzer topics",
			"synthesized", len(result.Topics), "analyzed", len(analyzedTopics))
		result.Topics = analyzedTopics
	}
	if result.ExecutiveSummary == "" {
		result.ExecutiveSummary = fallbackSummary
	}
	if len(result.KeyTakeaways) == 0 {
		result.KeyTakeaways = fallbackTakeaways
	}
	return result, nil
}

// FilterAds removes topics whose title contains "sponsor"
// (case-insensitive); per the Open Question decision in SPEC_FULL.md
// this is the sole ad marker.
func FilterAds(topics []model.Topic) []model.Topic {
	out := topics[:0:0]
	for _, t := range topics {
		if strings.Contains(strings.ToLower(t.Title), "sponsor") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// GenerateSlideDeck produces an ordered list of up to 5 slides. Failure
// is non-blocking: the pipeline proceeds with an empty deck.
func (c *Client) GenerateSlideDeck(ctx context.Context, transcript, summary string, keyTakeaways []string) []model.Slide {
	prompt := fmt.Sprintf(
		"Produce a 5-slide deck summarizing this video.\nSummary: %s\nKey takeaways: %s\nTranscript:\n%s\nRespond as JSON: {\"slides\":[{\"title\":string,\"bullets\":[string]}]}",
		summary, strings.Join(keyTakeaways, "; "), transcript)

	var result struct {
		Slides []model.Slide `json:"slides"`
	}
	if err := c.callJSON(ctx, "generate_slide_deck", []part{textPart(prompt)}, &result); err != nil {
		log.LogNoRequestID("slide deck generation failed, proceeding with empty deck", "err", err)
		return nil
	}
	if len(result.Slides) > 5 {
		result.Slides = result.Slides[:5]
	}
	return result.Slides
}

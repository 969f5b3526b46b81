package model

import "strings"

// Genre is the closed set of video genres the LM classifier may return.
// Anything outside this set is mapped through ParseGenre's fuzzy normalizer.
type Genre string

const (
	GenrePodcastPanel        Genre = "podcast_panel"
	GenreEducationalLecture  Genre = "educational_lecture"
	GenreInterviewQnA        Genre = "interview_qna"
	GenreVlog                Genre = "vlog"
	GenreMeetingPresentation Genre = "meeting_presentation"
	GenreSingleSpeaker       Genre = "single_speaker_general"
	GenreUnknown             Genre = "unknown"
)

// genreKeywords maps each closed-set genre to substrings we'll match against
// a raw, free-form LM answer when it doesn't land exactly on one of our
// values (e.g. "lecture-style" or "Q&A interview").
var genreKeywords = map[Genre][]string{
	GenrePodcastPanel:        {"podcast", "panel"},
	GenreEducationalLecture:  {"lecture", "education", "tutorial", "course"},
	GenreInterviewQnA:        {"interview", "q&a", "qna", "q & a"},
	GenreVlog:                {"vlog", "blog"},
	GenreMeetingPresentation: {"meeting", "presentation", "slide deck", "standup"},
	GenreSingleSpeaker:       {"single speaker", "monologue", "talking head"},
}

// ParseGenre normalizes a raw LM answer into the closed Genre set. Exact
// matches (case-insensitive) pass straight through; otherwise each genre's
// keyword family is checked as a substring match in order, and the first hit
// wins. No match at all returns GenreUnknown.
func ParseGenre(raw string) Genre {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return GenreUnknown
	}
	for _, g := range []Genre{
		GenrePodcastPanel, GenreEducationalLecture, GenreInterviewQnA,
		GenreVlog, GenreMeetingPresentation, GenreSingleSpeaker, GenreUnknown,
	} {
		if trimmed == string(g) {
			return g
		}
	}
	for _, g := range []Genre{
		GenrePodcastPanel, GenreEducationalLecture, GenreInterviewQnA,
		GenreVlog, GenreMeetingPresentation, GenreSingleSpeaker,
	} {
		for _, kw := range genreKeywords[g] {
			if strings.Contains(trimmed, kw) {
				return g
			}
		}
	}
	return GenreUnknown
}

// GuidanceSnippet returns a short natural-language addendum biasing prompt
// structure for the given genre without changing any output schema.
func GuidanceSnippet(g Genre) string {
	switch g {
	case GenrePodcastPanel:
		return "This is a multi-speaker podcast or panel discussion; favor topics that track the conversation's turns."
	case GenreEducationalLecture:
		return "This is an educational lecture; favor topics that track curriculum structure and slides."
	case GenreInterviewQnA:
		return "This is an interview or Q&A; favor topics that track question/answer pairs."
	case GenreVlog:
		return "This is a vlog; favor topics that track narrative beats over formal structure."
	case GenreMeetingPresentation:
		return "This is a meeting or presentation; favor topics that track agenda items and slides."
	case GenreSingleSpeaker:
		return "This is a single speaker addressing the camera directly; favor topics that track argument structure."
	default:
		return ""
	}
}

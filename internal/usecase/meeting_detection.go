package usecase

import "regexp"

// meetingKeywords is a best-effort heuristic: it fires on any mention of
// scheduling, so "I can't book anything" still counts. Prefer the structured
// call analysis flag when the agent provides one.
var meetingKeywords = regexp.MustCompile(`(?i)\b(schedul(e|ed|ing)|book(ed|ing)?|calendar|appointment)\b`)

// DetectMeetingBooked reports whether a transcript suggests a meeting was set.
func DetectMeetingBooked(transcript string) bool {
	return meetingKeywords.MatchString(transcript)
}

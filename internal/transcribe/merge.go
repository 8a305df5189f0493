package transcribe

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Sentence is one speaker-attributed, timestamped line of the merged
// transcript (§4.2 step 5).
type Sentence struct {
	SpeakerID string
	Start     float64
	End       float64
	Text      string
}

const defaultSentenceGapS = 1.0

// MergeOptions bundles the tunables for Merge; SentenceGapS defaults to 1.0s
// per §4.2 when zero.
type MergeOptions struct {
	SentenceGapS float64
}

// Merge assigns each word to a speaker segment and groups consecutive
// same-speaker words into sentences: attribute each timestamped word to the
// nearest labeled interval, then group consecutive same-label words.
func Merge(words []VendorWord, segments []SpeakerSegment, opts MergeOptions) []Sentence {
	gap := opts.SentenceGapS
	if gap <= 0 {
		gap = defaultSentenceGapS
	}
	if len(words) == 0 {
		return nil
	}

	attributed := make([]struct {
		word    VendorWord
		speaker string
	}, len(words))
	for i, w := range words {
		attributed[i].word = w
		if len(segments) == 0 {
			attributed[i].speaker = "0"
			continue
		}
		attributed[i].speaker = attributeSpeaker(w, segments)
	}

	var sentences []Sentence
	cur := Sentence{
		SpeakerID: attributed[0].speaker,
		Start:     attributed[0].word.Start,
		End:       attributed[0].word.End,
		Text:      attributed[0].word.Word,
	}

	for i := 1; i < len(attributed); i++ {
		w := attributed[i].word
		speakerChanged := attributed[i].speaker != cur.SpeakerID
		gapExceeded := w.Start-attributed[i-1].word.End > gap && endsWithTerminator(attributed[i-1].word.Word)

		if speakerChanged || gapExceeded {
			sentences = append(sentences, finalizeSentence(cur))
			cur = Sentence{SpeakerID: attributed[i].speaker, Start: w.Start, End: w.End, Text: w.Word}
			continue
		}
		cur.End = w.End
		cur.Text += " " + w.Word
	}
	sentences = append(sentences, finalizeSentence(cur))
	return sentences
}

// attributeSpeaker picks the segment with maximum overlap with the word; if
// none overlaps, the segment whose midpoint is closest to the word midpoint.
func attributeSpeaker(w VendorWord, segments []SpeakerSegment) string {
	bestOverlap := 0.0
	bestOverlapIdx := -1
	for i, s := range segments {
		overlap := overlapDuration(w.Start, w.End, s.Start, s.End)
		if overlap > bestOverlap {
			bestOverlap = overlap
			bestOverlapIdx = i
		}
	}
	if bestOverlapIdx >= 0 {
		return segments[bestOverlapIdx].SpeakerID
	}

	mid := (w.Start + w.End) / 2
	bestIdx := 0
	bestDist := distanceToMidpoint(mid, segments[0])
	for i := 1; i < len(segments); i++ {
		d := distanceToMidpoint(mid, segments[i])
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	return segments[bestIdx].SpeakerID
}

func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

func distanceToMidpoint(t float64, s SpeakerSegment) float64 {
	mid := (s.Start + s.End) / 2
	d := t - mid
	if d < 0 {
		return -d
	}
	return d
}

func endsWithTerminator(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	last := rune(word[len(word)-1])
	return last == '.' || last == '?' || last == '!'
}

// finalizeSentence cleans whitespace and punctuation spacing (§4.2 step 5).
func finalizeSentence(s Sentence) Sentence {
	s.Text = cleanSentenceText(s.Text)
	return s
}

func cleanSentenceText(text string) string {
	fields := strings.Fields(text)
	var b strings.Builder
	for i, f := range fields {
		if i > 0 && !isPureTerminator(f) {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	out := b.String()
	out = strings.ReplaceAll(out, " .", ".")
	out = strings.ReplaceAll(out, " ,", ",")
	out = strings.ReplaceAll(out, " ?", "?")
	out = strings.ReplaceAll(out, " !", "!")
	return capitalizeAfterTerminators(out)
}

func isPureTerminator(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return len(s) > 0
}

// capitalizeAfterTerminators capitalizes the first letter after each
// terminator (§4.2 step 5's cleanup rule). It inserts no spaces: spacing
// comes only from cleanSentenceText's single-space join of words, so a
// terminator with no whitespace after it stays unspaced.
func capitalizeAfterTerminators(text string) string {
	runes := []rune(text)
	capitalizeNext := false
	var b strings.Builder
	for _, r := range runes {
		if capitalizeNext && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			capitalizeNext = false
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			capitalizeNext = true
		}
	}
	return b.String()
}

// FormatSentence emits "[HH:MM:SS-HH:MM:SS] speaker: text" with times
// computed as baseTime + word_time + tzOffset (§4.2 step 5).
func FormatSentence(s Sentence, baseTime time.Time, tzOffset time.Duration) string {
	start := baseTime.Add(time.Duration(s.Start*float64(time.Second)) + tzOffset)
	end := baseTime.Add(time.Duration(s.End*float64(time.Second)) + tzOffset)
	return fmt.Sprintf("[%s-%s] %s: %s", start.Format("15:04:05"), end.Format("15:04:05"), s.SpeakerID, s.Text)
}

// RenderTranscript joins every sentence's formatted line, one per line.
func RenderTranscript(sentences []Sentence, baseTime time.Time, tzOffset time.Duration) string {
	lines := make([]string, len(sentences))
	for i, s := range sentences {
		lines[i] = FormatSentence(s, baseTime, tzOffset)
	}
	return strings.Join(lines, "\n")
}

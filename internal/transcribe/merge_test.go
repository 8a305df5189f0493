package transcribe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSingleSpeakerNoSegments(t *testing.T) {
	words := []VendorWord{
		{Word: "hello", Start: 0, End: 0.3},
		{Word: "there.", Start: 0.3, End: 0.6},
		{Word: "How", Start: 2.0, End: 2.2},
		{Word: "are", Start: 2.2, End: 2.4},
		{Word: "you?", Start: 2.4, End: 2.6},
	}

	sentences := Merge(words, nil, MergeOptions{})
	require.Len(t, sentences, 2)
	require.Equal(t, "0", sentences[0].SpeakerID)
	require.Equal(t, "hello there.", sentences[0].Text)
	require.Equal(t, "How are you?", sentences[1].Text)
}

func TestMergeAttributesBySpeakerOverlap(t *testing.T) {
	words := []VendorWord{
		{Word: "hi", Start: 0, End: 0.5},
		{Word: "there", Start: 0.5, End: 1.0},
		{Word: "hey", Start: 1.5, End: 2.0},
		{Word: "back", Start: 2.0, End: 2.5},
	}
	segments := []SpeakerSegment{
		{SpeakerID: "1", Start: 0, End: 1.2},
		{SpeakerID: "2", Start: 1.3, End: 2.6},
	}

	sentences := Merge(words, segments, MergeOptions{})
	require.Len(t, sentences, 2)
	require.Equal(t, "1", sentences[0].SpeakerID)
	require.Equal(t, "hi there", sentences[0].Text)
	require.Equal(t, "2", sentences[1].SpeakerID)
	require.Equal(t, "hey back", sentences[1].Text)
}

func TestMergeSplitsOnGapAfterTerminator(t *testing.T) {
	words := []VendorWord{
		{Word: "Done.", Start: 0, End: 0.4},
		{Word: "Next", Start: 3.0, End: 3.2},
	}
	sentences := Merge(words, nil, MergeOptions{SentenceGapS: 1.0})
	require.Len(t, sentences, 2)
}

func TestMergeDoesNotSplitOnGapWithoutTerminator(t *testing.T) {
	words := []VendorWord{
		{Word: "wait", Start: 0, End: 0.4},
		{Word: "here", Start: 3.0, End: 3.2},
	}
	sentences := Merge(words, nil, MergeOptions{SentenceGapS: 1.0})
	require.Len(t, sentences, 1)
}

func TestMergeEmptyInput(t *testing.T) {
	require.Nil(t, Merge(nil, nil, MergeOptions{}))
}

func TestAttributeSpeakerFallsBackToNearestMidpoint(t *testing.T) {
	segments := []SpeakerSegment{
		{SpeakerID: "1", Start: 0, End: 1.0},
		{SpeakerID: "2", Start: 5.0, End: 6.0},
	}
	// word at [2.0, 2.1] overlaps neither segment; midpoint 2.05 is closer to
	// segment 1's midpoint (0.5) than segment 2's (5.5).
	speaker := attributeSpeaker(VendorWord{Start: 2.0, End: 2.1}, segments)
	require.Equal(t, "1", speaker)
}

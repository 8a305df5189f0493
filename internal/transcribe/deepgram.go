package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const deepgramListenURL = "https://api.deepgram.com/v1/listen"

// DeepgramClient calls Deepgram's nova-3 listen endpoint. Modeled on the
// teacher's DeepInfraClient (struct holding apiKey/timeout/*http.Client, one
// request-building method, manual JSON decode), targeting a POST-URL vendor
// instead of a POST-file one since the input here is already an object-store
// URL (§4.2 step 3).
type DeepgramClient struct {
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

func NewDeepgramClient(apiKey string, timeout time.Duration) *DeepgramClient {
	return &DeepgramClient{apiKey: apiKey, timeout: timeout, client: &http.Client{Timeout: timeout}}
}

func (d *DeepgramClient) Name() string { return "deepgram" }

// deepgramRequest is the JSON body Deepgram's /listen accepts when given a
// remote URL instead of raw audio bytes.
type deepgramRequest struct {
	URL string `json:"url"`
}

type deepgramResponse struct {
	Metadata struct {
		Language string `json:"language"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Sentiments map[string]any `json:"sentiments"`
		Topics     map[string]any `json:"topics"`
		Intents    map[string]any `json:"intents"`
	} `json:"results"`
}

// Transcribe posts the concatenated batch waveform's signed URL with the
// fixed parameter set from §6 (model nova-3, language=en, diarize=false,
// words/punctuate/utterances/paragraphs/sentiment/topics/intents=true).
func (d *DeepgramClient) Transcribe(ctx context.Context, audioURL string) (*VendorTranscript, error) {
	body, err := json.Marshal(deepgramRequest{URL: audioURL})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deepgramListenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+d.apiKey)

	q := req.URL.Query()
	q.Set("model", "nova-3")
	q.Set("language", "en")
	q.Set("diarize", "false")
	q.Set("words", "true")
	q.Set("punctuate", "true")
	q.Set("utterances", "true")
	q.Set("paragraphs", "true")
	q.Set("sentiment", "true")
	q.Set("topics", "true")
	q.Set("intents", "true")
	req.URL.RawQuery = q.Encode()

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return &VendorTranscript{Language: parsed.Metadata.Language}, nil
	}

	alt := parsed.Results.Channels[0].Alternatives[0]
	words := make([]VendorWord, len(alt.Words))
	for i, w := range alt.Words {
		words[i] = VendorWord{Word: w.Word, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}

	return &VendorTranscript{
		Text:      alt.Transcript,
		Language:  parsed.Metadata.Language,
		Words:     words,
		Sentiment: parsed.Results.Sentiments,
		Topics:    parsed.Results.Topics,
		Intents:   parsed.Results.Intents,
	}, nil
}

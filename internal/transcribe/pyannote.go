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

// PyannoteClient implements the submit+poll diarization vendor contract:
// POST /diarize -> {jobId}, GET /jobs/{jobId} polled to a terminal status.
// Shares this package's vendor-client shape (see deepgram.go) with a state
// machine added for the poll loop.
type PyannoteClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	pollCap      time.Duration
}

func NewPyannoteClient(baseURL, apiKey string, submitTimeout time.Duration, pollInterval, pollCap time.Duration) *PyannoteClient {
	return &PyannoteClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: submitTimeout},
		pollInterval: pollInterval,
		pollCap:      pollCap,
	}
}

func (p *PyannoteClient) Name() string { return "pyannote" }

type pyannoteSubmitRequest struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

type pyannoteSubmitResponse struct {
	JobID string `json:"jobId"`
}

type pyannoteJobStatus struct {
	Status string `json:"status"`
	Output struct {
		Diarization []pyannoteSegment `json:"diarization"`
		Segments    []pyannoteSegment `json:"segments"`
		Timeline    []pyannoteSegment `json:"timeline"`
	} `json:"output"`
	// Some deployments return the segment list at the top level instead of
	// nested under output (§6: "accepted in any of: top-level list, ...").
	TopLevel []pyannoteSegment `json:"-"`
}

type pyannoteSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Diarize submits the signed URL and polls until a terminal state, capped at
// pollCap overall (§5: 10-minute cap on polling).
func (p *PyannoteClient) Diarize(ctx context.Context, audioURL string) ([]SpeakerSegment, error) {
	jobID, err := p.submit(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("submit diarization job: %w", err)
	}

	deadline := time.Now().Add(p.pollCap)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		status, segs, err := p.poll(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("poll diarization job %s: %w", jobID, err)
		}
		switch status {
		case "succeeded":
			return segs, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("diarization job %s reported status %q", jobID, status)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("diarization job %s did not complete within poll cap", jobID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *PyannoteClient) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(pyannoteSubmitRequest{URL: audioURL, Model: "precision-1"})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/diarize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed pyannoteSubmitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	return parsed.JobID, nil
}

func (p *PyannoteClient) poll(ctx context.Context, jobID string) (string, []SpeakerSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var topLevel []pyannoteSegment
	if err := json.Unmarshal(raw, &topLevel); err == nil && len(topLevel) > 0 {
		return "succeeded", toSpeakerSegments(topLevel), nil
	}

	var status pyannoteJobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return "", nil, err
	}

	segs := status.Output.Diarization
	if len(segs) == 0 {
		segs = status.Output.Segments
	}
	if len(segs) == 0 {
		segs = status.Output.Timeline
	}
	return status.Status, toSpeakerSegments(segs), nil
}

func toSpeakerSegments(raw []pyannoteSegment) []SpeakerSegment {
	out := make([]SpeakerSegment, len(raw))
	for i, r := range raw {
		out[i] = SpeakerSegment{SpeakerID: r.Speaker, Start: r.Start, End: r.End}
	}
	return out
}

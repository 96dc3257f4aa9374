package landmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPDetector runs detection through an external inference service. Each
// frame is posted as a JPEG in a multipart "file" field; the service
// answers with {"hands":[...]} using the WireHand encoding.
type HTTPDetector struct {
	inferenceURL string
	healthURL    string
	cfg          DetectorConfig
	client       *http.Client
	quality      int
}

// HTTPDetectorConfig configures an HTTPDetector.
type HTTPDetectorConfig struct {
	InferenceURL string
	// HealthURL defaults to /health on the inference URL's host.
	HealthURL string
	Detector  DetectorConfig
	// Client defaults to one with a 2 second timeout.
	Client *http.Client
}

// NewHTTPDetector returns a detector for cfg.InferenceURL.
func NewHTTPDetector(cfg HTTPDetectorConfig) (*HTTPDetector, error) {
	inference, err := url.Parse(cfg.InferenceURL)
	if err != nil {
		return nil, fmt.Errorf("parse inference URL: %w", err)
	}
	if inference.Scheme == "" || inference.Host == "" {
		return nil, fmt.Errorf("inference URL %q must be absolute", cfg.InferenceURL)
	}
	healthURL := cfg.HealthURL
	if healthURL == "" {
		healthURL = inference.ResolveReference(&url.URL{Path: "/health"}).String()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return &HTTPDetector{
		inferenceURL: strings.TrimRight(cfg.InferenceURL, "/"),
		healthURL:    healthURL,
		cfg:          cfg.Detector,
		client:       client,
		quality:      85,
	}, nil
}

// HealthURL returns the URL CheckHealth probes.
func (d *HTTPDetector) HealthURL() string { return d.healthURL }

// Detect encodes frame and posts it to the inference service.
func (d *HTTPDetector) Detect(ctx context.Context, frame Frame) ([]Hand, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("frame %d has no image", frame.Seq)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fmt.Sprintf("frame-%d.jpg", frame.Seq))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, frame.Image, &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.WriteField("max_hands", strconv.Itoa(d.cfg.MaxHands)); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := writer.WriteField("min_confidence", strconv.FormatFloat(d.cfg.MinConfidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result struct {
		Hands []WireHand `json:"hands"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for i, h := range result.Hands {
		for j, lm := range h.Landmarks {
			if len(lm) < 2 {
				return nil, fmt.Errorf("hand %d landmark %d has %d values", i, j, len(lm))
			}
		}
	}
	hands := (&Datagram{Hands: result.Hands}).DetectedHands()
	if d.cfg.MaxHands > 0 && len(hands) > d.cfg.MaxHands {
		hands = hands[:d.cfg.MaxHands]
	}
	return hands, nil
}

// CheckHealth probes the service's health endpoint.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.healthURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

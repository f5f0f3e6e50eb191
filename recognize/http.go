package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// recognitionRequest is the JSON body sent to a recognition service.
type recognitionRequest struct {
	ImageRef string `json:"image_ref"`
}

// HTTPCodeDecoder decodes identifier codes via an external HTTP service.
type HTTPCodeDecoder struct {
	url    string
	client *http.Client
}

// NewHTTPCodeDecoder creates a decoder calling the given endpoint.
func NewHTTPCodeDecoder(url string) *HTTPCodeDecoder {
	return &HTTPCodeDecoder{url: url, client: &http.Client{}}
}

// DecodeCode posts the image reference and returns the decoded identifier.
func (d *HTTPCodeDecoder) DecodeCode(ctx context.Context, imageRef string) (string, error) {
	var resp struct {
		Code string `json:"code"`
	}
	if err := postJSON(ctx, d.client, d.url, recognitionRequest{ImageRef: imageRef}, &resp); err != nil {
		return "", fmt.Errorf("code decode: %w", err)
	}
	code := strings.TrimSpace(resp.Code)
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// HTTPGaugeReader reads gauges via an external OCR service. The service
// returns raw recognized text; the digit-run heuristic picks the reading.
type HTTPGaugeReader struct {
	url    string
	client *http.Client
}

// NewHTTPGaugeReader creates a reader calling the given endpoint.
func NewHTTPGaugeReader(url string) *HTTPGaugeReader {
	return &HTTPGaugeReader{url: url, client: &http.Client{}}
}

// ReadGauge posts the image reference and extracts a reading from the OCR text.
func (r *HTTPGaugeReader) ReadGauge(ctx context.Context, imageRef string) (int64, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := postJSON(ctx, r.client, r.url, recognitionRequest{ImageRef: imageRef}, &resp); err != nil {
		return 0, fmt.Errorf("gauge read: %w", err)
	}
	v, ok := ReadingFromText(resp.Text)
	if !ok {
		return 0, ErrNoReading
	}
	return v, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body, target any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognition service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

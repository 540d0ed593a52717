package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// Client invokes a YOLO-style detection service over HTTP.
type Client struct {
	name          string
	endpoint      string
	client        *http.Client
	confThreshold float32
	classesFilter string
	healthCheck   time.Time
	mu            sync.RWMutex
}

// serviceDetection mirrors one detection in the service response.
type serviceDetection struct {
	Class      string    `json:"class"`
	ClassID    int       `json:"class_id"`
	Confidence float32   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

// serviceResult mirrors the detection service response.
type serviceResult struct {
	Detections      []serviceDetection `json:"detections"`
	Count           int                `json:"count"`
	InferenceTimeMs float32            `json:"inference_time_ms"`
	Device          string             `json:"device"`
}

// healthResponse mirrors the service health check response.
type healthResponse struct {
	Status      string `json:"status"`
	Device      string `json:"device"`
	ModelLoaded bool   `json:"model_loaded"`
}

// ClientConfig holds configuration for a detector client.
type ClientConfig struct {
	Name                string
	ServiceEndpoint     string
	ConfidenceThreshold float32
	ClassesFilter       string
}

// NewClient creates a detector client for one detection service.
func NewClient(cfg ClientConfig) *Client {
	conf := cfg.ConfidenceThreshold
	if conf <= 0 {
		conf = 0.5
	}
	return &Client{
		name:     cfg.Name,
		endpoint: cfg.ServiceEndpoint,
		client: &http.Client{
			Timeout: 15 * time.Second, // longer timeout for GPU inference
		},
		confThreshold: conf,
		classesFilter: cfg.ClassesFilter,
	}
}

// Name returns the detector identifier.
func (c *Client) Name() string {
	return c.name
}

// IsHealthy checks if the detection service is available.
// Successful checks are cached for 30 seconds.
func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	if time.Since(c.healthCheck) < 30*time.Second {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	resp, err := c.client.Get(c.endpoint + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || !health.ModelLoaded {
		return false
	}

	c.mu.Lock()
	c.healthCheck = time.Now()
	c.mu.Unlock()
	return true
}

// Detect runs inference on a JPEG image and returns the raw boxes in the
// image's coordinate space.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Box, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	fw.Write(image)

	c.mu.RLock()
	w.WriteField("conf_threshold", fmt.Sprintf("%.3f", c.confThreshold))
	if c.classesFilter != "" {
		w.WriteField("classes_filter", c.classesFilter)
	}
	c.mu.RUnlock()

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/detect", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection failed: %s", string(body))
	}

	var result serviceResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	boxes := make([]Box, 0, len(result.Detections))
	for _, d := range result.Detections {
		if len(d.BBox) < 4 {
			continue
		}
		boxes = append(boxes, Box{
			X1:         d.BBox[0],
			Y1:         d.BBox[1],
			X2:         d.BBox[2],
			Y2:         d.BBox[3],
			Class:      d.Class,
			Confidence: d.Confidence,
		})
	}
	return boxes, nil
}

// Ensure Client implements Detector
var _ Detector = (*Client)(nil)

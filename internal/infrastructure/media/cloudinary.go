package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

const DefaultCloudinaryURL = "https://api.cloudinary.com"

// Cloudinary performs unsigned uploads with an upload preset.
type Cloudinary struct {
	client       *http.Client
	baseURL      string
	cloudName    string
	uploadPreset string
}

func NewCloudinary(baseURL, cloudName, uploadPreset string, client *http.Client) (*Cloudinary, error) {
	if cloudName == "" || uploadPreset == "" {
		return nil, fmt.Errorf("cloudinary not configured: cloud name and upload preset are required")
	}
	if baseURL == "" {
		baseURL = DefaultCloudinaryURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Cloudinary{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
	}, nil
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, m domain.Media) (string, error) {
	if err := Check(m); err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", path.Base(objectName(m)))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(m.Data); err != nil {
		return "", fmt.Errorf("writing form file: %w", err)
	}
	if err := form.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", fmt.Errorf("writing upload preset: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/auto/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed cloudinaryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing cloudinary response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("cloudinary error: %s", parsed.Error.Message)
	}
	if resp.StatusCode >= 300 || parsed.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload failed with status %d", resp.StatusCode)
	}
	return parsed.SecureURL, nil
}

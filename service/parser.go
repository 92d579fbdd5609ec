package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/gabriel-vasile/mimetype"
)

// ExtractorService is the client for the external document-extraction API
// that converts uploaded PDF/DOCX files into plain text. Pasted text skips
// it entirely.
type ExtractorService struct {
	config     *config.ExtractorConfig
	httpClient *http.Client
}

// ExtractTaskRequest asks the extractor to process a document reachable at URL.
type ExtractTaskRequest struct {
	URL      string `json:"url"`
	Callback string `json:"callback,omitempty"`
	Seed     string `json:"seed,omitempty"`
	DataID   string `json:"data_id,omitempty"`
}

// ExtractTaskResponse is the task-creation reply.
type ExtractTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// ExtractStatusResponse is the task status reply.
type ExtractStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID   string `json:"task_id"`
		DataID   string `json:"data_id"`
		State    string `json:"state"` // pending, running, done, failed
		TextURL  string `json:"text_url,omitempty"`
		ErrorMsg string `json:"err_msg,omitempty"`
	} `json:"data"`
}

func NewExtractorService(cfg *config.ExtractorConfig) *ExtractorService {
	return &ExtractorService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateTask submits a document for extraction.
func (s *ExtractorService) CreateTask(docURL, dataID string) (*ExtractTaskResponse, error) {
	reqBody := ExtractTaskRequest{
		URL:    docURL,
		DataID: dataID,
	}
	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", s.config.APIURL+"/extract/task", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ExtractTaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("extractor API error: %s", result.Message)
	}
	return &result, nil
}

// GetTaskStatus queries the state of an extraction task.
func (s *ExtractorService) GetTaskStatus(taskID string) (*ExtractStatusResponse, error) {
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/extract/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ExtractStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("extractor API error: %s", result.Message)
	}
	return &result, nil
}

// VerifyCallback checks the callback checksum: SHA256(uid + seed + content).
func (s *ExtractorService) VerifyCallback(checksum, content, uid string) bool {
	data := uid + s.config.Seed + content
	hash := sha256.Sum256([]byte(data))
	return checksum == hex.EncodeToString(hash[:])
}

// FetchTextResult downloads the extracted plain text.
func (s *ExtractorService) FetchTextResult(textURL string) (string, error) {
	resp, err := s.httpClient.Get(textURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch text: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return NormalizeText(string(body)), nil
}

// NormalizeText cleans up extracted or pasted text: unify line endings,
// trim trailing whitespace per line and collapse runs of blank lines.
func NormalizeText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// SniffContentType detects the real content type of an uploaded file from
// its bytes, regardless of the client-declared header.
func SniffContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsSupportedUpload reports whether the sniffed content type is one the
// extractor can handle.
func IsSupportedUpload(contentType string) bool {
	switch {
	case strings.Contains(contentType, "pdf"):
		return true
	case strings.Contains(contentType, "officedocument.wordprocessingml.document"):
		return true
	case strings.HasPrefix(contentType, "text/"):
		return true
	default:
		return false
	}
}

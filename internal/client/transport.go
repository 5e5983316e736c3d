package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docquiz/internal/domain"
)

// Transport is the collaborator boundary the client core talks through.
// Implementations perform the network I/O; the state machines in this
// package never touch the wire themselves.
type Transport interface {
	FetchJobStatus(ctx context.Context, jobID string) (domain.Job, error)
	ListQuestions(ctx context.Context, pdfID string) ([]domain.Question, error)
	GradeAnswer(ctx context.Context, pdfID, questionID, answer string) (domain.GradeResult, error)
	FetchWrongNotes(ctx context.Context) (domain.WrongNoteBook, error)
}

// HTTPTransport implements Transport against the docquiz REST API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport builds a transport for the API rooted at baseURL
// (e.g. "http://localhost:8080/api/v1"). A nil client gets a default
// with a 30s timeout; per-request deadlines belong to the caller's ctx.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (t *HTTPTransport) FetchJobStatus(ctx context.Context, jobID string) (domain.Job, error) {
	var job domain.Job
	err := t.getJSON(ctx, "/jobs/"+url.PathEscape(jobID), nil, &job)
	return job, err
}

func (t *HTTPTransport) ListQuestions(ctx context.Context, pdfID string) ([]domain.Question, error) {
	var resp struct {
		Items []domain.Question `json:"items"`
	}
	err := t.getJSON(ctx, "/pdfs/"+url.PathEscape(pdfID)+"/questions", nil, &resp)
	return resp.Items, err
}

func (t *HTTPTransport) GradeAnswer(ctx context.Context, pdfID, questionID, answer string) (domain.GradeResult, error) {
	var result domain.GradeResult
	body := struct {
		UserAnswer string `json:"user_answer"`
	}{UserAnswer: answer}
	query := url.Values{"pdf_id": {pdfID}}
	err := t.postJSON(ctx, "/questions/"+url.PathEscape(questionID)+"/grade", query, body, &result)
	return result, err
}

func (t *HTTPTransport) FetchWrongNotes(ctx context.Context) (domain.WrongNoteBook, error) {
	var book domain.WrongNoteBook
	err := t.getJSON(ctx, "/users/me/wrong-questions", nil, &book)
	return book, err
}

// UploadDocument sends a source document as multipart form data.
// Not part of the Transport interface; the CLI presentation layer uses it.
func (t *HTTPTransport) UploadDocument(ctx context.Context, filename string, content []byte) (domain.UploadReceipt, error) {
	var receipt domain.UploadReceipt

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return receipt, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return receipt, fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return receipt, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/pdfs", &buf)
	if err != nil {
		return receipt, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = t.do(req, &receipt)
	return receipt, err
}

// StartGeneration kicks off a question-generation job for an uploaded document.
func (t *HTTPTransport) StartGeneration(ctx context.Context, pdfID string, opts domain.GenerationOptions) (domain.Job, error) {
	var job domain.Job
	err := t.postJSON(ctx, "/pdfs/"+url.PathEscape(pdfID)+"/jobs/question-generation", nil, opts, &job)
	return job, err
}

func (t *HTTPTransport) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.buildURL(path, query), nil)
	if err != nil {
		return err
	}
	return t.do(req, out)
}

func (t *HTTPTransport) postJSON(ctx context.Context, path string, query url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.buildURL(path, query), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *HTTPTransport) buildURL(path string, query url.Values) string {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError turns the server's {error, message} envelope into a
// readable error, falling back to the bare status.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, envelope.Message)
	}
	return fmt.Errorf("api error %d", resp.StatusCode)
}

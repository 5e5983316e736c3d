package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"docquiz/internal/app"
	"docquiz/internal/domain"
)

const maxUploadBytes = 32 << 20

// Handler exposes the REST API: document upload, job control, question
// listing, grading, and the wrong-note ledger.
type Handler struct {
	generation *app.GenerationService
	grading    *app.GradingService
}

func NewHandler(generation *app.GenerationService, grading *app.GradingService) *Handler {
	return &Handler{generation: generation, grading: grading}
}

// Register mounts all REST routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/pdfs", h.uploadPDF)
	mux.HandleFunc("POST /api/v1/pdfs/{pdfID}/jobs/question-generation", h.startGeneration)
	mux.HandleFunc("GET /api/v1/jobs/{jobID}", h.jobStatus)
	mux.HandleFunc("GET /api/v1/pdfs/{pdfID}/questions", h.listQuestions)
	mux.HandleFunc("POST /api/v1/questions/{questionID}/grade", h.gradeAnswer)
	mux.HandleFunc("GET /api/v1/users/me/wrong-questions", h.wrongNotes)
	mux.HandleFunc("GET /healthz", h.health)
}

func (h *Handler) uploadPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "expected multipart form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "unreadable file")
		return
	}

	receipt, err := h.generation.Upload(r.Context(), header.Filename, content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) startGeneration(w http.ResponseWriter, r *http.Request) {
	pdfID := r.PathValue("pdfID")

	var opts domain.GenerationOptions
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed generation options")
			return
		}
	}

	job, err := h.generation.StartGeneration(r.Context(), pdfID, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.generation.JobStatus(r.Context(), r.PathValue("jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.grading.Questions(r.Context(), r.PathValue("pdfID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, struct {
		Items []domain.Question `json:"items"`
		Total int               `json:"total"`
	}{Items: questions, Total: len(questions)})
}

func (h *Handler) gradeAnswer(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("questionID")
	pdfID := r.URL.Query().Get("pdf_id")
	if pdfID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing pdf_id query parameter")
		return
	}

	var body struct {
		UserAnswer string `json:"user_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed grade request")
		return
	}

	result, err := h.grading.Grade(r.Context(), pdfID, questionID, body.UserAnswer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) wrongNotes(w http.ResponseWriter, r *http.Request) {
	book, err := h.grading.WrongNotes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if book.Items == nil {
		book.Items = []domain.WrongNoteItem{}
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document_not_found", err.Error())
	case errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job_not_found", err.Error())
	case errors.Is(err, domain.ErrQuestionSetNotFound):
		writeError(w, http.StatusNotFound, "questions_not_found", err.Error())
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "question_not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyAnswer):
		writeError(w, http.StatusBadRequest, "empty_answer", err.Error())
	case errors.Is(err, domain.ErrJobTerminal):
		writeError(w, http.StatusConflict, "job_terminal", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: code, Message: message})
}

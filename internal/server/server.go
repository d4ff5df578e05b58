// Package server provides the Inspecta HTTP API server.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inspecta-dev/inspecta/internal/chat"
	"github.com/inspecta-dev/inspecta/internal/config"
	"github.com/inspecta-dev/inspecta/internal/gateway"
	"github.com/inspecta-dev/inspecta/internal/gateway/gemini"
	"github.com/inspecta-dev/inspecta/internal/session"
	"github.com/inspecta-dev/inspecta/internal/storage"
	"github.com/inspecta-dev/inspecta/internal/telegram"
	"github.com/inspecta-dev/inspecta/internal/ticket"
)

// maxUploadBytes bounds multipart uploads (50 MB).
const maxUploadBytes = 50 << 20

// Server is the Inspecta HTTP API server.
type Server struct {
	config      *config.Config
	svc         *chat.Service
	files       *storage.Store
	tickets     *ticket.Manager
	router      chi.Router
	telegramBot *telegram.Bot // nil if Telegram is not configured
}

// New creates a new Server with all dependencies.
func New(cfg *config.Config) (*Server, error) {
	files, err := storage.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("initializing upload storage: %w", err)
	}

	// Initialize the generation backend. Without an API key the server still
	// runs: chat turns degrade with a fixed unavailability message.
	var gen gateway.Generator
	if cfg.GatewayEnabled() {
		gen = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		log.Printf("Generation backend enabled (model %s)", cfg.GeminiModel)
	} else {
		log.Println("Generation backend disabled (no GEMINI_API_KEY, chat will degrade)")
	}

	auditLog, err := ticket.OpenLog(cfg.TicketDBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing ticket log: %w", err)
	}

	var notifiers []ticket.Notifier
	if cfg.SlackEnabled() {
		notifiers = append(notifiers, ticket.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackTicketChannel))
		log.Println("Slack ticket notifications enabled")
	}
	if cfg.GitHubEnabled() {
		ghNotifier, err := ticket.NewGitHubNotifier(cfg.GitHubToken, cfg.TicketRepo)
		if err != nil {
			log.Printf("Warning: GitHub ticket notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, ghNotifier)
			log.Printf("GitHub ticket issues enabled (%s)", cfg.TicketRepo)
		}
	}
	tickets := ticket.NewManager(auditLog, notifiers...)

	svc := chat.NewService(session.NewStore(), files, gen, tickets, cfg.RequestTimeout)

	s := newServer(cfg, svc, files)
	s.tickets = tickets

	// Initialize the Telegram channel if configured.
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramBotToken, svc)
		if err != nil {
			log.Printf("Warning: failed to initialize Telegram bot: %v", err)
		} else {
			s.telegramBot = bot
			log.Println("Telegram channel enabled (long polling)")
		}
	}

	return s, nil
}

// newServer wires the router around an existing service. Used directly by
// tests.
func newServer(cfg *config.Config, svc *chat.Service, files *storage.Store) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
		files:  files,
	}
	s.router = s.buildRouter()
	return s
}

// Start starts the HTTP server and (optionally) the Telegram bot. Blocks
// until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.telegramBot != nil {
		go func() {
			if err := s.telegramBot.Run(ctx); err != nil {
				log.Printf("Telegram bot error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Inspecta server listening on %s", s.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	if s.tickets != nil {
		return s.tickets.Close()
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	// The browser client is served from a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Post("/init_session", s.handleInitSession)
	r.Post("/upload", s.handleUpload)
	r.Post("/chat", s.handleChat)
	r.Post("/api/create-ticket", s.handleCreateTicket)
	r.Post("/export/json", s.handleExportJSON)
	r.Post("/export/feedback", s.handleExportFeedback)
	r.Post("/clear", s.handleClear)
	r.Post("/feedback", s.handleFeedback)
	r.Post("/check_idle", s.handleCheckIdle)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type attachmentPayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
	MimeType string `json:"mime_type"`
}

type initSessionResponse struct {
	Success             bool                `json:"success"`
	Attachments         []attachmentPayload `json:"attachments"`
	TicketCounter       int                 `json:"ticket_counter"`
	TicketCreated       bool                `json:"ticket_created"`
	FeedbackSubmitted   bool                `json:"feedback_submitted"`
	TicketButtonClicked bool                `json:"ticket_button_clicked"`
}

type uploadResponse struct {
	Success             bool                `json:"success"`
	Attachments         []attachmentPayload `json:"attachments"`
	TicketCreated       bool                `json:"ticket_created"`
	TicketButtonClicked bool                `json:"ticket_button_clicked"`
}

type chatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	IsVoiceInput bool   `json:"is_voice_input"`
}

type chatResponse struct {
	Success             bool   `json:"success"`
	Error               string `json:"error,omitempty"`
	Response            string `json:"response"`
	IsVoiceInput        bool   `json:"is_voice_input"`
	ShowTicketButton    bool   `json:"show_ticket_button"`
	TicketCreated       bool   `json:"ticket_created"`
	FeedbackSubmitted   bool   `json:"feedback_submitted"`
	TicketButtonClicked bool   `json:"ticket_button_clicked"`
}

type createTicketResponse struct {
	Success      bool   `json:"success"`
	TicketNumber string `json:"ticket_number"`
	Message      string `json:"message"`
}

type exportJSONResponse struct {
	SessionID     string            `json:"session_id"`
	Messages      []session.Message `json:"messages"`
	Attachments   []string          `json:"attachments"`
	TicketCounter int               `json:"ticket_counter"`
}

type exportFeedbackResponse struct {
	Success  bool   `json:"success"`
	CSVData  string `json:"csv_data"`
	Filename string `json:"filename"`
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type checkIdleResponse struct {
	IsIdle      bool    `json:"is_idle"`
	IdleSeconds float64 `json:"idle_seconds"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	sess := s.svc.InitSession(req.SessionID)
	writeJSON(w, http.StatusOK, initSessionResponse{
		Success:             true,
		Attachments:         s.attachmentPayloads(sess.Attachments),
		TicketCounter:       sess.TicketCounter,
		TicketCreated:       sess.TicketCreated,
		FeedbackSubmitted:   sess.FeedbackSubmitted,
		TicketButtonClicked: sess.TicketButtonClicked,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload")
		return
	}

	att, err := s.svc.Upload(sessionID, header.Filename, data)
	if err != nil {
		log.Printf("Upload failed for session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	sess, _ := s.svc.Store().Snapshot(sessionID)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Attachments: []attachmentPayload{{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: att.MimeType,
		}},
		TicketCreated:       sess.TicketCreated,
		TicketButtonClicked: sess.TicketButtonClicked,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	res := s.svc.Chat(r.Context(), req.SessionID, req.Message, req.IsVoiceInput)

	resp := chatResponse{
		Success:             res.Err == nil,
		Response:            res.Response,
		IsVoiceInput:        res.IsVoiceInput,
		ShowTicketButton:    res.ShowTicketButton,
		TicketCreated:       res.TicketCreated,
		FeedbackSubmitted:   res.FeedbackSubmitted,
		TicketButtonClicked: res.TicketButtonClicked,
	}
	if res.Err != nil {
		// Degraded, not failed: the status stays 200 and the body carries
		// the explanatory message.
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	number, message := s.svc.CreateTicket(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, createTicketResponse{
		Success:      true,
		TicketNumber: number,
		Message:      message,
	})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	sess, found := s.svc.Store().Snapshot(req.SessionID)
	if !found {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	filenames := make([]string, 0, len(sess.Attachments))
	for _, att := range sess.Attachments {
		filenames = append(filenames, att.Filename)
	}
	messages := sess.Messages
	if messages == nil {
		messages = []session.Message{}
	}
	writeJSON(w, http.StatusOK, exportJSONResponse{
		SessionID:     sess.ID,
		Messages:      messages,
		Attachments:   filenames,
		TicketCounter: sess.TicketCounter,
	})
}

func (s *Server) handleExportFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	csvText, filename, err := s.svc.ExportFeedbackCSV(req.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrNoFeedback) {
			writeError(w, http.StatusNotFound, "No feedback data available")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to export feedback")
		return
	}
	writeJSON(w, http.StatusOK, exportFeedbackResponse{
		Success:  true,
		CSVData:  csvText,
		Filename: filename,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	s.svc.Clear(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.svc.SubmitFeedback(req.SessionID, req.Rating, req.Comment)
	writeJSON(w, http.StatusOK, map[string]bool{
		"success":            true,
		"feedback_submitted": true,
	})
}

func (s *Server) handleCheckIdle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	isIdle, idle := s.svc.CheckIdle(req.SessionID, s.config.IdleThreshold)
	writeJSON(w, http.StatusOK, checkIdleResponse{
		IsIdle:      isIdle,
		IdleSeconds: idle.Seconds(),
	})
}

// --- Helpers ---

// attachmentPayloads reads back stored attachment bytes for client preview.
// A missing backing file yields the filename with empty content.
func (s *Server) attachmentPayloads(atts []session.Attachment) []attachmentPayload {
	out := make([]attachmentPayload, 0, len(atts))
	for _, att := range atts {
		p := attachmentPayload{Filename: att.Filename, MimeType: att.MimeType}
		if data, err := s.files.Read(att.Filename); err == nil {
			p.Content = base64.StdEncoding.EncodeToString(data)
		}
		out = append(out, p)
	}
	return out
}

func decodeSessionRequest(w http.ResponseWriter, r *http.Request) (sessionRequest, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

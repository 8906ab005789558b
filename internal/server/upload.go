package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"studyhall/internal/model"
	"studyhall/internal/pipeline"
)

const maxUploadBytes = 50 << 20

// uploadResult is the terminal record of a successful upload stream.
type uploadResult struct {
	Status    string `json:"status"`
	ModelUsed string `json:"ai_model_used,omitempty"`
	model.Document
}

// handleUpload runs the processing pipeline for one uploaded PDF and streams
// progress as server-sent events. The stream ends with either a success
// record carrying the stored document or an error record.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	cards := 0
	if v := r.FormValue("cards_per_difficulty"); v != "" {
		cards, err = strconv.Atoi(v)
		if err != nil || cards < 0 {
			writeError(w, http.StatusBadRequest, "invalid cards_per_difficulty")
			return
		}
	}

	gen, err := s.newLLM(s.providerContext(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeRecord := func(v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			s.log.Error("marshaling stream record", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	req := pipeline.Request{
		Filename:           header.Filename,
		Course:             r.FormValue("course"),
		Data:               data,
		CardsPerDifficulty: cards,
	}

	events := make(chan model.ProgressEvent, 16)
	var doc model.Document
	var runErr error
	go func() {
		defer close(events)
		doc, runErr = s.pipe.Run(r.Context(), gen, req, func(ev model.ProgressEvent) {
			events <- ev
		})
	}()
	for ev := range events {
		writeRecord(ev)
	}

	if runErr != nil {
		s.log.Error("upload pipeline failed", "filename", header.Filename, "error", runErr)
		writeRecord(model.ProgressEvent{Stage: model.StageError, Progress: 0, Message: runErr.Error()})
		return
	}
	writeRecord(uploadResult{Status: "success", ModelUsed: gen.Model(), Document: doc})
}

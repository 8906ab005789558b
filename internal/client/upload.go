package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"studyhall/internal/model"
	"studyhall/internal/sse"
)

// MaxUploadBytes is the upper bound on accepted file size.
const MaxUploadBytes = 50 << 20

// allowedTypes is the fixed allow-list of accepted document content types.
var allowedTypes = map[string]bool{
	"application/pdf":     true,
	"application/x-pdf":   true,
	"application/acrobat": true,
}

// Upload is one document upload: the file content plus its destination.
// CardsPerDifficulty caps generated flashcards per difficulty level; zero
// leaves the server default in effect.
type Upload struct {
	Filename           string
	ContentType        string
	Data               []byte
	Course             string
	CardsPerDifficulty int
}

// UploadDocument runs one upload end to end and reports progress through
// onProgress (which may be nil) in arrival order. It returns the stored
// Document, complete or not at all. Exactly one network attempt is made per
// call; retrying is the caller's decision.
//
// A streaming response is decoded incrementally; otherwise the canonical
// stage sequence is synthesized at a fixed interval around the JSON body.
func (c *Client) UploadDocument(ctx context.Context, up Upload, onProgress func(model.ProgressEvent)) (model.Document, error) {
	course := strings.TrimSpace(up.Course)
	if course == "" {
		return model.Document{}, ErrEmptyCourse
	}
	if !allowedTypes[strings.ToLower(up.ContentType)] {
		return model.Document{}, fmt.Errorf("%w (got %s)", ErrFileType, up.ContentType)
	}
	if len(up.Data) > MaxUploadBytes {
		return model.Document{}, ErrFileTooLarge
	}
	if onProgress == nil {
		onProgress = func(model.ProgressEvent) {}
	}

	body, contentType, err := multipartBody(up, course)
	if err != nil {
		return model.Document{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return model.Document{}, err
	}
	req.Header.Set("Content-Type", contentType)
	c.applyProviderContext(req)

	resp, err := c.do(req)
	if err != nil {
		return model.Document{}, err
	}
	defer resp.Body.Close()

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.consumeStream(ctx, resp.Body, onProgress)
	}
	return c.simulateProgress(ctx, resp.Body, onProgress)
}

func multipartBody(up Upload, course string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Filename))
	header.Set("Content-Type", up.ContentType)
	fw, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(up.Data); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("course", course); err != nil {
		return nil, "", err
	}
	if up.CardsPerDifficulty > 0 {
		if err := mw.WriteField("cards_per_difficulty", strconv.Itoa(up.CardsPerDifficulty)); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// consumeStream drives the event-stream decoder until the terminal result.
// An in-stream error record fails the upload with the server's message; a
// stream that ends without a result fails with ErrStreamEnded.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, onProgress func(model.ProgressEvent)) (model.Document, error) {
	dec := sse.NewDecoder(body, c.log)
	for {
		if err := ctx.Err(); err != nil {
			return model.Document{}, err
		}
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return model.Document{}, ErrStreamEnded
		}
		if err != nil {
			return model.Document{}, &TransportError{Err: err}
		}
		switch rec.Kind {
		case sse.KindProgress:
			onProgress(rec.Event)
		case sse.KindError:
			msg := rec.Event.Message
			if msg == "" {
				msg = "upload failed"
			}
			return model.Document{}, &ServerError{StatusCode: http.StatusOK, Message: msg}
		case sse.KindResult:
			var doc model.Document
			if err := json.Unmarshal(rec.Payload, &doc); err != nil {
				return model.Document{}, fmt.Errorf("decoding result document: %w", err)
			}
			return doc, nil
		}
	}
}

// simulatedStages replay in order when the server responds with a plain
// document instead of a stream.
var simulatedStages = []model.ProgressEvent{
	{Stage: model.StageUploading, Progress: 20, Message: "Uploading file..."},
	{Stage: model.StageExtracting, Progress: 40, Message: "Extracting text..."},
	{Stage: model.StageSummarizing, Progress: 60, Message: "Generating summary..."},
	{Stage: model.StageFlashcards, Progress: 80, Message: "Creating flashcards..."},
}

func (c *Client) simulateProgress(ctx context.Context, body io.Reader, onProgress func(model.ProgressEvent)) (model.Document, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return model.Document{}, &TransportError{Err: err}
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("decoding upload response: %w", err)
	}

	for _, ev := range simulatedStages {
		select {
		case <-ctx.Done():
			return model.Document{}, ctx.Err()
		case <-time.After(c.simInterval):
		}
		onProgress(ev)
	}
	onProgress(model.ProgressEvent{Stage: model.StageComplete, Progress: 100, Message: "Processing complete!"})
	return doc, nil
}

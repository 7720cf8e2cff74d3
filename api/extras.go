package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sashashura/netbox/bulkimport"
	"github.com/sashashura/netbox/domain"
)

// maxAttachmentSize caps uploaded images at 16 MiB.
const maxAttachmentSize = 16 << 20

// --- changelog ---

func (s *Server) listChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ChangeFilter{
		ObjectKind: domain.ObjectKind(q.Get("object_kind")),
		ObjectID:   queryUUID(r, "object_id"),
		Action:     domain.ChangeAction(q.Get("action")),
		Actor:      q.Get("actor"),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("parsing since %q : %w", raw, err))
			return
		}
		filter.Since = since
	}
	changes, err := s.app.Repo.ListChanges(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(changes), changes)
}

// --- webhooks ---

func (s *Server) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.app.Repo.ListWebhooks()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(hooks), hooks)
}

func (s *Server) createWebhook(w http.ResponseWriter, r *http.Request) {
	var hook domain.Webhook
	if err := decodeJSON(r, &hook); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	hook.ID = id
	hook.Created = now
	hook.LastUpdated = now
	if hook.HTTPMethod == "" {
		hook.HTTPMethod = "POST"
	}
	if err := hook.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.app.Repo.CreateWebhook(&hook); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &hook)
}

func (s *Server) getWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	hook, err := s.app.Repo.GetWebhook(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hook)
}

func (s *Server) updateWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetWebhook(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.app.Repo.UpdateWebhook(&updated); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Repo.DeleteWebhook(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- scripts ---

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	all, err := s.app.Repo.ListScripts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(all), all)
}

func (s *Server) createScript(w http.ResponseWriter, r *http.Request) {
	var script domain.Script
	if err := decodeJSON(r, &script); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	script.ID = id
	script.Created = now
	script.LastUpdated = now
	if err := script.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.app.Repo.CreateScript(&script); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &script)
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	script, err := s.app.Repo.GetScript(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *Server) updateScript(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetScript(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.app.Repo.UpdateScript(&updated); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteScript(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Repo.DeleteScript(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runScript executes a script against a caller-supplied change without
// touching the store, a dry run for developing validators and hooks.
func (s *Server) runScript(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	script, err := s.app.Repo.GetScript(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		ObjectKind domain.ObjectKind   `json:"object_kind"`
		ObjectID   uuid.UUID           `json:"object_id"`
		Action     domain.ChangeAction `json:"action"`
		Object     map[string]any      `json:"object"`
		Previous   map[string]any      `json:"previous"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if req.ObjectKind == "" && len(script.ObjectKinds) > 0 {
		req.ObjectKind = script.ObjectKinds[0]
	}
	if req.Action == "" {
		req.Action = domain.ActionUpdate
	}

	change := &domain.ObjectChange{
		ObjectKind: req.ObjectKind,
		ObjectID:   req.ObjectID,
		Action:     req.Action,
		Actor:      s.actor(r),
		Time:       time.Now().UTC(),
		PreChange:  req.Previous,
		PostChange: req.Object,
	}

	switch script.Kind {
	case domain.ScriptValidator:
		err = s.app.Scripts.RunValidator(script, change)
	default:
		err = s.app.Scripts.RunHook(script, change)
	}
	if err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- image attachments ---

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) {
	kind := domain.ObjectKind(r.URL.Query().Get("object_kind"))
	objectID := queryUUID(r, "object_id")
	attachments, err := s.app.Repo.ListAttachments(kind, objectID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(attachments), attachments)
}

// createAttachment stores an uploaded image. The MIME type is sniffed from
// the content, never trusted from the request.
func (s *Server) createAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("parsing upload : %w", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("reading image field : %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
	if err != nil {
		s.writeError(w, err)
		return
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		writeErrorStatus(w, http.StatusUnprocessableEntity,
			fmt.Errorf("upload is %s, only images are accepted", detected.String()))
		return
	}

	objectID, err := uuid.Parse(r.FormValue("object_id"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("parsing object_id : %w", err))
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	att := domain.ImageAttachment{
		ID:          id,
		ObjectKind:  domain.ObjectKind(r.FormValue("object_kind")),
		ObjectID:    objectID,
		Name:        name,
		ContentType: detected.String(),
		Data:        data,
		Created:     time.Now().UTC(),
	}
	if err := att.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.app.Repo.CreateAttachment(&att); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &att)
}

// getAttachment serves the raw image bytes.
func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	att, err := s.app.Repo.GetAttachment(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", att.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(att.Data)
}

func (s *Server) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Repo.DeleteAttachment(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- bulk import ---

// importCSV ingests a CSV upload for the kind named in the path. Row
// failures are collected and reported, valid rows are still created.
func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	result, err := s.app.Importer.ImportCSV(kind, r.Body)
	if err != nil {
		if errors.Is(err, bulkimport.ErrUnknownKind) {
			writeErrorStatus(w, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/store"
)

var errBadInput = errors.New("bad input")

const maxBodyBytes = 1 << 20

// eventInput is the body of POST /api/events and PUT /api/events/{id}.
type eventInput struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// decodeEvent reads a JSON body, or form fields when the request was posted
// as a form.
func decodeEvent(r *http.Request) (eventInput, error) {
	var in eventInput
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return eventInput{}, fmt.Errorf("%w: %v", errBadInput, err)
		}
		in.Title = r.PostFormValue("title")
		in.Date = r.PostFormValue("date")
		in.Notes = r.PostFormValue("notes")
		return in, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return eventInput{}, fmt.Errorf("%w: expected JSON object {\"title\",\"date\":\"YYYY-MM-DD\",\"notes\"}: %v", errBadInput, err)
	}
	return in, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.LoadAll(r.Context())
	if err != nil {
		failJSON(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	store.SortByDate(events)
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := decodeEvent(r)
	if err != nil {
		failJSON(w, r, err)
		return
	}
	id, err := s.store.Add(r.Context(), in.Title, in.Date, in.Notes)
	if err != nil {
		failJSON(w, r, err)
		return
	}
	ev, err := s.store.Get(r.Context(), id)
	if err != nil {
		failJSON(w, r, err)
		return
	}
	appLog.Info("event added", "id", id, "date", ev.Date)
	w.Header().Set("Location", "/api/events/"+id)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in, err := decodeEvent(r)
	if err != nil {
		failJSON(w, r, err)
		return
	}
	if err := s.store.Update(r.Context(), id, in.Title, in.Date, in.Notes); err != nil {
		failJSON(w, r, err)
		return
	}
	ev, err := s.store.Get(r.Context(), id)
	if err != nil {
		failJSON(w, r, err)
		return
	}
	appLog.Info("event updated", "id", id, "date", ev.Date)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Remove(r.Context(), id); err != nil {
		failJSON(w, r, err)
		return
	}
	appLog.Info("event removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Form handlers back the HTML pages and redirect to the event list.

func (s *Server) handleFormAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		failPage(w, r, fmt.Errorf("%w: %v", errBadInput, err))
		return
	}
	id, err := s.store.Add(r.Context(), r.PostFormValue("title"), r.PostFormValue("date"), r.PostFormValue("notes"))
	if err != nil {
		failPage(w, r, err)
		return
	}
	appLog.Info("event added", "id", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		failPage(w, r, err)
		return
	}
	data := s.pageData()
	data.Event = ev
	s.pages.render(w, http.StatusOK, "edit.html", data)
}

func (s *Server) handleFormEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		failPage(w, r, fmt.Errorf("%w: %v", errBadInput, err))
		return
	}
	id := r.PathValue("id")
	if err := s.store.Update(r.Context(), id, r.PostFormValue("title"), r.PostFormValue("date"), r.PostFormValue("notes")); err != nil {
		failPage(w, r, err)
		return
	}
	appLog.Info("event updated", "id", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Remove(r.Context(), id); err != nil {
		failPage(w, r, err)
		return
	}
	appLog.Info("event removed", "id", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeBody decodes and validates a JSON body. When allowEmpty is set an
// empty body leaves dst at its zero value.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return validateRequest(dst)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", lifecycle.ErrInvalidInput, err)
	}
	return validateRequest(dst)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	group, err := s.groups.CreateGroup(r.Context(), req.PlaceName, req.ParticipantCount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	var (
		groups []*models.Group
		err    error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", string(models.StatusOpen):
		groups, err = s.groups.ListOpen(r.Context())
	case string(models.StatusFinished):
		groups, err = s.groups.ListHistory(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": toGroupResponses(groups)})
}

func (s *Server) handleCurrentGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.CurrentGroup(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleSelectGroup(w http.ResponseWriter, r *http.Request) {
	var req selectGroupRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	group, err := s.groups.SelectGroup(r.Context(), req.GroupID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleClearCurrent(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.ClearCurrent(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	group, err := s.groups.AddItem(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleFinishGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.FinishGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	groupID := chi.URLParam(r, "id")
	a, err := s.splits.Allocate(r.Context(), groupID, req.tipSpec())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationResponse(groupID, a))
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	text, err := s.splits.ShareText(r.Context(), chi.URLParam(r, "id"), req.tipSpec())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleTipPreview(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	value, share, err := s.splits.PreviewTip(r.Context(), chi.URLParam(r, "id"), req.tipSpec())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"tipValue": value, "perParticipant": share})
}

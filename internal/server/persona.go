package server

import (
	"encoding/json"
	"net/http"

	"github.com/ivlev/takeone/internal/providers/vision"
)

// maxJSONBody caps the persona request documents.
const maxJSONBody = 1 << 20

type personaChatRequest struct {
	Messages []vision.Message `json:"messages"`
}

type personaChatResponse struct {
	Message string `json:"message"`
}

type personaImageRequest struct {
	Description string `json:"description"`
}

// decodeJSON reads a single JSON document of at most maxJSONBody bytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("Invalid JSON body.")
	}
	return nil
}

func (s *Server) personaChat(w http.ResponseWriter, r *http.Request) {
	var req personaChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	reply, err := s.engine.PersonaChat(r.Context(), req.Messages)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personaChatResponse{Message: reply})
}

func (s *Server) personaImage(w http.ResponseWriter, r *http.Request) {
	var req personaImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	img, err := s.engine.GeneratePersona(r.Context(), req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

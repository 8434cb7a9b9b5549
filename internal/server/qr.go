package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/seanmcgon/McTrivia/internal/store"
)

// handleQR serves a QR code PNG encoding the join URL for an existing room,
// for players joining from a shared screen.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := normalizeCode(ps.ByName("code"))
	if _, err := s.store.GetGame(r.Context(), code); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "state store unreachable")
		return
	}
	png, err := qrcode.Encode(s.cfg.PublicURL+"/?code="+code, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Printf("write qr failed code=%s error=%v", code, err)
	}
}

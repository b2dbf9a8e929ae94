package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketchat/internal/domain"
	"marketchat/internal/presence"
	"marketchat/internal/service"
	"marketchat/internal/ws"
)

type userResponse struct {
	*domain.Identity
	Online bool `json:"online"`
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}

// @Summary      List online users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string][]int64
// @Router       /users/online [get]
func handleListOnlineUsers(dir *presence.Directory[*ws.Client]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]int64{"user_ids": dir.Online()})
	}
}

// @Summary      Get user identity
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        userID path int true "User ID"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  map[string]string
// @Router       /users/{userID} [get]
func handleGetUser(identities *service.IdentityService, dir *presence.Directory[*ws.Client]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "userID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		ident, err := identities.Lookup(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, userResponse{Identity: ident, Online: dir.IsOnline(id)})
	}
}

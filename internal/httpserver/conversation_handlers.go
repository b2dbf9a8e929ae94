package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marketchat/internal/service"
	"marketchat/internal/ws"
)

type conversationCreateRequest struct {
	OtherUserID int64 `json:"other_user_id" validate:"omitempty,gt=0"`
	SellerID    int64 `json:"seller_id" validate:"omitempty,gt=0"`
	ProductID   int64 `json:"product_id" validate:"required,gt=0"`
}

type messageCreateRequest struct {
	Text string `json:"text" validate:"required"`
}

// @Summary      Start or resume a conversation
// @Description  Returns the conversation between the caller and other_user_id about product_id, creating it when missing
// @Tags         conversations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body conversationCreateRequest true "Conversation"
// @Success      200  {object}  service.ConversationView
// @Success      201  {object}  service.ConversationView
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations [post]
func handleCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req conversationCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		other := req.OtherUserID
		if other == 0 {
			other = req.SellerID
		}
		if other == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "other_user_id is required"})
			return
		}

		conv, created, err := convSvc.FindOrCreate(r.Context(), CurrentUser(r).ID, other, req.ProductID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, conv)
	}
}

// @Summary      List my conversations
// @Description  Most recently active first
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  service.ConversationView
// @Router       /conversations [get]
func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, err := convSvc.ListForUser(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if convs == nil {
			convs = []*service.ConversationView{}
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

// @Summary      Get a conversation
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  service.ConversationView
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID} [get]
func handleGetConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := convSvc.Get(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "conversationID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// @Summary      Delete a conversation
// @Description  Removes the conversation and its messages for both participants
// @Tags         conversations
// @Security     BearerAuth
// @Param        conversationID path string true "Conversation ID"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID} [delete]
func handleDeleteConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := convSvc.Delete(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "conversationID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Page through message history
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        before query int false "Return messages older than this id"
// @Param        limit query int false "Page size"
// @Success      200  {object}  service.MessagePage
// @Router       /conversations/{conversationID}/messages [get]
func handleListMessages(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var before int64
		limit := 0
		q := r.URL.Query()
		if v := q.Get("before"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid before"})
				return
			}
			before = n
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}

		page, err := convSvc.ListMessages(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "conversationID"), before, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// @Summary      Send a message
// @Description  Persists the message and relays it to connected participants
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        input body messageCreateRequest true "Message"
// @Success      201  {object}  service.MessageView
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations/{conversationID}/messages [post]
func handlePostMessage(relay *ws.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := relay.Post(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "conversationID"), req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res.Message)
	}
}

// @Summary      Mark messages seen
// @Description  Marks the other participant's messages as seen by the caller
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  map[string]int64
// @Router       /conversations/{conversationID}/seen [post]
func handleMarkSeen(relay *ws.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := relay.MarkSeen(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "conversationID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
	}
}


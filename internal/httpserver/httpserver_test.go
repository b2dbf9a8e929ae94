package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"marketchat/internal/config"
	"marketchat/internal/presence"
	"marketchat/internal/security"
	"marketchat/internal/service"
	"marketchat/internal/store/sqlite"
	"marketchat/internal/ws"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := sqlite.NewUserRepo(db)
	products := sqlite.NewProductRepo(db)
	tokens := security.NewTokenService("test-secret", time.Hour)

	auth := service.NewAuthService(users, tokens, security.NewPasswordHasher(bcrypt.MinCost), logger)
	identities := service.NewIdentityService(users, nil, 0, logger)
	convs := service.NewConversationService(sqlite.NewConversationRepo(db), sqlite.NewMessageRepo(db), products,
		identities, logger, service.ConversationServiceOptions{MaxMessageLength: 50, PageSize: 2})

	hub := ws.NewHub(logger)
	dir := presence.NewDirectory[*ws.Client]()
	relay := ws.NewRelay(hub, dir, convs, logger)
	t.Cleanup(hub.CloseAll)

	return NewRouter(Deps{
		Config:        &config.Config{AppName: "marketchat", CORSOrigins: []string{"http://localhost:3000"}},
		DB:            db,
		Auth:          auth,
		Identities:    identities,
		Conversations: convs,
		Catalog:       service.NewCatalogService(products),
		Relay:         relay,
		Presence:      dir,
		Gateway:       ws.NewGateway(hub, dir, relay, auth, nil, logger),
		Logger:        logger,
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	token string
	id    int64
}

func register(t *testing.T, h http.Handler, name, email string, shop *string) session {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/register", "", registerRequest{
		Name: name, Email: email, Password: "correct-horse", ShopName: shop,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[service.TokenResponse](t, rec)
	require.NotEmpty(t, resp.AccessToken)
	return session{token: resp.AccessToken, id: resp.User.ID}
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestAuthFlow(t *testing.T) {
	h := newTestRouter(t)
	s := register(t, h, "Bea", "Bea@Example.com", nil)

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", registerRequest{Name: "Bea", Email: "bea@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", registerRequest{Name: "X", Email: "not-an-email", Password: "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "bea@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "bea@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/auth/me", s.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "bea@example.com", me["email"])
	assert.Equal(t, "buyer", me["role"])
	assert.NotContains(t, me, "hashed_password")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/auth/me", "garbage", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/auth/logout", s.token, nil).Code)
}

func TestProducts(t *testing.T) {
	h := newTestRouter(t)
	shop := "Sam's Shop"
	buyer := register(t, h, "Bea", "bea@example.com", nil)
	seller := register(t, h, "Sam", "sam@example.com", &shop)

	rec := do(t, h, http.MethodPost, "/api/products", buyer.token, productCreateRequest{Name: "Lamp"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/products", seller.token, productCreateRequest{Name: "Lamp"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[map[string]any](t, rec)
	id := int64(p["id"].(float64))
	assert.Equal(t, float64(seller.id), p["seller_id"])

	rec = do(t, h, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), buyer.token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/products/999", buyer.token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/products/abc", buyer.token, nil).Code)
}

func TestConversationLifecycle(t *testing.T) {
	h := newTestRouter(t)
	shop := "Sam's Shop"
	buyer := register(t, h, "Bea", "bea@example.com", nil)
	seller := register(t, h, "Sam", "sam@example.com", &shop)
	stranger := register(t, h, "Eve", "eve@example.com", nil)

	rec := do(t, h, http.MethodPost, "/api/products", seller.token, productCreateRequest{Name: "Lamp"})
	require.Equal(t, http.StatusCreated, rec.Code)
	productID := int64(decode[map[string]any](t, rec)["id"].(float64))

	create := conversationCreateRequest{OtherUserID: seller.id, ProductID: productID}
	rec = do(t, h, http.MethodPost, "/api/conversations", buyer.token, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[service.ConversationView](t, rec)
	assert.Len(t, conv.Participants, 2)
	require.NotNil(t, conv.Product)
	assert.Equal(t, "Lamp", conv.Product.Name)

	// the seller asking about the same product lands in the same room
	rec = do(t, h, http.MethodPost, "/api/conversations", seller.token, conversationCreateRequest{OtherUserID: buyer.id, ProductID: productID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, conv.ID, decode[service.ConversationView](t, rec).ID)

	rec = do(t, h, http.MethodPost, "/api/conversations", buyer.token, conversationCreateRequest{ProductID: productID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/conversations", buyer.token, conversationCreateRequest{OtherUserID: 999, ProductID: productID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	base := "/api/conversations/" + conv.ID
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, base, stranger.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/conversations/missing", buyer.token, nil).Code)

	for _, text := range []string{"hi", "is it available?", "  still there?  "} {
		rec = do(t, h, http.MethodPost, base+"/messages", buyer.token, messageCreateRequest{Text: text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	last := decode[service.MessageView](t, rec)
	assert.Equal(t, "still there?", last.Text)
	assert.Equal(t, buyer.id, last.SenderID)

	rec = do(t, h, http.MethodPost, base+"/messages", buyer.token, messageCreateRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, base+"/messages", stranger.token, messageCreateRequest{Text: "hello"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/messages", seller.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.MessagePage](t, rec)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextBefore)
	assert.Equal(t, "still there?", page.Messages[1].Text)

	rec = do(t, h, http.MethodGet, base+"/messages?before="+strconv.FormatInt(*page.NextBefore, 10), seller.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	older := decode[service.MessagePage](t, rec)
	require.Len(t, older.Messages, 1)
	assert.Equal(t, "hi", older.Messages[0].Text)
	assert.False(t, older.HasMore)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, base+"/messages?limit=x", seller.token, nil).Code)

	rec = do(t, h, http.MethodPost, base+"/seen", seller.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[map[string]int64](t, rec)["updated"])
	rec = do(t, h, http.MethodPost, base+"/seen", seller.token, nil)
	assert.Equal(t, int64(0), decode[map[string]int64](t, rec)["updated"])

	rec = do(t, h, http.MethodGet, "/api/conversations", seller.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]service.ConversationView](t, rec)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "still there?", *list[0].LastMessage)

	rec = do(t, h, http.MethodGet, "/api/conversations", stranger.token, nil)
	assert.Equal(t, "[]\n", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, base, stranger.token, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, base, seller.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, base, buyer.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, base+"/messages", buyer.token, messageCreateRequest{Text: "hello?"}).Code)
}

func TestUsers(t *testing.T) {
	h := newTestRouter(t)
	shop := "Sam's Shop"
	buyer := register(t, h, "Bea", "bea@example.com", nil)
	seller := register(t, h, "Sam", "sam@example.com", &shop)

	rec := do(t, h, http.MethodGet, "/api/users/"+strconv.FormatInt(seller.id, 10), buyer.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	u := decode[map[string]any](t, rec)
	assert.Equal(t, "Sam", u["name"])
	assert.Equal(t, shop, u["shop_name"])
	assert.Equal(t, false, u["online"])
	assert.NotContains(t, u, "email")

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/users/999", buyer.token, nil).Code)

	rec = do(t, h, http.MethodGet, "/api/users/online", buyer.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]int64](t, rec)["user_ids"])
}

// Package authapi exposes the session lifecycle over HTTP: register, login,
// refresh-token rotation, logout, and the authenticated read endpoints.
//
// Response shapes follow the {ok: bool, ...} envelope contract, including its
// quirks: a register conflict answers 401, and login failures name whether
// the user or the password was wrong (a known hardening gap, kept as-is).
package authapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"courier/internal/friendship"
	"courier/internal/identity"
	"courier/internal/token"
)

// Handler wires the HTTP auth endpoints to the identity store, the friendship
// service, and the token service.
type Handler struct {
	log *slog.Logger
	cfg Config

	identity identity.Store
	friends  *friendship.Service
	tokens   *token.Service

	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, idStore identity.Store, friends *friendship.Service, tokens *token.Service) *Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		identity: idStore,
		friends:  friends,
		tokens:   tokens,
	}

	// Dummy hash for timing-resistant login checks when the user is missing.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only", identity.DefaultArgon2idParams()); err == nil {
		h.dummyHash = hash
	}

	return h
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/register", h.handleRegister)
	mux.HandleFunc("/login", h.handleLogin)
	mux.HandleFunc("/refresh", h.handleRefresh)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc("/user", h.handleUser)
	mux.HandleFunc("/findUser", h.handleFindUser)
	mux.HandleFunc("/addFriend", h.handleAddFriend)
	mux.HandleFunc("/friends/", h.handleFriends)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := identity.HashPassword(req.Password, identity.DefaultArgon2idParams())
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid password")
		return
	}

	ctx := r.Context()
	if _, err := h.identity.CreateUser(ctx, identity.CreateUserInput{
		Name:         username,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	}); err != nil {
		if identity.IsConflict(err) {
			// 401 on conflict is the source contract, kept verbatim.
			writeFail(w, http.StatusUnauthorized, "User already exists")
			return
		}
		h.log.Error("auth.register.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{OK: true})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	ua, err := h.identity.GetUserAuthByName(ctx, req.Username)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeFail(w, http.StatusInternalServerError, "internal error")
			return
		}
		// Timing resistance: perform a dummy verify when the user is missing.
		if h.dummyHash != "" {
			_, _ = identity.VerifyPassword(req.Password, h.dummyHash)
		}
		writeFail(w, http.StatusUnauthorized, "User not found")
		return
	}

	ok, err := identity.VerifyPassword(req.Password, ua.PasswordHash)
	if err != nil || !ok {
		writeFail(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	accessToken, _, err := h.tokens.IssueAccessToken(ua.User.ID, now)
	if err != nil {
		h.log.Error("auth.login.access_token.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken, refreshExp, err := h.tokens.IssueRefreshToken(ua.User.ID, now)
	if err != nil {
		h.log.Error("auth.login.refresh_token.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Intentional split: the refresh token rides an HTTP-only cookie, the
	// access token rides the body.
	h.setRefreshCookie(w, refreshToken, refreshExp)

	h.log.Info("auth.login", "user_id", ua.User.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		OK:          true,
		User:        toUserResponse(ua.User),
		AccessToken: accessToken,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken, ok := h.refreshTokenFromCookie(r)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	accessToken, _, err := h.tokens.Rotate(refreshToken, time.Now().UTC())
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{OK: true, AccessToken: accessToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Stateless tokens cannot be revoked early; clearing the cookie is the
	// whole logout (flagged limitation).
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, logoutResponse{OK: true})
}

// handleUser serves both shapes of the /user route: GET returns the
// authenticated caller, POST looks up an arbitrary user by id.
func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleCurrentUser(w, r)
	case http.MethodPost:
		h.handleUserByID(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	u, err := h.identity.GetUserByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeFail(w, http.StatusUnauthorized, "User not found")
			return
		}
		h.log.Error("auth.user.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	views, err := h.friends.FriendsWithLatest(ctx, userID)
	if err != nil {
		h.log.Error("auth.user.friends.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	friends := make([]friendResponse, 0, len(views))
	for _, v := range views {
		friends = append(friends, toFriendResponse(v))
	}

	writeJSON(w, http.StatusOK, currentUserResponse{
		OK: true,
		User: userWithFriends{
			userResponse: toUserResponse(u),
			Friends:      friends,
		},
	})
}

func (h *Handler) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAuth(w, r); !ok {
		return
	}

	var req userByIDRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeFail(w, http.StatusBadRequest, "id is required")
		return
	}

	u, err := h.identity.GetUserByID(r.Context(), req.ID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeFail(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("auth.user_by_id.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, findUserResponse{OK: true, User: toUserResponse(u)})
}

func (h *Handler) handleFindUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.requireAuth(w, r); !ok {
		return
	}

	var req findUserRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.identity.GetUserByName(r.Context(), req.Name)
	if err != nil {
		if identity.IsNotFound(err) {
			writeFail(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("auth.find_user.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, findUserResponse{OK: true, User: toUserResponse(u)})
}

func (h *Handler) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req addFriendRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.FriendID) == "" {
		writeFail(w, http.StatusBadRequest, "friendId is required")
		return
	}

	// One directed edge per call; the reciprocal edge is a separate call from
	// the other side.
	edge, err := h.friends.AddFriend(r.Context(), userID, req.FriendID, req.Name)
	if err != nil {
		h.log.Error("auth.add_friend.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, addFriendResponse{OK: true, Friend: toEdgeResponse(edge)})
}

func (h *Handler) handleFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.requireAuth(w, r); !ok {
		return
	}

	ownerID := strings.TrimPrefix(r.URL.Path, "/friends/")
	ownerID = strings.TrimSpace(strings.Trim(ownerID, "/"))
	if ownerID == "" {
		writeFail(w, http.StatusBadRequest, "missing user id")
		return
	}

	views, err := h.friends.FriendsWithLatest(r.Context(), ownerID)
	if err != nil {
		h.log.Error("auth.friends.fail", "err", err)
		writeFail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(views) == 0 {
		writeFail(w, http.StatusNotFound, "no friends found")
		return
	}

	friends := make([]friendResponse, 0, len(views))
	for _, v := range views {
		friends = append(friends, toFriendResponse(v))
	}
	writeJSON(w, http.StatusOK, friendsResponse{OK: true, Friends: friends})
}

// ---- helpers ----

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := bearerToken(r)
	if tok == "" {
		writeFail(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}
	subject, err := h.tokens.VerifyAccess(tok, time.Now().UTC())
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return subject, true
}

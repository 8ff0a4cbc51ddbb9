package authapi

import (
	"time"

	"courier/internal/friendship"
	"courier/internal/identity"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type addFriendRequest struct {
	FriendID string `json:"friendId"`
	Name     string `json:"name"`
}

type findUserRequest struct {
	Name string `json:"name"`
}

type userByIDRequest struct {
	ID string `json:"id"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

type friendResponse struct {
	ID            string           `json:"id"`
	FriendID      string           `json:"friendId"`
	Name          string           `json:"name"`
	CreatedAt     time.Time        `json:"createdAt"`
	LatestMessage *messageResponse `json:"latestMessage,omitempty"`
}

type registerResponse struct {
	OK bool `json:"ok"`
}

type loginResponse struct {
	OK          bool         `json:"ok"`
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type refreshResponse struct {
	OK          bool   `json:"ok"`
	AccessToken string `json:"accessToken"`
}

type logoutResponse struct {
	OK bool `json:"ok"`
}

type currentUserResponse struct {
	OK   bool            `json:"ok"`
	User userWithFriends `json:"user"`
}

type userWithFriends struct {
	userResponse
	Friends []friendResponse `json:"friends"`
}

type friendsResponse struct {
	OK      bool             `json:"ok"`
	Friends []friendResponse `json:"friends"`
}

type addFriendResponse struct {
	OK     bool           `json:"ok"`
	Friend friendResponse `json:"friend"`
}

type findUserResponse struct {
	OK   bool         `json:"ok"`
	User userResponse `json:"user"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
}

func toFriendResponse(v friendship.FriendView) friendResponse {
	out := friendResponse{
		ID:        v.Edge.ID,
		FriendID:  v.Edge.FriendID,
		Name:      v.Edge.DisplayName,
		CreatedAt: v.Edge.CreatedAt,
	}
	if v.Latest != nil {
		out.LatestMessage = &messageResponse{
			ID:        v.Latest.ID,
			Content:   v.Latest.Content,
			SenderID:  v.Latest.SenderID,
			CreatedAt: v.Latest.CreatedAt,
		}
	}
	return out
}

func toEdgeResponse(e friendship.Edge) friendResponse {
	return friendResponse{
		ID:        e.ID,
		FriendID:  e.FriendID,
		Name:      e.DisplayName,
		CreatedAt: e.CreatedAt,
	}
}

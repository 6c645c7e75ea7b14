package httpapi

import (
	"net/http"

	"github.com/semmidev/custos/internal/domain"
)

type usersResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Users   []domain.User `json:"users"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	out, users := h.Users.List(r.Context())
	respondJSON(w, http.StatusOK, usersResponse{Success: out.Success, Message: out.Message, Users: users})
}

func (h *Handler) manageUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if req.Operation == "" || req.Username == "" {
		badRequest(w, "Missing required fields")
		return
	}

	op, err := domain.ParseUserOperation(req.Operation)
	if err != nil {
		respondOutcome(w, domain.Failed("User operation failed: %v", err))
		return
	}

	respondOutcome(w, h.Users.Manage(r.Context(), domain.UserRequest{
		Operation:  op,
		Username:   req.Username,
		Password:   req.Password,
		Privileges: req.Privileges,
	}))
}

package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
)

// RegistrationSuccess is shown after sign-up; the account still needs approval.
const RegistrationSuccess = "Registration successful! Please wait for admin approval."

type Handler struct {
	Provider SessionProvider
	Profiles store.Profiles
}

type credentialsRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	DisplayName    string `json:"display_name"`
	RedirectedFrom string `json:"redirected_from"`
}

// decodeCredentials accepts a JSON body or a regular form post.
func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Email = r.PostForm.Get("email")
	req.Password = r.PostForm.Get("password")
	req.DisplayName = r.PostForm.Get("display_name")
	req.RedirectedFrom = r.PostForm.Get("redirected_from")
	return req, nil
}

// SafeRedirect returns target when it is a path on this site, else /dashboard.
func SafeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/dashboard"
	}
	return target
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrMissingEmail):
		return http.StatusBadRequest
	case errors.Is(err, ErrRegistrationNotConfigured), errors.Is(err, ErrSignInNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeAuthError(w http.ResponseWriter, op string, err error) {
	status := authErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[auth] %s: %v", op, err)
		utils.WriteError(w, status, "An unexpected error occurred")
		return
	}
	utils.WriteError(w, status, err.Error())
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"page":            "login",
		"redirected_from": r.URL.Query().Get("redirectedFrom"),
	})
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"page": "register"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid Request Format")
		return
	}

	cookie, _, err := h.Provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, "sign in", err)
		return
	}
	http.SetCookie(w, cookie)

	target := req.RedirectedFrom
	if target == "" {
		target = r.URL.Query().Get("redirectedFrom")
	}
	http.Redirect(w, r, SafeRedirect(target), http.StatusSeeOther)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid Request Format")
		return
	}

	cred, err := h.Provider.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeAuthError(w, "sign up", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id": cred.UserID,
		"message": RegistrationSuccess,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.Provider.SignOut(r.Context(), r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	if err != nil {
		log.Printf("[auth] sign out: %v", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	profile, err := h.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if store.IsKind(err, store.KindNotFound) {
			http.Error(w, "Couldn't find user", http.StatusNotFound)
			return
		}
		utils.WriteError(w, store.KindOf(err).HTTPStatus(), store.Message(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, profile)
}
